package artifact

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory artifact store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedArtifact // projectID -> generationID -> artifact
	closed bool
}

// storedArtifact holds artifact code with metadata for List().
type storedArtifact struct {
	code      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates a new in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedArtifact),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(projectID, generationID string, code []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[projectID] == nil {
		m.data[projectID] = make(map[string]storedArtifact)
	}

	seq := 1
	for _, a := range m.data[projectID] {
		if a.sequence >= seq {
			seq = a.sequence + 1
		}
	}

	// Copy to avoid retaining the caller's slice
	stored := make([]byte, len(code))
	copy(stored, code)

	m.data[projectID][generationID] = storedArtifact{
		code:      stored,
		sequence:  seq,
		timestamp: time.Now().UTC(),
	}

	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(projectID, generationID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	project, ok := m.data[projectID]
	if !ok {
		return nil, ErrNotFound
	}

	a, ok := project[generationID]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(a.code))
	copy(result, a.code)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(projectID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	project, ok := m.data[projectID]
	if !ok {
		return nil, nil
	}

	infos := make([]Info, 0, len(project))
	for generationID, a := range project {
		infos = append(infos, Info{
			ProjectID:    projectID,
			GenerationID: generationID,
			Sequence:     a.sequence,
			Timestamp:    a.timestamp,
			Size:         int64(len(a.code)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})

	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(projectID, generationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if project, ok := m.data[projectID]; ok {
		delete(project, generationID)
	}
	return nil
}

// DeleteProject implements Store.
func (m *MemoryStore) DeleteProject(projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, projectID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of artifacts across all projects.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, project := range m.data {
		count += len(project)
	}
	return count
}
