// Package artifact provides persistent storage for compiled bot programs.
package artifact

import (
	"errors"
	"time"
)

// Store persists compiled artifacts keyed by project and generation.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores an artifact for a project under a generation id.
	// Overwrites if an artifact for (projectID, generationID) already exists.
	Save(projectID, generationID string, code []byte) error

	// Load retrieves an artifact.
	// Returns ErrNotFound if the artifact doesn't exist.
	Load(projectID, generationID string) ([]byte, error)

	// List returns all artifacts for a project, oldest first.
	// Returns empty slice (not error) if the project has no artifacts.
	List(projectID string) ([]Info, error)

	// Delete removes a specific artifact.
	// Returns nil if the artifact doesn't exist.
	Delete(projectID, generationID string) error

	// DeleteProject removes all artifacts for a project.
	// Returns nil if the project has no artifacts.
	DeleteProject(projectID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides artifact metadata without loading the code.
type Info struct {
	ProjectID    string
	GenerationID string
	Sequence     int
	Timestamp    time.Time
	Size         int64
}

// Sentinel errors for artifact operations.
var (
	// ErrNotFound indicates an artifact doesn't exist.
	ErrNotFound = errors.New("artifact not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("artifact store closed")
)
