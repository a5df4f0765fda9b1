package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawDocument is the wire shape of an authored flow document. Node data is
// decoded as a raw map and converted through DataMap so a single malformed
// field never rejects the whole document.
type rawDocument struct {
	Nodes []struct {
		ID   string         `json:"id" yaml:"id"`
		Type string         `json:"type" yaml:"type"`
		Data map[string]any `json:"data" yaml:"data"`
	} `json:"nodes" yaml:"nodes"`
	Connections []struct {
		Source string `json:"source" yaml:"source"`
		Target string `json:"target" yaml:"target"`
	} `json:"connections" yaml:"connections"`
}

// FromFile loads a flow document from a file, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (*Document, error) {
	// The extension decides the decoder, so reject unsupported formats
	// before touching the filesystem.
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported flow document extension: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow document: %w", err)
	}
	if ext == ".json" {
		return FromJSON(data)
	}
	return FromYAML(data)
}

// FromJSON parses a JSON flow document.
func FromJSON(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return fromRaw(raw), nil
}

// FromYAML parses a YAML flow document.
func FromYAML(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return fromRaw(raw), nil
}

// fromRaw normalizes a raw document: ids are trimmed, nodes without an id
// are dropped, node order is preserved. Dangling connection targets are kept;
// the generator compiles defensive fallbacks around them.
func fromRaw(raw rawDocument) *Document {
	doc := &Document{}
	for _, rn := range raw.Nodes {
		id := strings.TrimSpace(rn.ID)
		if id == "" {
			continue
		}
		doc.Nodes = append(doc.Nodes, Node{
			ID:   id,
			Type: NodeType(strings.ToLower(strings.TrimSpace(rn.Type))),
			Data: nodeDataFromMap(NewDataMap(rn.Data)),
		})
	}
	for _, rc := range raw.Connections {
		src := strings.TrimSpace(rc.Source)
		dst := strings.TrimSpace(rc.Target)
		if src == "" || dst == "" {
			continue
		}
		doc.Connections = append(doc.Connections, Connection{Source: src, Target: dst})
	}
	return doc
}
