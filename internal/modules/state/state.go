// Package state holds the instance-state bundle a view saves on teardown
// and gets back when it is recreated.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Bundle is an opaque string key/value snapshot.
type Bundle struct {
	values map[string]string
}

// NewBundle returns an empty Bundle.
func NewBundle() *Bundle {
	return &Bundle{values: make(map[string]string)}
}

// PutString stores value under key.
func (b *Bundle) PutString(key, value string) {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	b.values[key] = value
}

// GetString returns the value stored under key.
func (b *Bundle) GetString(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.values[key]
	return v, ok
}

// Has reports whether every key is present.
func (b *Bundle) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := b.GetString(k); !ok {
			return false
		}
	}
	return true
}

// Len returns the number of stored keys.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.values)
}

// MarshalYAML writes the bundle as a plain mapping.
func (b *Bundle) MarshalYAML() (interface{}, error) {
	return b.values, nil
}

// UnmarshalYAML reads a plain mapping.
func (b *Bundle) UnmarshalYAML(node *yaml.Node) error {
	values := make(map[string]string)
	if err := node.Decode(&values); err != nil {
		return err
	}
	b.values = values
	return nil
}

// Save writes a snapshot of b to path.
func Save(path string, b *Bundle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	b := NewBundle()
	if err := yaml.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return b, nil
}
