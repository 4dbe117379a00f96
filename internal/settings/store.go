// Package settings persists the user's display and review preferences as a
// flat key-value record.
package settings

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalidKey is returned when a settings key contains invalid characters.
var ErrInvalidKey = errors.New("invalid settings key")

// ErrInvalidValue is returned when a write would violate the settings schema.
var ErrInvalidValue = errors.New("invalid settings value")

// Store provides access to the settings record.
type Store interface {
	// Get returns a single entry by key, or nil when the key is unset.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set creates or updates an entry.
	Set(ctx context.Context, key string, value any) error

	// GetAll returns all stored entries.
	GetAll(ctx context.Context) (map[string]Entry, error)

	// Delete removes an entry. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Entry represents a single settings entry.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ValidateKey checks that a key contains only letters, digits and underscores.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	return nil
}

// FileStore implements Store on a JSON file. Every read goes to disk so
// edits made by other processes are picked up.
type FileStore struct {
	mu     sync.Mutex
	path   string
	schema *jsonschema.Schema
}

// NewFileStore creates a store backed by the file at path. The file does
// not need to exist.
func NewFileStore(path string) (*FileStore, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("settings.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load settings schema: %w", err)
	}
	schema, err := compiler.Compile("settings.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile settings schema: %w", err)
	}
	return &FileStore{path: path, schema: schema}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns a single entry by key.
func (s *FileStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	v, ok := doc[key]
	if !ok {
		return nil, nil
	}
	return &Entry{Key: key, Value: normalize(v), Description: descriptions[key]}, nil
}

// Set creates or updates an entry. The whole record is validated before
// it is written.
func (s *FileStore) Set(ctx context.Context, key string, value any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[key] = value
	return s.write(doc)
}

// GetAll returns all stored entries.
func (s *FileStore) GetAll(ctx context.Context) (map[string]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	result := make(map[string]Entry, len(doc))
	for k, v := range doc {
		result[k] = Entry{Key: k, Value: normalize(v), Description: descriptions[k]}
	}
	return result, nil
}

// Delete removes an entry by key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.write(doc)
}

func (s *FileStore) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	doc, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, s.path, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string]any) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	// Validate the encoded form so Go-typed values are checked the same
	// way a later read will see them.
	decoded, err := decode(data)
	if err != nil {
		return fmt.Errorf("failed to re-read settings: %w", err)
	}
	if err := s.schema.Validate(decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

func decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// normalize turns json.Number into int64 or float64 so callers see plain Go values.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	}
	return v
}

// Keys returns the known settings keys in a stable order.
func Keys() []string {
	keys := make([]string, 0, len(descriptions))
	for k := range descriptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
