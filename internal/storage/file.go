package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every viewer's snapshots in one JSON file.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	viewers map[string]map[Key]json.RawMessage
}

// NewFileStore creates or loads a FileStore located at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store: empty path")
	}
	s := &FileStore{
		path:    path,
		viewers: make(map[string]map[Key]json.RawMessage),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, viewer string, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.viewers[viewer][key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Set(_ context.Context, viewer string, key Key, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("file store: value for %s is not JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.viewers[viewer]
	if !ok {
		slots = make(map[Key]json.RawMessage)
		s.viewers[viewer] = slots
	}
	slots[key] = append(json.RawMessage(nil), value...)
	return s.saveLocked()
}

func (s *FileStore) Delete(_ context.Context, viewer string, keys ...Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, ok := s.viewers[viewer]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(slots, key)
	}
	if len(slots) == 0 {
		delete(s.viewers, viewer)
	}
	return s.saveLocked()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	var payload struct {
		Viewers map[string]map[Key]json.RawMessage `json:"viewers"`
	}
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		return err
	}
	for viewer, slots := range payload.Viewers {
		s.viewers[viewer] = slots
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	payload := struct {
		Viewers map[string]map[Key]json.RawMessage `json:"viewers"`
	}{Viewers: s.viewers}

	tmpPath := s.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&payload); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
