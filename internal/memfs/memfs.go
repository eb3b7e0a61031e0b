// Package memfs is a process-global, in-memory named byte store.
//
// The training core persists models only by name (it was written against a
// filesystem API), so memfs stands in for that filesystem: model bytes are
// staged under a unique name for the duration of a fit or predict call and
// removed afterward, without ever touching disk.
package memfs

import (
	"io/fs"
	"sync"
)

// Store maps names to byte contents.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

// std is the process-global store shared by the adapter and the engine,
// mirroring the single in-memory filesystem both sides of the original
// boundary wrote to.
var std = NewStore()

// Default returns the process-global store.
func Default() *Store {
	return std
}

// WriteFile stores data under name, replacing any previous contents.
// The data is copied; the caller keeps ownership of its slice.
func (s *Store) WriteFile(name string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.files[name] = buf
	s.mu.Unlock()
}

// ReadFile returns a copy of the contents stored under name.
// It reports fs.ErrNotExist if the name is absent.
func (s *Store) ReadFile(name string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.files[name]
	s.mu.RUnlock()

	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Remove deletes the entry for name. Removing an absent name is not an
// error; cleanup paths may run more than once.
func (s *Store) Remove(name string) {
	s.mu.Lock()
	delete(s.files, name)
	s.mu.Unlock()
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
