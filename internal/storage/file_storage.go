package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStorage implements Storage using an in-memory map flushed to one
// file per key under a data directory. Existing files are loaded
// lazily on first read, so a fresh process observes the previous
// process's writes.
type FileStorage struct {
	mu      sync.RWMutex
	dataDir string
	loaded  map[string][]byte
}

// NewFileStorage creates a file-backed storage rooted at dataDir
func NewFileStorage(dataDir string) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStorage{
		dataDir: dataDir,
		loaded:  make(map[string][]byte),
	}, nil
}

// Read returns the payload for key, loading it from disk on first
// access. A missing file means the key is absent.
func (fs *FileStorage) Read(key string) ([]byte, bool, error) {
	fs.mu.RLock()
	if data, ok := fs.loaded[key]; ok {
		fs.mu.RUnlock()
		return data, true, nil
	}
	fs.mu.RUnlock()

	data, err := os.ReadFile(fs.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	fs.mu.Lock()
	fs.loaded[key] = data
	fs.mu.Unlock()

	return data, true, nil
}

// Write persists the payload for key to disk before updating the
// in-memory copy, so a crash mid-write never leaves memory ahead of
// disk.
func (fs *FileStorage) Write(key string, data []byte) error {
	path := fs.pathFor(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", key, err)
	}

	fs.mu.Lock()
	fs.loaded[key] = data
	fs.mu.Unlock()

	return nil
}

// Delete removes the key's payload from disk and memory
func (fs *FileStorage) Delete(key string) error {
	fs.mu.Lock()
	delete(fs.loaded, key)
	fs.mu.Unlock()

	err := os.Remove(fs.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// pathFor maps a storage key to a file path, replacing separators that
// would escape the data directory.
func (fs *FileStorage) pathFor(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(fs.dataDir, safe+".json")
}
