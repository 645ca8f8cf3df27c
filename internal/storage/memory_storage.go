package storage

import (
	"errors"
	"sync"
)

// ErrWriteUnavailable simulates a disabled or full storage medium.
var ErrWriteUnavailable = errors.New("storage: write unavailable")

// MemoryStorage implements Storage entirely in memory. It is the test
// double for FileStorage and doubles as the failure-injection point for
// the persistence-unavailable path.
type MemoryStorage struct {
	mu         sync.RWMutex
	data       map[string][]byte
	failWrites bool
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]byte),
	}
}

// Read returns the payload for key
func (ms *MemoryStorage) Read(key string) ([]byte, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	data, ok := ms.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// Write stores the payload for key
func (ms *MemoryStorage) Write(key string, data []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.failWrites {
		return ErrWriteUnavailable
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	ms.data[key] = cp
	return nil
}

// Delete removes the key
func (ms *MemoryStorage) Delete(key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.failWrites {
		return ErrWriteUnavailable
	}
	delete(ms.data, key)
	return nil
}

// FailWrites toggles write-failure injection
func (ms *MemoryStorage) FailWrites(fail bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.failWrites = fail
}

// Put seeds a payload directly, bypassing failure injection
func (ms *MemoryStorage) Put(key string, data []byte) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data[key] = data
}
