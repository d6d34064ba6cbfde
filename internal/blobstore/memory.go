package blobstore

import (
	"context"
	"strings"
	"sync"
)

// Memory keeps blobs in a map. Used in tests and as a throwaway dev store.
type Memory struct {
	baseURL string

	mu    sync.Mutex
	blobs map[string]memBlob
}

type memBlob struct {
	data        []byte
	contentType string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		blobs:   make(map[string]memBlob),
	}
}

func (m *Memory) Put(_ context.Context, path string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = memBlob{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

func (m *Memory) URL(path string) (string, error) {
	return m.baseURL + "/" + strings.TrimLeft(path, "/"), nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

// Has reports whether a blob exists at path.
func (m *Memory) Has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
