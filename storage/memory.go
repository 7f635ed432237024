package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryUploader keeps objects in memory. It backs local runs without R2
// credentials and tests.
type MemoryUploader struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryUploader(baseURL string) *MemoryUploader {
	return &MemoryUploader{objects: make(map[string][]byte), baseURL: baseURL}
}

func (m *MemoryUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return &UploadResult{Key: key, Location: m.GetPublicURL(key)}, nil
}

func (m *MemoryUploader) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryUploader) GetPublicURL(key string) string {
	u, _ := joinPublicURL(m.baseURL, key)
	return u
}

// Object returns a stored object and whether it exists.
func (m *MemoryUploader) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}
