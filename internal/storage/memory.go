package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStorage хранит объекты в памяти. Используется в тестах
// вместо S3-клиента.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	dirs    map[string]bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		dirs:    make(map[string]bool),
	}
}

func (m *MemoryStorage) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[path]; ok {
		return true, nil
	}
	return m.dirs[path], nil
}

func (m *MemoryStorage) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStorage) Write(_ context.Context, dir, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dir + "/" + filename
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = stored
	return key, nil
}

func (m *MemoryStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *MemoryStorage) Move(_ context.Context, oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	moved := false

	if data, ok := m.objects[oldPath]; ok {
		m.objects[newPath] = data
		delete(m.objects, oldPath)
		moved = true
	}

	if m.dirs[oldPath] {
		m.dirs[newPath] = true
		delete(m.dirs, oldPath)
		moved = true
	}

	// Переносим содержимое каталога
	prefix := oldPath + "/"
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			m.objects[newPath+"/"+strings.TrimPrefix(key, prefix)] = data
			delete(m.objects, key)
			moved = true
		}
	}
	for dir := range m.dirs {
		if strings.HasPrefix(dir, prefix) {
			m.dirs[newPath+"/"+strings.TrimPrefix(dir, prefix)] = true
			delete(m.dirs, dir)
			moved = true
		}
	}

	if !moved {
		return fmt.Errorf("object not found: %s", oldPath)
	}
	return nil
}

func (m *MemoryStorage) MakeDirectory(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	return nil
}

func (m *MemoryStorage) DeleteDirectory(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dirs, path)

	prefix := path + "/"
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	for dir := range m.dirs {
		if strings.HasPrefix(dir, prefix) {
			delete(m.dirs, dir)
		}
	}
	return nil
}

// Paths возвращает пути всех объектов и каталогов. Вспомогательный
// метод для проверок в тестах.
func (m *MemoryStorage) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.objects)+len(m.dirs))
	for key := range m.objects {
		paths = append(paths, key)
	}
	for dir := range m.dirs {
		paths = append(paths, dir)
	}
	return paths
}
