package wishlist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Persistence stores the encoded wishlist under a single key.
// Load returns nil data when nothing has been stored yet.
type Persistence interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// MemoryPersistence keeps the encoded wishlist in memory
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
	// SaveErr, when set, is returned by every Save call
	SaveErr error
}

// NewMemoryPersistence returns a memory store seeded with data
func NewMemoryPersistence(data []byte) *MemoryPersistence {
	return &MemoryPersistence{data: append([]byte(nil), data...)}
}

func (m *MemoryPersistence) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryPersistence) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

// FilePersistence keeps the encoded wishlist in a JSON file
type FilePersistence struct {
	Path string
}

func (f FilePersistence) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save writes through a temporary file so a crash never leaves half a list
func (f FilePersistence) Save(data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".wishlist-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
