package theme

import "sync"

// Storage is the string key-value store the preference is persisted in.
// Implementations may be unavailable and return errors from any call.
type Storage interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Change is one key update; Remove deletes the key instead of setting it.
type Change struct {
	Key    string
	Value  string
	Remove bool
}

// Batcher is implemented by storages that can apply several changes
// atomically: either all of them land or none do.
type Batcher interface {
	Apply(changes []Change) error
}

func writeChanges(st Storage, changes []Change) error {
	if b, ok := st.(Batcher); ok {
		return b.Apply(changes)
	}
	for _, c := range changes {
		var err error
		if c.Remove {
			err = st.Remove(c.Key)
		} else {
			err = st.Set(c.Key, c.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MemoryStorage keeps values for the lifetime of the process only.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
