package storage

import (
	"sync"

	"github.com/atinyakov/QuizDesk/internal/models"
)

// MemoryStore keeps the pair for the life of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	creds models.Credentials
}

func (m *MemoryStore) Load() (models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds, nil
}

func (m *MemoryStore) Save(creds models.Credentials) error {
	if !creds.Complete() {
		return ErrHalfPair
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = models.Credentials{}
	return nil
}
