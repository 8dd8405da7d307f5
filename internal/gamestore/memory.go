package gamestore

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryStore is used when no database is configured, and in tests.
type memoryStore struct {
	mu     sync.RWMutex
	nextID int64
	games  map[int64]*GameRecord
}

func NewMemoryStore() Repository {
	return &memoryStore{games: make(map[int64]*GameRecord)}
}

func (m *memoryStore) Create(ctx context.Context, name string) (*GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := NewRecord(m.nextID, strings.TrimSpace(name))
	m.games[rec.ID] = rec.Clone()
	return rec, nil
}

func (m *memoryStore) Load(ctx context.Context, id int64) (*GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec.Clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return storageErr("save", errNilRecord)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.ID]; !ok {
		return notFound(rec.ID)
	}
	rec.UpdatedAt = time.Now().UTC()
	m.games[rec.ID] = rec.Clone()
	return nil
}

func (m *memoryStore) Close() error { return nil }
