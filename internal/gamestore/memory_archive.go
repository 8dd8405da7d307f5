package gamestore

import (
	"context"
	"sort"
	"sync"
)

// MemoryArchive keeps finished games in process. Used when no database is configured.
type MemoryArchive struct {
	mu      sync.Mutex
	results map[int64]*GameRecord
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{results: make(map[int64]*GameRecord)}
}

func (a *MemoryArchive) SaveResult(ctx context.Context, rec *GameRecord) error {
	if !rec.Finished() {
		return nil
	}
	a.mu.Lock()
	a.results[rec.ID] = rec.Clone()
	a.mu.Unlock()
	return nil
}

// Results returns archived games ordered by id.
func (a *MemoryArchive) Results() []*GameRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*GameRecord, 0, len(a.results))
	for _, r := range a.results {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
