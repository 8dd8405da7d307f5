package live

import (
	"context"
	"sync"
)

// gameLocks hands out one mutex per game id. Entries are dropped when unused.
type gameLocks struct {
	mu    sync.Mutex
	locks map[int64]*gameLock
}

type gameLock struct {
	ch   chan struct{}
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[int64]*gameLock)}
}

// Lock blocks until the game's lock is held or ctx is done.
func (g *gameLocks) Lock(ctx context.Context, id int64) (func(), error) {
	g.mu.Lock()
	l := g.locks[id]
	if l == nil {
		l = &gameLock{ch: make(chan struct{}, 1)}
		g.locks[id] = l
	}
	l.refs++
	g.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		g.release(id, l)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			g.release(id, l)
		})
	}, nil
}

func (g *gameLocks) release(id int64, l *gameLock) {
	g.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, id)
	}
	g.mu.Unlock()
}

func (g *gameLocks) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}
