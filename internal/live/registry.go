package live

import (
	"errors"
	"sort"
	"sync"
)

var (
	errNotAttached = errors.New("live: connection not attached")
	errBoundElse   = errors.New("live: connection bound to another game")
)

type binding struct {
	gameID   int64
	bound    bool
	username string
}

// Registry tracks live connections and the game each one is bound to.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[*Conn]*binding
	games map[int64]map[*Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[*Conn]*binding),
		games: make(map[int64]map[*Conn]struct{}),
	}
}

// Add registers an unbound connection.
func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		r.conns[c] = &binding{}
	}
}

// Bind attaches c to gameID. Binding again to the same game is a no-op;
// binding to a different game fails until the connection is unbound.
func (r *Registry) Bind(c *Conn, gameID int64, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[c]
	if !ok {
		return errNotAttached
	}
	if b.bound && b.gameID != gameID {
		return errBoundElse
	}
	b.gameID, b.bound, b.username = gameID, true, username
	set := r.games[gameID]
	if set == nil {
		set = make(map[*Conn]struct{})
		r.games[gameID] = set
	}
	set[c] = struct{}{}
	return nil
}

// GameOf returns the game c is bound to.
func (r *Registry) GameOf(c *Conn) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[c]
	if !ok || !b.bound {
		return 0, false
	}
	return b.gameID, true
}

// Unbind detaches c from its game but keeps it registered.
func (r *Registry) Unbind(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[c]; ok {
		r.unbindLocked(c, b)
	}
}

// Remove forgets c entirely and returns the game it was bound to, if any.
func (r *Registry) Remove(c *Conn) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[c]
	if !ok {
		return 0, false
	}
	gameID, bound := b.gameID, b.bound
	r.unbindLocked(c, b)
	delete(r.conns, c)
	return gameID, bound
}

func (r *Registry) unbindLocked(c *Conn, b *binding) {
	if !b.bound {
		return
	}
	if set := r.games[b.gameID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.games, b.gameID)
		}
	}
	*b = binding{}
}

// Peers returns a snapshot of the connections bound to gameID, ordered by id.
func (r *Registry) Peers(gameID int64) []*Conn {
	r.mu.RLock()
	set := r.games[gameID]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Games returns the number of games with at least one bound connection.
func (r *Registry) Games() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
