// Package identity resolves bearer tokens to usernames.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrUnauthorized = errors.New("identity: invalid or expired token")
	ErrUnavailable  = errors.New("identity: service unavailable")
)

// Resolver maps a bearer token to a username. Unknown tokens yield ErrUnauthorized.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// StaticResolver serves a fixed token table.
type StaticResolver struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewStaticResolver(tokens map[string]string) *StaticResolver {
	r := &StaticResolver{tokens: make(map[string]string, len(tokens))}
	for tok, user := range tokens {
		r.Add(tok, user)
	}
	return r
}

// ParseStaticTokens parses "token:username,token2:username2". Malformed pairs are skipped.
func ParseStaticTokens(list string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(list, ",") {
		tok, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		tok, user = strings.TrimSpace(tok), strings.TrimSpace(user)
		if !ok || tok == "" || user == "" {
			continue
		}
		out[tok] = user
	}
	return out
}

func (r *StaticResolver) Add(token, username string) {
	token, username = strings.TrimSpace(token), strings.TrimSpace(username)
	if token == "" || username == "" {
		return
	}
	r.mu.Lock()
	r.tokens[token] = username
	r.mu.Unlock()
}

func (r *StaticResolver) Resolve(ctx context.Context, token string) (string, error) {
	r.mu.RLock()
	user, ok := r.tokens[strings.TrimSpace(token)]
	r.mu.RUnlock()
	if !ok {
		return "", ErrUnauthorized
	}
	return user, nil
}

// Chain asks each resolver in turn. A token rejected by every resolver is
// unauthorized; any other failure is returned if nothing accepted the token.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrUnauthorized
	}
	var lastErr error
	for _, r := range c {
		if r == nil {
			continue
		}
		user, err := r.Resolve(ctx, token)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUnauthorized) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrUnauthorized
}
