package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(ParseStaticTokens(" t1:alice , bad, :x, t2:bob"))
	ctx := context.Background()
	if u, err := r.Resolve(ctx, "t1"); err != nil || u != "alice" {
		t.Fatalf("t1 -> %q, %v", u, err)
	}
	if u, err := r.Resolve(ctx, " t2 "); err != nil || u != "bob" {
		t.Fatalf("t2 -> %q, %v", u, err)
	}
	if _, err := r.Resolve(ctx, "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func newIdentityServer(t *testing.T, fails int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if req.Method != http.MethodPost || req.URL.Path != "/session/resolve" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Header.Get("Authorization") != "Bearer svc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if n <= fails {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var in resolveRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if in.AuthToken != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(resolveResponse{Username: "alice"})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPResolver(t *testing.T) {
	srv, _ := newIdentityServer(t, 0)
	r := NewHTTPResolver(srv.URL, WithServiceToken("svc"), WithTimeout(2*time.Second))
	ctx := context.Background()
	if u, err := r.Resolve(ctx, "good"); err != nil || u != "alice" {
		t.Fatalf("good -> %q, %v", u, err)
	}
	if _, err := r.Resolve(ctx, "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := r.Resolve(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty token should be unauthorized, got %v", err)
	}
}

func TestHTTPResolverRetriesServerErrors(t *testing.T) {
	srv, calls := newIdentityServer(t, 2)
	r := NewHTTPResolver(srv.URL, WithServiceToken("svc"), WithRetry(3))
	if u, err := r.Resolve(context.Background(), "good"); err != nil || u != "alice" {
		t.Fatalf("expected success after retries, got %q, %v", u, err)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestHTTPResolverGivesUp(t *testing.T) {
	srv, _ := newIdentityServer(t, 10)
	r := NewHTTPResolver(srv.URL, WithServiceToken("svc"), WithRetry(2))
	if _, err := r.Resolve(context.Background(), "good"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func TestChain(t *testing.T) {
	static := NewStaticResolver(map[string]string{"t1": "alice"})
	ctx := context.Background()
	if u, err := (Chain{failingResolver{}, static}).Resolve(ctx, "t1"); err != nil || u != "alice" {
		t.Fatalf("chain should fall through to static: %q, %v", u, err)
	}
	if _, err := (Chain{static}).Resolve(ctx, "t9"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := (Chain{static, failingResolver{}}).Resolve(ctx, "t9"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
