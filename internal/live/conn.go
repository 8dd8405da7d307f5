package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/cheese-live-chess/pkg/chessdto"
)

// ErrConnClosed is returned by Send after the connection has been closed.
var ErrConnClosed = errors.New("live: connection closed")

// Transport is the raw frame sink behind a Conn.
type Transport interface {
	Write(ctx context.Context, frame []byte) error
	Close(reason string) error
}

// Conn is one client connection. Sends are serialised; each write is bounded by writeTimeout.
type Conn struct {
	id           string
	t            Transport
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewConn(t Transport, writeTimeout time.Duration) *Conn {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Conn{id: uuid.NewString(), t: t, writeTimeout: writeTimeout}
}

func (c *Conn) ID() string { return c.id }

// Send encodes msg and writes it as one frame.
func (c *Conn) Send(ctx context.Context, msg chessdto.ServerMessage) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	if err := c.t.Write(wctx, frame); err != nil {
		// 쓰기 실패한 연결은 더 이상 사용하지 않음
		c.closed = true
		_ = c.t.Close("write failed")
		return err
	}
	return nil
}

// Close marks the connection closed and closes the transport. It is idempotent.
func (c *Conn) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.t.Close(reason)
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
