package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-live-chess/pkg/chessdto"
)

// WSOptions configure the websocket endpoint.
//
// Each ping waits PingInterval/2 for its pong. Pongs are read by the
// connection's reader, which never runs commands itself, so a slow command
// does not starve the pinger.
type WSOptions struct {
	OriginPatterns []string
	ReadLimit      int64
	WriteTimeout   time.Duration
	PingInterval   time.Duration
}

// commandQueue bounds the frames read ahead of the command being handled.
const commandQueue = 16

type wsTransport struct {
	c *websocket.Conn
}

func (w wsTransport) Write(ctx context.Context, frame []byte) error {
	return w.c.Write(ctx, websocket.MessageText, frame)
}

func (w wsTransport) Close(reason string) error {
	return w.c.Close(websocket.StatusNormalClosure, reason)
}

// ServeWS upgrades the request and feeds every text frame to the hub, one at a
// time and in arrival order, from a worker separate from the reader.
func (h *Hub) ServeWS(opts WSOptions) http.HandlerFunc {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 64 << 10
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:  opts.OriginPatterns,
			CompressionMode: websocket.CompressionNoContextTakeover,
		})
		if err != nil {
			h.logger.Warn("live_accept_error", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		ws.SetReadLimit(opts.ReadLimit)

		c := NewConn(wsTransport{c: ws}, opts.WriteTimeout)
		h.Attach(c)
		defer h.Detach(c)

		ctx, cancel := context.WithCancel(r.Context())
		queue := make(chan []byte, commandQueue)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for frame := range queue {
				if ctx.Err() != nil {
					continue
				}
				h.Handle(ctx, c, frame)
			}
		}()
		defer func() {
			close(queue)
			<-done
		}()
		defer cancel()
		go h.pingLoop(ctx, ws, c, opts.PingInterval)

		for {
			typ, data, err := ws.Read(ctx)
			if err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
					h.logger.Debug("live_read_closed", zap.String("conn_id", c.ID()), zap.Int("status", int(status)))
				} else {
					h.logger.Info("live_read_error", zap.String("conn_id", c.ID()), zap.Error(err))
				}
				return
			}
			if typ != websocket.MessageText {
				h.fail(ctx, c, chessdto.UserGameCommand{}, protocolError(h.msgs, "binary frames are not supported"))
				continue
			}
			select {
			case queue <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) pingLoop(ctx context.Context, ws *websocket.Conn, c *Conn, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, every/2)
			err := ws.Ping(pctx)
			cancel()
			if err != nil {
				h.logger.Debug("live_ping_failed", zap.String("conn_id", c.ID()), zap.Error(err))
				_ = c.Close("ping timeout")
				return
			}
		}
	}
}
