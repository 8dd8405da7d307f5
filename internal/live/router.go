package live

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/park285/cheese-live-chess/pkg/chessdto"
)

// NewRouter mounts the websocket endpoint, a health check and a read-only game snapshot.
func NewRouter(h *Hub, ws WSOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", h.ServeWS(ws))

	r.Group(func(r chi.Router) {
		r.Use(accessLog(h.logger))
		r.Get("/healthz", h.healthz)
		r.Get("/games/{gameID}", h.snapshot)
	})
	return r
}

func (h *Hub) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.registry.Len(),
		"games":       h.registry.Games(),
	})
}

// snapshot returns the current state of a game in LOAD_GAME form.
func (h *Hub) snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "gameID"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, chessdto.ErrorFrame(protocolError(h.msgs, "invalid game id")))
		return
	}
	rec, err := h.load(r.Context(), id)
	if err != nil {
		de := domainError(h.msgs, err)
		status := http.StatusInternalServerError
		if de.Code == chessdto.CodeNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, chessdto.ErrorFrame(de))
		return
	}
	writeJSON(w, http.StatusOK, chessdto.LoadGame(rec.State))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
