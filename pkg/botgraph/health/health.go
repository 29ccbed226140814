// Package health serves liveness and counters for a running engine over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/randalmurphal/botgraph/pkg/botgraph"
)

// DefaultStaleAfter is how long after the last successful poll the engine
// is still reported healthy.
const DefaultStaleAfter = 2 * time.Minute

// StatsSource is implemented by *botgraph.Engine.
type StatsSource interface {
	Stats() botgraph.Stats
}

// Status is the body of GET /healthz.
type Status struct {
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
	LastPoll time.Time `json:"last_poll,omitzero"`
}

type handler struct {
	src        StatsSource
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewRouter returns the health routes:
//
//	GET /healthz  200 while the engine runs and polled within staleAfter, else 503
//	GET /stats    engine counters as JSON
func NewRouter(src StatsSource, staleAfter time.Duration, logger *slog.Logger) http.Handler {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{src: src, staleAfter: staleAfter, now: time.Now, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Get("/healthz", h.healthz)
	r.Get("/stats", h.stats)
	return r
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	s := h.src.Stats()
	status := Status{Status: "ok", LastPoll: s.LastPoll}
	code := http.StatusOK

	switch {
	case !s.Running:
		status.Status, status.Reason = "unavailable", "engine not running"
		code = http.StatusServiceUnavailable
	case s.LastPoll.IsZero():
		status.Status, status.Reason = "starting", "no successful poll yet"
		code = http.StatusServiceUnavailable
	case h.now().Sub(s.LastPoll) > h.staleAfter:
		status.Status, status.Reason = "stale", "last successful poll too old"
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.src.Stats())
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("health response write failed", slog.String("error", err.Error()))
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("health endpoint listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
