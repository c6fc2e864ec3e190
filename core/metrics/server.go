package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/copperbot/core/buildinfo"
	"github.com/m3rciful/copperbot/core/logger"
)

const shutdownTimeout = 5 * time.Second

// NewRouter mounts /metrics and /healthz.
func NewRouter(m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "ok %s\n", buildinfo.Version)
	})
	return r
}

// Serve runs the metrics HTTP server on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", addr, err)
	}
	return serve(ctx, ln, m)
}

func serve(ctx context.Context, ln net.Listener, m *Metrics) error {
	srv := &http.Server{
		Handler:           NewRouter(m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info(ctx, logger.CompMetrics, "metrics.listen", slog.String("listen", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics: shutdown: %w", err)
	}
	<-errCh
	logger.Info(ctx, logger.CompMetrics, "metrics.stopped")
	return nil
}
