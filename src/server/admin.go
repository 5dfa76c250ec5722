package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	logs "github.com/danmuck/smplog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AdminHandler serves GET /health and GET /metrics.
func (s *Server) AdminHandler() http.Handler {
	started := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		active := 0
		s.active.Range(func(_, _ any) bool {
			active++
			return true
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":             "ok",
			"uptime":             time.Since(started).String(),
			"root":               s.root.Dir(),
			"active_connections": active,
		})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}

// ServeAdmin runs the admin HTTP listener on cfg.MetricsAddress until ctx is
// cancelled. It returns immediately when no address is configured.
func (s *Server) ServeAdmin(ctx context.Context) error {
	if s.cfg.MetricsAddress == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              s.cfg.MetricsAddress,
		Handler:           s.AdminHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logs.Infof("admin HTTP listening on %s", s.cfg.MetricsAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
