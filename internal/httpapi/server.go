package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/pingprobe/internal/domain"
	apimw "github.com/hamed0406/pingprobe/internal/httpapi/middleware"
	"github.com/hamed0406/pingprobe/internal/metrics"
)

type Server struct {
	Logger  *zap.Logger
	Targets []domain.Target
	Metrics *metrics.Aggregator
	Tokens  []string
}

func NewServer(l *zap.Logger, targets []domain.Target, agg *metrics.Aggregator, tokens []string) *Server {
	return &Server{Logger: l, Targets: targets, Metrics: agg, Tokens: tokens}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireToken(s.Tokens))
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler(zap.NewStdLog(s.Logger)))
		r.Get("/api/targets", s.handleListTargets)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("metrics_listen", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type targetView struct {
	Type           domain.Kind       `json:"type"`
	Address        string            `json:"address"`
	TimeoutMillis  int64             `json:"timeout_millis"`
	IntervalMillis int64             `json:"interval_millis"`
	Labels         map[string]string `json:"labels"`
}

// handleListTargets reports each target with the full label tuple its
// series are exported under.
func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	out := make([]targetView, 0, len(s.Targets))
	for i := range s.Targets {
		t := &s.Targets[i]
		out = append(out, targetView{
			Type:           t.Kind,
			Address:        t.Address,
			TimeoutMillis:  t.Timeout.Milliseconds(),
			IntervalMillis: t.Interval.Milliseconds(),
			Labels:         s.Metrics.LabelValues(t),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
