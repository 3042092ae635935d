// Package server is the HTTP boundary of the chart decision pipeline. It
// exposes decide, render and filter endpoints, maps pipeline errors to the
// coded error payloads, and tags every request with a correlation ID.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vizlake/vizlake/pkg/apierr"
	"github.com/vizlake/vizlake/pkg/cache"
	"github.com/vizlake/vizlake/pkg/dataset"
	"github.com/vizlake/vizlake/pkg/decider"
	"github.com/vizlake/vizlake/pkg/decision"
	"github.com/vizlake/vizlake/pkg/executor"
)

const (
	correlationIDHeader = "X-Correlation-ID"

	defaultMaxRequestBytes = 10 << 20 // 10MB request bodies
	defaultShutdownTimeout = 5 * time.Second
)

// ChartDecider is the decision step the decide endpoint delegates to.
type ChartDecider interface {
	Decide(ctx context.Context, req decider.DecideRequest) (*decision.VisualizationDecision, error)
}

type Config struct {
	Logger   *slog.Logger
	Decider  ChartDecider
	Executor *executor.Executor
	Loader   dataset.Loader
	Paths    dataset.PathPolicy
	Cache    *cache.Store

	MaxRequestBytes   int64
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Decider == nil {
		return errors.New("decider is required")
	}
	if cfg.Executor == nil {
		return errors.New("executor is required")
	}
	if cfg.Loader == nil {
		return errors.New("loader is required")
	}
	return nil
}

type Server struct {
	log     *slog.Logger
	cfg     Config
	httpSrv *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate server config: %w", err)
	}
	if cfg.MaxRequestBytes == 0 {
		cfg.MaxRequestBytes = defaultMaxRequestBytes
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{log: cfg.Logger, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /decide", s.withRequest("decide", s.handleDecide))
	mux.HandleFunc("POST /render", s.withRequest("render", s.handleRender))
	mux.HandleFunc("POST /data/filter", s.withRequest("data_filter", s.handleDataFilter))

	s.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	return s, nil
}

// Handler exposes the route mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) Run(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()
	s.log.Info("server: listening", "address", listener.Addr())

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
		s.log.Info("server: shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

// withRequest wraps a handler with correlation ID assignment, request
// logging and per-route metrics. The correlation ID is echoed on the
// response and stored on the request context for error payloads.
func (s *Server) withRequest(route string, next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		corrID := r.Header.Get(correlationIDHeader)
		if corrID == "" {
			corrID = uuid.NewString()
		}
		w.Header().Set(correlationIDHeader, corrID)
		r = r.WithContext(withCorrelationID(r.Context(), corrID))
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestBytes)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		duration := time.Since(start)
		Requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
		s.log.Info("server: request handled",
			"route", route, "method", r.Method, "status", rec.status,
			"duration", duration, "correlation_id", corrID)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

func withCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("server: failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	coded := apierr.From(err)
	corrID := correlationID(r.Context())
	if coded.Status >= http.StatusInternalServerError {
		s.log.Error("server: request failed", "code", coded.Code, "error", err, "correlation_id", corrID)
	} else {
		s.log.Warn("server: request rejected", "code", coded.Code, "error", err, "correlation_id", corrID)
	}
	s.writeJSON(w, coded.Status, coded.Payload(corrID))
}
