// Package health serves the liveness and readiness probes of the
// competition server.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/logger"
)

const (
	defaultPort  = 8081
	checkTimeout = 3 * time.Second
)

// DatabasePinger is satisfied by the database pool.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// PlatformReporter reports the state of every field of play by platform name.
type PlatformReporter interface {
	PlatformStates() map[string]string
}

// Check is a named readiness dependency. A non-nil error fails readiness.
type Check func(ctx context.Context) error

// HealthResponse is the body of /health and /live.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the body of /ready. Checks maps each dependency to "ok"
// or an error message; platform states are added under "platform:<name>".
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	Logger      *logrus.Logger
	// DB, if set, is registered as the "database" check.
	DB        DatabasePinger
	Platforms PlatformReporter
	Checks    map[string]Check
}

// Server answers the probes. It is not ready until SetReady(true).
type Server struct {
	cfg     Config
	port    string
	log     *logrus.Entry
	checks  map[string]Check
	started time.Time
	ready   atomic.Bool
	server  *http.Server
}

// NewServer creates a health server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port <= 0 {
		port = defaultPort
	}

	checks := make(map[string]Check, len(cfg.Checks)+1)
	for name, c := range cfg.Checks {
		checks[name] = c
	}
	if cfg.DB != nil {
		checks["database"] = cfg.DB.Ping
	}

	return &Server{
		cfg:     cfg,
		port:    strconv.Itoa(port),
		log:     logger.OrDiscard(cfg.Logger).WithField("component", "health"),
		checks:  checks,
		started: time.Now(),
	}
}

func (s *Server) SetReady(ready bool) { s.ready.Store(ready) }

func (s *Server) IsReady() bool { return s.ready.Load() }

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /ready", s.handleReady)
	return mux
}

// Start listens in the background until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.log.WithField("port", s.port).Info("Health server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health server error")
		}
	}()
	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.log.WithError(err).Warn("Health server shutdown failed")
		}
	}()
	return nil
}

// Shutdown stops the listener, waiting up to five seconds for open probes.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: s.cfg.ServiceName})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := ReadyResponse{
		Status:  "ok",
		Service: s.cfg.ServiceName,
		Checks:  s.runChecks(r.Context()),
	}

	if !s.IsReady() {
		resp.Checks["service"] = "not_ready"
	} else {
		resp.Checks["service"] = "ok"
	}

	code := http.StatusOK
	for _, result := range resp.Checks {
		if result != "ok" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	// a platform in a break is still ready
	if s.cfg.Platforms != nil {
		for name, state := range s.cfg.Platforms.PlatformStates() {
			resp.Checks["platform:"+name] = state
		}
	}

	resp.Duration = time.Since(start).String()
	writeJSON(w, code, resp)
}

func (s *Server) runChecks(ctx context.Context) map[string]string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	out := make(map[string]string, len(names)+1)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.log.WithError(err).WithField("check", name).Warn("Readiness check failed")
			out[name] = "error: " + err.Error()
			continue
		}
		out[name] = "ok"
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
