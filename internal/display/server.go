package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fop-engine/internal/logger"
)

// Server serves every platform hub: displays connect to /ws/{platform} and
// may read /platforms/{platform} for the current state.
type Server struct {
	port   int
	logger *logrus.Logger
	server *http.Server

	mu   sync.RWMutex
	hubs map[string]*Hub
}

// NewServer creates a display server listening on port.
func NewServer(port int, log *logrus.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		port:   port,
		logger: logger.OrDiscard(log),
		hubs:   make(map[string]*Hub),
	}
}

// Register adds a hub under its slug.
func (s *Server) Register(h *Hub) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.hubs[h.Slug()]; dup {
		return fmt.Errorf("platform %q already registered", h.Slug())
	}
	s.hubs[h.Slug()] = h
	return nil
}

func (s *Server) hub(slug string) *Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hubs[slug]
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{platform}", s.handleWebSocket)
	mux.HandleFunc("GET /platforms/{platform}", s.handleSnapshot)
	mux.HandleFunc("GET /platforms", s.handlePlatforms)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h := s.hub(r.PathValue("platform"))
	if h == nil {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h := s.hub(r.PathValue("platform"))
	if h == nil {
		http.NotFound(w, r)
		return
	}
	data, err := EncodeSnapshot(h.platform.Snapshot(), h.platform.Settings().UseRegistrationCategory)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

type platformSummary struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	State    string `json:"state"`
	Displays int    `json:"displays"`
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]platformSummary, 0, len(s.hubs))
	for slug, h := range s.hubs {
		list = append(list, platformSummary{
			Name:     h.platform.Name(),
			Slug:     slug,
			State:    h.platform.Snapshot().State.String(),
			Displays: h.Clients(),
		})
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Start starts the display server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     s.Handler(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("Display server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Display server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown disconnects the displays and stops the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("Display server shutting down")

	s.mu.RLock()
	for _, h := range s.hubs {
		h.Close()
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
