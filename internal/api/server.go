// Package api serves the playback control plane and subscriber streams over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	ws "github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/OCAP2/launch-telemetry/internal/dispatcher"
	"github.com/OCAP2/launch-telemetry/internal/handlers"
	"github.com/OCAP2/launch-telemetry/internal/metrics"
	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/internal/perfstats"
	"github.com/OCAP2/launch-telemetry/internal/simulator"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

// Simulator is the part of the simulator the server reads from and
// registers stream subscribers with.
type Simulator interface {
	Status(ctx context.Context) (simulator.Status, error)
	AddSubscriber(req streaming.AddSubscriber) error
	DetachSubscriber(ctx context.Context, id string, t streaming.Transport) error
}

// Control executes control events.
type Control interface {
	Dispatch(ctx context.Context, e dispatcher.Event) (any, error)
}

// Options configures a Server. Metrics and Logger are optional.
type Options struct {
	Simulator Simulator
	Control   Control
	Missions  mission.Loader
	Perf      *perfstats.Aggregator
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// SubscribeRate and SubscribeBurst limit new subscriber streams.
	SubscribeRate  float64
	SubscribeBurst int
}

// Server is the HTTP surface of playbackd.
type Server struct {
	router  *chi.Mux
	sim     Simulator
	control Control
	loader  mission.Loader
	perf    *perfstats.Aggregator
	metrics *metrics.Metrics
	log     *slog.Logger

	limiter  *rate.Limiter
	upgrader ws.Upgrader

	mu          sync.RWMutex
	completions int
	lastDone    time.Time
}

// NewServer builds the router. Call Handler or ListenAndServe to serve it.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Perf == nil {
		opts.Perf = perfstats.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.SubscribeRate <= 0 {
		opts.SubscribeRate = 5
	}
	if opts.SubscribeBurst <= 0 {
		opts.SubscribeBurst = 10
	}

	s := &Server{
		router:  chi.NewRouter(),
		sim:     opts.Simulator,
		control: opts.Control,
		loader:  opts.Missions,
		perf:    opts.Perf,
		metrics: opts.Metrics,
		log:     opts.Logger.With("component", "api"),
		limiter: rate.NewLimiter(rate.Limit(opts.SubscribeRate), opts.SubscribeBurst),
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 16384,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/missions", s.handleListMissions)
		r.Get("/missions/{id}/trajectory", s.handleTrajectory)
		r.Get("/status", s.handleStatus)
		r.Get("/perf", s.handlePerf)
		r.Post("/control", s.handleControl)
		r.Get("/subscribe", s.handleSubscribe)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// WatchControl consumes messages the simulator sends on its control
// transport until recv is closed or ctx ends.
func (s *Server) WatchControl(ctx context.Context, recv <-chan streaming.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-recv:
			if !ok {
				return
			}
			switch msg.(type) {
			case streaming.MissionComplete:
				s.mu.Lock()
				s.completions++
				s.lastDone = time.Now()
				s.mu.Unlock()
				s.log.Info("Mission complete")
			default:
				s.log.Debug("Ignoring control message", "type", msg.MessageType())
			}
		}
	}
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	simulator.Status
	Completions     int        `json:"completions"`
	LastCompletedAt *time.Time `json:"lastCompletedAt,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.sim.Status(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err)
		return
	}

	resp := StatusResponse{Status: st}
	s.mu.RLock()
	resp.Completions = s.completions
	if !s.lastDone.IsZero() {
		t := s.lastDone
		resp.LastCompletedAt = &t
	}
	s.mu.RUnlock()

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.perf.Snapshot())
}

// ControlResponse is the body returned by POST /api/v1/control.
type ControlResponse struct {
	Type   string `json:"type"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var env streaming.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&env); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if !isControl(env.Type) {
		respondError(w, http.StatusBadRequest, fmt.Errorf("unknown command: %s", env.Type))
		return
	}

	result, err := s.control.Dispatch(r.Context(), dispatcher.FromEnvelope(env))
	if err != nil {
		respondJSON(w, statusFor(err), ControlResponse{Type: env.Type, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, ControlResponse{Type: env.Type, Result: result})
}

func isControl(t string) bool {
	if t == streaming.TypeFps {
		return true
	}
	for _, c := range handlers.ControlCommands {
		if c == t {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, mission.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, simulator.ErrInvalidSpeed),
		errors.Is(err, simulator.ErrInvalidRate),
		errors.Is(err, simulator.ErrNoTransport),
		errors.Is(err, handlers.ErrNotControl),
		errors.Is(err, handlers.ErrMissingMissionID),
		errors.Is(err, mission.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, simulator.ErrClosed), errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
