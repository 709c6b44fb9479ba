// Package monitor periodically snapshots simulator and consumer state to a
// status file and the log.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/launch-telemetry/internal/perfstats"
	"github.com/OCAP2/launch-telemetry/internal/simulator"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = time.Second

// StatusSource reports the simulator state.
type StatusSource interface {
	Status(ctx context.Context) (simulator.Status, error)
}

// PerfSource reports consumer frame rates.
type PerfSource interface {
	Snapshot() perfstats.Snapshot
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Simulator StatusSource
	Perf      PerfSource // optional
	Logger    *slog.Logger
	// StatusPath is rewritten with the latest Report each interval. Optional.
	StatusPath string
	Interval   time.Duration
}

// Report is one status sample.
type Report struct {
	Time      time.Time           `json:"time"`
	Simulator simulator.Status    `json:"simulator"`
	Perf      *perfstats.Snapshot `json:"perf,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "monitor")
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Collect takes one report.
func (s *Service) Collect(ctx context.Context) (Report, error) {
	st, err := s.deps.Simulator.Status(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("simulator status: %w", err)
	}
	r := Report{Time: time.Now().UTC(), Simulator: st}
	if s.deps.Perf != nil {
		snap := s.deps.Perf.Snapshot()
		r.Perf = &snap
	}
	return r, nil
}

// Start launches the monitor goroutine. It stops when ctx ends or Stop is
// called. Starting a running monitor is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			return fmt.Errorf("error creating status file: %w", err)
		}
		statusFile = f
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true
	go s.loop(ctx, statusFile)
	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Service) loop(ctx context.Context, statusFile *os.File) {
	defer func() {
		if statusFile != nil {
			_ = statusFile.Close()
		}
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(s.done)
	}()

	log := s.deps.Logger
	log.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r, err := s.Collect(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug("Status unavailable", "error", err)
			}
			continue
		}
		if r.Simulator.MissionID == "" {
			continue
		}

		log.Debug("Status",
			"missionTimeSec", r.Simulator.MissionTimeSec,
			"running", r.Simulator.Running,
			"subscribers", len(r.Simulator.Subscribers),
			"pending", r.Simulator.Pending)

		if statusFile != nil {
			if err := writeStatus(statusFile, r); err != nil {
				log.Error("Error writing status file", "error", err)
			}
		}
	}
}

// writeStatus replaces the file contents with r.
func writeStatus(f *os.File, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
