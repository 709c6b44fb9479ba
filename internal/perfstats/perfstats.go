// Package perfstats tracks frame rates reported by playback consumers and the
// number of workers feeding them.
package perfstats

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Sample is one frame rate report.
type Sample struct {
	ID          string
	Fps         float64
	WorkerCount int
	At          time.Time
}

// Sink persists samples. Write must not block for long; it is called from the
// reporter's goroutine.
type Sink interface {
	Write(ctx context.Context, s Sample) error
}

// Snapshot is a point-in-time copy of the aggregator state.
type Snapshot struct {
	WorkerCount int                  `json:"workerCount"`
	WorkerFps   map[string]float64   `json:"workerFps"`
	UpdatedAt   map[string]time.Time `json:"updatedAt"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSink forwards every report to s.
func WithSink(s Sink) Option {
	return func(a *Aggregator) { a.sink = s }
}

// WithLogger sets the logger used for sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithClock replaces time.Now for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// Aggregator is safe for concurrent use.
type Aggregator struct {
	mu      sync.RWMutex
	fps     map[string]float64
	updated map[string]time.Time
	workers int

	sink Sink
	log  *slog.Logger
	now  func() time.Time
}

// New creates an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		fps:     make(map[string]float64),
		updated: make(map[string]time.Time),
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddWorker increments the worker count and returns the new total.
func (a *Aggregator) AddWorker() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.workers++
	return a.workers
}

// RemoveWorker decrements the worker count, never below zero.
func (a *Aggregator) RemoveWorker() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.workers > 0 {
		a.workers--
	}
	return a.workers
}

// Report records the latest fps for id, replacing any earlier value.
func (a *Aggregator) Report(id string, fps float64) {
	now := a.now()

	a.mu.Lock()
	a.fps[id] = fps
	a.updated[id] = now
	workers := a.workers
	a.mu.Unlock()

	if a.sink == nil {
		return
	}
	s := Sample{ID: id, Fps: fps, WorkerCount: workers, At: now}
	if err := a.sink.Write(context.Background(), s); err != nil {
		a.log.Warn("Failed to write perf sample", "id", id, "error", err)
	}
}

// Forget drops the fps entry for id.
func (a *Aggregator) Forget(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.fps, id)
	delete(a.updated, id)
}

// Snapshot returns a copy of the current worker count and frame rates.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		WorkerCount: a.workers,
		WorkerFps:   maps.Clone(a.fps),
		UpdatedAt:   maps.Clone(a.updated),
	}
}
