// Package simulator replays a loaded mission as a synthetic telemetry stream.
//
// A Simulator owns a virtual mission clock, one checkpoint cursor per dynamic
// property, the data lake of every sample produced so far and the set of
// subscribers. All of that state is owned by the goroutine running Run;
// public methods hand closures to it and wait for the result.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/internal/queue"
	"github.com/OCAP2/launch-telemetry/pkg/core"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

const (
	// DefaultSourceRateHz is the rate the recorded telemetry was produced at.
	DefaultSourceRateHz = 100
	// DefaultPlaybackSpeed is the virtual seconds advanced per wall second.
	DefaultPlaybackSpeed = 10

	// PerfID is the id the simulator reports its own tick rate under.
	PerfID = "Simulator"

	// MinInterval and MaxInterval bound the period of the tick and flush
	// timers a rate may ask for.
	MinInterval = time.Millisecond
	MaxInterval = time.Hour
)

var (
	// ErrInvalidSpeed is returned for a playback speed that is zero, negative
	// or not finite.
	ErrInvalidSpeed = errors.New("playback speed must be a positive finite number")
	// ErrInvalidRate is returned for a rate whose period falls outside
	// [MinInterval, MaxInterval].
	ErrInvalidRate = errors.New("rate must be between 1/3600 and 1000 hertz")
	// ErrNoTransport is returned when a subscriber is added without a transport.
	ErrNoTransport = errors.New("subscriber has no transport")
	// ErrClosed is returned by every operation once the simulator has stopped.
	ErrClosed = errors.New("simulator closed")
)

// PerfReporter receives periodic frame rate reports.
type PerfReporter interface {
	Report(id string, fps float64)
}

// Config configures a Simulator. Zero values take defaults.
type Config struct {
	SourceRateHz  float64
	PlaybackSpeed float64

	// Control receives the mission-complete signal. Optional.
	Control streaming.Transport
	// Perf receives the tick rate once per wall second. Optional.
	Perf PerfReporter
	// Context is kept in sync with the loaded mission and clock. Optional.
	Context *mission.Context

	Logger *slog.Logger
	Now    func() time.Time
}

// Simulator is the telemetry playback core.
type Simulator struct {
	loader  mission.Loader
	log     *slog.Logger
	now     func() time.Time
	rate    float64
	control streaming.Transport
	perf    PerfReporter
	mctx    *mission.Context
	metrics *metrics

	cmds    chan func()
	flushes chan flushRequest
	pending *queue.Queue[streaming.AddSubscriber]

	lifetime context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	closeErr error

	// everything below is owned by the Run goroutine

	load     *loadHandle
	mission  *core.Mission
	dynamic  []string
	cursors  map[string]int
	lake     core.Batch
	pool     map[string][]string
	subs     map[string]*subscriber
	buffers  map[string]core.Batch
	ticker   *time.Ticker
	speed    float64
	timeStep float64

	missionTimeSec float64
	startMs        float64
	anchored       bool
	running        bool
	complete       bool

	perfWindow time.Time
	perfTicks  int
}

// New creates a simulator reading missions from loader. Call Run to start
// its owner goroutine.
func New(loader mission.Loader, cfg Config) (*Simulator, error) {
	if cfg.SourceRateHz == 0 {
		cfg.SourceRateHz = DefaultSourceRateHz
	}
	if cfg.PlaybackSpeed == 0 {
		cfg.PlaybackSpeed = DefaultPlaybackSpeed
	}
	if !validRate(cfg.SourceRateHz) {
		return nil, fmt.Errorf("source rate %v: %w", cfg.SourceRateHz, ErrInvalidRate)
	}
	if !validPositive(cfg.PlaybackSpeed) {
		return nil, fmt.Errorf("playback speed %v: %w", cfg.PlaybackSpeed, ErrInvalidSpeed)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create simulator metrics: %w", err)
	}

	lifetime, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		loader:   loader,
		log:      cfg.Logger.With("component", "simulator"),
		now:      cfg.Now,
		rate:     cfg.SourceRateHz,
		control:  cfg.Control,
		perf:     cfg.Perf,
		mctx:     cfg.Context,
		metrics:  m,
		cmds:     make(chan func()),
		flushes:  make(chan flushRequest),
		pending:  queue.New[streaming.AddSubscriber](),
		lifetime: lifetime,
		cancel:   cancel,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		cursors:  make(map[string]int),
		lake:     make(core.Batch),
		pool:     make(map[string][]string),
		subs:     make(map[string]*subscriber),
		buffers:  make(map[string]core.Batch),
	}
	s.setSpeed(cfg.PlaybackSpeed)
	return s, nil
}

func validPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// validRate reports whether hz is finite and its period lies within
// [MinInterval, MaxInterval].
func validRate(hz float64) bool {
	if !validPositive(hz) {
		return false
	}
	period := float64(time.Second) / hz
	return period >= float64(MinInterval) && period <= float64(MaxInterval)
}

// tickInterval is the wall time between ticks at the source rate.
func (s *Simulator) tickInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.rate)
}

func (s *Simulator) setSpeed(speed float64) {
	s.speed = speed
	s.timeStep = 1 / (s.rate / speed)
}

// UpdateMission starts loading missionID in the background. The loaded
// mission replaces the current one as soon as it is ready; the clock is
// neither started nor stopped.
func (s *Simulator) UpdateMission(ctx context.Context, missionID string) error {
	return s.exec(ctx, func() error {
		s.beginLoad(missionID)
		return nil
	})
}

// StartMission waits for any in-flight load, then starts or resumes the
// clock and every subscriber's flush timer. A failed load is returned. It is
// a no-op once the mission is complete.
func (s *Simulator) StartMission(ctx context.Context) error {
	for {
		var h *loadHandle
		if err := s.exec(ctx, func() error {
			h = s.load
			return nil
		}); err != nil {
			return err
		}

		if h != nil {
			select {
			case <-h.done:
			case <-ctx.Done():
				return ctx.Err()
			case <-s.done:
				return ErrClosed
			}
		}

		superseded := false
		err := s.exec(ctx, func() error {
			if s.load != h {
				superseded = true
				return nil
			}
			if h != nil {
				if h.err != nil {
					return h.err
				}
				s.applyLoad(h)
			}
			s.start()
			return nil
		})
		if err != nil || !superseded {
			return err
		}
		// a newer load began while we waited
	}
}

// StopMission halts the clock and every flush timer, keeping all state.
func (s *Simulator) StopMission(ctx context.Context) error {
	return s.exec(ctx, func() error {
		s.stop()
		return nil
	})
}

// UpdateMissionPlaybackSpeed changes how fast mission time advances. Mission
// time and the data lake are kept. Changing speed never starts the clock: a
// stopped simulator only records the time step the next StartMission uses.
func (s *Simulator) UpdateMissionPlaybackSpeed(ctx context.Context, speed float64) error {
	if !validPositive(speed) {
		return fmt.Errorf("playback speed %v: %w", speed, ErrInvalidSpeed)
	}
	return s.exec(ctx, func() error {
		s.setSpeed(speed)
		if s.running {
			s.startTicker()
		}
		s.log.Info("Playback speed updated", "speed", speed, "timeStep", s.timeStep)
		return nil
	})
}

// AddSubscriber queues a registration. It is applied at the start of the
// next tick, before interpolation, so the subscriber sees every sample
// produced after its initial snapshot exactly once.
func (s *Simulator) AddSubscriber(req streaming.AddSubscriber) error {
	if !validRate(req.Hz) {
		return fmt.Errorf("subscriber %s hz %v: %w", req.ID, req.Hz, ErrInvalidRate)
	}
	if req.Transport == nil {
		return fmt.Errorf("subscriber %s: %w", req.ID, ErrNoTransport)
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.pending.Push(req)
	return nil
}

// UpdateSubscriber changes a registered subscriber's flush rate. Samples
// already buffered are kept. Unknown ids are ignored.
func (s *Simulator) UpdateSubscriber(ctx context.Context, req streaming.UpdateSubscriber) error {
	if !validRate(req.Hz) {
		return fmt.Errorf("subscriber %s hz %v: %w", req.ID, req.Hz, ErrInvalidRate)
	}
	return s.exec(ctx, func() error {
		s.updateSubscriber(req.ID, req.Hz)
		return nil
	})
}

// RemoveSubscriber unregisters a subscriber, pending or active, and closes
// its transport. Unknown ids are ignored.
func (s *Simulator) RemoveSubscriber(ctx context.Context, id string) error {
	return s.exec(ctx, func() error {
		return s.removeSubscriber(id, nil)
	})
}

// DetachSubscriber is RemoveSubscriber restricted to the registration made
// with transport t. A newer registration under the same id is left alone.
func (s *Simulator) DetachSubscriber(ctx context.Context, id string, t streaming.Transport) error {
	if t == nil {
		return fmt.Errorf("subscriber %s: %w", id, ErrNoTransport)
	}
	return s.exec(ctx, func() error {
		return s.removeSubscriber(id, t)
	})
}

// Status returns a snapshot of the simulator state.
func (s *Simulator) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.exec(ctx, func() error {
		st = s.status()
		return nil
	})
	return st, err
}
