package simulator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/pkg/core"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// recorder is an in-memory transport that keeps everything sent to it.
type recorder struct {
	mu      sync.Mutex
	msgs    []streaming.Message
	closed  bool
	sendErr error
	in      chan streaming.Message
}

func newRecorder() *recorder {
	return &recorder{in: make(chan streaming.Message)}
}

func (r *recorder) Send(msg streaming.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) Receive() <-chan streaming.Message { return r.in }

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) messages() []streaming.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]streaming.Message(nil), r.msgs...)
}

func (r *recorder) initials() []streaming.InitialData {
	var out []streaming.InitialData
	for _, m := range r.messages() {
		if v, ok := m.(streaming.InitialData); ok {
			out = append(out, v)
		}
	}
	return out
}

func (r *recorder) batches() []streaming.BatchedData {
	var out []streaming.BatchedData
	for _, m := range r.messages() {
		if v, ok := m.(streaming.BatchedData); ok {
			out = append(out, v)
		}
	}
	return out
}

func (r *recorder) count(msgType string) int {
	n := 0
	for _, m := range r.messages() {
		if m.MessageType() == msgType {
			n++
		}
	}
	return n
}

// mapLoader serves missions from memory. A gate, when present, holds the
// load until it is closed.
type mapLoader struct {
	mu       sync.Mutex
	missions map[string]*core.Mission
	gates    map[string]chan struct{}
}

func (l *mapLoader) Load(ctx context.Context, id string) (*core.Mission, error) {
	l.mu.Lock()
	gate := l.gates[id]
	m, ok := l.missions[id]
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", mission.ErrNotFound, id)
	}
	return m, nil
}

func (l *mapLoader) List(context.Context) ([]core.MissionSummary, error) {
	return nil, nil
}

type perfRecorder struct {
	mu      sync.Mutex
	reports map[string][]float64
}

func (p *perfRecorder) Report(id string, fps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reports == nil {
		p.reports = make(map[string][]float64)
	}
	p.reports[id] = append(p.reports[id], fps)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func altitudeMission() *core.Mission {
	return &core.Mission{
		MissionID:      "test",
		MissionSummary: core.MissionSummary{MissionID: "test", MissionName: "Test flight"},
		MissionStages:  core.MissionStages{"S1": "Booster"},
		MissionEvents: []core.MissionEvent{
			{Title: "Liftoff", TimeFromLaunchSec: 0},
			{Title: "End", TimeFromLaunchSec: 100},
		},
		MissionData: map[string][]core.Checkpoint{
			"altitude":          {{TimeSec: 0, Value: 100}, {TimeSec: 10, Value: 200}},
			"S1PlannedAltitude": {{TimeSec: 0, Value: 1}, {TimeSec: 5, Value: 2}, {TimeSec: 9, Value: 3}},
		},
	}
}

// newTestSimulator builds a simulator whose methods are called directly
// from the test goroutine in place of Run.
func newTestSimulator(t *testing.T, m *core.Mission) *Simulator {
	t.Helper()
	s, err := New(&mapLoader{}, Config{Logger: discardLogger(), Now: func() time.Time { return epoch }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	if m != nil {
		s.setMission(m)
	}
	return s
}

// play marks the clock running without starting any timers.
func (s *Simulator) play() {
	s.running = true
	s.anchor()
	s.perfWindow = s.now()
}

func (s *Simulator) ticks(n int) {
	for i := 0; i < n; i++ {
		s.tick()
	}
}

func subscribe(t *testing.T, s *Simulator, id string, hz float64, properties ...string) *recorder {
	t.Helper()
	r := newRecorder()
	require.NoError(t, s.AddSubscriber(streaming.AddSubscriber{
		ID:                    id,
		Hz:                    hz,
		MissionDataProperties: properties,
		Transport:             r,
	}))
	return r
}

func values(samples []core.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Value
	}
	return out
}
