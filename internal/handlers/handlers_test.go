package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/launch-telemetry/internal/dispatcher"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

type call struct {
	op  string
	arg any
}

type fakeSimulator struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeSimulator) record(op string, arg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op, arg})
	return f.err
}

func (f *fakeSimulator) UpdateMission(_ context.Context, id string) error {
	return f.record("UpdateMission", id)
}
func (f *fakeSimulator) StartMission(context.Context) error { return f.record("StartMission", nil) }
func (f *fakeSimulator) StopMission(context.Context) error  { return f.record("StopMission", nil) }
func (f *fakeSimulator) UpdateMissionPlaybackSpeed(_ context.Context, speed float64) error {
	return f.record("UpdateMissionPlaybackSpeed", speed)
}
func (f *fakeSimulator) AddSubscriber(req streaming.AddSubscriber) error {
	return f.record("AddSubscriber", req)
}
func (f *fakeSimulator) UpdateSubscriber(_ context.Context, req streaming.UpdateSubscriber) error {
	return f.record("UpdateSubscriber", req)
}
func (f *fakeSimulator) RemoveSubscriber(_ context.Context, id string) error {
	return f.record("RemoveSubscriber", id)
}

type fakePerf struct {
	mu      sync.Mutex
	reports map[string]float64
	done    chan struct{}
}

func (p *fakePerf) Report(id string, fps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports[id] = fps
	close(p.done)
}

func newTestService(t *testing.T) (*Service, *fakeSimulator, *fakePerf, *dispatcher.Dispatcher) {
	t.Helper()
	sim := &fakeSimulator{}
	perf := &fakePerf{reports: map[string]float64{}, done: make(chan struct{})}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := dispatcher.New(&dispatcherLogger{log})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	s := NewService(sim, perf, log)
	s.Register(d)
	return s, sim, perf, d
}

type dispatcherLogger struct{ l *slog.Logger }

func (d *dispatcherLogger) Debug(msg string, kv ...any) { d.l.Debug(msg, kv...) }
func (d *dispatcherLogger) Info(msg string, kv ...any)  { d.l.Info(msg, kv...) }
func (d *dispatcherLogger) Error(msg string, kv ...any) { d.l.Error(msg, kv...) }

func dispatch(t *testing.T, d *dispatcher.Dispatcher, raw string) (any, error) {
	t.Helper()
	var env streaming.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return d.Dispatch(context.Background(), dispatcher.FromEnvelope(env))
}

func TestRegister_AllControlCommands(t *testing.T) {
	_, _, _, d := newTestService(t)

	for _, cmd := range ControlCommands {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
	assert.True(t, d.HasHandler(streaming.TypeFps))
	assert.False(t, d.HasHandler(streaming.TypeBatchedData))
}

func TestDispatch_RoutesToSimulator(t *testing.T) {
	_, sim, _, d := newTestService(t)

	msgs := []string{
		`{"type":"update-mission","payload":{"missionId":"crs-1"}}`,
		`{"type":"start-mission"}`,
		`{"type":"update-mission-playback-speed","payload":{"missionPlaybackSpeed":20}}`,
		`{"type":"add-subscriber","payload":{"id":"a","hz":10,"missionDataProperties":["S1Altitude"]}}`,
		`{"type":"update-subscriber","payload":{"id":"a","hz":50}}`,
		`{"type":"remove-subscriber","payload":{"id":"a"}}`,
		`{"type":"stop-mission","payload":{}}`,
	}
	for _, raw := range msgs {
		_, err := dispatch(t, d, raw)
		require.NoError(t, err, raw)
	}

	assert.Equal(t, []call{
		{"UpdateMission", "crs-1"},
		{"StartMission", nil},
		{"UpdateMissionPlaybackSpeed", 20.0},
		{"AddSubscriber", streaming.AddSubscriber{ID: "a", Hz: 10, MissionDataProperties: []string{"S1Altitude"}}},
		{"UpdateSubscriber", streaming.UpdateSubscriber{ID: "a", Hz: 50}},
		{"RemoveSubscriber", "a"},
		{"StopMission", nil},
	}, sim.calls)
}

func TestDispatch_PropagatesSimulatorError(t *testing.T) {
	_, sim, _, d := newTestService(t)
	sim.err = errors.New("mission not found")

	_, err := dispatch(t, d, `{"type":"start-mission"}`)
	assert.EqualError(t, err, "mission not found")
}

func TestDispatch_BadPayload(t *testing.T) {
	_, sim, _, d := newTestService(t)

	_, err := dispatch(t, d, `{"type":"update-mission-playback-speed","payload":{"missionPlaybackSpeed":"fast"}}`)
	require.Error(t, err)

	_, err = dispatch(t, d, `{"type":"update-mission","payload":{}}`)
	assert.ErrorIs(t, err, ErrMissingMissionID)

	assert.Empty(t, sim.calls)
}

func TestDispatch_FpsReachesPerf(t *testing.T) {
	_, _, perf, d := newTestService(t)

	result, err := dispatch(t, d, `{"type":"fps","payload":{"id":"globe","fps":58}}`)
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	<-perf.done
	perf.mu.Lock()
	defer perf.mu.Unlock()
	assert.Equal(t, 58.0, perf.reports["globe"])
}

func TestApply_RejectsOutboundMessages(t *testing.T) {
	s, _, _, _ := newTestService(t)

	for _, msg := range []streaming.Message{streaming.InitialData{}, streaming.BatchedData{}, streaming.MissionComplete{}} {
		_, err := s.Apply(context.Background(), msg)
		assert.ErrorIs(t, err, ErrNotControl)
	}
}
