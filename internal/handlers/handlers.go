// Package handlers applies control commands to the simulator.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/launch-telemetry/internal/dispatcher"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

// ErrNotControl is returned for messages the simulator only ever sends.
var ErrNotControl = errors.New("not a control message")

// ErrMissingMissionID is returned for update-mission without an id.
var ErrMissingMissionID = errors.New("missionId is required")

// Simulator is the set of operations control commands map onto.
type Simulator interface {
	UpdateMission(ctx context.Context, missionID string) error
	StartMission(ctx context.Context) error
	StopMission(ctx context.Context) error
	UpdateMissionPlaybackSpeed(ctx context.Context, speed float64) error
	AddSubscriber(req streaming.AddSubscriber) error
	UpdateSubscriber(ctx context.Context, req streaming.UpdateSubscriber) error
	RemoveSubscriber(ctx context.Context, id string) error
}

// PerfReporter receives fps reports from consumers.
type PerfReporter interface {
	Report(id string, fps float64)
}

// Service turns decoded control messages into simulator calls.
type Service struct {
	sim  Simulator
	perf PerfReporter
	log  *slog.Logger
}

// NewService creates a Service. perf may be nil.
func NewService(sim Simulator, perf PerfReporter, log *slog.Logger) *Service {
	return &Service{sim: sim, perf: perf, log: log}
}

// ControlCommands are the commands accepted from a control client.
var ControlCommands = []string{
	streaming.TypeUpdateMission,
	streaming.TypeStartMission,
	streaming.TypeStopMission,
	streaming.TypeUpdateMissionPlaybackSpeed,
	streaming.TypeAddSubscriber,
	streaming.TypeUpdateSubscriber,
	streaming.TypeRemoveSubscriber,
}

// Register wires every control command into d. Fps reports are queued
// since nobody waits on them.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	for _, cmd := range ControlCommands {
		d.Register(cmd, s.handle, dispatcher.Logged())
	}
	d.Register(streaming.TypeFps, s.handle, dispatcher.Buffered(256))
}

func (s *Service) handle(ctx context.Context, e dispatcher.Event) (any, error) {
	msg, err := streaming.DecodeEnvelope(e.Envelope())
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, msg)
}

// Apply executes one decoded message.
func (s *Service) Apply(ctx context.Context, msg streaming.Message) (any, error) {
	switch m := msg.(type) {
	case streaming.UpdateMission:
		if m.MissionID == "" {
			return nil, fmt.Errorf("%s: %w", m.MessageType(), ErrMissingMissionID)
		}
		return "loading", s.sim.UpdateMission(ctx, m.MissionID)
	case streaming.StartMission:
		return "started", s.sim.StartMission(ctx)
	case streaming.StopMission:
		return "stopped", s.sim.StopMission(ctx)
	case streaming.UpdateMissionPlaybackSpeed:
		return "ok", s.sim.UpdateMissionPlaybackSpeed(ctx, m.MissionPlaybackSpeed)
	case streaming.AddSubscriber:
		return "queued", s.sim.AddSubscriber(m)
	case streaming.UpdateSubscriber:
		return "ok", s.sim.UpdateSubscriber(ctx, m)
	case streaming.RemoveSubscriber:
		return "ok", s.sim.RemoveSubscriber(ctx, m.ID)
	case streaming.Fps:
		if s.perf != nil && m.ID != "" {
			s.perf.Report(m.ID, m.Fps)
		}
		return "ok", nil
	case streaming.InitialData, streaming.BatchedData, streaming.MissionComplete:
		return nil, fmt.Errorf("%s: %w", m.MessageType(), ErrNotControl)
	default:
		return nil, fmt.Errorf("unhandled message %T", msg)
	}
}
