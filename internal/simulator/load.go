package simulator

import (
	"fmt"

	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// loadHandle tracks one asynchronous mission load. mission and err are set
// before done is closed; applied is owned by the Run goroutine.
type loadHandle struct {
	missionID string
	done      chan struct{}
	mission   *core.Mission
	err       error
	applied   bool
}

// beginLoad starts loading missionID and makes it the current load.
func (s *Simulator) beginLoad(missionID string) *loadHandle {
	h := &loadHandle{missionID: missionID, done: make(chan struct{})}
	s.load = h
	s.log.Info("Loading mission", "missionId", missionID)

	go func() {
		m, err := s.loader.Load(s.lifetime, missionID)
		if err == nil {
			if verr := mission.Validate(m); verr != nil {
				err = fmt.Errorf("%w %s: %w", mission.ErrInvalid, missionID, verr)
			}
		}
		h.mission, h.err = m, err
		close(h.done)

		select {
		case s.cmds <- func() { s.applyLoad(h) }:
		case <-s.done:
		}
	}()
	return h
}

// applyLoad installs a finished load if it is still the current one.
func (s *Simulator) applyLoad(h *loadHandle) {
	if s.load != h || h.applied {
		return
	}
	h.applied = true
	if h.err != nil {
		s.log.Error("Failed to load mission", "missionId", h.missionID, "error", h.err)
		return
	}
	s.setMission(h.mission)
}

// setMission replaces the mission and resets the clock, cursors, lake and
// pending buffers. Planned properties go into the lake whole, without time.
// Subscribers stay registered and get a fresh snapshot.
func (s *Simulator) setMission(m *core.Mission) {
	planned, dynamic := mission.Partition(m)

	s.mission = m
	s.dynamic = dynamic
	s.lake = make(core.Batch, len(m.MissionData))
	s.cursors = make(map[string]int, len(dynamic))
	s.pool = make(map[string][]string, len(dynamic))

	for _, property := range planned {
		checkpoints := m.MissionData[property]
		samples := make([]core.Sample, len(checkpoints))
		for i, c := range checkpoints {
			samples[i] = core.Sample{Value: c.Value}
		}
		s.lake[property] = samples
	}
	for _, property := range dynamic {
		s.lake[property] = []core.Sample{}
		s.cursors[property] = 0
		s.pool[property] = nil
	}

	s.missionTimeSec = 0
	s.complete = false
	s.anchored = false
	if s.running {
		s.anchor()
	}
	if s.mctx != nil {
		s.mctx.SetMission(m)
	}

	s.log.Info("Mission loaded",
		"missionId", m.MissionID,
		"planned", len(planned),
		"dynamic", len(dynamic),
		"events", len(m.MissionEvents),
		"duplicateTimes", mission.DuplicateTimes(m))

	for _, id := range s.subscriberIDs() {
		sub := s.subs[id]
		s.buffers[id] = newBuffer(sub.properties)
		s.wire(sub)
		s.sendInitial(sub)
	}
}
