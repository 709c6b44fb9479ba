package simulator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/launch-telemetry/internal/interp"
	"github.com/OCAP2/launch-telemetry/pkg/core"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

func (s *Simulator) anchor() {
	s.startMs = float64(s.now().UnixMilli())
	s.anchored = true
}

func (s *Simulator) start() {
	if s.complete {
		return
	}
	if !s.anchored {
		s.anchor()
	}
	s.startTicker()
	for _, id := range s.subscriberIDs() {
		s.startFlushTimer(s.subs[id])
	}
	if !s.running {
		s.log.Info("Mission started", "missionId", s.missionID(), "missionTimeSec", s.missionTimeSec)
	}
	s.running = true
	s.perfWindow = s.now()
	s.perfTicks = 0
}

func (s *Simulator) stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	for _, sub := range s.subs {
		sub.stopFlush()
	}
	if s.running {
		s.log.Info("Mission stopped", "missionId", s.missionID(), "missionTimeSec", s.missionTimeSec)
	}
	s.running = false
}

// startTicker replaces the tick timer with a fresh one.
func (s *Simulator) startTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker = time.NewTicker(s.tickInterval())
}

func (s *Simulator) missionID() string {
	if s.mission == nil {
		return ""
	}
	return s.mission.MissionID
}

// tick advances the clock by one time step and interpolates every dynamic
// property. Once mission time has passed the final event the mission
// completes and no further ticks run.
func (s *Simulator) tick() {
	if !s.running || s.complete {
		return
	}
	if last, ok := s.mission.LastEventTimeSec(); ok && s.missionTimeSec > last {
		s.completeMission()
		return
	}

	s.drainPending()

	s.missionTimeSec += s.timeStep
	nowMs := s.startMs + s.missionTimeSec*1000

	emitted := 0
	for _, property := range s.dynamic {
		if s.step(property, nowMs) {
			emitted++
		}
	}

	if s.mctx != nil {
		s.mctx.SetMissionTimeSec(s.missionTimeSec)
	}
	ctx := context.Background()
	s.metrics.ticks.Add(ctx, 1)
	if emitted > 0 {
		s.metrics.samples.Add(ctx, int64(emitted))
	}
	s.reportTickRate()
}

// step runs the interpolation step for one property and reports whether a
// sample was emitted. The cursor moves forward by at most one checkpoint per
// tick, and the tick that moves it emits nothing.
func (s *Simulator) step(property string, nowMs float64) bool {
	checkpoints := s.mission.MissionData[property]
	i := s.cursors[property]
	if i+1 >= len(checkpoints) {
		return false
	}

	next := checkpoints[i+1]
	if s.missionTimeSec >= next.TimeSec {
		s.cursors[property] = i + 1
		return false
	}

	cur := checkpoints[i]
	if s.missionTimeSec < cur.TimeSec {
		// before the first checkpoint
		return false
	}

	// cur.TimeSec <= t < next.TimeSec here, so the segment has width
	value, err := interp.LerpChecked(cur.TimeSec, cur.Value, next.TimeSec, next.Value, s.missionTimeSec)
	if err != nil {
		s.log.Warn("Skipping sample", "property", property, "cursor", i, "error", err)
		return false
	}

	sample := core.Sample{TimeMs: nowMs, Value: value}
	s.lake[property] = append(s.lake[property], sample)
	for _, id := range s.pool[property] {
		buf := s.buffers[id]
		buf[property] = append(buf[property], sample)
	}
	return true
}

// completeMission flushes every subscriber one last time, stops the clock
// and signals completion on the control transport.
func (s *Simulator) completeMission() {
	s.complete = true
	for _, id := range s.subscriberIDs() {
		s.flush(id)
	}
	s.stop()

	s.log.Info("Mission complete", "missionId", s.missionID(), "missionTimeSec", s.missionTimeSec)
	s.metrics.completions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("mission", s.missionID())))
	if s.control != nil {
		if err := s.control.Send(streaming.MissionComplete{}); err != nil {
			s.log.Error("Failed to signal mission complete", "error", err)
		}
	}
}

// reportTickRate reports the achieved tick rate about once per wall second.
func (s *Simulator) reportTickRate() {
	if s.perf == nil {
		return
	}
	s.perfTicks++
	now := s.now()
	elapsed := now.Sub(s.perfWindow)
	if elapsed < time.Second {
		return
	}
	s.perf.Report(PerfID, float64(s.perfTicks)/elapsed.Seconds())
	s.perfWindow = now
	s.perfTicks = 0
}
