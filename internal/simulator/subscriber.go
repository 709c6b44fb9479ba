package simulator

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/OCAP2/launch-telemetry/pkg/core"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

// subscriber is the registry entry for one consumer. Its batch buffer lives
// in Simulator.buffers keyed by id.
type subscriber struct {
	id         string
	hz         float64
	properties []string
	transport  streaming.Transport

	// gen invalidates flush requests from cancelled timers
	gen         uint64
	cancelFlush context.CancelFunc
}

type flushRequest struct {
	id  string
	gen uint64
}

func (sub *subscriber) stopFlush() {
	if sub.cancelFlush != nil {
		sub.cancelFlush()
		sub.cancelFlush = nil
	}
	sub.gen++
}

func newBuffer(properties []string) core.Batch {
	buf := make(core.Batch, len(properties))
	for _, p := range properties {
		buf[p] = []core.Sample{}
	}
	return buf
}

func (s *Simulator) subscriberIDs() []string {
	ids := make([]string, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// drainPending applies every queued add-subscriber request.
func (s *Simulator) drainPending() {
	for _, req := range s.pending.Drain() {
		s.register(req)
	}
}

func (s *Simulator) register(req streaming.AddSubscriber) {
	if old, ok := s.subs[req.ID]; ok {
		s.log.Warn("Replacing subscriber", "subscriber", req.ID)
		if err := s.unregister(old, old.transport != req.Transport); err != nil {
			s.log.Warn("Failed to close replaced transport", "subscriber", req.ID, "error", err)
		}
	}

	sub := &subscriber{
		id:         req.ID,
		hz:         req.Hz,
		properties: slices.Compact(slices.Sorted(slices.Values(req.MissionDataProperties))),
		transport:  req.Transport,
	}
	s.subs[sub.id] = sub
	s.buffers[sub.id] = newBuffer(sub.properties)
	s.wire(sub)
	if s.mission != nil {
		s.sendInitial(sub)
	}
	if s.running {
		s.startFlushTimer(sub)
	}

	s.metrics.subscribers.Add(context.Background(), 1)
	s.log.Info("Subscriber added", "subscriber", sub.id, "hz", sub.hz, "properties", sub.properties)
}

// wire adds the subscriber to the pool of every dynamic property it wants.
func (s *Simulator) wire(sub *subscriber) {
	for _, p := range sub.properties {
		ids, ok := s.pool[p]
		if !ok || slices.Contains(ids, sub.id) {
			continue
		}
		s.pool[p] = append(ids, sub.id)
	}
}

func (s *Simulator) unwire(id string) {
	for p, ids := range s.pool {
		s.pool[p] = slices.DeleteFunc(ids, func(v string) bool { return v == id })
	}
}

// sendInitial sends the full lake history for the subscriber's properties
// plus the current mission metadata.
func (s *Simulator) sendInitial(sub *subscriber) {
	data := make(core.Batch, len(sub.properties))
	for _, p := range sub.properties {
		if samples, ok := s.lake[p]; ok {
			data[p] = slices.Clone(samples)
		}
	}

	msg := streaming.InitialData{
		MissionTimeSec: s.missionTimeSec,
		MissionID:      s.mission.MissionID,
		MissionSummary: s.mission.MissionSummary,
		MissionStages:  s.mission.MissionStages,
		MissionEvents:  s.mission.MissionEvents,
		MissionData:    data,
	}
	if err := sub.transport.Send(msg); err != nil {
		s.sendFailed(sub.id, msg, err)
	}
}

func (s *Simulator) updateSubscriber(id string, hz float64) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	sub.hz = hz
	if s.running {
		s.startFlushTimer(sub)
	}
	s.log.Info("Subscriber updated", "subscriber", id, "hz", hz)
}

// removeSubscriber drops the pending and active registrations for id. A
// non-nil t restricts removal to registrations made with that transport.
func (s *Simulator) removeSubscriber(id string, t streaming.Transport) error {
	var closeErr error
	matches := func(r streaming.AddSubscriber) bool {
		return r.ID == id && (t == nil || r.Transport == t)
	}
	for _, req := range s.pending.RemoveFunc(matches) {
		if err := req.Transport.Close(); err != nil {
			closeErr = fmt.Errorf("close pending subscriber %s: %w", id, err)
		}
	}

	sub, ok := s.subs[id]
	if !ok {
		return closeErr
	}
	if t != nil && sub.transport != t {
		s.log.Debug("Keeping newer subscriber registration", "subscriber", id)
		return closeErr
	}
	if err := s.unregister(sub, true); err != nil {
		return fmt.Errorf("close subscriber %s: %w", id, err)
	}
	s.log.Info("Subscriber removed", "subscriber", id)
	return closeErr
}

// unregister cancels the flush timer and drops the subscriber's buffers.
func (s *Simulator) unregister(sub *subscriber, closeTransport bool) error {
	sub.stopFlush()
	delete(s.subs, sub.id)
	delete(s.buffers, sub.id)
	s.unwire(sub.id)
	s.metrics.subscribers.Add(context.Background(), -1)

	if closeTransport {
		return sub.transport.Close()
	}
	return nil
}

// startFlushTimer replaces the subscriber's flush timer with one firing at
// its current rate. The timer only requests flushes; they run on the Run
// goroutine.
func (s *Simulator) startFlushTimer(sub *subscriber) {
	sub.stopFlush()
	ctx, cancel := context.WithCancel(s.lifetime)
	sub.cancelFlush = cancel

	req := flushRequest{id: sub.id, gen: sub.gen}
	interval := time.Duration(float64(time.Second) / sub.hz)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			select {
			case s.flushes <- req:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
}

func (s *Simulator) handleFlush(req flushRequest) {
	sub, ok := s.subs[req.id]
	if !ok || sub.gen != req.gen {
		return
	}
	s.flush(req.id)
}

// flush hands the pending batch to the transport and gives the subscriber
// an empty buffer. The sent batch is never touched again.
func (s *Simulator) flush(id string) {
	sub, ok := s.subs[id]
	if !ok {
		return
	}
	msg := streaming.BatchedData{
		MissionTimeSec: s.missionTimeSec,
		MissionData:    s.buffers[id],
	}
	s.buffers[id] = newBuffer(sub.properties)

	s.metrics.flushes.Add(context.Background(), 1)
	if err := sub.transport.Send(msg); err != nil {
		s.sendFailed(id, msg, err)
	}
}

func (s *Simulator) sendFailed(id string, msg streaming.Message, err error) {
	s.metrics.dropped.Add(context.Background(), 1)
	s.log.Warn("Failed to send to subscriber", "subscriber", id, "type", msg.MessageType(), "error", err)
}
