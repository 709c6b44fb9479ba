package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OCAP2/launch-telemetry/internal/dispatcher"
	"github.com/OCAP2/launch-telemetry/internal/transport/websocket"
	"github.com/OCAP2/launch-telemetry/pkg/streaming"
)

// DefaultSubscriberHz is used when a subscribe request omits hz.
const DefaultSubscriberHz = 10

// SubscribeParams are the query parameters of GET /api/v1/subscribe.
type SubscribeParams struct {
	ID         string
	Hz         float64
	Properties []string
}

// ParseSubscribeParams reads id, hz and properties from a query. Properties
// may be repeated or comma separated. A missing id gets a random one.
func ParseSubscribeParams(r *http.Request) (SubscribeParams, error) {
	q := r.URL.Query()
	p := SubscribeParams{ID: q.Get("id"), Hz: DefaultSubscriberHz}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if raw := q.Get("hz"); raw != "" {
		hz, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("invalid hz %q: %w", raw, err)
		}
		p.Hz = hz
	}
	for _, v := range q["properties"] {
		for _, prop := range strings.Split(v, ",") {
			if prop = strings.TrimSpace(prop); prop != "" {
				p.Properties = append(p.Properties, prop)
			}
		}
	}
	if len(p.Properties) == 0 {
		return p, fmt.Errorf("at least one property is required")
	}
	return p, nil
}

// handleSubscribe upgrades to a websocket and registers it as a subscriber.
// The stream lives until the peer disconnects or the simulator drops it.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		respondError(w, http.StatusTooManyRequests, fmt.Errorf("too many subscribe requests"))
		return
	}
	params, err := ParseSubscribeParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "id", params.ID, "error", err)
		return
	}
	conn := websocket.New(raw, s.log.With("subscriber", params.ID))

	err = s.sim.AddSubscriber(streaming.AddSubscriber{
		ID:                    params.ID,
		Hz:                    params.Hz,
		MissionDataProperties: params.Properties,
		Transport:             conn,
	})
	if err != nil {
		s.log.Warn("Failed to add subscriber", "id", params.ID, "error", err)
		_ = conn.Close()
		return
	}

	s.metrics.StreamOpened()
	s.perf.AddWorker()
	s.log.Info("Subscriber connected", "id", params.ID, "hz", params.Hz, "properties", params.Properties)

	ctx := context.WithoutCancel(r.Context())
	for msg := range conn.Receive() {
		s.handleInbound(ctx, params.ID, msg)
	}

	if err := s.sim.DetachSubscriber(ctx, params.ID, conn); err != nil {
		s.log.Debug("Remove subscriber failed", "id", params.ID, "error", err)
	}
	s.perf.RemoveWorker()
	s.perf.Forget(params.ID)
	s.metrics.StreamClosed()
	s.log.Info("Subscriber disconnected", "id", params.ID)
}

// handleInbound applies a message sent by a subscriber about itself.
func (s *Server) handleInbound(ctx context.Context, id string, msg streaming.Message) {
	switch m := msg.(type) {
	case streaming.UpdateSubscriber:
		m.ID = id
		msg = m
	case streaming.Fps:
		m.ID = id
		msg = m
	default:
		s.log.Debug("Ignoring subscriber message", "id", id, "type", msg.MessageType())
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("Failed to encode subscriber message", "id", id, "error", err)
		return
	}
	env := streaming.Envelope{Type: msg.MessageType(), Payload: payload}
	if _, err := s.control.Dispatch(ctx, dispatcher.FromEnvelope(env)); err != nil {
		s.log.Warn("Subscriber message failed", "id", id, "type", env.Type, "error", err)
	}
}
