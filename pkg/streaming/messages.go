package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// Message type constants matching the playback protocol.
const (
	// Control plane, host -> simulator.
	TypeUpdateMission              = "update-mission"
	TypeStartMission               = "start-mission"
	TypeStopMission                = "stop-mission"
	TypeUpdateMissionPlaybackSpeed = "update-mission-playback-speed"
	TypeAddSubscriber              = "add-subscriber"
	TypeUpdateSubscriber           = "update-subscriber"
	TypeRemoveSubscriber           = "remove-subscriber"

	// Simulator -> subscriber.
	TypeInitialData = "initial-data"
	TypeBatchedData = "batched-data"

	// Simulator -> host.
	TypeMissionComplete = "mission-complete"

	// Any consumer -> perf aggregator.
	TypeFps = "fps"
)

// Message is the closed set of payloads exchanged with the simulator.
type Message interface {
	MessageType() string
}

// Envelope wraps every message on a serialized transport.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UpdateMission starts loading a mission in the background.
type UpdateMission struct {
	MissionID string `json:"missionId"`
}

// StartMission starts the clock once the selected mission is loaded.
type StartMission struct{}

// StopMission halts the clock and flush timers.
type StopMission struct{}

// UpdateMissionPlaybackSpeed sets the mission seconds advanced per wall second.
type UpdateMissionPlaybackSpeed struct {
	MissionPlaybackSpeed float64 `json:"missionPlaybackSpeed"`
}

// AddSubscriber registers a consumer. Over the wire the transport is the
// connection the request arrived on, so it is never serialized.
type AddSubscriber struct {
	ID                    string    `json:"id"`
	Hz                    float64   `json:"hz"`
	MissionDataProperties []string  `json:"missionDataProperties"`
	Transport             Transport `json:"-"`
}

// UpdateSubscriber changes a subscriber's flush rate.
type UpdateSubscriber struct {
	ID string  `json:"id"`
	Hz float64 `json:"hz"`
}

// RemoveSubscriber unregisters a subscriber and closes its transport.
type RemoveSubscriber struct {
	ID string `json:"id"`
}

// InitialData is sent once when a subscriber is registered and carries the
// full history for the requested properties.
type InitialData struct {
	MissionTimeSec float64             `json:"missionTimeSec"`
	MissionID      string              `json:"missionId"`
	MissionSummary core.MissionSummary `json:"missionSummary"`
	MissionStages  core.MissionStages  `json:"missionStages"`
	MissionEvents  []core.MissionEvent `json:"missionEvents"`
	MissionData    core.Batch          `json:"missionData"`
}

// BatchedData carries the samples produced since the previous flush.
type BatchedData struct {
	MissionTimeSec float64    `json:"missionTimeSec"`
	MissionData    core.Batch `json:"missionData"`
}

// MissionComplete tells the host the final event has been played.
type MissionComplete struct{}

// Fps is a frame rate report from a consumer.
type Fps struct {
	ID  string  `json:"id,omitempty"`
	Fps float64 `json:"fps"`
}

func (UpdateMission) MessageType() string              { return TypeUpdateMission }
func (StartMission) MessageType() string               { return TypeStartMission }
func (StopMission) MessageType() string                { return TypeStopMission }
func (UpdateMissionPlaybackSpeed) MessageType() string { return TypeUpdateMissionPlaybackSpeed }
func (AddSubscriber) MessageType() string              { return TypeAddSubscriber }
func (UpdateSubscriber) MessageType() string           { return TypeUpdateSubscriber }
func (RemoveSubscriber) MessageType() string           { return TypeRemoveSubscriber }
func (InitialData) MessageType() string                { return TypeInitialData }
func (BatchedData) MessageType() string                { return TypeBatchedData }
func (MissionComplete) MessageType() string            { return TypeMissionComplete }
func (Fps) MessageType() string                        { return TypeFps }

// Encode builds a JSON-encoded Envelope for msg.
func Encode(msg Message) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msg.MessageType(), err)
	}
	env := Envelope{Type: msg.MessageType(), Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msg.MessageType(), err)
	}
	return data, nil
}

// Decode parses a JSON-encoded Envelope into its typed Message.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope converts an Envelope into its typed Message.
func DecodeEnvelope(env Envelope) (Message, error) {
	var msg Message
	switch env.Type {
	case TypeUpdateMission:
		msg = &UpdateMission{}
	case TypeStartMission:
		return StartMission{}, nil
	case TypeStopMission:
		return StopMission{}, nil
	case TypeUpdateMissionPlaybackSpeed:
		msg = &UpdateMissionPlaybackSpeed{}
	case TypeAddSubscriber:
		msg = &AddSubscriber{}
	case TypeUpdateSubscriber:
		msg = &UpdateSubscriber{}
	case TypeRemoveSubscriber:
		msg = &RemoveSubscriber{}
	case TypeInitialData:
		msg = &InitialData{}
	case TypeBatchedData:
		msg = &BatchedData{}
	case TypeMissionComplete:
		return MissionComplete{}, nil
	case TypeFps:
		msg = &Fps{}
	default:
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
		}
	}
	return deref(msg), nil
}

// deref returns the value form so callers can type-switch on value types.
func deref(msg Message) Message {
	switch m := msg.(type) {
	case *UpdateMission:
		return *m
	case *UpdateMissionPlaybackSpeed:
		return *m
	case *AddSubscriber:
		return *m
	case *UpdateSubscriber:
		return *m
	case *RemoveSubscriber:
		return *m
	case *InitialData:
		return *m
	case *BatchedData:
		return *m
	case *Fps:
		return *m
	}
	return msg
}
