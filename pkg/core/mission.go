// pkg/core/mission.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlannedMarker marks a property as a fixed planned trajectory rather than
// a time-interpolated measurement.
const PlannedMarker = "Planned"

// MissionSummary describes a mission for catalogues and the initial snapshot.
type MissionSummary struct {
	MissionID      string `json:"missionId"`
	MissionName    string `json:"missionName"`
	RocketModel    string `json:"rocketModel"`
	RocketName     string `json:"rocketName"`
	LaunchDateMs   int64  `json:"launchDateMs"`
	LaunchSiteName string `json:"launchSiteName"`
}

// MissionStages maps a stage key (e.g. "S1") to its display label.
type MissionStages map[string]string

// MissionEvent is a named point on the mission timeline.
type MissionEvent struct {
	Title             string  `json:"title"`
	TimeFromLaunchSec float64 `json:"timeFromLaunchSec"`
}

// Checkpoint is a recorded (time, value) anchor for a telemetry property.
// It is encoded as a two element JSON array.
type Checkpoint struct {
	TimeSec float64
	Value   float64
}

// MarshalJSON encodes the checkpoint as a [timeSec, value] pair.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.TimeSec, c.Value})
}

// UnmarshalJSON decodes a [timeSec, value] pair. Any other shape is an error.
func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("checkpoint: want [timeSec, value], got %d elements", len(pair))
	}
	c.TimeSec, c.Value = pair[0], pair[1]
	return nil
}

// Mission is a loaded mission record. It is read-only once loaded.
type Mission struct {
	MissionID      string                  `json:"missionId"`
	MissionSummary MissionSummary          `json:"missionSummary"`
	MissionStages  MissionStages           `json:"missionStages"`
	MissionEvents  []MissionEvent          `json:"missionEvents"`
	MissionData    map[string][]Checkpoint `json:"missionData"`
}

// LastEventTimeSec returns the time of the final mission event, and false
// if the mission has no events.
func (m *Mission) LastEventTimeSec() (float64, bool) {
	if m == nil || len(m.MissionEvents) == 0 {
		return 0, false
	}
	return m.MissionEvents[len(m.MissionEvents)-1].TimeFromLaunchSec, true
}

// IsPlanned reports whether a property holds a planned trajectory.
func IsPlanned(property string) bool {
	return strings.Contains(property, PlannedMarker)
}

// Sample is one emitted telemetry value. Interpolated samples carry the
// absolute mission timestamp in milliseconds; planned samples carry none.
type Sample struct {
	TimeMs float64 `json:"t,omitempty"`
	Value  float64 `json:"v"`
}

// Batch holds samples keyed by telemetry property.
type Batch map[string][]Sample
