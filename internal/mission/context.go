package mission

import (
	"sync"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// Context holds the mission currently loaded into the simulator so that
// other components (logging, HTTP) can read it without touching simulator state.
type Context struct {
	mu             sync.RWMutex
	mission        *core.Mission
	missionTimeSec float64
}

// NewContext creates a new Context with no mission loaded
func NewContext() *Context {
	return &Context{}
}

// GetMission returns the current mission, or nil
func (mc *Context) GetMission() *core.Mission {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.mission
}

// MissionID returns the current mission id, or "" when none is loaded
func (mc *Context) MissionID() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.mission == nil {
		return ""
	}
	return mc.mission.MissionID
}

// SetMission replaces the current mission and resets its clock
func (mc *Context) SetMission(m *core.Mission) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.mission = m
	mc.missionTimeSec = 0
}

// MissionTimeSec returns the last published mission clock value
func (mc *Context) MissionTimeSec() float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.missionTimeSec
}

// SetMissionTimeSec publishes the mission clock
func (mc *Context) SetMissionTimeSec(t float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.missionTimeSec = t
}
