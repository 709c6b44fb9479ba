package mission

import "github.com/OCAP2/launch-telemetry/pkg/core"

func testMission(id string, launchMs int64) *core.Mission {
	return &core.Mission{
		MissionID: id,
		MissionSummary: core.MissionSummary{
			MissionID:      id,
			MissionName:    "Mission " + id,
			RocketModel:    "Falcon 9",
			LaunchDateMs:   launchMs,
			LaunchSiteName: "SLC-40",
		},
		MissionStages: core.MissionStages{"S1": "Booster", "S2": "Upper stage"},
		MissionEvents: []core.MissionEvent{
			{Title: "Liftoff", TimeFromLaunchSec: 0},
			{Title: "MECO", TimeFromLaunchSec: 150},
		},
		MissionData: map[string][]core.Checkpoint{
			"S1Altitude":        {{TimeSec: 0, Value: 0}, {TimeSec: 10, Value: 1000}},
			"S1Velocity":        {{TimeSec: 0, Value: 0}, {TimeSec: 10, Value: 300}},
			"S1PlannedAltitude": {{TimeSec: 0, Value: 0}, {TimeSec: 10, Value: 1100}},
		},
	}
}
