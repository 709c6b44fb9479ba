package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_UnmarshalPair(t *testing.T) {
	var cps []Checkpoint
	require.NoError(t, json.Unmarshal([]byte(`[[0,100],[10.5,200]]`), &cps))

	require.Len(t, cps, 2)
	assert.Equal(t, Checkpoint{TimeSec: 0, Value: 100}, cps[0])
	assert.Equal(t, Checkpoint{TimeSec: 10.5, Value: 200}, cps[1])
}

func TestCheckpoint_UnmarshalRejectsWrongArity(t *testing.T) {
	var cp Checkpoint
	err := json.Unmarshal([]byte(`[1,2,3]`), &cp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 elements")

	err = json.Unmarshal([]byte(`{"t":1}`), &cp)
	require.Error(t, err)
}

func TestCheckpoint_MarshalPair(t *testing.T) {
	data, err := json.Marshal(Checkpoint{TimeSec: 3, Value: 4.5})
	require.NoError(t, err)
	assert.JSONEq(t, `[3,4.5]`, string(data))
}

func TestMission_Decode(t *testing.T) {
	raw := `{
		"missionId": "crs-1",
		"missionSummary": {"missionId": "crs-1", "missionName": "CRS-1", "rocketModel": "Falcon 9", "launchDateMs": 1349140800000},
		"missionStages": {"S1": "Booster", "S2": "Second stage"},
		"missionEvents": [{"title": "Liftoff", "timeFromLaunchSec": 0}, {"title": "SECO", "timeFromLaunchSec": 540}],
		"missionData": {"S1Altitude": [[0, 0], [10, 1200]], "S1PlannedAltitude": [[0, 0], [10, 1300]]}
	}`

	var m Mission
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, "crs-1", m.MissionID)
	assert.Equal(t, "Falcon 9", m.MissionSummary.RocketModel)
	assert.Equal(t, int64(1349140800000), m.MissionSummary.LaunchDateMs)
	assert.Equal(t, "Booster", m.MissionStages["S1"])
	assert.Len(t, m.MissionData["S1Altitude"], 2)

	last, ok := m.LastEventTimeSec()
	assert.True(t, ok)
	assert.Equal(t, 540.0, last)
}

func TestMission_LastEventTimeSecEmpty(t *testing.T) {
	_, ok := (&Mission{}).LastEventTimeSec()
	assert.False(t, ok)

	var m *Mission
	_, ok = m.LastEventTimeSec()
	assert.False(t, ok)
}

func TestIsPlanned(t *testing.T) {
	assert.True(t, IsPlanned("S1PlannedAltitude"))
	assert.True(t, IsPlanned("S2PlannedLatitude"))
	assert.False(t, IsPlanned("S1Altitude"))
	assert.False(t, IsPlanned("planned"))
}

func TestSample_JSONOmitsZeroTime(t *testing.T) {
	data, err := json.Marshal([]Sample{{Value: 7}, {TimeMs: 1000, Value: 8}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"v":7},{"t":1000,"v":8}]`, string(data))
}
