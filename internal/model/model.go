package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&MissionRecord{},
}

// MissionRecord stores one replayable mission. Checkpoint data is kept as a
// JSON document since it is only ever read whole.
type MissionRecord struct {
	gorm.Model
	MissionID      string `json:"missionId" gorm:"size:127;uniqueIndex"`
	MissionName    string `json:"missionName" gorm:"size:255"`
	RocketModel    string `json:"rocketModel" gorm:"size:127"`
	RocketName     string `json:"rocketName" gorm:"size:127"`
	LaunchDateMs   int64  `json:"launchDateMs"`
	LaunchSiteName string `json:"launchSiteName" gorm:"size:255"`

	Stages datatypes.JSONType[core.MissionStages]           `json:"missionStages"`
	Events datatypes.JSONType[[]core.MissionEvent]          `json:"missionEvents"`
	Data   datatypes.JSONType[map[string][]core.Checkpoint] `json:"missionData"`
}

func (MissionRecord) TableName() string {
	return "missions"
}

// NewMissionRecord builds a record from a loaded mission.
func NewMissionRecord(m *core.Mission) MissionRecord {
	return MissionRecord{
		MissionID:      m.MissionID,
		MissionName:    m.MissionSummary.MissionName,
		RocketModel:    m.MissionSummary.RocketModel,
		RocketName:     m.MissionSummary.RocketName,
		LaunchDateMs:   m.MissionSummary.LaunchDateMs,
		LaunchSiteName: m.MissionSummary.LaunchSiteName,
		Stages:         datatypes.NewJSONType(m.MissionStages),
		Events:         datatypes.NewJSONType(m.MissionEvents),
		Data:           datatypes.NewJSONType(m.MissionData),
	}
}

// Summary returns the catalogue view of the record.
func (r MissionRecord) Summary() core.MissionSummary {
	return core.MissionSummary{
		MissionID:      r.MissionID,
		MissionName:    r.MissionName,
		RocketModel:    r.RocketModel,
		RocketName:     r.RocketName,
		LaunchDateMs:   r.LaunchDateMs,
		LaunchSiteName: r.LaunchSiteName,
	}
}

// ToCore converts the record back to a mission.
func (r MissionRecord) ToCore() *core.Mission {
	return &core.Mission{
		MissionID:      r.MissionID,
		MissionSummary: r.Summary(),
		MissionStages:  r.Stages.Data(),
		MissionEvents:  r.Events.Data(),
		MissionData:    r.Data.Data(),
	}
}
