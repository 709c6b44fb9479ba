package mission

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OCAP2/launch-telemetry/internal/model"
	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// SQLStore loads missions from the missions table.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load fetches one mission by id.
func (s *SQLStore) Load(ctx context.Context, missionID string) (*core.Mission, error) {
	var rec model.MissionRecord
	err := s.db.WithContext(ctx).Where("mission_id = ?", missionID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, missionID)
	}
	if err != nil {
		return nil, fmt.Errorf("query mission %s: %w", missionID, err)
	}
	return rec.ToCore(), nil
}

// List returns every stored mission summary ordered by launch date.
func (s *SQLStore) List(ctx context.Context) ([]core.MissionSummary, error) {
	var recs []model.MissionRecord
	err := s.db.WithContext(ctx).
		Select("mission_id", "mission_name", "rocket_model", "rocket_name", "launch_date_ms", "launch_site_name").
		Order("launch_date_ms").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}

	summaries := make([]core.MissionSummary, len(recs))
	for i, r := range recs {
		summaries[i] = r.Summary()
	}
	return summaries, nil
}

// Save inserts or replaces a mission keyed by its mission id.
func (s *SQLStore) Save(ctx context.Context, m *core.Mission) error {
	rec := model.NewMissionRecord(m)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mission_name", "rocket_model", "rocket_name", "launch_date_ms",
			"launch_site_name", "stages", "events", "data", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save mission %s: %w", m.MissionID, err)
	}
	return nil
}
