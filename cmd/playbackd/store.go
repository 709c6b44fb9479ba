package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/OCAP2/launch-telemetry/internal/config"
	"github.com/OCAP2/launch-telemetry/internal/database"
	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/pkg/core"
)

var (
	errUnknownStore = errors.New("unknown store type")
	errReadOnly     = errors.New("store does not accept imports")
)

// missionSaver is implemented by stores that accept imported missions.
type missionSaver interface {
	Save(ctx context.Context, m *core.Mission) error
}

// createMissionStore opens the configured mission store. The returned func
// releases it.
func createMissionStore(storeCfg config.StoreConfig, dbCfg config.DBConfig, log *slog.Logger) (mission.Loader, func() error, error) {
	switch storeCfg.Type {
	case "sqlite":
		db, err := database.GetSqliteDB(storeCfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("SQLite mission store initialized", "path", storeCfg.SQLite.Path)
		return openSQLStore(db, log)

	case "postgres":
		db, err := database.GetPostgresDB(database.PostgresConfig{
			Host:     dbCfg.Host,
			Port:     dbCfg.Port,
			Username: dbCfg.Username,
			Password: dbCfg.Password,
			Database: dbCfg.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("Postgres mission store initialized", "host", dbCfg.Host, "database", dbCfg.Database)
		return openSQLStore(db, log)

	case "", "file":
		log.Info("File mission store initialized", "dir", storeCfg.File.Dir)
		return mission.NewFileStore(storeCfg.File.Dir), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownStore, storeCfg.Type)
	}
}

func openSQLStore(db *gorm.DB, log *slog.Logger) (mission.Loader, func() error, error) {
	if err := database.Ping(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	if err := database.Setup(db, log); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}
	return mission.NewSQLStore(db), func() error { return database.Close(db) }, nil
}
