// Package app wires the pieces shared by the server and the seed tool.
package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dom/authroutes/internal/config"
	"github.com/dom/authroutes/internal/repository"
	"github.com/dom/authroutes/internal/repository/memory"
	"github.com/dom/authroutes/internal/repository/postgres"
	"gorm.io/gorm/logger"
)

// OpenRepositories selects the credential store named by cfg.StoreDriver.
// The returned close function releases the database connection, if any.
func OpenRepositories(cfg *config.Config, log *slog.Logger) (*repository.Repositories, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory credential store; accounts are lost on restart")
		return memory.NewRepositories(), func() error { return nil }, nil

	case config.StoreDriverPostgres:
		gormLevel := logger.Warn
		if strings.EqualFold(cfg.LogLevel, "debug") {
			gormLevel = logger.Info
		}

		db, err := postgres.NewConnection(cfg.DatabaseURL, gormLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("get sql handle: %w", err)
		}
		log.Info("connected to postgres")
		return postgres.NewRepositories(db), sqlDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
