// Package postgres implements the storage.Backend interface on PostgreSQL
// by wrapping the GORM backend with connection management.
package postgres

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/internal/database"
	gormstorage "github.com/OCAP2/telestrator/internal/storage/gorm"
)

// Backend wraps the GORM backend and owns its Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg    config.PostgresConfig
	logger *slog.Logger
	db     *gorm.DB
}

// New creates a new Postgres storage backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{cfg: cfg, logger: logger}
}

// Init connects to Postgres and migrates the schema.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.logger.Info("Connected to Postgres",
		"host", b.cfg.Host,
		"database", b.cfg.Database)

	b.db = db
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.logger})
	return b.Backend.Init()
}

// Close releases the Postgres connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := database.Close(b.db)
	b.db = nil
	return err
}
