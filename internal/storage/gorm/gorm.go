// Package gormstorage implements the storage.Backend interface on top of a
// GORM connection. Each video's document is one upserted row.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/OCAP2/telestrator/internal/model"
	"github.com/OCAP2/telestrator/internal/model/convert"
	"github.com/OCAP2/telestrator/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm storage: no database connection")
	}

	b.deps.Logger.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.dbReady = true
	b.deps.Logger.Info("Database setup complete")
	return nil
}

// Close is a no-op. The connection belongs to whoever opened it.
func (b *Backend) Close() error {
	return nil
}

// Update replaces the stored document of a video.
func (b *Backend) Update(ctx context.Context, videoID string, doc core.AnnotationDocument) error {
	if !b.dbReady {
		return errors.New("gorm storage: not initialized")
	}

	row, err := convert.DocumentToModel(videoID, doc)
	if err != nil {
		return err
	}
	row.Revision = 1

	err = b.deps.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"annotations":      row.Annotations,
			"annotation_count": row.AnnotationCount,
			"revision":         gorm.Expr("video_documents.revision + 1"),
			"updated_at":       time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert document for %s: %w", videoID, err)
	}

	b.deps.Logger.Debug("Document stored",
		"videoId", videoID,
		"annotations", row.AnnotationCount)
	return nil
}

// Load returns the stored annotations of a video, or nil if unknown.
func (b *Backend) Load(ctx context.Context, videoID string) ([]core.VideoAnnotation, error) {
	row, err := b.find(ctx, videoID)
	if err != nil || row == nil {
		return nil, err
	}
	return convert.ModelToAnnotations(*row)
}

// Revision returns how many times a video's document was written.
func (b *Backend) Revision(ctx context.Context, videoID string) (uint, error) {
	row, err := b.find(ctx, videoID)
	if err != nil || row == nil {
		return 0, err
	}
	return row.Revision, nil
}

func (b *Backend) find(ctx context.Context, videoID string) (*model.VideoDocument, error) {
	if !b.dbReady {
		return nil, errors.New("gorm storage: not initialized")
	}

	var row model.VideoDocument
	err := b.deps.DB.WithContext(ctx).Where("video_id = ?", videoID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document for %s: %w", videoID, err)
	}
	return &row, nil
}
