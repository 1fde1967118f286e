// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sync"

	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/pkg/core"
)

// VideoRecord is the stored document of one video
type VideoRecord struct {
	VideoID     string
	Annotations []core.VideoAnnotation
	Revision    int
}

// Backend keeps annotation documents in memory and exports them to JSON
// on Close
type Backend struct {
	cfg config.MemoryConfig

	videos map[string]*VideoRecord
	mu     sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		videos: make(map[string]*VideoRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports every document if an output directory is configured
func (b *Backend) Close() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// Update replaces the document of a video
func (b *Backend) Update(_ context.Context, videoID string, doc core.AnnotationDocument) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.videos[videoID]
	if !ok {
		rec = &VideoRecord{VideoID: videoID}
		b.videos[videoID] = rec
	}
	rec.Annotations = core.CloneAll(doc.Annotations)
	rec.Revision++
	return nil
}

// Load returns the stored annotations of a video, or nil if unknown
func (b *Backend) Load(_ context.Context, videoID string) ([]core.VideoAnnotation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.videos[videoID]
	if !ok {
		return nil, nil
	}
	return core.CloneAll(rec.Annotations), nil
}

// Revision returns how many times a video's document was written
func (b *Backend) Revision(videoID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if rec, ok := b.videos[videoID]; ok {
		return rec.Revision
	}
	return 0
}
