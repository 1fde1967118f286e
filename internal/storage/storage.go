// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
// Update replaces the stored annotation document of a video with doc.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Update(ctx context.Context, videoID string, doc core.AnnotationDocument) error
}

// Loader is an optional interface for backends that can read a saved
// document back when a video is opened.
type Loader interface {
	Load(ctx context.Context, videoID string) ([]core.VideoAnnotation, error)
}
