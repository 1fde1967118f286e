// Package websocket implements a storage backend that pushes annotation
// documents to a video server over WebSocket and waits for each ack.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/pkg/core"
	"github.com/OCAP2/telestrator/pkg/streaming"
)

// Backend syncs annotation documents with a video server over WebSocket.
type Backend struct {
	conn       *connection
	cfg        config.WebSocketConfig
	ackTimeout time.Duration
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn:       newConnection(logger),
		cfg:        cfg,
		ackTimeout: ackTimeout,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Update sends the full document of a video and waits for the server ack.
func (b *Backend) Update(ctx context.Context, videoID string, doc core.AnnotationDocument) error {
	if doc.Annotations == nil {
		doc.Annotations = []core.VideoAnnotation{}
	}
	_, err := b.conn.request(ctx, streaming.TypeUpdateAnnotations, streaming.UpdateAnnotationsPayload{
		VideoID:  videoID,
		Document: doc,
	}, b.ackTimeout)
	return err
}

// Load asks the server for the stored document of a video.
func (b *Backend) Load(ctx context.Context, videoID string) ([]core.VideoAnnotation, error) {
	ack, err := b.conn.request(ctx, streaming.TypeLoadAnnotations, streaming.LoadAnnotationsPayload{
		VideoID: videoID,
	}, b.ackTimeout)
	if err != nil {
		return nil, err
	}
	if len(ack.Payload) == 0 || string(ack.Payload) == "null" {
		return nil, nil
	}

	var doc core.AnnotationDocument
	if err := json.Unmarshal(ack.Payload, &doc); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", videoID, err)
	}
	return doc.Annotations, nil
}
