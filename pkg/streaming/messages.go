// Package streaming defines the WebSocket protocol used to sync annotation
// documents with a video server.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeUpdateAnnotations = "update_annotations"
	TypeLoadAnnotations   = "load_annotations"
	TypeAck               = "ack"
)

// Envelope wraps all messages sent over the WebSocket. Seq is echoed by
// the server in its ack.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response. A non-empty Error
// means the request was rejected. Loads carry the document in Payload.
type AckMessage struct {
	Type    string          `json:"type"` // always "ack"
	For     string          `json:"for"`  // the message type being acknowledged
	Seq     uint64          `json:"seq"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UpdateAnnotationsPayload replaces the annotation document of a video.
type UpdateAnnotationsPayload struct {
	VideoID  string                  `json:"videoId"`
	Document core.AnnotationDocument `json:"document"`
}

// LoadAnnotationsPayload requests the stored document of a video.
type LoadAnnotationsPayload struct {
	VideoID string `json:"videoId"`
}
