// Package convert maps annotation documents to and from their GORM rows
package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/OCAP2/telestrator/internal/model"
	"github.com/OCAP2/telestrator/pkg/core"
)

// DocumentToModel builds the row for a video's document. Revision and
// timestamps are left to the caller.
func DocumentToModel(videoID string, doc core.AnnotationDocument) (model.VideoDocument, error) {
	annotations := doc.Annotations
	if annotations == nil {
		annotations = []core.VideoAnnotation{}
	}
	raw, err := json.Marshal(annotations)
	if err != nil {
		return model.VideoDocument{}, fmt.Errorf("marshal annotations: %w", err)
	}
	return model.VideoDocument{
		VideoID:         videoID,
		Annotations:     datatypes.JSON(raw),
		AnnotationCount: len(annotations),
	}, nil
}

// ModelToAnnotations decodes the stored annotation list. An empty column
// yields an empty list.
func ModelToAnnotations(m model.VideoDocument) ([]core.VideoAnnotation, error) {
	if len(m.Annotations) == 0 {
		return []core.VideoAnnotation{}, nil
	}
	var annotations []core.VideoAnnotation
	if err := json.Unmarshal(m.Annotations, &annotations); err != nil {
		return nil, fmt.Errorf("unmarshal annotations of %s: %w", m.VideoID, err)
	}
	return annotations, nil
}
