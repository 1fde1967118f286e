package convert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/telestrator/internal/model"
	"github.com/OCAP2/telestrator/pkg/core"
)

func TestDocumentToModel(t *testing.T) {
	doc := core.AnnotationDocument{Annotations: []core.VideoAnnotation{{
		ID:          "a1",
		Timestamp:   1.5,
		Tool:        core.ToolLine,
		Points:      []core.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
		Color:       "#ff0000",
		StrokeWidth: 3,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}

	m, err := DocumentToModel("v1", doc)
	require.NoError(t, err)

	assert.Equal(t, "v1", m.VideoID)
	assert.Equal(t, 1, m.AnnotationCount)
	assert.JSONEq(t, `[{
		"id": "a1",
		"timestamp": 1.5,
		"tool": "line",
		"points": [{"x": 0, "y": 0}, {"x": 10, "y": 10}],
		"color": "#ff0000",
		"strokeWidth": 3,
		"createdAt": "2026-01-02T03:04:05Z"
	}]`, string(m.Annotations))

	back, err := ModelToAnnotations(m)
	require.NoError(t, err)
	assert.Equal(t, doc.Annotations, back)
}

func TestDocumentToModel_NilList(t *testing.T) {
	m, err := DocumentToModel("v1", core.AnnotationDocument{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(m.Annotations))
	assert.Zero(t, m.AnnotationCount)
}

func TestModelToAnnotations_Empty(t *testing.T) {
	got, err := ModelToAnnotations(model.VideoDocument{VideoID: "v1"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestModelToAnnotations_Corrupt(t *testing.T) {
	_, err := ModelToAnnotations(model.VideoDocument{VideoID: "v1", Annotations: []byte(`{nope`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v1")
}
