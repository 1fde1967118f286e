// pkg/core/annotation.go
package core

import (
	"fmt"
	"time"
)

// VideoAnnotation is a drawn mark tied to one playback instant of a video.
// Points are in the surface pixel space at capture time and are never
// rescaled. Timestamp and Points must not be modified after construction.
type VideoAnnotation struct {
	ID          string    `json:"id"`
	Timestamp   float64   `json:"timestamp"` // playback seconds
	Tool        Tool      `json:"tool"`
	Points      []Point   `json:"points"`
	Color       string    `json:"color"`
	StrokeWidth int       `json:"strokeWidth"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate checks the annotation invariants.
func (a VideoAnnotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("annotation id is empty")
	}
	if !a.Tool.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTool, a.Tool)
	}
	if !a.Tool.ValidPointCount(len(a.Points)) {
		return fmt.Errorf("%w: %s with %d points", ErrInvalidPoints, a.Tool, len(a.Points))
	}
	if a.StrokeWidth < MinStrokeWidth || a.StrokeWidth > MaxStrokeWidth {
		return fmt.Errorf("%w: %d", ErrInvalidStrokeWidth, a.StrokeWidth)
	}
	return nil
}

// Style returns the stroke style the annotation was drawn with.
func (a VideoAnnotation) Style() Style {
	return Style{Tool: a.Tool, Color: a.Color, StrokeWidth: a.StrokeWidth}
}

// Clone returns a deep copy so callers cannot reach the stored points.
func (a VideoAnnotation) Clone() VideoAnnotation {
	c := a
	c.Points = append([]Point(nil), a.Points...)
	return c
}

// CloneAll deep-copies a list of annotations.
func CloneAll(list []VideoAnnotation) []VideoAnnotation {
	if list == nil {
		return nil
	}
	out := make([]VideoAnnotation, len(list))
	for i, a := range list {
		out[i] = a.Clone()
	}
	return out
}

// AnnotationDocument is the payload sent to persistence after every mutation.
// It always carries the full current list.
type AnnotationDocument struct {
	Annotations []VideoAnnotation `json:"annotations"`
}
