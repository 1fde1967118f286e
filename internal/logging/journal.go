package logging

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Journal appends one JSON line per committed annotation change.
type Journal struct {
	logger zerolog.Logger
}

// NewJournal creates a journal writing JSON lines to w. A nil writer
// gives a journal that discards everything.
func NewJournal(w io.Writer) *Journal {
	if w == nil {
		return &Journal{logger: zerolog.Nop()}
	}
	return &Journal{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// Added records a committed annotation.
func (j *Journal) Added(videoID string, a core.VideoAnnotation) {
	j.logger.Info().
		Str("event", "added").
		Str("videoId", videoID).
		Str("id", a.ID).
		Str("tool", string(a.Tool)).
		Float64("timestamp", a.Timestamp).
		Int("points", len(a.Points)).
		Str("color", a.Color).
		Int("strokeWidth", a.StrokeWidth).
		Send()
}

// Removed records a deleted annotation.
func (j *Journal) Removed(videoID, id string) {
	j.logger.Info().
		Str("event", "removed").
		Str("videoId", videoID).
		Str("id", id).
		Send()
}

// Cleared records a clear of the whole document.
func (j *Journal) Cleared(videoID string, count int) {
	j.logger.Info().
		Str("event", "cleared").
		Str("videoId", videoID).
		Int("count", count).
		Send()
}

// Failed records a change that could not be persisted.
func (j *Journal) Failed(videoID, op string, err error) {
	j.logger.Error().
		Str("event", "failed").
		Str("videoId", videoID).
		Str("op", op).
		Err(err).
		Send()
}
