// Package store keeps the ordered annotation list of the open video and
// mirrors every mutation to a persistence collaborator.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Persister receives the full annotation document after every mutation.
type Persister interface {
	Update(ctx context.Context, videoID string, doc core.AnnotationDocument) error
}

// Loader returns the saved annotations of a video.
type Loader interface {
	Load(ctx context.Context, videoID string) ([]core.VideoAnnotation, error)
}

// Listener is called after the list changes, including after a rollback.
// Listeners may read the store but must not mutate it.
type Listener func()

// Store is the in-memory annotation list for one video.
type Store struct {
	videoID   string
	persister Persister
	logger    *slog.Logger

	// writeMu serializes mutate-persist-rollback sequences.
	writeMu sync.Mutex

	mu        sync.RWMutex
	list      []core.VideoAnnotation
	listeners []Listener

	added         metric.Int64Counter
	removed       metric.Int64Counter
	persistFailed metric.Int64Counter
	videoAttr     attribute.KeyValue
	meter         metric.Meter
}

// New creates an empty store. A nil persister keeps changes in memory only.
// Counters go to the global OTel meter (no-op if not configured) unless
// WithMeter is given.
func New(videoID string, persister Persister, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		videoID:   videoID,
		persister: persister,
		logger:    logger.With("videoId", videoID),
		videoAttr: attribute.String("video", videoID),
	}

	for _, opt := range opts {
		opt(s)
	}

	m := s.meterOrGlobal()
	var err error

	s.added, err = m.Int64Counter(
		"annotations.added",
		metric.WithDescription("Annotations committed to the store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating added counter: %w", err)
	}

	s.removed, err = m.Int64Counter(
		"annotations.removed",
		metric.WithDescription("Annotations removed from the store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating removed counter: %w", err)
	}

	s.persistFailed, err = m.Int64Counter(
		"annotations.persist.failed",
		metric.WithDescription("Persistence writes that failed and were rolled back"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating persist failure counter: %w", err)
	}

	return s, nil
}

// VideoID returns the video this store belongs to.
func (s *Store) VideoID() string {
	return s.videoID
}

// Subscribe registers a change listener.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// List returns a copy of the annotations in insertion order.
func (s *Store) List() []core.VideoAnnotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneAll(s.list)
}

// Len returns the number of annotations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.list)
}

// Get returns the annotation with the given id.
func (s *Store) Get(id string) (core.VideoAnnotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.list, id); i >= 0 {
		return s.list[i].Clone(), true
	}
	return core.VideoAnnotation{}, false
}

// Load replaces the list with the saved annotations of the video. Nothing
// is written back.
func (s *Store) Load(ctx context.Context, loader Loader) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	list, err := loader.Load(ctx, s.videoID)
	if err != nil {
		return fmt.Errorf("load annotations for video %s: %w", s.videoID, err)
	}

	valid := make([]core.VideoAnnotation, 0, len(list))
	for _, a := range list {
		if err := a.Validate(); err != nil {
			s.logger.Warn("Skipping invalid saved annotation", "annotationId", a.ID, "error", err)
			continue
		}
		valid = append(valid, a.Clone())
	}

	s.replace(valid)
	s.logger.Info("Annotations loaded", "count", len(valid))
	return nil
}

// Add appends a to the list and persists the new document. On a failed
// write the list is restored and a *PersistError is returned.
func (s *Store) Add(ctx context.Context, a core.VideoAnnotation) error {
	if err := a.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.snapshot()
	if indexOf(prev, a.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}

	next := make([]core.VideoAnnotation, 0, len(prev)+1)
	next = append(next, prev...)
	next = append(next, a.Clone())

	if err := s.commit(ctx, "add", prev, next); err != nil {
		return err
	}
	s.added.Add(ctx, 1, metric.WithAttributes(s.videoAttr))
	s.logger.Debug("Annotation added", "annotationId", a.ID, "tool", a.Tool)
	return nil
}

// Remove deletes exactly one annotation, keeping the order of the rest.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.snapshot()
	i := indexOf(prev, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := make([]core.VideoAnnotation, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)

	if err := s.commit(ctx, "remove", prev, next); err != nil {
		return err
	}
	s.removed.Add(ctx, 1, metric.WithAttributes(s.videoAttr))
	s.logger.Debug("Annotation removed", "annotationId", id)
	return nil
}

// Clear removes every annotation.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.snapshot()
	if err := s.commit(ctx, "clear", prev, []core.VideoAnnotation{}); err != nil {
		return err
	}
	s.removed.Add(ctx, int64(len(prev)), metric.WithAttributes(s.videoAttr))
	s.logger.Debug("Annotations cleared", "count", len(prev))
	return nil
}

// commit applies next in memory, forwards it, and rolls back to prev if
// the write fails. Caller holds writeMu.
func (s *Store) commit(ctx context.Context, op string, prev, next []core.VideoAnnotation) error {
	s.replace(next)

	if s.persister == nil {
		return nil
	}

	doc := core.AnnotationDocument{Annotations: core.CloneAll(next)}
	if err := s.persister.Update(ctx, s.videoID, doc); err != nil {
		s.replace(prev)
		s.persistFailed.Add(ctx, 1, metric.WithAttributes(s.videoAttr, attribute.String("op", op)))
		s.logger.Error("Persist failed, rolled back", "op", op, "error", err)
		return &PersistError{Op: op, VideoID: s.videoID, Err: err}
	}
	return nil
}

func (s *Store) snapshot() []core.VideoAnnotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// replace swaps the list and notifies listeners outside the lock.
func (s *Store) replace(list []core.VideoAnnotation) {
	s.mu.Lock()
	s.list = list
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

func indexOf(list []core.VideoAnnotation, id string) int {
	for i, a := range list {
		if a.ID == id {
			return i
		}
	}
	return -1
}
