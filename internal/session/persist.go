package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/telestrator/internal/dispatcher"
	"github.com/OCAP2/telestrator/internal/store"
	"github.com/OCAP2/telestrator/pkg/core"
)

type opKind string

const (
	opAdd    opKind = "add"
	opRemove opKind = "remove"
	opClear  opKind = "clear"
)

// persistOp is one queued store mutation.
type persistOp struct {
	kind       opKind
	annotation core.VideoAnnotation
	id         string
}

// submit queues op on the persist handler, or applies it inline when no
// dispatcher is registered.
func (s *Session) submit(op persistOp) {
	if s.dispatcher == nil {
		_ = s.apply(op)
		return
	}
	_, err := s.dispatcher.Dispatch(dispatcher.Event{
		Command:   CmdPersist,
		Payload:   op,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.logger.Error("Failed to queue change", "op", op.kind, "error", err)
		if op.kind == opAdd {
			// the shape was drawn at pointer-up; take it off the overlay
			s.Redraw()
		}
		s.report(err)
	}
}

func (s *Session) handlePersist(e dispatcher.Event) (any, error) {
	op, ok := e.Payload.(persistOp)
	if !ok {
		return nil, fmt.Errorf("unexpected persist payload %T", e.Payload)
	}
	return nil, s.apply(op)
}

// apply runs op against the store. The store rolls back failed writes and
// notifies the session, which redraws without the lost change.
func (s *Session) apply(op persistOp) error {
	ctx := context.Background()

	var err error
	switch op.kind {
	case opAdd:
		err = s.store.Add(ctx, op.annotation)
		if err == nil {
			s.journal.Added(s.videoID, op.annotation)
		}
	case opRemove:
		err = s.store.Remove(ctx, op.id)
		if err == nil {
			s.journal.Removed(s.videoID, op.id)
		}
	case opClear:
		n := s.store.Len()
		err = s.store.Clear(ctx)
		if err == nil {
			s.journal.Cleared(s.videoID, n)
		}
	default:
		err = fmt.Errorf("unknown persist op %q", op.kind)
	}

	if err != nil {
		s.journal.Failed(s.videoID, string(op.kind), err)
		var pe *store.PersistError
		if op.kind == opAdd && !errors.As(err, &pe) {
			// rejected before the store changed; the shape drawn at
			// pointer-up is still on the overlay
			s.Redraw()
		}
		s.report(err)
	}
	return err
}

func (s *Session) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// Flush waits until queued changes have reached the store.
func (s *Session) Flush() {
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
}
