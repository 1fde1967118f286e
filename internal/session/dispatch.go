package session

import (
	"fmt"

	"github.com/OCAP2/telestrator/internal/dispatcher"
)

// Commands accepted by the session handlers. Args follow the script line
// format parsed by internal/parser.
const (
	CmdPointerDown  = ":POINTER:DOWN:"
	CmdPointerMove  = ":POINTER:MOVE:"
	CmdPointerUp    = ":POINTER:UP:"
	CmdPointerLeave = ":POINTER:LEAVE:"
	CmdKey          = ":KEY:"
	CmdTime         = ":TIME:"
	CmdResize       = ":RESIZE:"
	CmdStyleTool    = ":STYLE:TOOL:"
	CmdStyleColor   = ":STYLE:COLOR:"
	CmdStyleWidth   = ":STYLE:WIDTH:"
	CmdModeEnable   = ":MODE:ENABLE:"
	CmdModeDisable  = ":MODE:DISABLE:"
	CmdDeleteAt     = ":DELETE:AT:"
	CmdClear        = ":CLEAR:"
	CmdPersist      = ":PERSIST:"
)

// DefaultPersistBuffer is the persist queue size when none is configured.
const DefaultPersistBuffer = 256

// RegisterHandlers registers the session commands with d. Input commands
// run synchronously so they keep their order; store writes are queued.
func (s *Session) RegisterHandlers(d *dispatcher.Dispatcher) {
	s.dispatcher = d

	// Pointer input - sync, order matters
	d.Register(CmdPointerDown, s.handlePointerDown)
	d.Register(CmdPointerMove, s.handlePointerMove)
	d.Register(CmdPointerUp, s.handlePointerUp, dispatcher.Logged())
	d.Register(CmdPointerLeave, s.handlePointerLeave, dispatcher.Logged())

	// Playback and layout
	d.Register(CmdTime, s.handleTime)
	d.Register(CmdResize, s.handleResize, dispatcher.Logged())

	// Toolbar and mode
	d.Register(CmdKey, s.handleKey, dispatcher.Logged())
	d.Register(CmdStyleTool, s.handleStyleTool, dispatcher.Logged())
	d.Register(CmdStyleColor, s.handleStyleColor, dispatcher.Logged())
	d.Register(CmdStyleWidth, s.handleStyleWidth, dispatcher.Logged())
	d.Register(CmdModeEnable, s.handleEnable, dispatcher.Logged())
	d.Register(CmdModeDisable, s.handleDisable, dispatcher.Logged())

	// Deletion
	d.Register(CmdDeleteAt, s.handleDeleteAt, dispatcher.Logged())
	d.Register(CmdClear, s.handleClear, dispatcher.Logged())

	// Store writes - buffered, never dropped
	d.Register(CmdPersist, s.handlePersist, dispatcher.Buffered(s.buffer), dispatcher.Blocking())
}

func (s *Session) handlePointerDown(e dispatcher.Event) (any, error) {
	p, err := s.parser.ParsePoint(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pointer down: %w", err)
	}
	s.PointerDown(p)
	return nil, nil
}

func (s *Session) handlePointerMove(e dispatcher.Event) (any, error) {
	p, err := s.parser.ParsePoint(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pointer move: %w", err)
	}
	s.PointerMove(p)
	return nil, nil
}

func (s *Session) handlePointerUp(e dispatcher.Event) (any, error) {
	p, err := s.parser.ParsePoint(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pointer up: %w", err)
	}
	if a, ok := s.PointerUp(p); ok {
		return a, nil
	}
	return nil, nil
}

func (s *Session) handlePointerLeave(dispatcher.Event) (any, error) {
	if a, ok := s.PointerLeave(); ok {
		return a, nil
	}
	return nil, nil
}

func (s *Session) handleTime(e dispatcher.Event) (any, error) {
	t, err := s.parser.ParseTime(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time: %w", err)
	}
	s.TimeUpdate(t)
	return nil, nil
}

func (s *Session) handleResize(e dispatcher.Event) (any, error) {
	w, h, err := s.parser.ParseSize(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resize: %w", err)
	}
	return s.Resize(w, h), nil
}

func (s *Session) handleKey(e dispatcher.Event) (any, error) {
	key, err := s.parser.ParseText(e.Args, "key")
	if err != nil {
		return nil, err
	}
	return s.Key(key), nil
}

func (s *Session) handleStyleTool(e dispatcher.Event) (any, error) {
	tool, err := s.parser.ParseTool(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tool: %w", err)
	}
	return nil, s.SetTool(tool)
}

func (s *Session) handleStyleColor(e dispatcher.Event) (any, error) {
	color, err := s.parser.ParseColor(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse color: %w", err)
	}
	return nil, s.SetColor(color)
}

func (s *Session) handleStyleWidth(e dispatcher.Event) (any, error) {
	w, err := s.parser.ParseStrokeWidth(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stroke width: %w", err)
	}
	s.SetStrokeWidth(w)
	return nil, nil
}

func (s *Session) handleEnable(dispatcher.Event) (any, error) {
	s.Enable()
	return nil, nil
}

func (s *Session) handleDisable(dispatcher.Event) (any, error) {
	s.Disable()
	return nil, nil
}

func (s *Session) handleDeleteAt(e dispatcher.Event) (any, error) {
	p, err := s.parser.ParsePoint(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse delete point: %w", err)
	}
	return s.DeleteAt(p)
}

func (s *Session) handleClear(dispatcher.Event) (any, error) {
	s.Clear()
	return nil, nil
}
