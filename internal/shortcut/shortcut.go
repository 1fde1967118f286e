// Package shortcut maps single keys to annotation tool actions.
package shortcut

import (
	"strings"

	"github.com/OCAP2/telestrator/pkg/core"
)

// Action is what a key press asks the session to do.
type Action int

const (
	ActionNone Action = iota
	ActionSelectTool
	ActionEscape
)

// Keymap binds keys to tools. Keys are matched case-insensitively.
type Keymap map[string]core.Tool

// Default returns L, C, A and F for line, circle, arrow and freehand.
func Default() Keymap {
	return Keymap{
		"l": core.ToolLine,
		"c": core.ToolCircle,
		"a": core.ToolArrow,
		"f": core.ToolFreehand,
	}
}

// Resolve interprets a key name such as "L", "f" or "Escape".
func (k Keymap) Resolve(key string) (Action, core.Tool) {
	name := strings.ToLower(strings.TrimSpace(key))
	switch name {
	case "escape", "esc":
		return ActionEscape, ""
	}
	if tool, ok := k[name]; ok {
		return ActionSelectTool, tool
	}
	return ActionNone, ""
}
