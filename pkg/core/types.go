// pkg/core/types.go
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidTool        = errors.New("invalid tool")
	ErrInvalidPoints      = errors.New("invalid point count")
	ErrInvalidStrokeWidth = errors.New("stroke width out of range")
	ErrInvalidColor       = errors.New("invalid color")
)

// Stroke width bounds, inclusive
const (
	MinStrokeWidth = 1
	MaxStrokeWidth = 8
)

// Point is a position in drawing-surface pixel space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Tool selects the shape drawn by a gesture
type Tool string

const (
	ToolLine     Tool = "line"
	ToolCircle   Tool = "circle"
	ToolArrow    Tool = "arrow"
	ToolFreehand Tool = "freehand"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolLine, ToolCircle, ToolArrow, ToolFreehand}

// ParseTool converts a tool name to a Tool, case-insensitively.
func ParseTool(s string) (Tool, error) {
	t := Tool(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTool, s)
	}
	return t, nil
}

// Valid reports whether t is one of the known tools.
func (t Tool) Valid() bool {
	switch t {
	case ToolLine, ToolCircle, ToolArrow, ToolFreehand:
		return true
	}
	return false
}

// ValidPointCount reports whether n points form a complete shape for t.
// Shape tools take exactly two points, freehand at least two.
func (t Tool) ValidPointCount(n int) bool {
	if t == ToolFreehand {
		return n >= 2
	}
	return n == 2
}

// Style is the active drawing style picked in the toolbar
type Style struct {
	Tool        Tool   `json:"tool"`
	Color       string `json:"color"`
	StrokeWidth int    `json:"strokeWidth"`
}

// DefaultStyle is used until the user picks something else.
var DefaultStyle = Style{Tool: ToolLine, Color: "#ff0000", StrokeWidth: 3}

// ClampStrokeWidth forces w into [MinStrokeWidth, MaxStrokeWidth].
func ClampStrokeWidth(w int) int {
	if w < MinStrokeWidth {
		return MinStrokeWidth
	}
	if w > MaxStrokeWidth {
		return MaxStrokeWidth
	}
	return w
}

// ValidColor accepts "#rgb" and "#rrggbb" hex colors.
func ValidColor(c string) bool {
	if !strings.HasPrefix(c, "#") {
		return false
	}
	hex := c[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, r := range hex {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Validate checks the style fields.
func (s Style) Validate() error {
	if !s.Tool.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTool, s.Tool)
	}
	if !ValidColor(s.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, s.Color)
	}
	if s.StrokeWidth < MinStrokeWidth || s.StrokeWidth > MaxStrokeWidth {
		return fmt.Errorf("%w: %d", ErrInvalidStrokeWidth, s.StrokeWidth)
	}
	return nil
}
