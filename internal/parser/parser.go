// Package parser converts raw command arguments into core values.
package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/telestrator/internal/util"
	"github.com/OCAP2/telestrator/pkg/core"
)

// parseIntFromFloat parses a string that may be an integer ("32") or float ("32.00") into int64.
// Browser layout APIs report sizes as floats, so both forms are accepted.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(util.TrimQuotes(strings.TrimSpace(s)), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return f, nil
}

func expectArgs(data []string, n int, what string) error {
	if len(data) < n {
		return fmt.Errorf("%s: expected %d args, got %d", what, n, len(data))
	}
	return nil
}

// Line is one parsed script line.
type Line struct {
	Verb string
	Args []string
}

// Parser provides pure []string -> core value conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseLine splits a script line into verb and args. Blank lines and lines
// starting with '#' report ok == false.
func (p *Parser) ParseLine(line string) (Line, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Line{}, false
	}
	fields := util.SplitFields(line)
	if len(fields) == 0 {
		return Line{}, false
	}
	return Line{Verb: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// ParsePoint parses "x y" in surface pixels.
func (p *Parser) ParsePoint(data []string) (core.Point, error) {
	var pt core.Point
	if err := expectArgs(data, 2, "point"); err != nil {
		return pt, err
	}

	x, err := parseFloat(data[0])
	if err != nil {
		return pt, fmt.Errorf("error parsing x: %w", err)
	}
	y, err := parseFloat(data[1])
	if err != nil {
		return pt, fmt.Errorf("error parsing y: %w", err)
	}
	pt.X, pt.Y = x, y
	return pt, nil
}

// ParseSize parses "width height" of the displayed video element. Negative
// values are rejected; zero is passed through for the surface to skip.
func (p *Parser) ParseSize(data []string) (width, height int, err error) {
	if err := expectArgs(data, 2, "size"); err != nil {
		return 0, 0, err
	}

	w, err := parseIntFromFloat(util.TrimQuotes(data[0]))
	if err != nil {
		// fractional layout sizes round to whole pixels
		f, ferr := parseFloat(data[0])
		if ferr != nil {
			return 0, 0, fmt.Errorf("error parsing width: %w", err)
		}
		w = int64(math.Round(f))
	}
	h, err := parseIntFromFloat(util.TrimQuotes(data[1]))
	if err != nil {
		f, ferr := parseFloat(data[1])
		if ferr != nil {
			return 0, 0, fmt.Errorf("error parsing height: %w", err)
		}
		h = int64(math.Round(f))
	}
	if w < 0 || h < 0 {
		return 0, 0, fmt.Errorf("size must not be negative: %dx%d", w, h)
	}
	return int(w), int(h), nil
}

// ParseTime parses a playback time in seconds.
func (p *Parser) ParseTime(data []string) (float64, error) {
	if err := expectArgs(data, 1, "time"); err != nil {
		return 0, err
	}
	t, err := parseFloat(data[0])
	if err != nil {
		return 0, fmt.Errorf("error parsing time: %w", err)
	}
	if t < 0 {
		return 0, fmt.Errorf("time must not be negative: %v", t)
	}
	return t, nil
}

// ParseTool parses a tool name.
func (p *Parser) ParseTool(data []string) (core.Tool, error) {
	if err := expectArgs(data, 1, "tool"); err != nil {
		return "", err
	}
	return core.ParseTool(util.TrimQuotes(data[0]))
}

// ParseColor parses a "#rgb" or "#rrggbb" color.
func (p *Parser) ParseColor(data []string) (string, error) {
	if err := expectArgs(data, 1, "color"); err != nil {
		return "", err
	}
	c := strings.ToLower(util.TrimQuotes(strings.TrimSpace(data[0])))
	if !core.ValidColor(c) {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidColor, data[0])
	}
	return c, nil
}

// ParseStrokeWidth parses a stroke width, clamped to the allowed range.
func (p *Parser) ParseStrokeWidth(data []string) (int, error) {
	if err := expectArgs(data, 1, "strokeWidth"); err != nil {
		return 0, err
	}
	w, err := parseIntFromFloat(util.TrimQuotes(data[0]))
	if err != nil {
		return 0, fmt.Errorf("error parsing stroke width: %w", err)
	}
	clamped := core.ClampStrokeWidth(int(w))
	if clamped != int(w) {
		p.logger.Debug("Stroke width clamped", "requested", w, "width", clamped)
	}
	return clamped, nil
}

// ParseText joins the remaining args, for keys and file names.
func (p *Parser) ParseText(data []string, what string) (string, error) {
	if err := expectArgs(data, 1, what); err != nil {
		return "", err
	}
	return util.FixEscapeQuotes(strings.Join(data, " ")), nil
}
