package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/telestrator/internal/api"
	"github.com/OCAP2/telestrator/internal/dispatcher"
	"github.com/OCAP2/telestrator/internal/logging"
	"github.com/OCAP2/telestrator/internal/parser"
	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/internal/session"
)

// scriptCommands maps replay script verbs to session commands.
var scriptCommands = map[string]string{
	"down":    session.CmdPointerDown,
	"move":    session.CmdPointerMove,
	"up":      session.CmdPointerUp,
	"leave":   session.CmdPointerLeave,
	"key":     session.CmdKey,
	"time":    session.CmdTime,
	"resize":  session.CmdResize,
	"tool":    session.CmdStyleTool,
	"color":   session.CmdStyleColor,
	"width":   session.CmdStyleWidth,
	"enable":  session.CmdModeEnable,
	"disable": session.CmdModeDisable,
	"delete":  session.CmdDeleteAt,
	"clear":   session.CmdClear,
}

// snapshotUploader is satisfied by api.Client.
type snapshotUploader interface {
	UploadSnapshot(ctx context.Context, filePath string, meta api.SnapshotMetadata) error
}

// replayer feeds a recorded input script through the dispatcher.
type replayer struct {
	session     *session.Session
	dispatcher  *dispatcher.Dispatcher
	parser      *parser.Parser
	logger      *slog.Logger
	snapshotDir string
	uploader    snapshotUploader // optional

	snapshots int
}

// replayResult summarizes a replay run.
type replayResult struct {
	Lines     int
	Failed    int
	Snapshots []string
}

// Run executes every line of r. Failed lines are logged and skipped.
func (rp *replayer) Run(ctx context.Context, r io.Reader) (replayResult, error) {
	var res replayResult
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return res, err
		}

		line, ok := rp.parser.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		res.Lines++

		lineCtx := logging.WithLogAttrs(ctx, slog.Int("line", lineNo), slog.String("verb", line.Verb))
		if err := rp.exec(lineCtx, line, &res); err != nil {
			res.Failed++
			rp.logger.WarnContext(lineCtx, "Script line failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read script: %w", err)
	}

	rp.session.Flush()
	return res, nil
}

func (rp *replayer) exec(ctx context.Context, line parser.Line, res *replayResult) error {
	switch line.Verb {
	case "flush":
		rp.session.Flush()
		return nil
	case "snapshot":
		path, err := rp.snapshot(ctx, line.Args)
		if err != nil {
			return err
		}
		res.Snapshots = append(res.Snapshots, path)
		return nil
	}

	cmd, ok := scriptCommands[line.Verb]
	if !ok {
		return fmt.Errorf("unknown verb %q", line.Verb)
	}
	_, err := rp.dispatcher.Dispatch(dispatcher.Event{
		Command:   cmd,
		Args:      line.Args,
		Timestamp: time.Now(),
	})
	return err
}

// snapshot writes the overlay as a PNG once queued writes have settled.
// Only canvas surfaces can be encoded.
func (rp *replayer) snapshot(ctx context.Context, args []string) (string, error) {
	if rp.snapshotDir == "" {
		return "", errors.New("snapshot directory not configured")
	}
	rp.session.Flush()
	rp.snapshots++

	name := fmt.Sprintf("%s_%03d.png", rp.session.VideoID(), rp.snapshots)
	if len(args) > 0 {
		text, err := rp.parser.ParseText(args, "snapshot name")
		if err != nil {
			return "", err
		}
		name = filepath.Base(text)
		if filepath.Ext(name) == "" {
			name += ".png"
		}
	}
	if err := os.MkdirAll(rp.snapshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	path := filepath.Join(rp.snapshotDir, name)

	err := rp.session.WithSurface(func(s render.Surface) error {
		canvas, ok := s.(*render.Canvas)
		if !ok {
			return fmt.Errorf("surface %T cannot be encoded", s)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create snapshot: %w", err)
		}
		defer f.Close()
		return canvas.EncodePNG(f)
	})
	if err != nil {
		return "", err
	}
	rp.logger.InfoContext(ctx, "Snapshot written", "path", path)

	if rp.uploader != nil {
		meta := api.SnapshotMetadata{
			VideoID:   rp.session.VideoID(),
			Timestamp: rp.session.CurrentTime(),
			Visible:   len(rp.session.Visible()),
		}
		if err := rp.uploader.UploadSnapshot(ctx, path, meta); err != nil {
			return path, fmt.Errorf("failed to upload snapshot: %w", err)
		}
		rp.logger.InfoContext(ctx, "Snapshot uploaded", "path", path)
	}
	return path, nil
}
