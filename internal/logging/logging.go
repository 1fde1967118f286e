// Package logging sets up slog output and the annotation journal of a
// telestrator run.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// sessionStamp names the files of one run so the log and the journal of a
// run sort together.
const sessionStamp = "20060102_150405"

func sessionFile(logsDir, appName string, sessionStart time.Time, ext string) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.%s", appName, sessionStart.Format(sessionStamp), ext))
}

// LogFilePath is the slog text log of the run started at sessionStart.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return sessionFile(logsDir, appName, sessionStart, "log")
}

// JournalFilePath is the annotation journal (JSON lines) next to the log.
func JournalFilePath(logsDir, appName string, sessionStart time.Time) string {
	return sessionFile(logsDir, appName, sessionStart, "jsonl")
}
