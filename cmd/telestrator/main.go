package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/telestrator/internal/api"
	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/internal/dispatcher"
	"github.com/OCAP2/telestrator/internal/logging"
	intOtel "github.com/OCAP2/telestrator/internal/otel"
	"github.com/OCAP2/telestrator/internal/parser"
	"github.com/OCAP2/telestrator/internal/render"
	"github.com/OCAP2/telestrator/internal/session"
	"github.com/OCAP2/telestrator/internal/storage"
	"github.com/OCAP2/telestrator/internal/store"
	"github.com/OCAP2/telestrator/pkg/core"
)

// version info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "telestrator"
)

var (
	SessionStartTime = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager
	Logger      *slog.Logger

	LogFilePath     string
	LogFile         *os.File
	JournalFilePath string
	JournalFile     *os.File

	OTelProvider *intOtel.Provider
)

func init() {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", AppName)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  replay <script>   feed a recorded input script to a session")
	fmt.Fprintln(out, "  show              print the stored annotations of -video")
	fmt.Fprintln(out, "  version           print version information")
	fmt.Fprintln(out, "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.ConfigFileName)
	videoID := flag.String("video", "", "id of the video to annotate")
	width := flag.Int("width", 1280, "initial overlay width in pixels")
	height := flag.Int("height", 720, "initial overlay height in pixels")
	snapshotDir := flag.String("snapshots", "snapshots", "directory for snapshot PNGs")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd := strings.ToLower(args[0])
	if cmd == "version" {
		fmt.Println(CurrentVersion, BuildDate)
		return
	}

	SlogManager.SetContextProvider(appAttrs)
	setupLogging(*configDir, *videoID)
	defer shutdownLogging()

	if *videoID == "" {
		Logger.Error("No video id provided, use -video")
		os.Exit(2)
	}

	var err error
	switch cmd {
	case "replay":
		if len(args) < 2 {
			fmt.Println("No script provided.")
			os.Exit(2)
		}
		err = runReplay(*videoID, args[1], *width, *height, *snapshotDir)
	case "show":
		err = runShow(*videoID)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		Logger.Error("Command failed", "command", cmd, "error", err)
		shutdownLogging()
		os.Exit(1)
	}
}

func appAttrs() []slog.Attr {
	return []slog.Attr{slog.String("app", AppName)}
}

// setupLogging loads the config and switches logging to the session log
// file, with OTel export when enabled.
func setupLogging(configDir, videoID string) {
	if err := config.Load(configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", configDir)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs dir", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	// keep the previous run's log around
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled && LogFile != nil {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			VideoID:        videoID,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      LogFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	if LogFile != nil {
		SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider)
	} else {
		SlogManager.Setup(nil, viper.GetString("logLevel"), otelLogProvider)
	}
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion)

	JournalFilePath = logging.JournalFilePath(logsDir, AppName, SessionStartTime)
	JournalFile, err = os.OpenFile(JournalFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Warn("Failed to open annotation journal", "error", err, "path", JournalFilePath)
		JournalFile = nil
	}
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
		OTelProvider = nil
	}
	if JournalFile != nil {
		_ = JournalFile.Close()
		JournalFile = nil
	}
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}

func journal() *logging.Journal {
	if JournalFile == nil {
		return logging.NewJournal(nil)
	}
	return logging.NewJournal(JournalFile)
}

// openSession creates the session for videoID on backend and replays the
// saved annotations when the backend can read them back.
func openSession(ctx context.Context, backend storage.Backend, videoID string, surface render.Surface) (*session.Session, *dispatcher.Dispatcher, error) {
	sessionCfg := config.GetSessionConfig()

	var storeMeter metric.Meter
	var dispatcherSettings []dispatcher.Setting
	if OTelProvider != nil {
		storeMeter = OTelProvider.Meter(store.InstrumentationName)
		dispatcherSettings = append(dispatcherSettings,
			dispatcher.WithMeter(OTelProvider.Meter(dispatcher.InstrumentationName)))
	}

	s, err := session.New(session.Dependencies{
		VideoID:       videoID,
		Surface:       surface,
		Persister:     backend,
		Logger:        Logger,
		Journal:       journal(),
		Style:         config.GetStyleConfig(),
		HitTolerance:  sessionCfg.HitTolerance,
		PersistBuffer: sessionCfg.PersistBuffer,
		OnError: func(err error) {
			Logger.Error("Annotation change lost", "error", err)
		},
		Meter: storeMeter,
	})
	if err != nil {
		return nil, nil, err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(Logger), dispatcherSettings...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	s.RegisterHandlers(d)
	SlogManager.SetContextProvider(logging.Providers(appAttrs, logging.SessionAttrs(s)))

	if loader, ok := backend.(storage.Loader); ok {
		if err := s.Open(ctx, loader); err != nil {
			d.Close()
			return nil, nil, fmt.Errorf("failed to load annotations: %w", err)
		}
	}
	return s, d, nil
}

func runReplay(videoID, scriptPath string, width, height int, snapshotDir string) error {
	ctx := context.Background()

	backend, err := initStorage(config.GetStorageConfig(), Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	canvas := render.NewCanvas(width, height)
	s, d, err := openSession(ctx, backend, videoID, canvas)
	if err != nil {
		return err
	}
	defer d.Close()
	defer s.Close()

	script, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer script.Close()

	rp := &replayer{
		session:     s,
		dispatcher:  d,
		parser:      parser.NewParser(Logger),
		logger:      Logger,
		snapshotDir: snapshotDir,
	}
	if client, ok := backend.(*api.Client); ok {
		rp.uploader = client
	}

	start := time.Now()
	res, err := rp.Run(ctx, script)
	if err != nil {
		return err
	}
	Logger.Info("Replay complete",
		"script", filepath.Base(scriptPath),
		"lines", res.Lines,
		"failed", res.Failed,
		"snapshots", len(res.Snapshots),
		"annotations", len(s.Annotations()),
		"duration", time.Since(start))
	fmt.Printf("%d lines, %d failed, %d annotations\n", res.Lines, res.Failed, len(s.Annotations()))
	return nil
}

func runShow(videoID string) error {
	backend, err := initStorage(config.GetStorageConfig(), Logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	loader, ok := backend.(storage.Loader)
	if !ok {
		return fmt.Errorf("storage type %q cannot read annotations back", config.GetStorageConfig().Type)
	}
	list, err := loader.Load(context.Background(), videoID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []core.VideoAnnotation{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(core.AnnotationDocument{Annotations: list})
}
