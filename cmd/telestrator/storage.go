package main

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/telestrator/internal/api"
	"github.com/OCAP2/telestrator/internal/config"
	"github.com/OCAP2/telestrator/internal/storage"
	"github.com/OCAP2/telestrator/internal/storage/memory"
	pgstorage "github.com/OCAP2/telestrator/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/telestrator/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/telestrator/internal/storage/websocket"
)

// initStorage creates and initializes the configured persistence backend.
func initStorage(storageCfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg, logger)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		_ = backend.Close()
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend initialized", "host", storageCfg.Postgres.Host)
		return pgstorage.New(storageCfg.Postgres, logger), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path, "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "websocket":
		logger.Info("WebSocket storage backend initialized", "url", storageCfg.WebSocket.URL)
		return wsstorage.New(storageCfg.WebSocket, logger), nil

	case "http":
		logger.Info("HTTP storage backend initialized", "url", storageCfg.HTTP.ServerURL)
		return api.New(storageCfg.HTTP.ServerURL, storageCfg.HTTP.APIKey), nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
