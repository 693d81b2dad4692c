package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xsa-dev/barter-rs/internal/infra"
	"github.com/xsa-dev/barter-rs/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	EventStore *storage.EventStore
	Snapshots  *storage.SnapshotManager

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, dirs,
// instance lock, event store).
func (b *Bootstrap) Initialize() error {
	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("🚀 Bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version))

	// 3. Data Isolation - data/{mode}/events.db
	mode := strings.ToLower(cfg.Trading.Mode)
	if mode == "" {
		mode = "paper"
	}

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	logDir := filepath.Join(workDir, "logs", mode)

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(logDir); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	// 3.1 Singleton Instance Lock. Two processes sharing the same event
	// log would interleave writes and corrupt replay determinism.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Event store (WAL-mode SQLite)
	dbPath := filepath.Join(dataDir, "events.db")
	evStore, err := storage.NewEventStore(dbPath)
	if err != nil {
		return err
	}
	b.EventStore = evStore
	slog.Info("✅ EventStore initialized (WAL-mode)", "path", dbPath, "mode", mode)

	// 5. Snapshot manager
	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	return nil
}

// DBPath returns the event log location for the configured mode.
func (b *Bootstrap) DBPath() string {
	mode := strings.ToLower(b.Config.Trading.Mode)
	return filepath.Join(infra.GetWorkspaceDir(), "data", mode, "events.db")
}

// ReplaySourceDBPath returns the event log captured by paper runs. Replay
// reads its bars from there; everything replay writes (trade history,
// snapshots) stays isolated under data/replay.
func (b *Bootstrap) ReplaySourceDBPath() string {
	return filepath.Join(infra.GetWorkspaceDir(), "data", "paper", "events.db")
}

// Shutdown releases the resources acquired by Initialize.
func (b *Bootstrap) Shutdown() {
	if b.EventStore != nil {
		if err := b.EventStore.Close(); err != nil {
			slog.Warn("EventStore close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
