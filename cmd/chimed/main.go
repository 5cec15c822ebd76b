// Package main is the entry point for the chimed notification decision daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmylchreest/chime/internal/audio"
	"github.com/jmylchreest/chime/internal/config"
	"github.com/jmylchreest/chime/internal/daemon"
	"github.com/jmylchreest/chime/internal/dbus"
	"github.com/jmylchreest/chime/internal/metrics"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/chime/chime.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		fmt.Println("chimed version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("chimed failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	logger.Info("starting chimed", "version", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Mute table shared with the chime CLI
	mutes, err := store.OpenMuteTable(config.MutesPath())
	if err != nil {
		return fmt.Errorf("failed to load mutes: %w", err)
	}
	if removed, err := mutes.Prune(time.Now()); err != nil {
		logger.Warn("failed to prune expired mutes", "error", err)
	} else if removed > 0 {
		logger.Debug("pruned expired mutes", "count", removed)
	}

	muteWatcher, err := store.WatchMutes(mutes, logger)
	if err != nil {
		return fmt.Errorf("failed to create mute watcher: %w", err)
	}
	if err := muteWatcher.Start(); err != nil {
		logger.Warn("failed to watch mutes file", "error", err)
	}
	defer muteWatcher.Stop()

	// Decision journal
	var journal daemon.DecisionRecorder
	if cfg.Journal.Enabled {
		j, err := store.OpenJournal(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()
		journal = j
		logger.Info("decision journal enabled", "path", j.Path())
	}

	// Audio
	player := audio.NewBeepPlayer(logger)
	defer player.Close()

	soundWatcher, err := audio.NewWatcher(player, logger)
	if err != nil {
		return fmt.Errorf("failed to create sound watcher: %w", err)
	}
	defer soundWatcher.Stop()
	watchSounds(soundWatcher, player, cfg, logger)
	soundWatcher.Start()

	m := metrics.New()

	dispatcher := daemon.NewDispatcher(cfg, daemon.Deps{
		Sounds:  audio.NewRegistry(player, logger),
		Mutes:   mutes,
		Journal: journal,
		Metrics: m,
		Logger:  logger,
	})

	// D-Bus service
	server := dbus.NewServer(dispatcher, mutes, logger)
	dispatcher.SetDecisionHandler(func(d model.Decision) {
		if err := server.EmitDecisionMade(d); err != nil {
			logger.Debug("failed to emit DecisionMade", "error", err)
		}
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("error stopping D-Bus server", "error", err)
		}
	}()

	// Config hot reload
	configWatcher, err := daemon.NewConfigWatcher(configPath, func(newConfig *config.Config) {
		dispatcher.UpdateConfig(newConfig)
		watchSounds(soundWatcher, player, newConfig, logger)
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	configWatcher.Start(ctx)
	defer configWatcher.Stop()

	// Metrics endpoint
	if cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(m, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Metrics.Listen); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("chimed ready", "bus_name", dbus.DBusBusName)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// watchSounds registers the configured sound files for cache invalidation and
// warms the player cache.
func watchSounds(w *audio.Watcher, player *audio.BeepPlayer, cfg *config.Config, logger *slog.Logger) {
	table := audio.NewAssetTable(cfg.SoundPaths(), cfg.Audio.Sounds.Default)
	for _, path := range table.Files() {
		if err := w.Watch(path); err != nil {
			logger.Warn("failed to watch sound file", "path", path, "error", err)
		}
		// Changed files are decoded again on next use
		player.InvalidateCache(path)
	}
	for _, kind := range model.Kinds() {
		if err := player.Preload(table.Resolve(kind)); err != nil {
			logger.Warn("failed to preload sound", "kind", kind, "error", err)
		}
	}
}
