package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/mindmirror/internal/config"
	"github.com/user/mindmirror/internal/controller"
	"github.com/user/mindmirror/internal/deck"
	"github.com/user/mindmirror/internal/dispatch"
	"github.com/user/mindmirror/internal/settings"
	"github.com/user/mindmirror/internal/state"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "mindmirror",
	Short:         "OH-card and sandplay reflective journaling with an AI guide",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath,
		"config",
		filepath.Join(os.Getenv("HOME"), ".mindmirror", "config.json"),
		"config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// app bundles the wired-up core for one CLI invocation.
type app struct {
	cfg      *config.Config
	store    *state.Store
	settings *settings.Store
	deck     *deck.Deck
	ctrl     *controller.Controller
}

// newApp loads config, opens the stores, and wires the controller. The
// returned cleanup flushes pending persists and must run before exit.
func newApp() (*app, func()) {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	d, err := deck.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load deck data: %v\n", err)
		os.Exit(1)
	}

	store := state.Open(cfg.DataDir)
	st := settings.Open(cfg.DataDir)

	a := &app{
		cfg:      cfg,
		store:    store,
		settings: st,
		deck:     d,
		ctrl:     controller.New(store, st, dispatch.New()),
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("close session store", "error", err)
		}
	}
	return a, cleanup
}
