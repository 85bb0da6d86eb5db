package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/feedboard/config"
	"github.com/jpalmerr/feedboard/internal/persist"
	"github.com/jpalmerr/feedboard/internal/store"
)

// loadConfig reads the file named by --config, or the defaults when the
// flag is not set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg := config.Default()
		return &cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// dataFile returns the data file for cfg. The legacy location is only
// consulted for the default path.
func dataFile(cfg *config.Config) (persist.File, error) {
	path, err := cfg.DataPath()
	if err != nil {
		return persist.File{}, fmt.Errorf("failed to locate data file: %w", err)
	}
	f := persist.File{Path: path}
	if cfg.DataFile == "" {
		f.LegacyPath = persist.LegacyPath()
	}
	return f, nil
}

// openStore loads the data file into a fresh store.
func openStore(cfg *config.Config) (*store.MemoryStore, persist.File, error) {
	f, err := dataFile(cfg)
	if err != nil {
		return nil, f, err
	}
	st, err := f.Load()
	if err != nil {
		return nil, f, err
	}
	s := store.NewMemoryStore()
	if err := s.Import(st); err != nil {
		return nil, f, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}
	return s, f, nil
}

// saveStore writes s back to f.
func saveStore(s *store.MemoryStore, f persist.File) error {
	if err := f.Save(s.Export()); err != nil {
		return fmt.Errorf("failed to save %s: %w", f.Path, err)
	}
	return nil
}

// newLogger creates the JSON logger for the reader. The terminal belongs
// to the reader, so the log goes to a file. The returned function closes it.
func newLogger(cfg *config.Config, quiet bool) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if quiet {
		return slog.New(slog.NewJSONHandler(io.Discard, opts)), func() {}, nil
	}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate log file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, opts)), func() { _ = f.Close() }, nil
}
