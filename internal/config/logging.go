package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const logFilePattern = "multiblock-*.log"

// ParseLogLevel reads LOG_LEVEL style values. Empty falls back to debug in
// dev and info elsewhere.
func ParseLogLevel(value, environment string) (slog.Level, error) {
	if value == "" {
		if environment == "dev" {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", value, err)
	}
	return level, nil
}

// NewLogger builds the JSON logger used by every binary
func NewLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}))
}

// LogOutput returns stdout, teed into a fresh file under cfg.LogDir when set.
// The close func is never nil.
func LogOutput(cfg *Config) (io.Writer, func() error, error) {
	if cfg.LogDir == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := openLogFile(cfg.LogDir, time.Now())
	if err != nil {
		return nil, nil, err
	}
	if err := pruneLogs(cfg.LogDir, cfg.LogMaxFiles); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prune old logs: %v\n", err)
	}
	return io.MultiWriter(os.Stdout, f), f.Close, nil
}

func openLogFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := strings.Replace(logFilePattern, "*", now.Format("2006-01-02T15-04-05"), 1)
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return f, nil
}

// pruneLogs keeps the newest keep files. Names embed a sortable timestamp.
func pruneLogs(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dir, logFilePattern))
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}

	slices.Sort(files)
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}
