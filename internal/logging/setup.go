package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	Level      slog.Leveler
}

// ToFile installs a default logger writing to a rotating file and returns
// the file so the caller can close it. While the TUI owns the terminal,
// logs must not reach stderr. If the directory cannot be created, logs are
// discarded.
func ToFile(opts FileOptions) io.Closer {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		slog.SetDefault(slog.New(NewHandler(io.Discard, nil)))
		return io.NopCloser(nil)
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	slog.SetDefault(slog.New(NewHandler(lj, &Options{Level: opts.Level})))
	return lj
}

// ToStderr installs a colored default logger on stderr.
func ToStderr(level slog.Leveler) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, &Options{Level: level, Color: true})))
}
