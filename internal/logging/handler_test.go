package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandlerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, &Options{Level: slog.LevelInfo}))

	log.Debug("hidden")
	log.Info("connected", "session", "abc", "bot", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "INF connected session=abc bot=7") {
		t.Fatalf("unexpected line: %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("colorless handler wrote ANSI codes: %q", out)
	}
}

func TestHandlerBlocks(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, nil))

	log.Warn("invalid request frame", "frame", "line one\nline two")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "WRN invalid request frame") || strings.Contains(lines[0], "frame=") {
		t.Errorf("main line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "| line one") || !strings.HasSuffix(lines[2], "| line two") {
		t.Errorf("block lines = %q", lines[1:])
	}
}

func TestHandlerGroupsAndLevelVar(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelWarn)
	log := slog.New(NewHandler(&buf, &Options{Level: lv})).WithGroup("chat").With("session", "s1")

	log.Info("dropped")
	lv.Set(slog.LevelDebug)
	log.Debug("kept", "bot", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line passed warn level: %q", out)
	}
	if !strings.Contains(out, "chat.session=s1") || !strings.Contains(out, "chat.bot=2") {
		t.Fatalf("group prefix missing: %q", out)
	}
}

func TestToFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "logs", "botchat.log")
	closer := ToFile(FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1})
	slog.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "INF written to file") {
		t.Fatalf("log file = %q", data)
	}
}
