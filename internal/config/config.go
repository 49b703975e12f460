package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Scroll policies of the chat log.
const (
	ScrollAlways = "always"
	ScrollSticky = "sticky"
)

// Config is the root configuration for botchat.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Chat      ChatConfig      `json:"chat"`
	Bots      []BotConfig     `json:"bots"`
	Log       LogConfig       `json:"log"`
	DevServer DevServerConfig `json:"devServer"`
}

// ServerConfig points at the chat server.
type ServerConfig struct {
	URL      string `json:"url"`
	WSPath   string `json:"wsPath"`
	TimeoutS int    `json:"timeoutSeconds"`
}

// ChatConfig holds chat session and TUI settings.
type ChatConfig struct {
	// LockTimeoutS releases the send lock when no reply arrives in time.
	// Zero waits forever.
	LockTimeoutS int    `json:"lockTimeoutSeconds"`
	ScrollPolicy string `json:"scrollPolicy"`
	// HistoryDir holds the transcript store. Empty disables it.
	HistoryDir string `json:"historyDir"`
	DefaultBot int    `json:"defaultBot"`
}

// BotConfig is a roster entry used when the server roster is unavailable.
type BotConfig struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// LogConfig holds log file settings.
type LogConfig struct {
	Level      string `json:"level"`
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
}

// DevServerConfig holds settings of the bundled dev server.
type DevServerConfig struct {
	Addr         string `json:"addr"`
	ReplyDelayMs int    `json:"replyDelayMs"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:      "http://localhost:8080",
			WSPath:   "/ws",
			TimeoutS: 10,
		},
		Chat: ChatConfig{
			LockTimeoutS: 60,
			ScrollPolicy: ScrollAlways,
			HistoryDir:   "~/.botchat/history",
		},
		Log: LogConfig{
			Level:      "info",
			File:       "~/.botchat/botchat.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		DevServer: DevServerConfig{
			Addr: ":8080",
		},
	}
}

// LockTimeout returns the send lock timeout; zero means none.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Chat.LockTimeoutS) * time.Second
}

// RequestTimeout bounds HTTP requests and the websocket handshake.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutS) * time.Second
}

// ReplyDelay is the dev server's artificial reply latency.
func (c *Config) ReplyDelay() time.Duration {
	return time.Duration(c.DevServer.ReplyDelayMs) * time.Millisecond
}

// HistoryPath returns the expanded transcript store directory.
func (c *Config) HistoryPath() string {
	return expandHome(c.Chat.HistoryDir)
}

// LogPath returns the expanded log file path.
func (c *Config) LogPath() string {
	return expandHome(c.Log.File)
}

// SlogLevel maps log.level to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandHome(path string) string {
	if len(path) > 1 && path[:2] == "~/" {
		home := homeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
