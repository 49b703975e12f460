package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joebot/botchat/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://localhost:8080" || cfg.Chat.ScrollPolicy != config.ScrollAlways {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.LockTimeout() != 60*time.Second {
		t.Fatalf("LockTimeout() = %v", cfg.LockTimeout())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.URL = "https://chat.example.com"
	cfg.Chat.ScrollPolicy = config.ScrollSticky
	cfg.Bots = []config.BotConfig{{ID: 3, Name: "Mia"}}

	tmp := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := config.SaveTo(cfg, tmp); err != nil {
		t.Fatal(err)
	}

	saved, err := config.LoadFrom(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Server.URL != cfg.Server.URL || saved.Chat.ScrollPolicy != config.ScrollSticky {
		t.Errorf("reloaded = %+v", saved)
	}
	if len(saved.Bots) != 1 || saved.Bots[0].Name != "Mia" {
		t.Errorf("bots = %+v", saved.Bots)
	}

	data, _ := os.ReadFile(tmp)
	if !strings.Contains(string(data), `"lockTimeoutSeconds"`) {
		t.Errorf("saved file is not camelCase: %s", data)
	}
}

func TestExplicitZeroLockTimeoutIsKept(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(tmp, []byte(`{"chat":{"lockTimeoutSeconds":0}}`), 0o644)

	cfg, err := config.LoadFrom(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LockTimeout() != 0 {
		t.Fatalf("LockTimeout() = %v, want unbounded", cfg.LockTimeout())
	}
	if cfg.Chat.ScrollPolicy != config.ScrollAlways {
		t.Fatalf("missing keys should keep defaults, scrollPolicy = %q", cfg.Chat.ScrollPolicy)
	}
}

func TestValidateRejectsInvalid(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(tmp, []byte(`{
		"server":{"url":"ftp://nowhere","wsPath":"ws"},
		"chat":{"lockTimeoutSeconds":-5,"scrollPolicy":"sometimes"},
		"bots":[{"id":1},{"id":1}],
		"log":{"level":"loud"}
	}`), 0o644)

	_, err := config.LoadFrom(tmp)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.url", "server.wsPath", "chat.lockTimeoutSeconds", "chat.scrollPolicy", "bots[1].id", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s:\n%v", want, err)
		}
	}
}

func TestCheckUnknownFields(t *testing.T) {
	raw := map[string]any{
		"server":  map[string]any{"url": "http://x", "proxy": "y"},
		"bots":    []any{map[string]any{"id": 1.0, "avatar": "z"}},
		"unknown": true,
	}
	got := config.CheckUnknownFields(raw)
	want := []string{"bots[0].avatar", "server.proxy", "unknown"}
	if len(got) != len(want) {
		t.Fatalf("CheckUnknownFields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CheckUnknownFields[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUpgradeKeepsLocalValues(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(tmp, []byte(`{"server":{"url":"http://10.0.0.2:9000"},"stale":1}`), 0o644)

	cfg, err := config.Upgrade(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.URL != "http://10.0.0.2:9000" || cfg.Server.WSPath != "/ws" {
		t.Fatalf("upgraded = %+v", cfg.Server)
	}
	data, _ := os.ReadFile(tmp)
	if strings.Contains(string(data), "stale") || !strings.Contains(string(data), "devServer") {
		t.Fatalf("upgraded file = %s", data)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(config.EnvServer, "https://override.example")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg := config.DefaultConfig()
	config.ApplyEnv(cfg)
	if cfg.Server.URL != "https://override.example" || cfg.Log.Level != "debug" {
		t.Fatalf("ApplyEnv = %+v %+v", cfg.Server, cfg.Log)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".env"), []byte("BOTCHAT_TEST_VALUE=from-dotenv\n"), 0o644)
	t.Chdir(dir)
	t.Setenv("BOTCHAT_TEST_VALUE", "")
	os.Unsetenv("BOTCHAT_TEST_VALUE")

	if err := config.LoadEnv(); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("BOTCHAT_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("BOTCHAT_TEST_VALUE = %q", got)
	}
}

func TestLoadEnvWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := config.LoadEnv(); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}
