package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InspectPort != 8090 || cfg.Channel.SendBuffer != 64 || cfg.Snapshot.ChatTail != 50 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Channel.ReconnectBase != 500*time.Millisecond || cfg.Session.ReactionTTL != 3*time.Second {
		t.Fatalf("durations = %v %v", cfg.Channel.ReconnectBase, cfg.Session.ReactionTTL)
	}
	if !cfg.Devices.Granted {
		t.Fatal("devices not granted by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "room_id: r1\nchannel:\n  reconnect_attempts: 3\nsession:\n  eraser_radius: 12\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("SEMINAR_USER_ID", "alice")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoomID != "r1" || cfg.Channel.ReconnectAttempts != 3 || cfg.Session.EraserRadius != 12 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.UserID != "alice" {
		t.Fatalf("env override not applied: %q", cfg.UserID)
	}
}
