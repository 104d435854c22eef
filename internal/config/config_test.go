package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkingDir != "/var/lib/lynx" {
		t.Fatalf("working dir mismatch: %q", cfg.WorkingDir)
	}
	if cfg.CLIBin != "lynx-cli" {
		t.Fatalf("cli bin mismatch: %q", cfg.CLIBin)
	}
	if cfg.RPCHost != "127.0.0.1" {
		t.Fatalf("rpc host mismatch: %q", cfg.RPCHost)
	}
	if cfg.ConfPath != filepath.Join("/var/lib/lynx", "lynx.conf") {
		t.Fatalf("conf path mismatch: %q", cfg.ConfPath)
	}
	if cfg.Refresh != 5*time.Second {
		t.Fatalf("refresh mismatch: %v", cfg.Refresh)
	}
	if cfg.TipRows != 15 {
		t.Fatalf("tip rows mismatch: %d", cfg.TipRows)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("currency mismatch: %q", cfg.Currency)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BEACON_WORKING_DIR", t.TempDir())
	t.Setenv("BEACON_RPC_PORT", "19332")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkingDir == "/var/lib/lynx" {
		t.Fatalf("env override not applied: %q", cfg.WorkingDir)
	}
	if cfg.RPCPort != "19332" {
		t.Fatalf("rpc port mismatch: %q", cfg.RPCPort)
	}
	if cfg.LogPath != filepath.Join(cfg.WorkingDir, "debug.log") {
		t.Fatalf("log path mismatch: %q", cfg.LogPath)
	}
}
