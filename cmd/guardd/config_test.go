package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigRequiresSecret(t *testing.T) {
	if _, err := loadConfig(nil); err == nil {
		t.Fatal("expected error without GUARDD_JWT_SECRET")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GUARDD_JWT_SECRET", "s3cret")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":8443" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.LookupTimeout != 5*time.Second {
		t.Fatalf("LookupTimeout = %v", cfg.LookupTimeout)
	}
	if cfg.DefaultDeny {
		t.Fatal("DefaultDeny should default to false")
	}
}

func TestLoadConfigFileAndFlagPrecedence(t *testing.T) {
	t.Setenv("GUARDD_JWT_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "guardd.json")
	raw, _ := json.Marshal(map[string]any{
		"addr":         ":9000",
		"backend_url":  "http://backend:8080",
		"default_deny": true,
	})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig([]string{"-config", path, "-addr", ":9999"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("flag should win over file, Addr = %q", cfg.Addr)
	}
	if cfg.BackendURL != "http://backend:8080" {
		t.Fatalf("BackendURL = %q", cfg.BackendURL)
	}
	if !cfg.DefaultDeny {
		t.Fatal("file should win over default for DefaultDeny")
	}
}

func TestLoadConfigFlagCanDisableBooleanFromFile(t *testing.T) {
	t.Setenv("GUARDD_JWT_SECRET", "s3cret")

	path := filepath.Join(t.TempDir(), "guardd.json")
	raw, _ := json.Marshal(map[string]any{"default_deny": true})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig([]string{"-config", path, "-default-deny=false"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DefaultDeny {
		t.Fatal("-default-deny=false should override the file's true")
	}

	// An absent flag leaves the file value alone.
	cfg, err = loadConfig([]string{"-config", path})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.DefaultDeny {
		t.Fatal("absent flag must not reset the file's DefaultDeny")
	}
}
