package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Staging.Dir != "staging" {
		t.Errorf("expected staging dir 'staging', got %q", cfg.Staging.Dir)
	}
	if cfg.Warehouse.Path != "eco_warehouse.db" {
		t.Errorf("expected warehouse path 'eco_warehouse.db', got %q", cfg.Warehouse.Path)
	}
	if cfg.Transform.Contamination != 0.02 {
		t.Errorf("expected contamination 0.02, got %v", cfg.Transform.Contamination)
	}
	if cfg.Load.SentinelID != 1 {
		t.Errorf("expected sentinel id 1, got %d", cfg.Load.SentinelID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Staging.Dir != Default().Staging.Dir {
		t.Errorf("expected defaults, got staging dir %q", cfg.Staging.Dir)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoflow.yaml")
	content := `
staging:
  dir: /data/inbound
transform:
  contamination: 0.05
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Staging.Dir != "/data/inbound" {
		t.Errorf("expected staging dir override, got %q", cfg.Staging.Dir)
	}
	if cfg.Transform.Contamination != 0.05 {
		t.Errorf("expected contamination override, got %v", cfg.Transform.Contamination)
	}
	// Untouched keys keep their defaults.
	if cfg.Warehouse.Path != "eco_warehouse.db" {
		t.Errorf("expected default warehouse path, got %q", cfg.Warehouse.Path)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Transform.Contamination = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for contamination >= 1")
	}

	cfg = Default()
	cfg.Load.SentinelID = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive sentinel id")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("transform:\n  contamination: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for negative contamination")
	}
}
