package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.MaxIterations <= 0 {
		t.Errorf("MaxIterations = %d, want positive", cfg.MaxIterations)
	}
	if cfg.WallClockBudget <= 0 {
		t.Errorf("WallClockBudget = %v, want positive", cfg.WallClockBudget)
	}
	if cfg.BlockingPoolSize <= 0 {
		t.Errorf("BlockingPoolSize = %d, want positive", cfg.BlockingPoolSize)
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	if err := os.WriteFile(path, []byte("max_iterations: 42\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxIterations != 42 {
		t.Errorf("MaxIterations = %d, want 42", cfg.MaxIterations)
	}
	want := Default().WallClockBudget
	if cfg.WallClockBudget != want {
		t.Errorf("WallClockBudget = %v, want default %v (untouched field)", cfg.WallClockBudget, want)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestWallClockBudgetParsesDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	if err := os.WriteFile(path, []byte("wall_clock_budget: 5s\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WallClockBudget != 5*time.Second {
		t.Errorf("WallClockBudget = %v, want 5s", cfg.WallClockBudget)
	}
}
