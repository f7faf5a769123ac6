// Package config holds the small set of tunables a host process needs to
// supply: loop-iteration ceiling, checkpoint format version, wall-clock
// budget, and a blocking-pool size hint. Plain structs with yaml struct
// tags, and a constructor that fills sane zero-value defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is process-wide. cmd/quillrun loads one and logs its values; no
// package in this module reads it when building a runtime.State or a
// Scheduler, so a host passes the values on itself.
type Config struct {
	// MaxIterations caps the loop-iteration counter State.UpdateIterationCount
	// enforces (spec §4.8). Zero or negative disables the ceiling.
	MaxIterations int64 `yaml:"max_iterations"`

	// DeadlineCheckEvery is how often (in loop iterations) the wall-clock
	// deadline is re-checked, trading timeout precision for the cost of a
	// time.Now() call on every single iteration.
	DeadlineCheckEvery int64 `yaml:"deadline_check_every"`

	// WallClockBudget is the default execution budget handed to
	// runtime.NewState's deadline parameter when a host doesn't set one
	// explicitly per script instance. Zero disables the deadline check.
	WallClockBudget time.Duration `yaml:"wall_clock_budget"`

	// CheckpointFormatVersion records the format version this process was
	// built against, for a host's own compatibility bookkeeping (e.g.
	// refusing to load a checkpoint file stamped with a newer version than
	// the binary understands). codec.FormatVersion is the version actually
	// written into and checked against every encoded image; this field
	// exists so a host doesn't have to import package codec just to log or
	// compare against that constant.
	CheckpointFormatVersion int32 `yaml:"checkpoint_format_version"`

	// BlockingPoolSize hints how many goroutines a host's
	// runtime.Scheduler.ScheduleBlocking implementation should run
	// concurrently; the scheduler interface itself is agnostic to this,
	// and the reference cmd/quillrun host only logs it.
	BlockingPoolSize int `yaml:"blocking_pool_size"`
}

// Default returns the zero-value-filled configuration a fresh process
// starts with absent an explicit config file.
func Default() Config {
	return Config{
		MaxIterations:           1_000_000,
		DeadlineCheckEvery:      256,
		WallClockBudget:         30 * time.Second,
		CheckpointFormatVersion: 1,
		BlockingPoolSize:        4,
	}
}

// Load reads a YAML config file, starting from Default() and overriding
// only the fields present in the document.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
