// Command quillrun is a minimal reference host: it loads a config file
// (logging its tunables) and builds a structured logger, then walks a
// small built-in iterator pipeline through a checkpoint/restore round trip
// using the conformance helpers and the codec.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/conformance"
	"github.com/quilllang/quill/config"
	"github.com/quilllang/quill/registry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (defaults to built-in tunables)")
		jsonLogs   = flag.Bool("json-logs", false, "emit structured logs as JSON instead of text")
		verbose    = flag.Bool("v", false, "enable debug-level logging")
	)
	flag.Parse()

	log := newLogger(*jsonLogs, *verbose)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	log.Info("starting quillrun",
		"max_iterations", cfg.MaxIterations,
		"checkpoint_format_version", cfg.CheckpointFormatVersion,
		"blocking_pool_size", cfg.BlockingPoolSize)

	if err := runDemo(log); err != nil {
		log.Error("demo run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(asJSON, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// runDemo builds a tiny map/filter pipeline over a list source, consumes
// one element, checkpoints the remainder through the codec, and
// drains a freshly restored copy — the same shape every case in
// conformance/testdata exercises, run here once for a human to watch.
func runDemo(log *slog.Logger) error {
	reg := registry.New()

	source, err := conformance.BuildSource(conformance.SourceSpec{Type: "list", Ints: []int64{1, 2, 3, 4, 5}})
	if err != nil {
		return fmt.Errorf("building source: %w", err)
	}
	pipeline, err := conformance.BuildPipeline(source, []conformance.StageSpec{
		{Op: "map", Closure: "increment"},
		{Op: "filter", Closure: "is_odd"},
	})
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	for i := 0; i < 1; i++ {
		if _, err := pipeline.Next(); err != nil {
			return fmt.Errorf("consuming element %d: %w", i, err)
		}
	}

	w := codec.NewWriter(reg)
	bytes, err := w.Encode(pipeline)
	if err != nil {
		return fmt.Errorf("checkpoint encode: %w", err)
	}
	log.Info("checkpointed iterator pipeline", "bytes", len(bytes))

	restored, err := conformance.RestoreIterator(bytes, reg)
	if err != nil {
		return fmt.Errorf("checkpoint decode: %w", err)
	}

	rest, err := conformance.Drain(restored)
	if err != nil {
		return fmt.Errorf("draining restored pipeline: %w", err)
	}
	log.Info("restored pipeline drained", "remaining_elements", fmt.Sprint(rest))
	return nil
}
