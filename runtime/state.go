package runtime

import (
	"context"
	"io"
	"time"

	"github.com/quilllang/quill/errs"
	"github.com/quilllang/quill/types"
)

// State is the per-execution ambient (spec §4.8): context reference,
// globals, I/O handles, loop-iteration counter, and wall-clock deadline.
// Exactly one State is associated with the currently executing script on
// the current thread at any instant (spec §5: "single-threaded at any
// instant"); an Async Task snapshots it at suspension. Restore
// re-installs a snapshot, but the continuation runner does not call it
// on resumption.
type State struct {
	Ctx     context.Context
	Globals *types.Map
	Stdout  io.Writer
	Stderr  io.Writer

	iterationCount int64
	maxIterations  int64

	deadline           time.Time
	deadlineCheckEvery int64 // check wall clock every K-th iteration

	checkCounter int64
}

// NewState constructs a State. maxIterations <= 0 disables the
// iteration-count ceiling; a zero deadline disables the deadline check.
func NewState(ctx context.Context, globals *types.Map, stdout, stderr io.Writer, maxIterations int64, deadline time.Time, deadlineCheckEvery int64) *State {
	if deadlineCheckEvery <= 0 {
		deadlineCheckEvery = 1
	}
	return &State{
		Ctx:                ctx,
		Globals:            globals,
		Stdout:             stdout,
		Stderr:             stderr,
		maxIterations:      maxIterations,
		deadline:           deadline,
		deadlineCheckEvery: deadlineCheckEvery,
	}
}

// Snapshot captures the fields needed to re-establish this State on a
// resuming thread, per spec §4.4's "captured snapshot of the thread-local
// runtime state taken at creation".
type Snapshot struct {
	Globals            *types.Map
	IterationCount      int64
	MaxIterations       int64
	Deadline            time.Time
	DeadlineCheckEvery  int64
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Globals:            s.Globals,
		IterationCount:     s.iterationCount,
		MaxIterations:      s.maxIterations,
		Deadline:           s.deadline,
		DeadlineCheckEvery: s.deadlineCheckEvery,
	}
}

// Restore re-installs a snapshot onto a (possibly different) State
// instance on the resuming thread, retaining the new ctx/io handles.
func (s *State) Restore(snap Snapshot) {
	s.Globals = snap.Globals
	s.iterationCount = snap.IterationCount
	s.maxIterations = snap.MaxIterations
	s.deadline = snap.Deadline
	s.deadlineCheckEvery = snap.DeadlineCheckEvery
}

// UpdateIterationCount is invoked by compiler-emitted code at each loop
// head (spec §4.8): it increments the counter, raising TimeoutError if it
// exceeds the configured maximum, and every K-th iteration additionally
// checks the wall-clock deadline, raising TimeoutError on expiry.
func (s *State) UpdateIterationCount(source string, offset int) error {
	s.iterationCount++
	if s.maxIterations > 0 && s.iterationCount > s.maxIterations {
		return errs.NewTimeoutError(source, offset, "loop iteration budget exceeded")
	}
	s.checkCounter++
	if s.checkCounter >= s.deadlineCheckEvery {
		s.checkCounter = 0
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			return errs.NewTimeoutError(source, offset, "execution deadline exceeded")
		}
	}
	return nil
}

func (s *State) IterationCount() int64 { return s.iterationCount }
