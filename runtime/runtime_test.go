package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quilllang/quill/errs"
	"github.com/quilllang/quill/types"
)

func TestInstanceIDWireRoundTrip(t *testing.T) {
	id := NewInstanceID()
	hi, lo := id.MarshalWire()
	got := InstanceIDFromWire(hi, lo)
	if got != id {
		t.Errorf("wire round trip mismatch: got %s, want %s", got, id)
	}
}

func TestScriptInstanceCheckpointIDMonotonic(t *testing.T) {
	si := NewScriptInstance()
	if si.CheckpointID() != 0 {
		t.Fatalf("fresh instance checkpoint id = %d, want 0", si.CheckpointID())
	}
	if got := si.NextCheckpointID(); got != 1 {
		t.Errorf("first NextCheckpointID() = %d, want 1", got)
	}
	if got := si.NextCheckpointID(); got != 2 {
		t.Errorf("second NextCheckpointID() = %d, want 2", got)
	}
}

func TestUpdateIterationCountRaisesTimeout(t *testing.T) {
	s := NewState(context.Background(), types.NewMap(), nil, nil, 3, time.Time{}, 0)
	for i := 0; i < 3; i++ {
		if err := s.UpdateIterationCount("main.ql", i); err != nil {
			t.Fatalf("iteration %d: unexpected error %v", i, err)
		}
	}
	err := s.UpdateIterationCount("main.ql", 3)
	var to *errs.TimeoutError
	if !errors.As(err, &to) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestUpdateIterationCountDeadline(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	s := NewState(context.Background(), types.NewMap(), nil, nil, 0, past, 1)
	err := s.UpdateIterationCount("main.ql", 0)
	var to *errs.TimeoutError
	if !errors.As(err, &to) {
		t.Fatalf("expected TimeoutError from expired deadline, got %v", err)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewState(context.Background(), types.NewMap(), nil, nil, 100, time.Time{}, 5)
	for i := 0; i < 7; i++ {
		_ = s.UpdateIterationCount("main.ql", i)
	}
	snap := s.Snapshot()

	other := NewState(context.Background(), types.NewMap(), nil, nil, 0, time.Time{}, 0)
	other.Restore(snap)
	if other.IterationCount() != s.IterationCount() {
		t.Errorf("restored iteration count = %d, want %d", other.IterationCount(), s.IterationCount())
	}
}
