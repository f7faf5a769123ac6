package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/quilllang/quill/cont"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

type memStore struct {
	mu    sync.Mutex
	saved [][]byte
}

func (m *memStore) Save(_ runtime.InstanceID, _ uint64, bytes []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, bytes)
	return nil
}

type doublingResolver struct{}

func (doublingResolver) ResolveResume(handle.Handle) (cont.ResumeFunc, error) {
	return func(frame *cont.Frame) (types.Value, error) {
		return types.Int(frame.Result.(types.Int) * 2), nil
	}, nil
}

type passthroughResolver struct{}

func (passthroughResolver) ResolveResume(handle.Handle) (cont.ResumeFunc, error) {
	return func(frame *cont.Frame) (types.Value, error) { return frame.Result, frame.ResultErr }, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngineLaunchDrivesBlockingSuspensionToCompletion(t *testing.T) {
	store := &memStore{}
	sched := NewScheduler(2, store, silentLogger())
	eng := New(registry.New(), sched, doublingResolver{}, silentLogger())

	snap := runtime.NewState(context.Background(), types.NewMap(), io.Discard, io.Discard, 0, time.Time{}, 0).Snapshot()
	_, susp := cont.SuspendBlocking("test", 0, types.Int(21), func(types.Value) (types.Value, error) {
		return types.Int(21), nil
	}, snap)
	s := susp.(*cont.Suspend)
	s.Top.MethodHandle = handle.NewPlain("", "resume", func([]types.Value) (types.Value, error) { return nil, nil })

	done := make(chan struct{})
	var result types.Value
	err := eng.Launch(runtime.NewScriptInstance(), s.Top, func(r types.Value, e error) {
		result, _ = r, e
		close(done)
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
	if !result.Equal(types.Int(42)) {
		t.Errorf("result = %v, want 42", result)
	}
	if len(store.saved) != 0 {
		t.Errorf("expected no checkpoints saved, got %d", len(store.saved))
	}
}

func TestEngineResumeRoundTripsAChain(t *testing.T) {
	store := &memStore{}
	sched := NewScheduler(1, store, silentLogger())
	eng := New(registry.New(), sched, passthroughResolver{}, silentLogger())

	snap := runtime.NewState(context.Background(), types.NewMap(), io.Discard, io.Discard, 0, time.Time{}, 0).Snapshot()
	_, suspErr := cont.SuspendCheckpoint("test", 0, snap)
	s := suspErr.(*cont.Suspend)

	instance := runtime.NewScriptInstance()
	done := make(chan struct{})
	if err := eng.Launch(instance, s.Top, func(types.Value, error) { close(done) }); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for checkpoint completion")
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 checkpoint saved, got %d", len(store.saved))
	}

	restoredDone := make(chan struct{})
	restoredInstance, err := eng.Resume(store.saved[0], func(types.Value, error) { close(restoredDone) })
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	select {
	case <-restoredDone:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for resumed chain")
	}
	if restoredInstance.ID() != instance.ID() {
		t.Errorf("restored instance id = %v, want %v", restoredInstance.ID(), instance.ID())
	}
	if restoredInstance.CheckpointID() != instance.CheckpointID() {
		t.Errorf("restored checkpoint id = %d, want %d", restoredInstance.CheckpointID(), instance.CheckpointID())
	}
}
