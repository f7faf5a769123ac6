package cont

import (
	"testing"

	"github.com/quilllang/quill/async"
	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

// fakeScheduler runs blocking tasks synchronously inline, which is
// enough to exercise the trampoline's scheduling/resumption wiring
// without a real thread pool.
type fakeScheduler struct {
	checkpoints [][]byte
}

func (f *fakeScheduler) ScheduleBlocking(task runtime.Task) {
	task.(*async.Task).Run()
}
func (f *fakeScheduler) ScheduleEvent(runtime.ThreadContextToken, runtime.Task) {}
func (f *fakeScheduler) ThreadContext() runtime.ThreadContextToken             { return "ctx" }
func (f *fakeScheduler) SaveCheckpoint(id runtime.InstanceID, checkpointID uint64, bytes []byte,
	source string, offset int, data any, resume func(any, error)) {
	f.checkpoints = append(f.checkpoints, bytes)
	resume(nil, nil)
}

// doublingResolver resolves any wrapper handle named "double" to a
// ResumeFunc that doubles the frame's incoming result.
type doublingResolver struct{}

// Any other handle resolves to a pass-through of the incoming result.
func (doublingResolver) ResolveResume(h handle.Handle) (ResumeFunc, error) {
	if w, ok := h.(*handle.Wrapper); ok && w.Name == "double" {
		return func(frame *Frame) (types.Value, error) {
			n := frame.Result.(types.Int)
			return types.Int(n * 2), nil
		}, nil
	}
	return func(frame *Frame) (types.Value, error) { return frame.Result, frame.ResultErr }, nil
}

func TestTrampolineSuspendAndResume(t *testing.T) {
	sched := &fakeScheduler{}
	runner := &Runner{Scheduler: sched, Resolver: doublingResolver{}, TypeTags: registry.New()}
	instance := runtime.NewScriptInstance()

	_, suspendErr := SuspendBlocking("main.ql", 1, types.Int(10), func(data types.Value) (types.Value, error) {
		return types.Int(data.(types.Int) + 1), nil
	}, runtime.Snapshot{})
	suspend, ok := AsSuspend(suspendErr)
	if !ok {
		t.Fatalf("expected *Suspend, got %v", suspendErr)
	}

	wrapped := Wrap(suspend, handle.NewWrapper("", "double", nil), 0, nil, nil)

	var finalResult types.Value
	var finalErr error
	done := false
	err := runner.Start(instance, wrapped.Top, func(result types.Value, err error) {
		finalResult, finalErr, done = result, err, true
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !done {
		t.Fatal("completion callback was never invoked")
	}
	if finalErr != nil {
		t.Fatalf("unexpected error: %v", finalErr)
	}
	// 10 -> blocking fn adds 1 -> 11 -> resume doubles -> 22
	if !finalResult.Equal(types.Int(22)) {
		t.Errorf("final result = %v, want 22", finalResult)
	}
}

func TestCheckpointPathSerializesChainAndGlobals(t *testing.T) {
	sched := &fakeScheduler{}
	runner := &Runner{Scheduler: sched, Resolver: doublingResolver{}, TypeTags: registry.New()}
	instance := runtime.NewScriptInstance()

	globals := types.NewMap()
	globals.Set(types.Str("x"), types.Int(1))

	_, suspendErr := SuspendCheckpoint("main.ql", 5, runtime.Snapshot{Globals: globals})
	suspend, _ := AsSuspend(suspendErr)
	wrapped := Wrap(suspend, handle.NewWrapper("", "afterCheckpoint", nil), 0, nil, nil)
	wrapped.Top.AsyncTask.Snapshot.Globals = globals

	done := false
	err := runner.Start(instance, wrapped.Top, func(result types.Value, err error) { done = true })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !done {
		t.Fatal("completion callback was never invoked after checkpoint hook resumed")
	}
	if len(sched.checkpoints) != 1 {
		t.Fatalf("expected 1 checkpoint to be saved, got %d", len(sched.checkpoints))
	}
	if instance.CheckpointID() != 1 {
		t.Errorf("instance checkpoint id = %d, want 1", instance.CheckpointID())
	}

	r := codec.NewReader(sched.checkpoints[0], registry.New())
	restored, err := r.Decode()
	if err != nil {
		t.Fatalf("decoding saved checkpoint: %v", err)
	}
	pair := restored.(*types.List)
	if pair.Len() != 2 {
		t.Fatalf("expected [globals, chain] pair, got %d elements", pair.Len())
	}
	rg := pair.Get(0).(*types.Map)
	v, ok := rg.Get(types.Str("x"))
	if !ok || !v.Equal(types.Int(1)) {
		t.Errorf("restored globals x = %v, ok=%v, want 1", v, ok)
	}
}
