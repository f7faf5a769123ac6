// Package async implements the Async Task variants (spec §4.4/§4.5):
// Blocking, Non-blocking, and Checkpoint work items, each carrying
// source/offset for diagnostics and a snapshot of the runtime state to
// re-establish on the resuming thread.
package async

import (
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

// Kind discriminates the three task variants.
type Kind int

const (
	KindBlocking Kind = iota
	KindNonBlocking
	KindCheckpoint
)

func (k Kind) String() string {
	switch k {
	case KindBlocking:
		return "blocking"
	case KindNonBlocking:
		return "non-blocking"
	case KindCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// BlockingFunc is the caller-supplied pure function `data -> value` run
// off the execution thread.
type BlockingFunc func(data types.Value) (types.Value, error)

// Initiator is the caller-supplied `(context, data, resumeCallback) ->
// ()` invoked inline on the event thread; it must return immediately
// after arranging eventual invocation of resume.
type Initiator func(ctx any, data types.Value, resume func(types.Value, error))

// Task is one unit of suspended work (spec §4.4): a Blocking or
// Non-blocking external operation, or a Checkpoint request.
type Task struct {
	Kind Kind

	Source string
	Offset int

	Data types.Value

	// Blocking variant.
	BlockingFn BlockingFunc

	// Non-blocking variant.
	NonBlockingInit Initiator

	// Checkpoint variant carries no work; its fields (instance,
	// generation) are supplied by the continuation chain at the moment
	// of scheduling, not stored here.

	// Snapshot is the runtime.State captured at task creation. The
	// checkpoint path serializes its Globals; the continuation runner
	// does not re-install it on the resuming goroutine.
	Snapshot runtime.Snapshot

	// Resume is invoked with the task's outcome once it completes. Set
	// by the continuation runner immediately before scheduling.
	Resume func(value types.Value, err error)
}

func (t *Task) SourceID() string  { return t.Source }
func (t *Task) SourceOffset() int { return t.Offset }

// NewBlocking builds a Blocking task.
func NewBlocking(source string, offset int, data types.Value, fn BlockingFunc, snap runtime.Snapshot) *Task {
	return &Task{Kind: KindBlocking, Source: source, Offset: offset, Data: data, BlockingFn: fn, Snapshot: snap}
}

// NewNonBlocking builds a Non-blocking task.
func NewNonBlocking(source string, offset int, data types.Value, init Initiator, snap runtime.Snapshot) *Task {
	return &Task{Kind: KindNonBlocking, Source: source, Offset: offset, Data: data, NonBlockingInit: init, Snapshot: snap}
}

// NewCheckpoint builds a Checkpoint task.
func NewCheckpoint(source string, offset int, snap runtime.Snapshot) *Task {
	return &Task{Kind: KindCheckpoint, Source: source, Offset: offset, Snapshot: snap}
}

// Run executes the task's off-thread work synchronously and reports the
// outcome via t.Resume on the same goroutine — used by a Scheduler's
// blocking-pool worker for the Blocking variant. It does not switch back
// to a recorded execution context before calling Resume.
func (t *Task) Run() {
	if t.Kind != KindBlocking {
		return
	}
	v, err := t.BlockingFn(t.Data)
	if t.Resume != nil {
		t.Resume(v, err)
	}
}

var _ runtime.Task = (*Task)(nil)
