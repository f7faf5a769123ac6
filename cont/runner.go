package cont

import (
	"fmt"

	"github.com/quilllang/quill/async"
	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

// ResumeFunc is a compiler-generated resume entrypoint: given the frame
// it was stored on (to read method_location and the local slots), it
// re-enters the state machine and returns either a normal result or a
// new *Suspend error.
type ResumeFunc func(frame *Frame) (types.Value, error)

// Resolver turns a frame's serializable MethodHandle identity into a
// live ResumeFunc — supplied by the embedding runtime, since cont has no
// notion of compiled method bodies.
type Resolver interface {
	ResolveResume(h handle.Handle) (ResumeFunc, error)
}

// CompletionFunc receives the final result once a chain runs to
// completion (all frames resumed with no further suspension).
type CompletionFunc func(result types.Value, err error)

// Runner drives the trampoline: Start hands a freshly suspended chain to
// the Scheduler, and the Resume callback it installs on the async task
// re-enters the chain once that task completes, per spec §4.4's
// "Scheduling"/"Resumption" sections.
type Runner struct {
	Scheduler runtime.Scheduler
	Resolver  Resolver
	TypeTags  *registry.TypeTagRegistry
}

// Start catches the final (topmost) frame of a freshly raised chain,
// extracts its async task, and hands it to the Scheduler. The runner
// returns immediately; the calling thread is free.
func (r *Runner) Start(instance *runtime.ScriptInstance, top *Frame, onComplete CompletionFunc) error {
	return r.schedule(instance, top, onComplete)
}

func (r *Runner) schedule(instance *runtime.ScriptInstance, top *Frame, onComplete CompletionFunc) error {
	task := top.AsyncTask
	if task == nil {
		return fmt.Errorf("cont: topmost frame of a suspended chain carries no async task")
	}
	top.AsyncTask = nil

	task.Resume = func(value types.Value, err error) {
		r.resumeChain(instance, top, value, err, onComplete)
	}

	switch task.Kind {
	case async.KindBlocking:
		r.Scheduler.ScheduleBlocking(task)
	case async.KindNonBlocking:
		r.Scheduler.ScheduleEvent(r.Scheduler.ThreadContext(), task)
	case async.KindCheckpoint:
		return r.runCheckpoint(instance, top, task)
	default:
		return fmt.Errorf("cont: unknown async task kind %v", task.Kind)
	}
	return nil
}

// runCheckpoint implements spec §4.4's checkpoint path: increment the
// checkpoint counter, set the outer frame's script_instance, serialize
// (globals, chain) through the Codec, and invoke the host's persistence
// hook.
func (r *Runner) runCheckpoint(instance *runtime.ScriptInstance, top *Frame, task *async.Task) error {
	checkpointID := instance.NextCheckpointID()
	top.ScriptInstance = instance

	pair := types.NewList([]types.Value{task.Snapshot.Globals, top})
	w := codec.NewWriter(r.TypeTags)
	bytes, err := w.Encode(pair)
	if err != nil {
		return fmt.Errorf("cont: checkpoint serialization failed: %w", err)
	}

	r.Scheduler.SaveCheckpoint(instance.ID(), checkpointID, bytes, task.Source, task.Offset, task.Data,
		func(_ any, hookErr error) {
			task.Resume(types.NullValue, hookErr)
		})
	return nil
}

// resumeChain implements spec §4.4's "Resumption": walk the chain from
// the innermost frame outward, placing the incoming value/error into
// each frame's result and invoking its resume entrypoint. A new
// suspension raised mid-walk is spliced onto the remaining outer chain
// and handed back to the scheduler instead of continuing the walk.
func (r *Runner) resumeChain(instance *runtime.ScriptInstance, top *Frame, value types.Value, err error, onComplete CompletionFunc) {
	frame := innermost(top)
	frame.Result = value
	frame.ResultErr = err

	for frame != nil {
		rf, rerr := r.Resolver.ResolveResume(frame.MethodHandle)
		if rerr != nil {
			if onComplete != nil {
				onComplete(nil, fmt.Errorf("cont: resolving resume entrypoint: %w", rerr))
			}
			return
		}

		result, callErr := rf(frame)

		if susp, ok := AsSuspend(callErr); ok {
			remaining := frame.Parent
			leaf := innermost(susp.Top)
			leaf.Parent = remaining
			if err := r.schedule(instance, susp.Top, onComplete); err != nil && onComplete != nil {
				onComplete(nil, err)
			}
			return
		}

		parent := frame.Parent
		if parent == nil {
			if onComplete != nil {
				onComplete(result, callErr)
			}
			return
		}
		parent.Result = result
		parent.ResultErr = callErr
		frame = parent
	}
}
