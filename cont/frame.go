// Package cont implements the Continuation Frame & chain (spec §4.4): an
// in-memory linked chain of per-call-frame records, suspension via
// suspend_blocking/suspend_non_blocking, the trampoline runner driving
// scheduling and resumption, and the checkpoint path.
package cont

import (
	"errors"
	"fmt"

	"github.com/quilllang/quill/async"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

// Frame is one per-call-frame record in a suspended chain. It implements
// types.Value (Tag() == TagContinuation) so a chain can be written
// through the Codec as part of a checkpoint.
type Frame struct {
	Parent *Frame // previous frame in the chain, nearer the top of the call stack
	Child  *Frame // the frame whose async return feeds this frame

	MethodHandle   handle.Handle // compiler-generated resume entrypoint
	MethodLocation int           // which of a finite set of resume points to re-enter at

	LocalPrimitives []int64
	LocalObjects    []types.Value

	// AsyncTask is present only on the innermost (newest) frame at
	// suspension; Wrap moves it upward as outer frames wrap (spec
	// §4.4). By the time a chain is serialized for a checkpoint it has
	// already been extracted for scheduling and is nil.
	AsyncTask *async.Task

	// ScriptInstance is set on the outermost frame at checkpoint time.
	ScriptInstance *runtime.ScriptInstance

	// Result is where the async completion value (or error) is placed
	// before the frame is resumed.
	Result    types.Value
	ResultErr error
}

func (f *Frame) Tag() types.Tag { return types.TagContinuation }
func (f *Frame) String() string {
	return fmt.Sprintf("continuation@%d", f.MethodLocation)
}
func (f *Frame) Equal(v types.Value) bool {
	o, ok := v.(*Frame)
	return ok && o == f
}
func (f *Frame) Truthy() bool { return true }

// Suspend is the flow-control signal a suspension point raises (spec
// §4.4's "throws that frame as a flow-control signal"), carrying the
// topmost frame of the chain built so far. Idiomatic Go has no throw, so
// suspension travels as a normal returned error; callers check for it
// with errors.As.
type Suspend struct {
	Top *Frame
}

func (s *Suspend) Error() string { return "script suspended" }

// SuspendBlocking builds the initial (innermost) frame for a blocking
// suspension point and returns it wrapped in a *Suspend, per spec §4.4.
func SuspendBlocking(source string, offset int, data types.Value, fn async.BlockingFunc, snap runtime.Snapshot) (types.Value, error) {
	task := async.NewBlocking(source, offset, data, fn, snap)
	frame := &Frame{LocalObjects: []types.Value{data}, AsyncTask: task}
	return nil, &Suspend{Top: frame}
}

// SuspendNonBlocking builds the initial frame for a non-blocking
// suspension point.
func SuspendNonBlocking(source string, offset int, data types.Value, init async.Initiator, snap runtime.Snapshot) (types.Value, error) {
	task := async.NewNonBlocking(source, offset, data, init, snap)
	frame := &Frame{LocalObjects: []types.Value{data}, AsyncTask: task}
	return nil, &Suspend{Top: frame}
}

// SuspendCheckpoint builds the initial frame for an explicit checkpoint
// request.
func SuspendCheckpoint(source string, offset int, snap runtime.Snapshot) (types.Value, error) {
	task := async.NewCheckpoint(source, offset, snap)
	frame := &Frame{AsyncTask: task}
	return nil, &Suspend{Top: frame}
}

// Wrap is called by each caller that catches a *Suspend: it constructs a
// new frame recording the caller's own resume handle, location and
// locals, moves the async task up from the caught frame, links the two
// frames, and returns a new *Suspend to rethrow (spec §4.4).
func Wrap(caught *Suspend, mh handle.Handle, location int, primitives []int64, objects []types.Value) *Suspend {
	inner := caught.Top
	outer := &Frame{
		Child:           inner,
		MethodHandle:    mh,
		MethodLocation:  location,
		LocalPrimitives: primitives,
		LocalObjects:    objects,
		AsyncTask:       inner.AsyncTask,
	}
	inner.Parent = outer
	inner.AsyncTask = nil
	return &Suspend{Top: outer}
}

// innermost walks Child pointers to the deepest frame in the chain.
func innermost(f *Frame) *Frame {
	for f.Child != nil {
		f = f.Child
	}
	return f
}

// AsSuspend reports whether err is (or wraps) a *Suspend.
func AsSuspend(err error) (*Suspend, bool) {
	var s *Suspend
	ok := errors.As(err, &s)
	return s, ok
}
