// Package function implements the Function Descriptor (spec §4.7/§3):
// the metadata describing one callable — its owner, signature, and
// whether invoking it may suspend.
package function

import (
	"sync"

	"github.com/quilllang/quill/types"
)

// Asyncness is a three-valued flag: a function's suspendability is not
// always knowable statically (a compiled function may call through an
// interface whose concrete implementation is only known at runtime), so
// it starts Unknown and is promoted to Yes the first time a call through
// it is observed to suspend, never demoted back down.
type Asyncness int

const (
	AsyncUnknown Asyncness = iota
	AsyncYes
	AsyncNo
)

func (a Asyncness) String() string {
	switch a {
	case AsyncYes:
		return "yes"
	case AsyncNo:
		return "no"
	default:
		return "unknown"
	}
}

// Param is one declared parameter.
type Param struct {
	Name string
	Type types.Tag
}

// Descriptor is one function or method's full signature.
type Descriptor struct {
	mu sync.Mutex

	OwnerType    string // empty for a global function
	FirstArgType types.Tag
	HasFirstArg  bool
	Name         string
	ReturnType   types.Tag

	Params       []Param
	MandatoryMin int
	VarArgs      bool

	ImplClass  string // implementing class's internal name
	ImplMethod string // implementing method/handle-field name

	// InlineEmitter, when non-empty, names a compiler intrinsic that
	// emits this call inline instead of a real invocation (e.g. a
	// builtin arithmetic operator exposed as a pseudo-function).
	InlineEmitter string

	IsStatic  bool
	IsInit    bool
	IsWrapper bool

	asyncness          Asyncness
	asyncArgIndices    []int // parameter indices that may themselves suspend when evaluated
}

func New(ownerType, name string, returnType types.Tag) *Descriptor {
	return &Descriptor{OwnerType: ownerType, Name: name, ReturnType: returnType}
}

// Asyncness returns the current three-valued suspendability flag.
func (d *Descriptor) Asyncness() Asyncness {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.asyncness
}

// ObserveSuspend promotes Unknown to Yes on the first observed
// suspension through this function. It never demotes Yes back to
// Unknown or No: once a call through this descriptor has suspended at
// least once, every call site must keep treating it as possibly
// suspending.
func (d *Descriptor) ObserveSuspend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asyncness = AsyncYes
}

// MarkNeverSuspends is an explicit declaration (from compiled metadata,
// not runtime observation) that this function can never suspend; it only
// takes effect while the flag is still Unknown, since a later runtime
// observation of Yes must win.
func (d *Descriptor) MarkNeverSuspends() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.asyncness == AsyncUnknown {
		d.asyncness = AsyncNo
	}
}

// AsyncArgIndices returns the indices of parameters whose evaluation
// itself may suspend (e.g. default-value expressions or call-by-name
// arguments), used by the compiler to decide where resume points are
// needed around argument evaluation.
func (d *Descriptor) AsyncArgIndices() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.asyncArgIndices))
	copy(out, d.asyncArgIndices)
	return out
}

func (d *Descriptor) SetAsyncArgIndices(idx []int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asyncArgIndices = idx
}

// Arity reports whether argCount is a legal call arity for this
// function, honoring MandatoryMin and VarArgs.
func (d *Descriptor) Arity(argCount int) bool {
	if argCount < d.MandatoryMin {
		return false
	}
	if d.VarArgs {
		return true
	}
	return argCount <= len(d.Params)
}
