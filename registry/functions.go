package registry

import (
	"fmt"
	"sync"
)

// FuncKey identifies a registered function or method by (owner type name,
// function name). OwnerType is empty for global functions.
type FuncKey struct {
	OwnerType string
	Name      string
}

// FuncSpec is what a caller supplies to register_function/register_method
// (spec §6): enough to locate the implementing invocable again later, plus
// the static field that holds the wrapper handle so the codec's
// WrapperHandle variant can find it on restore.
type FuncSpec struct {
	OwnerType    string
	Name         string
	HandleField  string // static field name holding the wrapper handle
	MandatoryMin int
	VarArgs      bool
}

// FunctionRegistry is the process-wide, read-mostly table the wrapper
// handle variant consults to re-resolve a callable by (owner, name) on
// restore.
type FunctionRegistry struct {
	mu    sync.RWMutex
	specs map[FuncKey]FuncSpec
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{specs: make(map[FuncKey]FuncSpec)}
}

func (r *FunctionRegistry) RegisterFunction(spec FuncSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[FuncKey{OwnerType: spec.OwnerType, Name: spec.Name}] = spec
}

// RegisterMethod is RegisterFunction with an explicit owner type, matching
// the two distinct entry points named in spec §6.
func (r *FunctionRegistry) RegisterMethod(ownerType string, spec FuncSpec) {
	spec.OwnerType = ownerType
	r.RegisterFunction(spec)
}

func (r *FunctionRegistry) Deregister(key FuncKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.specs, key)
}

func (r *FunctionRegistry) Lookup(ownerType, name string) (FuncSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[FuncKey{OwnerType: ownerType, Name: name}]
	return spec, ok
}

func (r *FunctionRegistry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("FunctionRegistry(%d entries)", len(r.specs))
}
