// Package registry implements the Type Tag Registry (spec §4.2): the
// process-lifetime mapping from built-in classes to small stable integer
// identifiers, the complementary user-class-name-to-factory map, and the
// function/method registration tables used by the Method Handle Model's
// wrapper-handle variant to re-resolve a callable on restore (spec §6).
package registry

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/ripemd160"

	"github.com/quilllang/quill/types"
)

// Factory constructs a fresh zero-value instance of a registered
// user-defined class, used for the codec's "allocate a shell, populate
// later" two-phase restore (§4.1).
type Factory func() *types.Instance

// TypeTagRegistry holds the two process-lifetime maps described in §4.2.
type TypeTagRegistry struct {
	mu sync.RWMutex

	builtinIDs   map[string]int32 // built-in class name -> dense id
	builtinNames map[int32]string
	nextBuiltin  int32

	userFactories map[string]Factory // user internal name -> factory
}

func New() *TypeTagRegistry {
	return &TypeTagRegistry{
		builtinIDs:    make(map[string]int32),
		builtinNames:  make(map[int32]string),
		userFactories: make(map[string]Factory),
	}
}

// RegisterBuiltin idempotently registers a built-in class name, returning
// its dense id. Re-registering the same name returns the same id.
func (r *TypeTagRegistry) RegisterBuiltin(name string) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.builtinIDs[name]; ok {
		return id
	}
	id := r.nextBuiltin
	r.nextBuiltin++
	r.builtinIDs[name] = id
	r.builtinNames[id] = name
	return id
}

// BuiltinID looks up a previously registered built-in class's id.
func (r *TypeTagRegistry) BuiltinID(name string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.builtinIDs[name]
	return id, ok
}

// BuiltinName is the inverse of BuiltinID, used during restore.
func (r *TypeTagRegistry) BuiltinName(id int32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.builtinNames[id]
	return name, ok
}

// RegisterUserClass registers (idempotently) a factory for a user-defined
// class's internal name.
func (r *TypeTagRegistry) RegisterUserClass(internalName string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userFactories[internalName] = f
}

// DeregisterUserClass removes a registration — supported for tests, per
// §4.2's "removal is supported for tests".
func (r *TypeTagRegistry) DeregisterUserClass(internalName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.userFactories, internalName)
}

// NewShell allocates a fresh, field-empty instance of the named user
// class, for the codec's deferred-restore queue.
func (r *TypeTagRegistry) NewShell(internalName string) (*types.Instance, error) {
	r.mu.RLock()
	f, ok := r.userFactories[internalName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotRegistered, internalName)
	}
	return f(), nil
}

// ClassNameHash computes a class-name digest for registry-drift
// detection. The codec does not call it, so restore does not cross-check
// class ids against it. RIPEMD-160 is used here purely as a stable,
// collision-resistant digest, not for any cryptographic property.
func ClassNameHash(name string) []byte {
	h := ripemd160.New()
	h.Write([]byte(name))
	return h.Sum(nil)
}
