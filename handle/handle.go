// Package handle implements the Method Handle Model (spec §4.3): four
// variants of a serializable callable reference, each knowing how to
// encode its own identity and how to reacquire the underlying invocable
// on restore.
//
// Each variant registers itself with the codec via an init()-time call to
// codec.RegisterTagCodec for TagFunction, so that package codec never
// needs to import package handle.
package handle

import (
	"fmt"

	"github.com/quilllang/quill/types"
)

// Invoker is the actual Go callable a handle ultimately resolves to.
// Wired up by the embedding runtime (compiler-emitted resume
// entrypoints, or host-registered functions); handle itself only carries
// identity, not code.
type Invoker func(args []types.Value) (types.Value, error)

// Resolver is supplied by the embedding runtime to turn a handle's
// encoded identity back into a live Invoker on restore, since the handle
// package has no notion of classes, fields, or the function registry by
// itself.
type Resolver interface {
	// ResolvePlain looks up a class's pre-stored handle field by
	// (owning class name or built-in id) and field name.
	ResolvePlain(ownerClass string, builtinID int32, hasBuiltinID bool, field string) (Invoker, error)

	// ResolveIteratorHandle looks up the class implementing an
	// iterator variant and reflects the named field.
	ResolveIteratorHandle(variantTag string, field string) (Invoker, error)

	// ResolveWrapper looks up a registered function by (owner type,
	// name) in the FunctionRegistry.
	ResolveWrapper(ownerType, name string) (Invoker, error)
}

// Handle is implemented by all four method handle variants, and is the
// concrete type behind types.Invocable for this runtime.
type Handle interface {
	types.Invocable
	// Invoke calls the underlying callable, resolving it first if this
	// handle has not yet been materialized (lazy bound-handle case).
	Invoke(args []types.Value) (types.Value, error)
	// BindTo returns a new Bound handle wrapping this one, without
	// mutating the receiver.
	BindTo(receiver types.Value) Handle
}

// Plain is a direct reference to a class's pre-stored method handle
// field: the simplest variant, used for ordinary compiled methods.
type Plain struct {
	OwnerClass   string // internal class name; empty if builtin
	BuiltinID    int32
	HasBuiltinID bool
	Field        string

	resolved Invoker // nil until resolved (fresh from the compiler, or restored)
	resolver Resolver
}

func NewPlain(ownerClass string, field string, fn Invoker) *Plain {
	return &Plain{OwnerClass: ownerClass, Field: field, resolved: fn}
}

func NewBuiltinPlain(builtinID int32, field string, fn Invoker) *Plain {
	return &Plain{BuiltinID: builtinID, HasBuiltinID: true, Field: field, resolved: fn}
}

func (p *Plain) HandleKind() string { return "plain" }
func (p *Plain) Identity() string {
	if p.HasBuiltinID {
		return fmt.Sprintf("builtin:%d#%s", p.BuiltinID, p.Field)
	}
	return fmt.Sprintf("%s#%s", p.OwnerClass, p.Field)
}

func (p *Plain) Invoke(args []types.Value) (types.Value, error) {
	if p.resolved == nil {
		if p.resolver == nil {
			return nil, fmt.Errorf("handle: plain handle %s not resolved and no resolver attached", p.Identity())
		}
		inv, err := p.resolver.ResolvePlain(p.OwnerClass, p.BuiltinID, p.HasBuiltinID, p.Field)
		if err != nil {
			return nil, err
		}
		p.resolved = inv
	}
	return p.resolved(args)
}

func (p *Plain) BindTo(receiver types.Value) Handle {
	return &Bound{Inner: p, Receiver: receiver}
}

// IteratorHandle references a method on one of the built-in iterator
// variant implementations (spec §4.6), identified by the variant's tag
// name rather than a class name since iterator variants are not
// user-registerable classes.
type IteratorHandle struct {
	VariantTag string
	Field      string

	resolved Invoker
	resolver Resolver
}

func NewIteratorHandle(variantTag, field string, fn Invoker) *IteratorHandle {
	return &IteratorHandle{VariantTag: variantTag, Field: field, resolved: fn}
}

func (h *IteratorHandle) HandleKind() string { return "iterator" }
func (h *IteratorHandle) Identity() string   { return h.VariantTag + "#" + h.Field }

func (h *IteratorHandle) Invoke(args []types.Value) (types.Value, error) {
	if h.resolved == nil {
		if h.resolver == nil {
			return nil, fmt.Errorf("handle: iterator handle %s not resolved and no resolver attached", h.Identity())
		}
		inv, err := h.resolver.ResolveIteratorHandle(h.VariantTag, h.Field)
		if err != nil {
			return nil, err
		}
		h.resolved = inv
	}
	return h.resolved(args)
}

func (h *IteratorHandle) BindTo(receiver types.Value) Handle {
	return &Bound{Inner: h, Receiver: receiver}
}

// Wrapper references a function registered with the FunctionRegistry
// (spec §6's register_function/register_method), re-resolved on restore
// by (owner type, name) lookup rather than by reflecting a stored field —
// this is the variant host-registered builtins and dynamically
// registered script functions use.
type Wrapper struct {
	OwnerType string // empty for a global function
	Name      string

	resolved Invoker
	resolver Resolver
}

func NewWrapper(ownerType, name string, fn Invoker) *Wrapper {
	return &Wrapper{OwnerType: ownerType, Name: name, resolved: fn}
}

func (w *Wrapper) HandleKind() string { return "wrapper" }
func (w *Wrapper) Identity() string   { return w.OwnerType + "::" + w.Name }

func (w *Wrapper) Invoke(args []types.Value) (types.Value, error) {
	if w.resolved == nil {
		if w.resolver == nil {
			return nil, fmt.Errorf("handle: wrapper handle %s not resolved and no resolver attached", w.Identity())
		}
		inv, err := w.resolver.ResolveWrapper(w.OwnerType, w.Name)
		if err != nil {
			return nil, err
		}
		w.resolved = inv
	}
	return w.resolved(args)
}

func (w *Wrapper) BindTo(receiver types.Value) Handle {
	return &Bound{Inner: w, Receiver: receiver}
}

// Bound wraps an inner handle together with a receiver value, prepending
// the receiver to every call's argument list. Materialization of the
// inner handle is itself lazy — Invoke resolves Inner only when first
// called, matching spec §4.3's "bound handles may defer the underlying
// bind until first call".
type Bound struct {
	Inner    Handle
	Receiver types.Value
}

func (b *Bound) HandleKind() string { return "bound" }
func (b *Bound) Identity() string   { return b.Inner.Identity() + "@" + b.Receiver.String() }

func (b *Bound) Invoke(args []types.Value) (types.Value, error) {
	full := make([]types.Value, 0, len(args)+1)
	full = append(full, b.Receiver)
	full = append(full, args...)
	return b.Inner.Invoke(full)
}

func (b *Bound) BindTo(receiver types.Value) Handle {
	return &Bound{Inner: b, Receiver: receiver}
}

// AttachResolver wires a Resolver into any handle that will need to
// re-resolve a live Invoker after restore (i.e. every variant except one
// freshly constructed with a non-nil Invoker already in hand).
func AttachResolver(h Handle, r Resolver) {
	switch v := h.(type) {
	case *Plain:
		v.resolver = r
	case *IteratorHandle:
		v.resolver = r
	case *Wrapper:
		v.resolver = r
	case *Bound:
		AttachResolver(v.Inner, r)
	case *functionShell:
		AttachResolver(v.h, r)
	}
}
