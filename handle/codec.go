package handle

import (
	"fmt"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/types"
)

// variant ordinals for the FUNCTION tag's payload discriminant.
const (
	variantPlain byte = iota
	variantIterator
	variantWrapper
	variantBound
)

func init() {
	codec.RegisterTagCodec(types.TagFunction, codec.ExternalCodec{
		EncodePayload: encodeFunction,
		NewShell:      newFunctionShell,
		FillPayload:   fillFunction,
	})
}

// handleOf extracts the underlying Handle from either a freshly
// constructed types.Function (the shape engine code builds) or a
// *functionShell (the shape a restored FUNCTION value takes, so that a
// restore-then-checkpoint round trip re-encodes correctly).
func handleOf(v types.Value) (Handle, error) {
	switch vv := v.(type) {
	case types.Function:
		h, ok := vv.H.(Handle)
		if !ok {
			return nil, fmt.Errorf("handle: types.Function.H is not a handle.Handle (got %T)", vv.H)
		}
		return h, nil
	case *functionShell:
		return vv.h, nil
	default:
		return nil, fmt.Errorf("handle: expected types.Function or *functionShell, got %T", v)
	}
}

func encodeFunction(w *codec.Writer, v types.Value) error {
	h, err := handleOf(v)
	if err != nil {
		return err
	}
	switch h := h.(type) {
	case *Plain:
		w.WriteByte(variantPlain)
		w.WriteByte(boolByte(h.HasBuiltinID))
		if h.HasBuiltinID {
			w.WriteVarint(uint32(h.BuiltinID))
		} else {
			w.WriteString(h.OwnerClass)
		}
		w.WriteString(h.Field)
		return nil
	case *IteratorHandle:
		w.WriteByte(variantIterator)
		w.WriteString(h.VariantTag)
		w.WriteString(h.Field)
		return nil
	case *Wrapper:
		w.WriteByte(variantWrapper)
		w.WriteString(h.OwnerType)
		w.WriteString(h.Name)
		return nil
	case *Bound:
		w.WriteByte(variantBound)
		if err := w.WriteValue(types.NewFunction(h.Inner)); err != nil {
			return err
		}
		return w.WriteValue(h.Receiver)
	default:
		return fmt.Errorf("handle: unknown Invocable concrete type %T", h)
	}
}

// functionShell is a restored FUNCTION value: a pointer-identity wrapper
// around the decoded Handle, registered in the reader's slot table before
// its (possibly self-referential, via a closure capturing its own
// handle) payload is filled in. It implements handle.Handle and
// types.Invocable by delegation, so callers never need to unwrap it back
// into a types.Function to invoke or re-bind it, and re-encoding a
// restored function (restore-then-checkpoint) works unchanged.
type functionShell struct {
	h Handle
}

func (s *functionShell) Tag() types.Tag { return types.TagFunction }
func (s *functionShell) String() string { return types.Function{H: s.h}.String() }
func (s *functionShell) Truthy() bool   { return true }
func (s *functionShell) Equal(v types.Value) bool {
	o, ok := v.(*functionShell)
	return ok && o == s
}

func (s *functionShell) HandleKind() string { return s.h.HandleKind() }
func (s *functionShell) Identity() string   { return s.h.Identity() }
func (s *functionShell) Invoke(args []types.Value) (types.Value, error) {
	return s.h.Invoke(args)
}
func (s *functionShell) BindTo(receiver types.Value) Handle { return s.h.BindTo(receiver) }

func newFunctionShell(r *codec.Reader) (types.Value, error) {
	variant, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch variant {
	case variantPlain:
		return &functionShell{h: &Plain{}}, nil
	case variantIterator:
		return &functionShell{h: &IteratorHandle{}}, nil
	case variantWrapper:
		return &functionShell{h: &Wrapper{}}, nil
	case variantBound:
		return &functionShell{h: &Bound{}}, nil
	default:
		return nil, fmt.Errorf("handle: unknown function variant byte %d", variant)
	}
}

func fillFunction(r *codec.Reader, shell types.Value) error {
	s := shell.(*functionShell)
	switch h := s.h.(type) {
	case *Plain:
		hasBuiltin, err := r.ReadByte()
		if err != nil {
			return err
		}
		h.HasBuiltinID = hasBuiltin != 0
		if h.HasBuiltinID {
			id, err := r.ReadVarint()
			if err != nil {
				return err
			}
			h.BuiltinID = int32(id)
		} else {
			name, err := r.ReadString()
			if err != nil {
				return err
			}
			h.OwnerClass = name
		}
		field, err := r.ReadString()
		if err != nil {
			return err
		}
		h.Field = field
		return nil
	case *IteratorHandle:
		tag, err := r.ReadString()
		if err != nil {
			return err
		}
		field, err := r.ReadString()
		if err != nil {
			return err
		}
		h.VariantTag, h.Field = tag, field
		return nil
	case *Wrapper:
		owner, err := r.ReadString()
		if err != nil {
			return err
		}
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		h.OwnerType, h.Name = owner, name
		return nil
	case *Bound:
		inner, err := r.ReadValue()
		if err != nil {
			return err
		}
		innerHandle, err := handleOf(inner)
		if err != nil {
			return fmt.Errorf("handle: bound handle's inner value: %w", err)
		}
		h.Inner = innerHandle
		receiver, err := r.ReadValue()
		if err != nil {
			return err
		}
		h.Receiver = receiver
		return nil
	default:
		return fmt.Errorf("handle: unknown shell kind %T", s.h)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
