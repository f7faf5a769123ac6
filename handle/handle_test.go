package handle

import (
	"testing"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

func echo(args []types.Value) (types.Value, error) {
	if len(args) == 0 {
		return types.NullValue, nil
	}
	return args[0], nil
}

func TestPlainHandleInvoke(t *testing.T) {
	p := NewPlain("Point", "move", echo)
	v := types.NewFunction(p)
	fn := v.(types.Function)
	got, err := fn.H.(Handle).Invoke([]types.Value{types.Int(5)})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !got.Equal(types.Int(5)) {
		t.Errorf("Invoke = %v, want 5", got)
	}
}

func TestBoundHandlePrependsReceiver(t *testing.T) {
	var captured []types.Value
	p := NewPlain("Point", "move", func(args []types.Value) (types.Value, error) {
		captured = args
		return types.NullValue, nil
	})
	receiver := types.Str("the-receiver")
	bound := p.BindTo(receiver)
	if _, err := bound.Invoke([]types.Value{types.Int(1)}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(captured) != 2 || !captured[0].Equal(receiver) || !captured[1].Equal(types.Int(1)) {
		t.Errorf("captured args = %v, want [receiver, 1]", captured)
	}
}

func TestFunctionCodecRoundTripPlain(t *testing.T) {
	tt := registry.New()
	p := NewPlain("Point", "move", echo)
	fn := types.NewFunction(p)

	w := codec.NewWriter(tt)
	buf, err := w.Encode(fn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	r := codec.NewReader(buf, tt)
	got, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	h, ok := got.(Handle)
	if !ok {
		t.Fatalf("restored value is not a handle.Handle: %T", got)
	}
	if h.HandleKind() != "plain" {
		t.Errorf("HandleKind() = %q, want plain", h.HandleKind())
	}
	restoredPlain := got.(*functionShell).h.(*Plain)
	if restoredPlain.OwnerClass != "Point" || restoredPlain.Field != "move" {
		t.Errorf("restored plain handle = %+v", restoredPlain)
	}
}

func TestFunctionCodecRoundTripWrapperAndBound(t *testing.T) {
	tt := registry.New()
	w := NewWrapper("Math", "sqrt", echo)
	bound := w.BindTo(types.Int(16))

	wr := codec.NewWriter(tt)
	buf, err := wr.Encode(types.NewFunction(bound))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	r := codec.NewReader(buf, tt)
	got, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	h := got.(Handle)
	if h.HandleKind() != "bound" {
		t.Fatalf("HandleKind() = %q, want bound", h.HandleKind())
	}
	shell := got.(*functionShell)
	restoredBound := shell.h.(*Bound)
	if restoredBound.Inner.HandleKind() != "wrapper" {
		t.Errorf("inner handle kind = %q, want wrapper", restoredBound.Inner.HandleKind())
	}
	if !restoredBound.Receiver.Equal(types.Int(16)) {
		t.Errorf("receiver = %v, want 16", restoredBound.Receiver)
	}
}

func TestAttachResolverReachesNestedBound(t *testing.T) {
	p := &Plain{OwnerClass: "X", Field: "f"}
	bound := p.BindTo(types.Int(1)).(*Bound)
	resolverCalled := false
	AttachResolver(bound, fakeResolver{onPlain: func() { resolverCalled = true }})
	if _, err := bound.Invoke(nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !resolverCalled {
		t.Error("expected resolver to be invoked through the nested Plain handle")
	}
}

type fakeResolver struct {
	onPlain func()
}

func (f fakeResolver) ResolvePlain(ownerClass string, builtinID int32, hasBuiltinID bool, field string) (Invoker, error) {
	f.onPlain()
	return echo, nil
}
func (f fakeResolver) ResolveIteratorHandle(variantTag, field string) (Invoker, error) {
	return echo, nil
}
func (f fakeResolver) ResolveWrapper(ownerType, name string) (Invoker, error) { return echo, nil }
