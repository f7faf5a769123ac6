package codec

import (
	"testing"

	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

func encodeDecode(t *testing.T, tt *registry.TypeTagRegistry, v types.Value) types.Value {
	t.Helper()
	w := NewWriter(tt)
	buf, err := w.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := NewReader(buf, tt)
	got, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	tt := registry.New()
	vals := []types.Value{
		types.NullValue,
		types.Bool(true),
		types.Bool(false),
		types.Byte(200),
		types.Int(-12345),
		types.Long(1 << 40),
		types.Double(3.14159),
		types.Decimal{Text: "3.50"},
		types.Decimal{Null: true},
		types.Str("hello, world"),
	}
	for _, v := range vals {
		got := encodeDecode(t, tt, v)
		if !got.Equal(v) {
			t.Errorf("round trip %v: got %v", v, got)
		}
	}
}

func TestRoundTripList(t *testing.T) {
	tt := registry.New()
	l := types.NewList([]types.Value{types.Int(1), types.Str("two"), types.Bool(true)})
	got := encodeDecode(t, tt, l)
	gl, ok := got.(*types.List)
	if !ok || gl.Len() != 3 {
		t.Fatalf("expected 3-element list, got %v", got)
	}
	if !gl.Get(0).Equal(types.Int(1)) || !gl.Get(1).Equal(types.Str("two")) || !gl.Get(2).Equal(types.Bool(true)) {
		t.Errorf("list contents mismatch: %v", gl)
	}
}

func TestRoundTripCyclicList(t *testing.T) {
	tt := registry.New()
	a := types.NewList(nil)
	a.Append(types.Int(1))
	a.Append(a) // a now contains itself

	got := encodeDecode(t, tt, a)
	gl, ok := got.(*types.List)
	if !ok || gl.Len() != 2 {
		t.Fatalf("expected 2-element list, got %v", got)
	}
	if gl.Get(1) != types.Value(gl) {
		t.Errorf("expected self-reference to restore to the same pointer, got %v", gl.Get(1))
	}
}

func TestRoundTripMapOrder(t *testing.T) {
	tt := registry.New()
	m := types.NewMap()
	m.Set(types.Str("z"), types.Int(1))
	m.Set(types.Str("a"), types.Int(2))
	m.Set(types.Str("m"), types.Int(3))

	got := encodeDecode(t, tt, m)
	gm, ok := got.(*types.Map)
	if !ok {
		t.Fatalf("expected *types.Map, got %T", got)
	}
	entries := gm.Entries()
	wantOrder := []string{"z", "a", "m"}
	wantValues := []types.Value{types.Int(1), types.Int(2), types.Int(3)}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, k := range wantOrder {
		if entries[i][0].String() != k {
			t.Errorf("entry %d: got key %q, want %q", i, entries[i][0].String(), k)
		}
		if !entries[i][1].Equal(wantValues[i]) {
			t.Errorf("entry %d: got value %v, want %v", i, entries[i][1], wantValues[i])
		}
	}
}

func TestRoundTripSharedReference(t *testing.T) {
	tt := registry.New()
	shared := types.NewList([]types.Value{types.Int(7)})
	outer := types.NewList([]types.Value{shared, shared})

	got := encodeDecode(t, tt, outer)
	gl := got.(*types.List)
	first := gl.Get(0).(*types.List)
	second := gl.Get(1).(*types.List)
	if first != second {
		t.Errorf("expected shared sub-list to restore to the same pointer")
	}
}

type testClassRef string

func (c testClassRef) InternalName() string { return string(c) }

func TestRoundTripInstance(t *testing.T) {
	tt := registry.New()
	className := "Point"
	tt.RegisterUserClass(className, func() *types.Instance {
		return types.NewInstance(testClassRef(className))
	})

	inst := types.NewInstance(testClassRef(className))
	inst.Fields["x"] = types.Int(3)
	inst.Fields["y"] = types.Int(4)

	got := encodeDecode(t, tt, inst)
	gi, ok := got.(*types.Instance)
	if !ok {
		t.Fatalf("expected *types.Instance, got %T", got)
	}
	if gi.Class.InternalName() != className {
		t.Errorf("class name = %q, want %q", gi.Class.InternalName(), className)
	}
	if !gi.Fields["x"].Equal(types.Int(3)) || !gi.Fields["y"].Equal(types.Int(4)) {
		t.Errorf("fields mismatch: %v", gi.Fields)
	}
}

func TestRoundTripInstanceUnregisteredClass(t *testing.T) {
	tt := registry.New()
	inst := types.NewInstance(testClassRef("Ghost"))
	w := NewWriter(tt)
	buf, err := w.Encode(inst)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := NewReader(buf, registry.New()) // fresh registry, nothing registered
	if _, err := r.Decode(); err == nil {
		t.Fatal("expected error decoding instance of unregistered class")
	}
}

func TestOffsetTableInvariant(t *testing.T) {
	tt := registry.New()
	a := types.NewList([]types.Value{types.Int(1), types.Int(2)})
	w := NewWriter(tt)
	buf, err := w.Encode(a)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := NewReader(buf, tt)
	if _, err := r.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.NumObjects() != 1 {
		t.Errorf("NumObjects() = %d, want 1 (only the shareable List itself)", r.NumObjects())
	}
	if got := r.offsetTableStart(); got <= 0 || got >= len(buf) {
		t.Errorf("offsetTableStart() = %d, want within [1, %d)", got, len(buf))
	}
}
