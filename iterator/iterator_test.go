package iterator

import (
	"fmt"
	"testing"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

func drain(t *testing.T, it Iterator) []types.Value {
	t.Helper()
	var out []types.Value
	for {
		has, err := it.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !has {
			return out
		}
		v, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, v)
	}
}

func ints(vs ...int32) []types.Value {
	out := make([]types.Value, len(vs))
	for i, v := range vs {
		out[i] = types.Int(v)
	}
	return out
}

func assertIntList(t *testing.T, got []types.Value, want ...int32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i, w := range want {
		if !got[i].Equal(types.Int(w)) {
			t.Errorf("element %d = %v, want %d", i, got[i], w)
		}
	}
}

func TestGroupedIterator(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 2, 3, 4, 5)))
	grouped := NewGroupedIterator(src, 2)
	groups := drain(t, grouped)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	assertIntList(t, groups[0].(*types.List).Elems, 1, 2)
	assertIntList(t, groups[1].(*types.List).Elems, 3, 4)
	assertIntList(t, groups[2].(*types.List).Elems, 5)
}

func TestTransposeRagged(t *testing.T) {
	a := NewListSource(types.NewList(ints(1, 2, 3)))
	b := NewListSource(types.NewList(ints(10, 20)))
	transpose := NewTransposeIterator([]Iterator{a, b})
	rows := drain(t, transpose)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	assertIntList(t, rows[0].(*types.List).Elems, 1, 10)
	assertIntList(t, rows[1].(*types.List).Elems, 2, 20)
	row3 := rows[2].(*types.List)
	if !row3.Get(0).Equal(types.Int(3)) {
		t.Errorf("row3[0] = %v, want 3", row3.Get(0))
	}
	if row3.Get(1).Tag() != types.TagNull {
		t.Errorf("row3[1] = %v, want null padding", row3.Get(1))
	}
}

func TestLimitZeroYieldsEmpty(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 2, 3)))
	limit := NewLimitIterator(src, 0)
	if got := drain(t, limit); len(got) != 0 {
		t.Errorf("limit(0) yielded %v, want empty", got)
	}
}

func TestSkipPastEndYieldsEmpty(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 2, 3)))
	skip := NewSkipIterator(src, 10)
	if got := drain(t, skip); len(got) != 0 {
		t.Errorf("skip(10) over 3 elements yielded %v, want empty", got)
	}
}

func TestNegativeLimitBuffersTail(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 2, 3, 4, 5)))
	nl := NewNegativeLimitIterator(src, 2)
	assertIntList(t, drain(t, nl), 4, 5)
}

func TestNegativeSkipDropsTail(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 2, 3, 4, 5)))
	ns := NewNegativeSkipIterator(src, 2)
	assertIntList(t, drain(t, ns), 1, 2, 3)
}

func TestUniqueDropsConsecutiveDuplicates(t *testing.T) {
	src := NewListSource(types.NewList(ints(1, 1, 2, 2, 2, 3, 1)))
	uniq := NewUniqueIterator(src)
	assertIntList(t, drain(t, uniq), 1, 2, 3, 1)
}

func TestMapEntriesSourcePreservesInsertionOrder(t *testing.T) {
	m := types.NewMap()
	m.Set(types.Str("z"), types.Int(1))
	m.Set(types.Str("a"), types.Int(2))
	m.Set(types.Str("m"), types.Int(3))
	src := NewMapEntriesSource(m)
	entries := drain(t, src)
	want := []string{"z", "a", "m"}
	for i, w := range want {
		k := entries[i].(*types.List).Get(0).(types.Str)
		if string(k) != w {
			t.Errorf("entry %d key = %q, want %q", i, k, w)
		}
	}
}

// incrClosure builds a map(x -> x+1) closure handle, used to mirror the
// spec's literal mid-consume scenario.
func incrClosure() handle.Handle {
	return handle.NewWrapper("", "incr", incrInvoker)
}

func oddClosure() handle.Handle {
	return handle.NewWrapper("", "isOdd", isOddInvoker)
}

func TestIteratorMidConsumeCheckpointRestore(t *testing.T) {
	reg := registry.New()

	source := NewListSource(types.NewList(ints(10, 20, 30, 40, 50)))
	mapped := NewMapIterator(source, incrClosure(), false)
	filtered := NewFilterIterator(mapped, oddClosure())

	has, err := filtered.HasNext()
	if err != nil || !has {
		t.Fatalf("HasNext: %v, %v", has, err)
	}
	first, err := filtered.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !first.Equal(types.Int(11)) {
		t.Fatalf("first element = %v, want 11", first)
	}

	w := codec.NewWriter(reg)
	bytes, err := w.Encode(filtered)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	r := codec.NewReader(bytes, reg)
	restoredVal, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	restored, ok := restoredVal.(*FilterIterator)
	if !ok {
		t.Fatalf("restored value is not a *FilterIterator: %T", restoredVal)
	}

	// Closures aren't Go funcs on the wire, only (owner type, name)
	// identities (spec §4.3) — the embedding runtime re-resolves them via
	// a Resolver after restore, exactly as it would for any other
	// registered function.
	resolver := funcResolver{
		"incr":  incrInvoker,
		"isOdd": isOddInvoker,
	}
	handle.AttachResolver(restored.Closure, resolver)
	restoredMapped, ok := restored.Source.(*MapIterator)
	if !ok {
		t.Fatalf("restored filter's source is not a *MapIterator: %T", restored.Source)
	}
	handle.AttachResolver(restoredMapped.Closure, resolver)

	rest := drain(t, restored)
	assertIntList(t, rest, 21, 31, 41, 51)
}

// funcResolver resolves registered-function identities by name, standing
// in for the embedding runtime's FunctionRegistry-backed handle.Resolver.
type funcResolver map[string]handle.Invoker

func (r funcResolver) ResolvePlain(string, int32, bool, string) (handle.Invoker, error) {
	return nil, errFuncResolverUnsupported
}
func (r funcResolver) ResolveIteratorHandle(string, string) (handle.Invoker, error) {
	return nil, errFuncResolverUnsupported
}
func (r funcResolver) ResolveWrapper(ownerType, name string) (handle.Invoker, error) {
	fn, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("funcResolver: no function named %q", name)
	}
	return fn, nil
}

var errFuncResolverUnsupported = fmt.Errorf("funcResolver: only ResolveWrapper is supported")

func incrInvoker(args []types.Value) (types.Value, error) {
	n := args[0].(types.Int)
	return types.Int(n + 1), nil
}

func isOddInvoker(args []types.Value) (types.Value, error) {
	n := args[0].(types.Int)
	return types.Bool(n%2 != 0), nil
}

func TestCodecRoundTripRangeSource(t *testing.T) {
	reg := registry.New()
	rng, err := NewRangeSource(0, 5, 1)
	if err != nil {
		t.Fatalf("NewRangeSource: %v", err)
	}
	if _, err := rng.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}

	w := codec.NewWriter(reg)
	bytes, err := w.Encode(rng)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	r := codec.NewReader(bytes, reg)
	restoredVal, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	restored := restoredVal.(*RangeSource)
	// RangeSource emits Long values.
	got := drain(t, restored)
	want := []int64{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d (got %v)", len(got), len(want), got)
	}
	for i, w := range want {
		if !got[i].Equal(types.Long(w)) {
			t.Errorf("element %d = %v, want %d", i, got[i], w)
		}
	}
}

func TestStringSplitSource(t *testing.T) {
	src, err := NewStringSplitSource("a, b,  c", ",\\s*", "")
	if err != nil {
		t.Fatalf("NewStringSplitSource: %v", err)
	}
	var parts []string
	for {
		has, err := src.HasNext()
		if err != nil {
			t.Fatalf("HasNext: %v", err)
		}
		if !has {
			break
		}
		v, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		parts = append(parts, string(v.(types.Str)))
	}
	want := []string{"a", "b", "c"}
	if len(parts) != len(want) {
		t.Fatalf("parts = %v, want %v", parts, want)
	}
	for i, w := range want {
		if parts[i] != w {
			t.Errorf("part %d = %q, want %q", i, parts[i], w)
		}
	}
}

func TestFlatMapExhaustsInnerBeforeAdvancing(t *testing.T) {
	source := NewListSource(types.NewList(ints(1, 2)))
	dup := handle.NewWrapper("", "dup", func(args []types.Value) (types.Value, error) {
		n := args[0].(types.Int)
		return types.NewList([]types.Value{n, n}), nil
	})
	fm := NewFlatMapIterator(source, dup)
	assertIntList(t, drain(t, fm), 1, 1, 2, 2)
}
