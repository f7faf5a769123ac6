package conformance

import (
	"fmt"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/iterator"
	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

// Closures is the fixed set of named callables a case's pipeline stages
// may reference (spec's closures are compiler-emitted; here they stand in
// for the handful a conformance case needs).
var Closures = map[string]handle.Invoker{
	"increment": func(args []types.Value) (types.Value, error) {
		return types.Int(args[0].(types.Int) + 1), nil
	},
	"double": func(args []types.Value) (types.Value, error) {
		return types.Int(args[0].(types.Int) * 2), nil
	},
	"square": func(args []types.Value) (types.Value, error) {
		n := args[0].(types.Int)
		return types.Int(n * n), nil
	},
	"is_odd": func(args []types.Value) (types.Value, error) {
		return types.Bool(args[0].(types.Int)%2 != 0), nil
	},
	"is_even": func(args []types.Value) (types.Value, error) {
		return types.Bool(args[0].(types.Int)%2 == 0), nil
	},
	"duplicate": func(args []types.Value) (types.Value, error) {
		return types.NewList([]types.Value{args[0], args[0]}), nil
	},
	"entry_value": func(args []types.Value) (types.Value, error) {
		return args[0].(*types.List).Get(1), nil
	},
}

// builtinResolver re-resolves a case's named closures by ResolveWrapper
// lookup, standing in for the embedding runtime's function registry the
// way the test files in package iterator do.
type builtinResolver struct{}

func (builtinResolver) ResolvePlain(string, int32, bool, string) (handle.Invoker, error) {
	return nil, fmt.Errorf("conformance: plain handles are not used by YAML cases")
}

func (builtinResolver) ResolveIteratorHandle(string, string) (handle.Invoker, error) {
	return nil, fmt.Errorf("conformance: iterator-handle resolution is not exercised by YAML cases")
}

func (builtinResolver) ResolveWrapper(ownerType, name string) (handle.Invoker, error) {
	fn, ok := Closures[name]
	if !ok {
		return nil, fmt.Errorf("conformance: no builtin closure named %q", name)
	}
	return fn, nil
}

func closureHandle(name string) (handle.Handle, error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := Closures[name]
	if !ok {
		return nil, fmt.Errorf("conformance: unknown closure %q", name)
	}
	return handle.NewWrapper("", name, fn), nil
}

// BuildSource materializes a SourceSpec into a fresh Iterator.
func BuildSource(spec SourceSpec) (iterator.Iterator, error) {
	switch spec.Type {
	case "list":
		elems := make([]types.Value, len(spec.Ints))
		for i, n := range spec.Ints {
			elems[i] = types.Int(n)
		}
		return iterator.NewListSource(types.NewList(elems)), nil
	case "range":
		return iterator.NewRangeSource(spec.Start, spec.End, spec.Step)
	case "chars":
		return iterator.NewCharsSource(spec.Chars), nil
	case "map":
		m := types.NewMap()
		for _, e := range spec.Entries {
			m.Set(types.Str(e.Key), types.Int(e.Value))
		}
		return iterator.NewMapEntriesSource(m), nil
	default:
		return nil, fmt.Errorf("conformance: unknown source type %q", spec.Type)
	}
}

// BuildPipeline layers a case's stages over source in order.
func BuildPipeline(source iterator.Iterator, stages []StageSpec) (iterator.Iterator, error) {
	cur := source
	for _, stage := range stages {
		closure, err := closureHandle(stage.Closure)
		if err != nil {
			return nil, err
		}
		switch stage.Op {
		case "filter":
			cur = iterator.NewFilterIterator(cur, closure)
		case "map":
			cur = iterator.NewMapIterator(cur, closure, false)
		case "map_with_index":
			cur = iterator.NewMapIterator(cur, closure, true)
		case "flat_map":
			cur = iterator.NewFlatMapIterator(cur, closure)
		case "unique":
			cur = iterator.NewUniqueIterator(cur)
		case "limit":
			if stage.N < 0 {
				cur = iterator.NewNegativeLimitIterator(cur, -stage.N)
			} else {
				cur = iterator.NewLimitIterator(cur, stage.N)
			}
		case "skip":
			if stage.N < 0 {
				cur = iterator.NewNegativeSkipIterator(cur, -stage.N)
			} else {
				cur = iterator.NewSkipIterator(cur, stage.N)
			}
		case "grouped":
			cur = iterator.NewGroupedIterator(cur, int(stage.N))
		default:
			return nil, fmt.Errorf("conformance: unknown pipeline op %q", stage.Op)
		}
	}
	return cur, nil
}

// attachResolvers walks every closure-bearing node reachable from it,
// wiring in a Resolver so a freshly-restored chain's handles can be
// invoked again without ever having to serialize a Go func value (spec
// §4.3: handle identity, not the callable, crosses the wire).
func attachResolvers(it iterator.Iterator, r handle.Resolver) {
	switch v := it.(type) {
	case *iterator.FilterIterator:
		if v.Closure != nil {
			handle.AttachResolver(v.Closure, r)
		}
		attachResolvers(v.Source, r)
	case *iterator.MapIterator:
		if v.Closure != nil {
			handle.AttachResolver(v.Closure, r)
		}
		attachResolvers(v.Source, r)
	case *iterator.FlatMapIterator:
		if v.Closure != nil {
			handle.AttachResolver(v.Closure, r)
		}
		attachResolvers(v.Source, r)
	case *iterator.StreamIterator:
		if v.Closure != nil {
			handle.AttachResolver(v.Closure, r)
		}
	case *iterator.UniqueIterator:
		attachResolvers(v.Source, r)
	case *iterator.LimitIterator:
		attachResolvers(v.Source, r)
	case *iterator.NegativeLimitIterator:
		attachResolvers(v.Source, r)
	case *iterator.SkipIterator:
		attachResolvers(v.Source, r)
	case *iterator.NegativeSkipIterator:
		attachResolvers(v.Source, r)
	case *iterator.GroupedIterator:
		attachResolvers(v.Source, r)
	case *iterator.TransposeIterator:
		for _, s := range v.Sources {
			attachResolvers(s, r)
		}
	}
}

// RestoreIterator decodes a checkpointed iterator from bytes and wires
// the builtin closure resolver onto every handle it finds, ready to
// drain. Hosts with their own function registry use codec.NewReader and
// handle.AttachResolver directly instead; this wrapper exists for callers
// (like cmd/quillrun) that only need the fixed demo closure set.
func RestoreIterator(bytes []byte, reg *registry.TypeTagRegistry) (iterator.Iterator, error) {
	r := codec.NewReader(bytes, reg)
	v, err := r.Decode()
	if err != nil {
		return nil, err
	}
	it, ok := v.(iterator.Iterator)
	if !ok {
		return nil, fmt.Errorf("conformance: restored value %T is not an Iterator", v)
	}
	attachResolvers(it, builtinResolver{})
	return it, nil
}

// Drain exhausts it into a slice of values.
func Drain(it iterator.Iterator) ([]types.Value, error) {
	var out []types.Value
	for {
		has, err := it.HasNext()
		if err != nil {
			return nil, err
		}
		if !has {
			return out, nil
		}
		v, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// CaseResult is the outcome of running one TestCase.
type CaseResult struct {
	Test    LoadedTest
	Skipped bool
	Reason  string
	Err     error
}

// Passed reports whether the case neither errored nor was skipped.
func (r CaseResult) Passed() bool { return !r.Skipped && r.Err == nil }

// Runner executes checkpoint/restore conformance cases end to end: build
// the pipeline, consume a prefix, checkpoint through the codec, restore
// into a fresh registry, re-attach closure resolvers, and compare the
// rest of the drain against Expect.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

func (rn *Runner) Run(lt LoadedTest) CaseResult {
	tc := lt.Test
	if skip, reason := tc.IsSkipped(); skip {
		return CaseResult{Test: lt, Skipped: true, Reason: reason}
	}

	source, err := BuildSource(tc.Source)
	if err != nil {
		return CaseResult{Test: lt, Err: err}
	}
	pipeline, err := BuildPipeline(source, tc.Pipeline)
	if err != nil {
		return CaseResult{Test: lt, Err: err}
	}

	for i := 0; i < tc.ConsumeBeforeCheckpoint; i++ {
		has, err := pipeline.HasNext()
		if err != nil {
			return CaseResult{Test: lt, Err: fmt.Errorf("consuming prefix: %w", err)}
		}
		if !has {
			return CaseResult{Test: lt, Err: fmt.Errorf("consume_before_checkpoint %d exceeds source length", tc.ConsumeBeforeCheckpoint)}
		}
		if _, err := pipeline.Next(); err != nil {
			return CaseResult{Test: lt, Err: fmt.Errorf("consuming prefix: %w", err)}
		}
	}

	reg := registry.New()
	w := codec.NewWriter(reg)
	bytes, err := w.Encode(pipeline)
	if err != nil {
		return CaseResult{Test: lt, Err: fmt.Errorf("checkpoint encode: %w", err)}
	}

	restored, err := RestoreIterator(bytes, registry.New())
	if err != nil {
		return CaseResult{Test: lt, Err: fmt.Errorf("checkpoint decode: %w", err)}
	}

	got, err := Drain(restored)
	if err != nil {
		return CaseResult{Test: lt, Err: fmt.Errorf("draining restored iterator: %w", err)}
	}

	if err := checkExpectation(tc.Expect, got); err != nil {
		return CaseResult{Test: lt, Err: err}
	}
	return CaseResult{Test: lt}
}

// RunAll runs every loaded case.
func (rn *Runner) RunAll(tests []LoadedTest) []CaseResult {
	out := make([]CaseResult, len(tests))
	for i, t := range tests {
		out[i] = rn.Run(t)
	}
	return out
}

func checkExpectation(expect Expectation, got []types.Value) error {
	switch {
	case expect.Ints != nil:
		if len(got) != len(expect.Ints) {
			return fmt.Errorf("got %d elements, want %d (%v)", len(got), len(expect.Ints), got)
		}
		for i, want := range expect.Ints {
			// Range sources emit Long values; list and map sources emit Int.
			if !got[i].Equal(types.Int(want)) && !got[i].Equal(types.Long(want)) {
				return fmt.Errorf("element %d = %v, want %d", i, got[i], want)
			}
		}
		return nil
	case expect.Strs != nil:
		if len(got) != len(expect.Strs) {
			return fmt.Errorf("got %d elements, want %d (%v)", len(got), len(expect.Strs), got)
		}
		for i, want := range expect.Strs {
			s, ok := got[i].(types.Str)
			if !ok || string(s) != want {
				return fmt.Errorf("element %d = %v, want %q", i, got[i], want)
			}
		}
		return nil
	default:
		return fmt.Errorf("case has no expectation")
	}
}

// SummaryStats tallies a batch of results.
type SummaryStats struct {
	Total, Passed, Failed, Skipped int
}

func ComputeStats(results []CaseResult) SummaryStats {
	s := SummaryStats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Passed():
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

func (s SummaryStats) String() string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)", s.Passed, s.Failed, s.Skipped, s.Total)
}
