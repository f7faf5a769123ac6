package iterator

import (
	"fmt"

	"github.com/quilllang/quill/cont"
	"github.com/quilllang/quill/errs"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/types"
)

// wrapSuspend turns a *cont.Suspend raised by a closure into this
// transformer's own wrapping continuation, per spec §4.6: "a transformer
// throws its own wrapping Continuation whose method_location is location
// + 1 ... and whose local_objects[0] is self." Any other error (including
// nil) passes through unchanged.
func wrapSuspend(err error, self Iterator, variantTag string, resumeLocation int) error {
	susp, ok := cont.AsSuspend(err)
	if !ok {
		return err
	}
	mh := handle.NewIteratorHandle(variantTag, "resume", nil)
	return cont.Wrap(susp, mh, resumeLocation, nil, []types.Value{self})
}

// FilterIterator wraps source+closure, keeping a one-element look-ahead
// so HasNext can answer without consuming Next's element.
type FilterIterator struct {
	base
	Source   Iterator
	Closure  handle.Handle
	Location int // even: evaluating closure; odd: resuming after suspend

	peeked    types.Value
	peekValid bool
	pending   types.Value // element currently under closure evaluation, held across a suspension
}

func NewFilterIterator(source Iterator, closure handle.Handle) *FilterIterator {
	return &FilterIterator{Source: source, Closure: closure}
}

func (f *FilterIterator) String() string { return "iterator(filter)" }
func (f *FilterIterator) Equal(v types.Value) bool { o, ok := v.(*FilterIterator); return ok && o == f }

func (f *FilterIterator) truthy(elem types.Value) (bool, error) {
	if f.Closure == nil {
		return elem.Truthy(), nil
	}
	var args []types.Value
	if entry, ok := elem.(*types.List); ok && entry.Len() == 2 {
		args = []types.Value{entry.Get(0), entry.Get(1)}
	} else {
		args = []types.Value{elem}
	}
	result, err := f.Closure.Invoke(args)
	if err != nil {
		return false, wrapSuspend(err, f, "filter", f.Location+1)
	}
	return result.Truthy(), nil
}

func (f *FilterIterator) fill() error {
	if f.peekValid {
		return nil
	}
	for {
		has, err := f.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		elem, err := f.Source.Next()
		if err != nil {
			return err
		}
		f.pending = elem
		f.Location = 0
		ok, err := f.truthy(elem)
		if err != nil {
			return err
		}
		if ok {
			f.peeked = elem
			f.peekValid = true
			return nil
		}
	}
}

func (f *FilterIterator) HasNext() (bool, error) {
	if err := f.fill(); err != nil {
		return false, err
	}
	return f.peekValid, nil
}

func (f *FilterIterator) Next() (types.Value, error) {
	if err := f.fill(); err != nil {
		return nil, err
	}
	if !f.peekValid {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v := f.peeked
	f.peekValid = false
	return v, nil
}

// MapIterator transforms each source element through a closure. The
// with_index form pairs each element with a monotonically increasing
// index that is itself part of persisted state.
type MapIterator struct {
	base
	Source    Iterator
	Closure   handle.Handle
	WithIndex bool
	Index     int64
	Location  int
}

func NewMapIterator(source Iterator, closure handle.Handle, withIndex bool) *MapIterator {
	return &MapIterator{Source: source, Closure: closure, WithIndex: withIndex}
}

func (m *MapIterator) String() string { return "iterator(map)" }
func (m *MapIterator) Equal(v types.Value) bool { o, ok := v.(*MapIterator); return ok && o == m }

func (m *MapIterator) HasNext() (bool, error) { return m.Source.HasNext() }

func (m *MapIterator) Next() (types.Value, error) {
	elem, err := m.Source.Next()
	if err != nil {
		return nil, err
	}
	args := []types.Value{elem}
	if m.WithIndex {
		args = append(args, types.Long(m.Index))
	}
	m.Location = 0
	result, err := m.Closure.Invoke(args)
	if err != nil {
		return nil, wrapSuspend(err, m, "map", m.Location+1)
	}
	if m.WithIndex {
		m.Index++
	}
	return result, nil
}

// FlatMapIterator consumes each inner iterable (produced by Closure from
// a source element) to exhaustion before advancing the outer source.
type FlatMapIterator struct {
	base
	Source  Iterator
	Closure handle.Handle
	inner   Iterator
}

func NewFlatMapIterator(source Iterator, closure handle.Handle) *FlatMapIterator {
	return &FlatMapIterator{Source: source, Closure: closure}
}

func (f *FlatMapIterator) String() string { return "iterator(flat_map)" }
func (f *FlatMapIterator) Equal(v types.Value) bool { o, ok := v.(*FlatMapIterator); return ok && o == f }

func (f *FlatMapIterator) fillInner() error {
	for f.inner == nil {
		has, err := f.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		elem, err := f.Source.Next()
		if err != nil {
			return err
		}
		result, err := f.Closure.Invoke([]types.Value{elem})
		if err != nil {
			return wrapSuspend(err, f, "flat_map", 1)
		}
		it, err := AsIterable(result)
		if err != nil {
			return err
		}
		innerHas, err := it.HasNext()
		if err != nil {
			return err
		}
		if innerHas {
			f.inner = it
		}
	}
	return nil
}

func (f *FlatMapIterator) HasNext() (bool, error) {
	if err := f.fillInner(); err != nil {
		return false, err
	}
	return f.inner != nil, nil
}

func (f *FlatMapIterator) Next() (types.Value, error) {
	if err := f.fillInner(); err != nil {
		return nil, err
	}
	if f.inner == nil {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v, err := f.inner.Next()
	if err != nil {
		return nil, err
	}
	has, err := f.inner.HasNext()
	if err != nil {
		return nil, err
	}
	if !has {
		f.inner = nil
	}
	return v, nil
}

// UniqueIterator emits elements only when not Equal to the previously
// emitted value; First distinguishes "no previous value yet" from a
// previous value that happens to equal the zero Value.
type UniqueIterator struct {
	base
	Source Iterator
	Prev   types.Value
	First  bool

	peeked    types.Value
	peekValid bool
}

func NewUniqueIterator(source Iterator) *UniqueIterator {
	return &UniqueIterator{Source: source, First: true}
}

func (u *UniqueIterator) String() string { return "iterator(unique)" }
func (u *UniqueIterator) Equal(v types.Value) bool { o, ok := v.(*UniqueIterator); return ok && o == u }

func (u *UniqueIterator) fill() error {
	if u.peekValid {
		return nil
	}
	for {
		has, err := u.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		elem, err := u.Source.Next()
		if err != nil {
			return err
		}
		if !u.First && u.Prev.Equal(elem) {
			continue
		}
		u.Prev = elem
		u.First = false
		u.peeked = elem
		u.peekValid = true
		return nil
	}
}

func (u *UniqueIterator) HasNext() (bool, error) {
	if err := u.fill(); err != nil {
		return false, err
	}
	return u.peekValid, nil
}

func (u *UniqueIterator) Next() (types.Value, error) {
	if err := u.fill(); err != nil {
		return nil, err
	}
	if !u.peekValid {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v := u.peeked
	u.peekValid = false
	return v, nil
}

// LimitIterator terminates after N elements (n == 0 yields the empty
// iterator, per spec §4.6's edge cases).
type LimitIterator struct {
	base
	Source  Iterator
	N       int64
	Emitted int64
}

func NewLimitIterator(source Iterator, n int64) *LimitIterator {
	return &LimitIterator{Source: source, N: n}
}

func (l *LimitIterator) String() string { return "iterator(limit)" }
func (l *LimitIterator) Equal(v types.Value) bool { o, ok := v.(*LimitIterator); return ok && o == l }

func (l *LimitIterator) HasNext() (bool, error) {
	if l.Emitted >= l.N {
		return false, nil
	}
	return l.Source.HasNext()
}

func (l *LimitIterator) Next() (types.Value, error) {
	v, err := l.Source.Next()
	if err != nil {
		return nil, err
	}
	l.Emitted++
	return v, nil
}

// NegativeLimitIterator buffers the last |n| values in a circular buffer
// and emits them in order once the source is exhausted, per spec §4.6's
// Limit(n<0) semantics.
type NegativeLimitIterator struct {
	base
	Source Iterator
	N      int64 // stored positive (the |n| count)

	buf       []types.Value
	count     int
	head      int // index of the oldest buffered element
	drained   bool
	emitIndex int
}

func NewNegativeLimitIterator(source Iterator, absN int64) *NegativeLimitIterator {
	return &NegativeLimitIterator{Source: source, N: absN, buf: make([]types.Value, absN)}
}

func (n *NegativeLimitIterator) String() string { return "iterator(negative_limit)" }
func (n *NegativeLimitIterator) Equal(v types.Value) bool {
	o, ok := v.(*NegativeLimitIterator)
	return ok && o == n
}

func (n *NegativeLimitIterator) drain() error {
	if n.drained || n.N == 0 {
		n.drained = true
		return nil
	}
	for {
		has, err := n.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		elem, err := n.Source.Next()
		if err != nil {
			return err
		}
		idx := (n.head + n.count) % len(n.buf)
		if n.count < len(n.buf) {
			n.buf[idx] = elem
			n.count++
		} else {
			n.buf[n.head] = elem
			n.head = (n.head + 1) % len(n.buf)
		}
	}
	n.drained = true
	return nil
}

func (n *NegativeLimitIterator) HasNext() (bool, error) {
	if err := n.drain(); err != nil {
		return false, err
	}
	return n.emitIndex < n.count, nil
}

func (n *NegativeLimitIterator) Next() (types.Value, error) {
	if err := n.drain(); err != nil {
		return nil, err
	}
	idx := (n.head + n.emitIndex) % len(n.buf)
	n.emitIndex++
	return n.buf[idx], nil
}

// SkipIterator drops the first N elements (N >= 0).
type SkipIterator struct {
	base
	Source  Iterator
	N       int64
	skipped bool
}

func NewSkipIterator(source Iterator, n int64) *SkipIterator {
	return &SkipIterator{Source: source, N: n}
}

func (s *SkipIterator) String() string { return "iterator(skip)" }
func (s *SkipIterator) Equal(v types.Value) bool { o, ok := v.(*SkipIterator); return ok && o == s }

func (s *SkipIterator) ensureSkipped() error {
	if s.skipped {
		return nil
	}
	for i := int64(0); i < s.N; i++ {
		has, err := s.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		if _, err := s.Source.Next(); err != nil {
			return err
		}
	}
	s.skipped = true
	return nil
}

func (s *SkipIterator) HasNext() (bool, error) {
	if err := s.ensureSkipped(); err != nil {
		return false, err
	}
	return s.Source.HasNext()
}

func (s *SkipIterator) Next() (types.Value, error) {
	if err := s.ensureSkipped(); err != nil {
		return nil, err
	}
	return s.Source.Next()
}

// NegativeSkipIterator implements skip(n<0): equivalent-to-NegativeLimit
// machinery with the opposite selection — it emits every element except
// the trailing |n|, which requires the same lookahead buffering since the
// boundary is only known once the source is exhausted.
type NegativeSkipIterator struct {
	base
	Source Iterator
	N      int64 // stored positive (the |n| count to drop from the tail)

	buf       []types.Value
	filled    bool
	total     int
	emitIndex int
}

func NewNegativeSkipIterator(source Iterator, absN int64) *NegativeSkipIterator {
	return &NegativeSkipIterator{Source: source, N: absN}
}

func (n *NegativeSkipIterator) String() string { return "iterator(negative_skip)" }
func (n *NegativeSkipIterator) Equal(v types.Value) bool {
	o, ok := v.(*NegativeSkipIterator)
	return ok && o == n
}

func (n *NegativeSkipIterator) fillAll() error {
	if n.filled {
		return nil
	}
	for {
		has, err := n.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		elem, err := n.Source.Next()
		if err != nil {
			return err
		}
		n.buf = append(n.buf, elem)
	}
	n.total = len(n.buf)
	if n.total-int(n.N) < 0 {
		n.total = 0
	} else {
		n.total -= int(n.N)
	}
	n.filled = true
	return nil
}

func (n *NegativeSkipIterator) HasNext() (bool, error) {
	if err := n.fillAll(); err != nil {
		return false, err
	}
	return n.emitIndex < n.total, nil
}

func (n *NegativeSkipIterator) Next() (types.Value, error) {
	if err := n.fillAll(); err != nil {
		return nil, err
	}
	v := n.buf[n.emitIndex]
	n.emitIndex++
	return v, nil
}

// GroupedIterator accumulates sublists of exactly Size elements, the
// final partial group included if nonempty.
type GroupedIterator struct {
	base
	Source Iterator
	Size   int

	peeked    *types.List
	peekValid bool
	exhausted bool
}

func NewGroupedIterator(source Iterator, size int) *GroupedIterator {
	return &GroupedIterator{Source: source, Size: size}
}

func (g *GroupedIterator) String() string { return "iterator(grouped)" }
func (g *GroupedIterator) Equal(v types.Value) bool { o, ok := v.(*GroupedIterator); return ok && o == g }

func (g *GroupedIterator) fill() error {
	if g.peekValid || g.exhausted {
		return nil
	}
	var group []types.Value
	for len(group) < g.Size {
		has, err := g.Source.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		elem, err := g.Source.Next()
		if err != nil {
			return err
		}
		group = append(group, elem)
	}
	if len(group) == 0 {
		g.exhausted = true
		return nil
	}
	g.peeked = types.NewList(group)
	g.peekValid = true
	return nil
}

func (g *GroupedIterator) HasNext() (bool, error) {
	if err := g.fill(); err != nil {
		return false, err
	}
	return g.peekValid, nil
}

func (g *GroupedIterator) Next() (types.Value, error) {
	if err := g.fill(); err != nil {
		return nil, err
	}
	if !g.peekValid {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v := g.peeked
	g.peekValid = false
	return v, nil
}

// TransposeIterator takes a list of iterables; each emission is a list
// composed of one element from each input at the current position,
// substituting null where an input has been exhausted. Emission stops
// once every input is simultaneously exhausted.
type TransposeIterator struct {
	base
	Sources []Iterator

	peeked    *types.List
	peekValid bool
	exhausted bool
}

func NewTransposeIterator(sources []Iterator) *TransposeIterator {
	return &TransposeIterator{Sources: sources}
}

func (t *TransposeIterator) String() string { return "iterator(transpose)" }
func (t *TransposeIterator) Equal(v types.Value) bool { o, ok := v.(*TransposeIterator); return ok && o == t }

func (t *TransposeIterator) fill() error {
	if t.peekValid || t.exhausted {
		return nil
	}
	row := make([]types.Value, len(t.Sources))
	anyHas := false
	for i, src := range t.Sources {
		has, err := src.HasNext()
		if err != nil {
			return err
		}
		if !has {
			row[i] = types.NullValue
			continue
		}
		anyHas = true
		elem, err := src.Next()
		if err != nil {
			return err
		}
		row[i] = elem
	}
	if !anyHas {
		t.exhausted = true
		return nil
	}
	t.peeked = types.NewList(row)
	t.peekValid = true
	return nil
}

func (t *TransposeIterator) HasNext() (bool, error) {
	if err := t.fill(); err != nil {
		return false, err
	}
	return t.peekValid, nil
}

func (t *TransposeIterator) Next() (types.Value, error) {
	if err := t.fill(); err != nil {
		return nil, err
	}
	if !t.peekValid {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v := t.peeked
	t.peekValid = false
	return v, nil
}

// StreamIterator is driven by a caller closure; iteration terminates when
// the closure returns null or raises errs.ErrNull.
type StreamIterator struct {
	base
	Closure handle.Handle

	peeked    types.Value
	peekValid bool
	done      bool
}

func NewStreamIterator(closure handle.Handle) *StreamIterator {
	return &StreamIterator{Closure: closure}
}

func (s *StreamIterator) String() string { return "iterator(stream)" }
func (s *StreamIterator) Equal(v types.Value) bool { o, ok := v.(*StreamIterator); return ok && o == s }

func (s *StreamIterator) fill() error {
	if s.peekValid || s.done {
		return nil
	}
	v, err := s.Closure.Invoke(nil)
	if err != nil {
		if isNullError(err) {
			s.done = true
			return nil
		}
		return wrapSuspend(err, s, "stream", 1)
	}
	if v == nil || v.Tag() == types.TagNull {
		s.done = true
		return nil
	}
	s.peeked = v
	s.peekValid = true
	return nil
}

func isNullError(err error) bool {
	_, ok := err.(*errs.NullError)
	return ok
}

func (s *StreamIterator) HasNext() (bool, error) {
	if err := s.fill(); err != nil {
		return false, err
	}
	return s.peekValid, nil
}

func (s *StreamIterator) Next() (types.Value, error) {
	if err := s.fill(); err != nil {
		return nil, err
	}
	if !s.peekValid {
		return nil, fmt.Errorf("iterator: Next called with no element available")
	}
	v := s.peeked
	s.peekValid = false
	return v, nil
}

// AsIterable adapts a List, Map, or Array value to an Iterator, or
// returns the value itself if it's already one. FlatMap uses this to
// turn each source element's closure result into something it can
// exhaust before advancing.
func AsIterable(v types.Value) (Iterator, error) {
	switch t := v.(type) {
	case Iterator:
		return t, nil
	case *types.List:
		return NewListSource(t), nil
	case *types.Map:
		return NewMapEntriesSource(t), nil
	case *types.Array:
		return NewArraySource(t), nil
	default:
		return nil, fmt.Errorf("iterator: value of type %s is not iterable", v.Tag())
	}
}
