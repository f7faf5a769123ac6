package iterator

import (
	"fmt"
	"regexp"

	"github.com/quilllang/quill/types"
)

// ListSource walks a *types.List by index, per spec §4.6's "source
// variants iterate an underlying concrete collection and maintain only an
// index".
type ListSource struct {
	base
	List  *types.List
	Index int
}

func NewListSource(list *types.List) *ListSource { return &ListSource{List: list} }

func (s *ListSource) String() string { return fmt.Sprintf("iterator(list@%d)", s.Index) }
func (s *ListSource) Equal(v types.Value) bool { o, ok := v.(*ListSource); return ok && o == s }

func (s *ListSource) HasNext() (bool, error) { return s.Index < s.List.Len(), nil }
func (s *ListSource) Next() (types.Value, error) {
	v := s.List.Get(s.Index)
	s.Index++
	return v, nil
}

// MapEntriesSource snapshots a map's entries at construction (insertion
// order is assumed stable per spec §4.6's edge case note) and walks them
// by index. StartingCount records the entry count at construction; it is
// not compared against the map later, so a map that changed shape before
// a restore is not detected.
type MapEntriesSource struct {
	base
	Map           *types.Map
	entries       [][2]types.Value
	Index         int
	StartingCount int
}

func NewMapEntriesSource(m *types.Map) *MapEntriesSource {
	entries := m.Entries()
	return &MapEntriesSource{Map: m, entries: entries, StartingCount: len(entries)}
}

func (s *MapEntriesSource) String() string { return fmt.Sprintf("iterator(map@%d)", s.Index) }
func (s *MapEntriesSource) Equal(v types.Value) bool { o, ok := v.(*MapEntriesSource); return ok && o == s }

func (s *MapEntriesSource) reseek() {
	if s.entries == nil {
		s.entries = s.Map.Entries()
	}
}

func (s *MapEntriesSource) HasNext() (bool, error) {
	s.reseek()
	return s.Index < len(s.entries), nil
}

func (s *MapEntriesSource) Next() (types.Value, error) {
	s.reseek()
	kv := s.entries[s.Index]
	s.Index++
	return entryList(kv[0], kv[1]), nil
}

// ArraySource walks a *types.Array by index.
type ArraySource struct {
	base
	Array *types.Array
	Index int
}

func NewArraySource(a *types.Array) *ArraySource { return &ArraySource{Array: a} }

func (s *ArraySource) String() string { return fmt.Sprintf("iterator(array@%d)", s.Index) }
func (s *ArraySource) Equal(v types.Value) bool { o, ok := v.(*ArraySource); return ok && o == s }

func (s *ArraySource) HasNext() (bool, error) { return s.Index < len(s.Array.Elems), nil }
func (s *ArraySource) Next() (types.Value, error) {
	v := s.Array.Elems[s.Index]
	s.Index++
	return v, nil
}

// RangeSource emits Long values over [Start, End) stepping by Step
// (negative Step walks downward; Step == 0 is a construction error
// rejected by NewRangeSource). Current holds the next value to emit.
type RangeSource struct {
	base
	Start, End, Step int64
	Current          int64
	started          bool
}

func NewRangeSource(start, end, step int64) (*RangeSource, error) {
	if step == 0 {
		return nil, fmt.Errorf("iterator: range step must not be zero")
	}
	return &RangeSource{Start: start, End: end, Step: step, Current: start}, nil
}

func (s *RangeSource) String() string { return fmt.Sprintf("iterator(range@%d)", s.Current) }
func (s *RangeSource) Equal(v types.Value) bool { o, ok := v.(*RangeSource); return ok && o == s }

func (s *RangeSource) HasNext() (bool, error) {
	if s.Step > 0 {
		return s.Current < s.End, nil
	}
	return s.Current > s.End, nil
}

func (s *RangeSource) Next() (types.Value, error) {
	v := s.Current
	s.Current += s.Step
	return types.Long(v), nil
}

// CharsSource walks a string one rune at a time, emitting single-rune
// Str values; runes are precomputed so restore doesn't need to re-decode
// UTF-8 from an offset.
type CharsSource struct {
	base
	runes []rune
	Index int
}

func NewCharsSource(s string) *CharsSource { return &CharsSource{runes: []rune(s)} }

func (s *CharsSource) String() string { return fmt.Sprintf("iterator(chars@%d)", s.Index) }
func (s *CharsSource) Equal(v types.Value) bool { o, ok := v.(*CharsSource); return ok && o == s }

func (s *CharsSource) HasNext() (bool, error) { return s.Index < len(s.runes), nil }
func (s *CharsSource) Next() (types.Value, error) {
	v := s.runes[s.Index]
	s.Index++
	return types.Str(string(v)), nil
}

// StringSplitSource is a regex-based splitter with the two-phase state
// spec §4.6 describes: a live matcher plus findNext/hasNext/last flags.
// Restoration re-derives the *regexp.Regexp from (Pattern, Modifiers)
// rather than serializing the compiled form, and resumes scanning at the
// saved byte offset Pos with the saved flags.
type StringSplitSource struct {
	base
	Source, Pattern, Modifiers string
	Pos                        int // byte offset to resume scanning from
	re                         *regexp.Regexp

	pending  string
	hasNext  bool
	findNext bool
	last     bool
}

func NewStringSplitSource(source, pattern, modifiers string) (*StringSplitSource, error) {
	re, err := compileSplitPattern(pattern, modifiers)
	if err != nil {
		return nil, err
	}
	s := &StringSplitSource{Source: source, Pattern: pattern, Modifiers: modifiers, re: re, findNext: true}
	return s, nil
}

func compileSplitPattern(pattern, modifiers string) (*regexp.Regexp, error) {
	expr := pattern
	if modifiers != "" {
		expr = "(?" + modifiers + ")" + pattern
	}
	return regexp.Compile(expr)
}

func (s *StringSplitSource) String() string { return fmt.Sprintf("iterator(split@%d)", s.Pos) }
func (s *StringSplitSource) Equal(v types.Value) bool { o, ok := v.(*StringSplitSource); return ok && o == s }

func (s *StringSplitSource) ensureCompiled() error {
	if s.re != nil {
		return nil
	}
	re, err := compileSplitPattern(s.Pattern, s.Modifiers)
	if err != nil {
		return err
	}
	s.re = re
	return nil
}

func (s *StringSplitSource) advance() {
	if !s.findNext {
		return
	}
	s.findNext = false
	if s.last {
		s.hasNext = false
		return
	}
	loc := s.re.FindStringIndex(s.Source[s.Pos:])
	if loc == nil {
		s.pending = s.Source[s.Pos:]
		s.Pos = len(s.Source)
		s.last = true
		s.hasNext = true
		return
	}
	start, end := s.Pos+loc[0], s.Pos+loc[1]
	s.pending = s.Source[s.Pos:start]
	s.Pos = end
	s.hasNext = true
	if end == len(s.Source) {
		// trailing empty segment after a match at the very end
		s.last = true
	}
}

func (s *StringSplitSource) HasNext() (bool, error) {
	if err := s.ensureCompiled(); err != nil {
		return false, err
	}
	s.advance()
	return s.hasNext, nil
}

func (s *StringSplitSource) Next() (types.Value, error) {
	if err := s.ensureCompiled(); err != nil {
		return nil, err
	}
	s.advance()
	s.findNext = true
	return types.Str(s.pending), nil
}
