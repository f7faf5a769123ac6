package types

import "strings"

// List is the mutable, reference-identity list value. Unlike a
// copy-on-write collection, List is mutated in place: this is required so
// that a list can be made to contain itself (the canonical cyclic-graph
// checkpoint scenario) and so that shared references observed by two
// variables stay aliased after mutation, matching the language's
// reference semantics for compound values.
type List struct {
	Elems []Value
}

func NewList(elems []Value) *List {
	return &List{Elems: elems}
}

func (l *List) Tag() Tag { return TagList }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range l.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		if e == l {
			b.WriteString("(this List)")
		} else if e == nil {
			b.WriteString("null")
		} else {
			b.WriteString(e.String())
		}
	}
	b.WriteByte(']')
	return b.String()
}

func (l *List) Equal(v Value) bool {
	o, ok := v.(*List)
	if !ok || len(o.Elems) != len(l.Elems) {
		return false
	}
	if o == l {
		return true
	}
	for i := range l.Elems {
		if l.Elems[i] == l && o.Elems[i] == o {
			continue // both self-referential at this slot, treat as equal
		}
		if l.Elems[i] == nil || !l.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (l *List) Truthy() bool { return len(l.Elems) > 0 }

func (l *List) Len() int { return len(l.Elems) }

// Get returns the zero-based element, or Null if out of range.
func (l *List) Get(i int) Value {
	if i < 0 || i >= len(l.Elems) {
		return NullValue
	}
	return l.Elems[i]
}

func (l *List) Append(v Value) { l.Elems = append(l.Elems, v) }
