package types

import "strings"

// Array is a fixed-size, multi-dimensional primitive-or-reference array.
// ElemTag records the declared element type; the codec writes it in the
// array header but encodes every element as an ordinary tagged value, with
// no dense per-type packing. Dims records the declared dimension count (1 for a flat array, >1 for
// arrays-of-arrays).
type Array struct {
	ElemTag Tag
	Dims    int
	Elems   []Value
}

func NewArray(elemTag Tag, dims int, elems []Value) *Array {
	return &Array{ElemTag: elemTag, Dims: dims, Elems: elems}
}

func (a *Array) Tag() Tag { return TagArray }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.Elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (a *Array) Equal(v Value) bool {
	o, ok := v.(*Array)
	if !ok || o.ElemTag != a.ElemTag || len(o.Elems) != len(a.Elems) {
		return false
	}
	for i := range a.Elems {
		if !a.Elems[i].Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}

func (a *Array) Truthy() bool { return len(a.Elems) > 0 }

func (a *Array) Len() int { return len(a.Elems) }
