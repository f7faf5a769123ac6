package types

import "strings"

// Map is a mutable, insertion-order-preserving map value. Preserving
// insertion order is load-bearing: a checkpoint written mid-iteration must
// restore to the same logical iteration position, which only holds if the
// restored map reproduces write-time order exactly.
type Map struct {
	order []string
	keys  map[string]Value
	vals  map[string]Value
}

func NewMap() *Map {
	return &Map{keys: make(map[string]Value), vals: make(map[string]Value)}
}

func hashKey(v Value) string {
	if s, ok := v.(Str); ok {
		return "s:" + string(s)
	}
	return v.Tag().String() + ":" + v.String()
}

func (m *Map) Tag() Tag { return TagMap }

func (m *Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.order {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.keys[k].String())
		b.WriteString(": ")
		b.WriteString(m.vals[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (m *Map) Equal(v Value) bool {
	o, ok := v.(*Map)
	if !ok || len(o.order) != len(m.order) {
		return false
	}
	for _, k := range m.order {
		ov, present := o.vals[k]
		if !present || !ov.Equal(m.vals[k]) {
			return false
		}
	}
	return true
}

func (m *Map) Truthy() bool { return len(m.order) > 0 }

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Get(k Value) (Value, bool) {
	h := hashKey(k)
	v, ok := m.vals[h]
	return v, ok
}

func (m *Map) Set(k, v Value) {
	h := hashKey(k)
	if _, exists := m.vals[h]; !exists {
		m.order = append(m.order, h)
		m.keys[h] = k
	}
	m.vals[h] = v
}

func (m *Map) Delete(k Value) {
	h := hashKey(k)
	if _, ok := m.vals[h]; !ok {
		return
	}
	delete(m.vals, h)
	delete(m.keys, h)
	for i, o := range m.order {
		if o == h {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Entries returns key/value pairs in insertion order.
func (m *Map) Entries() [][2]Value {
	out := make([][2]Value, len(m.order))
	for i, h := range m.order {
		out[i] = [2]Value{m.keys[h], m.vals[h]}
	}
	return out
}
