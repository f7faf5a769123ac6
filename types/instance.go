package types

import "strings"

// Instance is a user-defined object: a class reference plus its field
// slots. Field storage is a map keyed by declared field name rather than a
// positional slice, trading a little density for simplicity of the
// checkpoint payload: the codec writes each field as a name/value pair in
// map iteration order, and restore reads the names back, so no class
// descriptor's field order is consulted.
type Instance struct {
	Class  ClassRef
	Fields map[string]Value
}

func NewInstance(class ClassRef) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Value)}
}

func (i *Instance) Tag() Tag { return TagInstance }

func (i *Instance) String() string {
	var b strings.Builder
	b.WriteString(i.Class.InternalName())
	b.WriteByte('{')
	first := true
	for k, v := range i.Fields {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}

func (i *Instance) Equal(v Value) bool {
	o, ok := v.(*Instance)
	return ok && o == i
}

func (i *Instance) Truthy() bool { return true }

// Matcher is the value kind backing the regex-split iterator's live
// matcher state: a compiled regular expression plus the byte position the
// next search should resume from.
type Matcher struct {
	Source  string
	Pattern string
	Pos     int
	Found   bool
	Start   int
	End     int
}

func (m *Matcher) Tag() Tag       { return TagMatcher }
func (m *Matcher) String() string { return "matcher(" + m.Pattern + ")" }
func (m *Matcher) Equal(v Value) bool {
	o, ok := v.(*Matcher)
	return ok && o == m
}
func (m *Matcher) Truthy() bool { return m.Found }

// Builtin wraps an opaque host-provided value that this core treats as a
// registered built-in class instance without further structure (for
// example a host file handle). ClassID is the Type Tag Registry's dense
// identifier for the built-in class.
type Builtin struct {
	ClassID int32
	Native  any
}

func (b Builtin) Tag() Tag       { return TagBuiltin }
func (b Builtin) String() string { return "builtin" }
func (b Builtin) Equal(v Value) bool {
	o, ok := v.(Builtin)
	return ok && o.ClassID == b.ClassID && o.Native == b.Native
}
func (b Builtin) Truthy() bool { return true }

// ClassVal is a first-class reference to a class descriptor (the CLASS
// tag): scripts can pass a class itself as a value, e.g. to a factory
// function or an `is` type-check.
type ClassVal struct {
	Ref ClassRef
}

func (c ClassVal) Tag() Tag       { return TagClass }
func (c ClassVal) String() string { return "class<" + c.Ref.InternalName() + ">" }
func (c ClassVal) Equal(v Value) bool {
	o, ok := v.(ClassVal)
	return ok && o.Ref.InternalName() == c.Ref.InternalName()
}
func (c ClassVal) Truthy() bool { return true }
