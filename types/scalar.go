package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Null is the singleton null value.
type Null struct{}

var NullValue Value = Null{}

func (Null) Tag() Tag           { return TagNull }
func (Null) String() string     { return "null" }
func (Null) Equal(v Value) bool { _, ok := v.(Null); return ok }
func (Null) Truthy() bool       { return false }

// Bool wraps a boolean.
type Bool bool

func NewBool(b bool) Value { return Bool(b) }

func (b Bool) Tag() Tag { return TagBoolean }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b Bool) Equal(v Value) bool { o, ok := v.(Bool); return ok && o == b }
func (b Bool) Truthy() bool       { return bool(b) }

// Byte wraps an 8-bit unsigned value.
type Byte uint8

func NewByte(b byte) Value { return Byte(b) }

func (b Byte) Tag() Tag            { return TagByte }
func (b Byte) String() string      { return strconv.Itoa(int(b)) }
func (b Byte) Equal(v Value) bool  { o, ok := v.(Byte); return ok && o == b }
func (b Byte) Truthy() bool        { return b != 0 }

// Int wraps a 32-bit signed integer.
type Int int32

func NewInt(i int32) Value { return Int(i) }

func (i Int) Tag() Tag            { return TagInt }
func (i Int) String() string      { return strconv.Itoa(int(i)) }
func (i Int) Equal(v Value) bool  { o, ok := v.(Int); return ok && o == i }
func (i Int) Truthy() bool        { return i != 0 }

// Long wraps a 64-bit signed integer.
type Long int64

func NewLong(i int64) Value { return Long(i) }

func (l Long) Tag() Tag           { return TagLong }
func (l Long) String() string     { return strconv.FormatInt(int64(l), 10) }
func (l Long) Equal(v Value) bool { o, ok := v.(Long); return ok && o == l }
func (l Long) Truthy() bool       { return l != 0 }

// Double wraps a 64-bit IEEE float.
type Double float64

func NewDouble(f float64) Value { return Double(f) }

func (d Double) Tag() Tag       { return TagDouble }
func (d Double) String() string { return strconv.FormatFloat(float64(d), 'g', -1, 64) }
func (d Double) Equal(v Value) bool {
	o, ok := v.(Double)
	return ok && (o == d || (math.IsNaN(float64(o)) && math.IsNaN(float64(d))))
}
func (d Double) Truthy() bool { return d != 0 }

// Decimal wraps an arbitrary-precision decimal, stored as its plain
// (non-scientific) text representation per the wire format. A nil-valued
// Decimal encodes as the NULL tag rather than a string, matching §4.1.
type Decimal struct {
	Text string // plain text; empty + Null==true means the NULL-tagged form
	Null bool
}

func NewDecimal(text string) Value { return Decimal{Text: text} }

func (d Decimal) Tag() Tag { return TagDecimal }
func (d Decimal) String() string {
	if d.Null {
		return "null"
	}
	return d.Text
}
func (d Decimal) Equal(v Value) bool {
	o, ok := v.(Decimal)
	return ok && o.Null == d.Null && o.Text == d.Text
}
func (d Decimal) Truthy() bool {
	if d.Null {
		return false
	}
	return strings.TrimLeft(d.Text, "0.-") != ""
}

// Str wraps an immutable string.
type Str string

func NewStr(s string) Value { return Str(s) }

func (s Str) Tag() Tag            { return TagString }
func (s Str) String() string      { return string(s) }
func (s Str) Equal(v Value) bool  { o, ok := v.(Str); return ok && o == s }
func (s Str) Truthy() bool        { return len(s) > 0 }

// StringBuffer is the mutable string-builder value.
type StringBuffer struct {
	buf *strings.Builder
}

func NewStringBuffer() *StringBuffer { return &StringBuffer{buf: &strings.Builder{}} }

func (b *StringBuffer) Tag() Tag       { return TagStringBuffer }
func (b *StringBuffer) String() string { return b.buf.String() }
func (b *StringBuffer) Equal(v Value) bool {
	o, ok := v.(*StringBuffer)
	return ok && o == b
}
func (b *StringBuffer) Truthy() bool { return b.buf.Len() > 0 }
func (b *StringBuffer) Append(s string) { b.buf.WriteString(s) }

// Invocable is implemented by the method handle variants in package
// handle. Defined here, not there, so types stays a leaf package that the
// handle model can depend on without a cycle.
type Invocable interface {
	HandleKind() string
	Identity() string
}

// Function wraps a serializable callable reference.
type Function struct {
	H Invocable
}

func NewFunction(h Invocable) Value { return Function{H: h} }

func (f Function) Tag() Tag { return TagFunction }
func (f Function) String() string {
	if f.H == nil {
		return "function<nil>"
	}
	return fmt.Sprintf("function<%s:%s>", f.H.HandleKind(), f.H.Identity())
}
func (f Function) Equal(v Value) bool {
	o, ok := v.(Function)
	return ok && o.H != nil && f.H != nil && o.H.Identity() == f.H.Identity()
}
func (f Function) Truthy() bool { return true }
