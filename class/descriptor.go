// Package class implements the Class Descriptor (spec §4.7): declared
// name, inheritance, field/method/static-field tables, and the collision
// and fallback-order rules governing method lookup.
package class

import (
	"fmt"
	"sync"

	"github.com/quilllang/quill/types"
)

// FieldType is a declared field's static type — the type tag it is
// declared with, as opposed to the dynamic tag of any particular value
// stored there.
type FieldType struct {
	Tag      types.Tag
	ClassRef string // populated only when Tag == types.TagInstance
}

// Method is a registered method: the handle field that holds its
// callable reference plus the arity metadata method lookup needs.
type Method struct {
	HandleField  string
	MandatoryMin int
	VarArgs      bool
}

// Descriptor is one class's full declaration. It implements
// types.ClassRef via InternalName, so a *Descriptor can be stored
// directly as an Instance's Class.
type Descriptor struct {
	mu sync.RWMutex

	declaredName string
	fqName       string
	pkg          string
	internalName string
	isInterface  bool
	isEmbedded   bool // false = compiled from script source

	base      *Descriptor
	baseCyclic bool // sticky: set once a cyclic base chain is detected

	interfaces []*Descriptor

	fields          map[string]FieldType
	fieldOrder      []string
	mandatoryFields map[string]bool

	methods map[string]Method

	staticFields map[string]types.Value

	innerClasses map[string]*Descriptor
	enclosing    *Descriptor
}

func New(declaredName, fqName, pkg, internalName string) *Descriptor {
	return &Descriptor{
		declaredName:    declaredName,
		fqName:          fqName,
		pkg:             pkg,
		internalName:    internalName,
		fields:          make(map[string]FieldType),
		mandatoryFields: make(map[string]bool),
		methods:         make(map[string]Method),
		staticFields:    make(map[string]types.Value),
		innerClasses:    make(map[string]*Descriptor),
	}
}

func (d *Descriptor) InternalName() string { return d.internalName }
func (d *Descriptor) DeclaredName() string  { return d.declaredName }
func (d *Descriptor) FQName() string        { return d.fqName }
func (d *Descriptor) Package() string       { return d.pkg }
func (d *Descriptor) IsInterface() bool     { return d.isInterface }
func (d *Descriptor) IsEmbedded() bool      { return d.isEmbedded }

func (d *Descriptor) SetInterface(v bool) { d.isInterface = v }
func (d *Descriptor) SetEmbedded(v bool)  { d.isEmbedded = v }

// SetBase assigns the base class, detecting a cyclic inheritance chain by
// walking the would-be chain from the candidate base back up through its
// own bases looking for d. A cyclic base is not an error: it sets a
// sticky flag and Base() thereafter reports absent, so downstream
// field/method resolution simply treats the class as having no base
// rather than failing outright.
func (d *Descriptor) SetBase(base *Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for b := base; b != nil; b = b.base {
		if b == d {
			d.baseCyclic = true
			d.base = nil
			return
		}
		if b.baseCyclic {
			break
		}
	}
	d.base = base
}

// Base returns the base class descriptor, or (nil, false) if there is
// none or the chain was found cyclic.
func (d *Descriptor) Base() (*Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.baseCyclic || d.base == nil {
		return nil, false
	}
	return d.base, true
}

func (d *Descriptor) AddInterface(iface *Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interfaces = append(d.interfaces, iface)
}

func (d *Descriptor) Interfaces() []*Descriptor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Descriptor, len(d.interfaces))
	copy(out, d.interfaces)
	return out
}

// AddField declares a field, returning an error if the name collides
// with an existing field, method, or static field anywhere in the
// inheritance chain (spec §4.7's collision invariant).
func (d *Descriptor) AddField(name string, ft FieldType, mandatory bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkCollisionLocked(name); err != nil {
		return err
	}
	d.fields[name] = ft
	d.fieldOrder = append(d.fieldOrder, name)
	if mandatory {
		d.mandatoryFields[name] = true
	}
	return nil
}

// AddMethod registers a method, rejecting a name already used by a field
// or static field in this class (spec §4.7).
func (d *Descriptor) AddMethod(name string, m Method) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.fields[name]; exists {
		return fmt.Errorf("class %s: method %q collides with a declared field", d.internalName, name)
	}
	if _, exists := d.staticFields[name]; exists {
		return fmt.Errorf("class %s: method %q collides with a static field", d.internalName, name)
	}
	d.methods[name] = m
	return nil
}

func (d *Descriptor) AddStaticField(name string, v types.Value) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.fields[name]; exists {
		return fmt.Errorf("class %s: static field %q collides with a declared field", d.internalName, name)
	}
	if _, exists := d.methods[name]; exists {
		return fmt.Errorf("class %s: static field %q collides with a method", d.internalName, name)
	}
	d.staticFields[name] = v
	return nil
}

func (d *Descriptor) StaticField(name string) (types.Value, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.staticFields[name]
	return v, ok
}

func (d *Descriptor) SetStaticField(name string, v types.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staticFields[name] = v
}

// checkCollisionLocked checks name against this class's own tables plus
// every ancestor's, per spec §4.7's "collision checks consult the full
// inheritance chain". Caller holds d.mu.
func (d *Descriptor) checkCollisionLocked(name string) error {
	for c := d; c != nil; {
		if c != d {
			c.mu.RLock()
		}
		_, isField := c.fields[name]
		_, isMethod := c.methods[name]
		_, isStatic := c.staticFields[name]
		next := c.base
		if c.baseCyclic {
			next = nil
		}
		if c != d {
			c.mu.RUnlock()
		}
		if isField {
			return fmt.Errorf("class %s: field %q collides with an existing field", d.internalName, name)
		}
		if isMethod {
			return fmt.Errorf("class %s: field %q collides with an inherited method", d.internalName, name)
		}
		if isStatic {
			return fmt.Errorf("class %s: field %q collides with an inherited static field", d.internalName, name)
		}
		c = next
	}
	return nil
}

// FieldOrder returns declared field names in declaration order. The codec
// does not consult it; it writes an Instance's fields from its Fields map.
func (d *Descriptor) FieldOrder() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.fieldOrder))
	copy(out, d.fieldOrder)
	return out
}

func (d *Descriptor) MandatoryFields() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, name := range d.fieldOrder {
		if d.mandatoryFields[name] {
			out = append(out, name)
		}
	}
	return out
}

// LookupMethod walks declared-then-inherited methods per spec §4.7.
// Fallback to a globally-registered method is the caller's
// responsibility (via registry.FunctionRegistry) once LookupMethod
// reports not-found, since that fallback is keyed by runtime receiver
// type tag, not by class.
func (d *Descriptor) LookupMethod(name string) (Method, bool) {
	for c := d; c != nil; {
		c.mu.RLock()
		m, ok := c.methods[name]
		next := c.base
		cyclic := c.baseCyclic
		c.mu.RUnlock()
		if ok {
			return m, true
		}
		if cyclic {
			break
		}
		c = next
	}
	return Method{}, false
}

func (d *Descriptor) AddInnerClass(name string, inner *Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.innerClasses[name] = inner
	inner.enclosing = d
}

func (d *Descriptor) InnerClass(name string) (*Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.innerClasses[name]
	return c, ok
}

func (d *Descriptor) Enclosing() (*Descriptor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enclosing, d.enclosing != nil
}

// FallbackKind is the receiver-type category used by the fixed
// method-lookup fallback order (spec §4.7).
type FallbackKind int

const (
	FallbackExact FallbackKind = iota
	FallbackArray
	FallbackIteratorProtocol
	FallbackNumericSuper
	FallbackCatchAll
)

// MethodFallbackOrder is the fixed lookup order a runtime's method
// dispatch applies once LookupMethod on the exact receiver class fails:
// exact type, object-array, iterator-protocol (list/map/string/
// numeric/array all expose the iterator methods), numeric-super, and
// finally the catch-all bucket (spec §4.7). It is a pure function of the
// language definition, independent of the receiver d, but is exposed as
// a method so call sites read as "this class's dispatch falls back in
// this order" rather than reaching for a free function.
func (d *Descriptor) MethodFallbackOrder() []FallbackKind {
	return []FallbackKind{
		FallbackExact,
		FallbackArray,
		FallbackIteratorProtocol,
		FallbackNumericSuper,
		FallbackCatchAll,
	}
}
