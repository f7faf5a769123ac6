package class

import (
	"testing"

	"github.com/quilllang/quill/types"
)

func TestFieldMethodCollision(t *testing.T) {
	d := New("Point", "geo.Point", "geo", "geo$Point")
	if err := d.AddField("x", FieldType{Tag: types.TagInt}, true); err != nil {
		t.Fatalf("AddField x: %v", err)
	}
	if err := d.AddMethod("x", Method{HandleField: "h"}); err == nil {
		t.Fatal("expected collision error registering method named after existing field")
	}
}

func TestMandatoryFieldsAndOrder(t *testing.T) {
	d := New("Point", "geo.Point", "geo", "geo$Point")
	_ = d.AddField("x", FieldType{Tag: types.TagInt}, true)
	_ = d.AddField("label", FieldType{Tag: types.TagString}, false)
	_ = d.AddField("y", FieldType{Tag: types.TagInt}, true)

	order := d.FieldOrder()
	want := []string{"x", "label", "y"}
	for i, w := range want {
		if order[i] != w {
			t.Errorf("FieldOrder()[%d] = %q, want %q", i, order[i], w)
		}
	}
	mand := d.MandatoryFields()
	if len(mand) != 2 || mand[0] != "x" || mand[1] != "y" {
		t.Errorf("MandatoryFields() = %v, want [x y]", mand)
	}
}

func TestMethodLookupWalksInheritance(t *testing.T) {
	base := New("Shape", "geo.Shape", "geo", "geo$Shape")
	_ = base.AddMethod("area", Method{HandleField: "h_area"})

	derived := New("Circle", "geo.Circle", "geo", "geo$Circle")
	derived.SetBase(base)

	if _, ok := derived.LookupMethod("area"); !ok {
		t.Fatal("expected inherited method area to be found")
	}
	if _, ok := derived.LookupMethod("circumference"); ok {
		t.Fatal("did not expect circumference to resolve")
	}
}

func TestCyclicBaseDetected(t *testing.T) {
	a := New("A", "x.A", "x", "x$A")
	b := New("B", "x.B", "x", "x$B")
	a.SetBase(b)
	b.SetBase(a) // cycle: a's base is already b, so b -> a -> b loops

	if _, ok := b.Base(); ok {
		t.Error("expected cyclic base chain to report absent")
	}
}

func TestStaticFieldCollisions(t *testing.T) {
	d := New("Counter", "x.Counter", "x", "x$Counter")
	if err := d.AddStaticField("count", types.Int(0)); err != nil {
		t.Fatalf("AddStaticField: %v", err)
	}
	if err := d.AddField("count", FieldType{Tag: types.TagInt}, false); err == nil {
		t.Fatal("expected collision error adding field named after static field")
	}
}

func TestMethodFallbackOrder(t *testing.T) {
	d := New("Anything", "x.Anything", "x", "x$Anything")
	order := d.MethodFallbackOrder()
	want := []FallbackKind{FallbackExact, FallbackArray, FallbackIteratorProtocol, FallbackNumericSuper, FallbackCatchAll}
	if len(order) != len(want) {
		t.Fatalf("len(order) = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %v, want %v", i, order[i], want[i])
		}
	}
}
