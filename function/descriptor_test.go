package function

import (
	"testing"

	"github.com/quilllang/quill/types"
)

func TestAsyncnessPromotesAndSticks(t *testing.T) {
	d := New("", "compute", types.TagInt)
	if d.Asyncness() != AsyncUnknown {
		t.Fatalf("initial asyncness = %v, want unknown", d.Asyncness())
	}
	d.ObserveSuspend()
	if d.Asyncness() != AsyncYes {
		t.Fatalf("after ObserveSuspend = %v, want yes", d.Asyncness())
	}
	d.MarkNeverSuspends() // must not demote
	if d.Asyncness() != AsyncYes {
		t.Fatalf("MarkNeverSuspends demoted asyncness to %v", d.Asyncness())
	}
}

func TestMarkNeverSuspendsOnlyWhileUnknown(t *testing.T) {
	d := New("", "pure", types.TagInt)
	d.MarkNeverSuspends()
	if d.Asyncness() != AsyncNo {
		t.Fatalf("asyncness = %v, want no", d.Asyncness())
	}
}

func TestArity(t *testing.T) {
	d := New("", "f", types.TagInt)
	d.Params = []Param{{Name: "a", Type: types.TagInt}, {Name: "b", Type: types.TagInt}}
	d.MandatoryMin = 1

	cases := map[int]bool{0: false, 1: true, 2: true, 3: false}
	for n, want := range cases {
		if got := d.Arity(n); got != want {
			t.Errorf("Arity(%d) = %v, want %v", n, got, want)
		}
	}

	d.VarArgs = true
	if !d.Arity(10) {
		t.Error("expected Arity(10) true when VarArgs")
	}
}
