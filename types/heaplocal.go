package types

// HeapLocal is a boxed variable cell: a single mutable slot by reference,
// used when a local variable is captured by a closure and must therefore
// outlive its originating stack frame and survive checkpoint/restore as a
// shared, mutable reference rather than a copied value.
type HeapLocal struct {
	Val Value
}

func NewHeapLocal(v Value) *HeapLocal { return &HeapLocal{Val: v} }

func (h *HeapLocal) Tag() Tag       { return TagHeapLocal }
func (h *HeapLocal) String() string { return "heaplocal(" + h.Val.String() + ")" }
func (h *HeapLocal) Equal(v Value) bool {
	o, ok := v.(*HeapLocal)
	return ok && o == h
}
func (h *HeapLocal) Truthy() bool { return h.Val.Truthy() }
