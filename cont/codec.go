package cont

import (
	"fmt"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/runtime"
	"github.com/quilllang/quill/types"
)

func init() {
	codec.RegisterTagCodec(types.TagContinuation, codec.ExternalCodec{
		EncodePayload: encodeFrame,
		NewShell:      func(r *codec.Reader) (types.Value, error) { return &Frame{}, nil },
		FillPayload:   fillFrame,
	})
}

func zigzag(v int64) uint64  { return uint64((v << 1) ^ (v >> 63)) }
func unzigzag(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

func encodeFrame(w *codec.Writer, v types.Value) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("cont: expected *Frame, got %T", v)
	}

	w.WriteByte(presenceByte(f.MethodHandle != nil))
	if f.MethodHandle != nil {
		if err := w.WriteValue(types.NewFunction(f.MethodHandle)); err != nil {
			return err
		}
	}
	w.WriteVarint(uint32(f.MethodLocation))

	w.WriteVarint(uint32(len(f.LocalPrimitives)))
	for _, p := range f.LocalPrimitives {
		w.WriteVarlong(zigzag(p))
	}

	w.WriteVarint(uint32(len(f.LocalObjects)))
	for _, o := range f.LocalObjects {
		if err := w.WriteValue(o); err != nil {
			return err
		}
	}

	w.WriteByte(presenceByte(f.ScriptInstance != nil))
	if f.ScriptInstance != nil {
		hi, lo := f.ScriptInstance.ID().MarshalWire()
		w.WriteVarlong(hi)
		w.WriteVarlong(lo)
		w.WriteVarlong(f.ScriptInstance.CheckpointID())
	}

	w.WriteByte(presenceByte(f.Result != nil))
	if f.Result != nil {
		if err := w.WriteValue(f.Result); err != nil {
			return err
		}
	}

	w.WriteByte(presenceByte(f.Child != nil))
	if f.Child != nil {
		if err := w.WriteValue(f.Child); err != nil {
			return err
		}
	}
	w.WriteByte(presenceByte(f.Parent != nil))
	if f.Parent != nil {
		if err := w.WriteValue(f.Parent); err != nil {
			return err
		}
	}
	return nil
}

func fillFrame(r *codec.Reader, shell types.Value) error {
	f := shell.(*Frame)

	hasHandle, err := r.ReadByte()
	if err != nil {
		return err
	}
	if hasHandle != 0 {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		h, ok := v.(handle.Handle)
		if !ok {
			return fmt.Errorf("cont: frame's method_handle value is not a handle.Handle (got %T)", v)
		}
		f.MethodHandle = h
	}

	loc, err := r.ReadVarint()
	if err != nil {
		return err
	}
	f.MethodLocation = int(loc)

	nPrim, err := r.ReadVarint()
	if err != nil {
		return err
	}
	f.LocalPrimitives = make([]int64, nPrim)
	for i := range f.LocalPrimitives {
		zz, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		f.LocalPrimitives[i] = unzigzag(zz)
	}

	nObj, err := r.ReadVarint()
	if err != nil {
		return err
	}
	f.LocalObjects = make([]types.Value, nObj)
	for i := range f.LocalObjects {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		f.LocalObjects[i] = v
	}

	hasInstance, err := r.ReadByte()
	if err != nil {
		return err
	}
	if hasInstance != 0 {
		hi, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		lo, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		checkpointID, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		f.ScriptInstance = runtime.RestoreScriptInstance(runtime.InstanceIDFromWire(hi, lo), checkpointID)
	}

	hasResult, err := r.ReadByte()
	if err != nil {
		return err
	}
	if hasResult != 0 {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		f.Result = v
	}

	hasChild, err := r.ReadByte()
	if err != nil {
		return err
	}
	if hasChild != 0 {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		child, ok := v.(*Frame)
		if !ok {
			return fmt.Errorf("cont: frame's child value is not a *Frame (got %T)", v)
		}
		f.Child = child
	}

	hasParent, err := r.ReadByte()
	if err != nil {
		return err
	}
	if hasParent != 0 {
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		parent, ok := v.(*Frame)
		if !ok {
			return fmt.Errorf("cont: frame's parent value is not a *Frame (got %T)", v)
		}
		f.Parent = parent
	}

	return nil
}

func presenceByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
