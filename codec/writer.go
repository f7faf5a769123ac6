package codec

import (
	"math"

	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

// Writer serializes a value graph reachable from a root into a
// self-contained byte buffer.
type Writer struct {
	body    []byte
	ids     map[types.Value]int32 // identity map, assigned in first-visit order
	offsets []uint32              // offsets[id] = body offset where id's record starts
	nextID  int32

	typeTags *registry.TypeTagRegistry // for built-in class ids / user class names
}

// NewWriter creates a Writer. typeTags may be nil if the graph being
// written contains no Instance or Builtin values.
func NewWriter(typeTags *registry.TypeTagRegistry) *Writer {
	return &Writer{
		ids:      make(map[types.Value]int32),
		typeTags: typeTags,
	}
}

// Encode writes root and returns the complete checkpoint image.
func (w *Writer) Encode(root types.Value) ([]byte, error) {
	if err := w.WriteValue(root); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(w.body)+16+4*len(w.offsets))
	out = putVarint(out, FormatVersion)
	out = putUint32(out, uint32(len(w.offsets)))
	headerLen := len(out) + 4 // +4 for the offset_table_start field itself
	offsetTableStart := headerLen + len(w.body)
	out = putUint32(out, uint32(offsetTableStart))
	out = append(out, w.body...)
	for _, off := range w.offsets {
		out = putUint32(out, off+uint32(headerLen))
	}
	return out, nil
}

// WriteValue writes a value as it appears inside another value's payload:
// inline for non-shareable scalars, or tag+id (assigning a new id and
// appending this object's full record to the body on first visit) for
// shareable values.
func (w *Writer) WriteValue(v types.Value) error {
	if v == nil || v.Tag() == types.TagNull {
		w.body = append(w.body, byte(types.TagNull))
		return nil
	}

	tag := v.Tag()
	if !tag.Shareable() {
		w.body = append(w.body, byte(tag))
		return w.writeScalarPayload(tag, v)
	}

	if id, seen := w.ids[v]; seen {
		w.body = append(w.body, byte(tag))
		w.body = putVarint(w.body, uint32(id))
		return nil
	}

	id := w.nextID
	w.nextID++
	w.ids[v] = id

	off := uint32(len(w.body)) // start of this record's tag byte
	for int32(len(w.offsets)) <= id {
		w.offsets = append(w.offsets, 0)
	}
	w.offsets[id] = off

	w.body = append(w.body, byte(tag))
	w.body = putVarint(w.body, uint32(id))

	return w.writeCompoundPayload(tag, v)
}

func (w *Writer) writeScalarPayload(tag types.Tag, v types.Value) error {
	switch tag {
	case types.TagBoolean:
		b := v.(types.Bool)
		if b {
			w.body = append(w.body, 1)
		} else {
			w.body = append(w.body, 0)
		}
	case types.TagByte:
		w.body = append(w.body, byte(v.(types.Byte)))
	case types.TagInt:
		w.body = putVarint(w.body, uint32(v.(types.Int)))
	case types.TagLong:
		w.body = putVarlong(w.body, uint64(v.(types.Long)))
	case types.TagDouble:
		bits := math.Float64bits(float64(v.(types.Double)))
		w.body = putUint64(w.body, bits)
	case types.TagDecimal:
		d := v.(types.Decimal)
		if d.Null {
			w.body = append(w.body, 0)
		} else {
			w.body = append(w.body, 1)
			w.writeRawString(d.Text)
		}
	}
	return nil
}

func (w *Writer) writeRawString(s string) {
	w.body = putVarint(w.body, uint32(len(s)))
	w.body = append(w.body, s...)
}

// The methods below are the public primitive-write surface external
// codecs (registered via RegisterTagCodec, e.g. package handle's FUNCTION
// encoder) use to write their own payloads; WriteValue recurses back into
// the writer for any nested values they hold.

// WriteByte appends a single raw byte.
func (w *Writer) WriteByte(b byte) { w.body = append(w.body, b) }

// WriteVarint appends v as a 7-bit-per-byte variable-length integer.
func (w *Writer) WriteVarint(v uint32) { w.body = putVarint(w.body, v) }

// WriteVarlong appends v as a 7-bit-per-byte variable-length integer.
func (w *Writer) WriteVarlong(v uint64) { w.body = putVarlong(w.body, v) }

// WriteString appends a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) { w.writeRawString(s) }

func (w *Writer) writeCompoundPayload(tag types.Tag, v types.Value) error {
	switch tag {
	case types.TagString:
		w.writeRawString(string(v.(types.Str)))
		return nil
	case types.TagStringBuffer:
		w.writeRawString(v.(*types.StringBuffer).String())
		return nil
	case types.TagList:
		l := v.(*types.List)
		w.body = putVarint(w.body, uint32(len(l.Elems)))
		for _, e := range l.Elems {
			if err := w.WriteValue(e); err != nil {
				return err
			}
		}
		return nil
	case types.TagMap:
		m := v.(*types.Map)
		entries := m.Entries()
		w.body = putVarint(w.body, uint32(len(entries)))
		for _, kv := range entries {
			if err := w.WriteValue(kv[0]); err != nil {
				return err
			}
			if err := w.WriteValue(kv[1]); err != nil {
				return err
			}
		}
		return nil
	case types.TagArray:
		a := v.(*types.Array)
		w.body = append(w.body, byte(a.ElemTag))
		w.body = putVarint(w.body, uint32(a.Dims))
		w.body = putVarint(w.body, uint32(len(a.Elems)))
		for _, e := range a.Elems {
			if err := w.WriteValue(e); err != nil {
				return err
			}
		}
		return nil
	case types.TagHeapLocal:
		h := v.(*types.HeapLocal)
		return w.WriteValue(h.Val)
	case types.TagMatcher:
		m := v.(*types.Matcher)
		w.writeRawString(m.Source)
		w.writeRawString(m.Pattern)
		w.body = putVarint(w.body, uint32(m.Pos))
		w.writeScalarPayload(types.TagBoolean, types.Bool(m.Found))
		w.body = putVarint(w.body, uint32(m.Start))
		w.body = putVarint(w.body, uint32(m.End))
		return nil
	case types.TagBuiltin:
		b := v.(types.Builtin)
		w.body = putVarint(w.body, uint32(b.ClassID))
		return nil
	case types.TagInstance:
		inst := v.(*types.Instance)
		w.writeRawString(inst.Class.InternalName())
		w.body = putVarint(w.body, uint32(len(inst.Fields)))
		for name, val := range inst.Fields {
			w.writeRawString(name)
			if err := w.WriteValue(val); err != nil {
				return err
			}
		}
		return nil
	case types.TagClass:
		cv := v.(types.ClassVal)
		w.writeRawString(cv.Ref.InternalName())
		return nil
	default:
		ec, ok := externalCodecs[tag]
		if !ok {
			return newFormatErr(int64(len(w.body)), "no encoder registered for tag "+tag.String())
		}
		return ec.EncodePayload(w, v)
	}
}
