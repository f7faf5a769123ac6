package codec

import (
	"math"

	"github.com/quilllang/quill/registry"
	"github.com/quilllang/quill/types"
)

// Reader performs the two-phase restore described in spec §4.1: first
// visit of a shareable id allocates an empty shell (reading only the
// header fields needed to pick the right concrete type) and registers it
// in the slot table *before* decoding its nested fields, so a
// self-reference encountered while filling the shell resolves to the same
// pointer rather than recursing forever.
type Reader struct {
	body  []byte
	pos   int
	slots []types.Value
	table []uint32

	typeTags *registry.TypeTagRegistry
}

func NewReader(data []byte, typeTags *registry.TypeTagRegistry) *Reader {
	return &Reader{body: data, typeTags: typeTags}
}

// Decode parses the header and trailer, then restores the root value.
func (r *Reader) Decode() (types.Value, error) {
	version, n, err := readVarint(r.body, 0)
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, newFormatErr(0, "unsupported checkpoint format version")
	}
	pos := n

	numObjects, err := readUint32(r.body, pos)
	if err != nil {
		return nil, err
	}
	pos += 4

	offsetTableStart, err := readUint32(r.body, pos)
	if err != nil {
		return nil, err
	}
	pos += 4

	if int(offsetTableStart)+4*int(numObjects) > len(r.body) {
		return nil, newFormatErr(int64(offsetTableStart), "offset table runs past end of buffer")
	}

	r.slots = make([]types.Value, numObjects)
	r.table = make([]uint32, numObjects)
	for i := uint32(0); i < numObjects; i++ {
		off, err := readUint32(r.body, int(offsetTableStart)+4*int(i))
		if err != nil {
			return nil, err
		}
		r.table[i] = off
	}

	r.pos = pos
	return r.ReadValue()
}

// NumObjects returns the object count declared in the header, once Decode
// has parsed it — used by tests asserting invariant 7.
func (r *Reader) NumObjects() int { return len(r.table) }

// offsetTableStart returns the header's offset_table_start field (-1 if
// the header cannot be read); it is exposed for format-invariant tests.
func (r *Reader) offsetTableStart() int {
	_, n, err := readVarint(r.body, 0)
	if err != nil {
		return -1
	}
	start, err := readUint32(r.body, n+4)
	if err != nil {
		return -1
	}
	return int(start)
}

func (r *Reader) byteAt(pos int) (byte, error) {
	if pos < 0 || pos >= len(r.body) {
		return 0, newFormatErr(int64(pos), "read past end of buffer")
	}
	return r.body[pos], nil
}

// ReadValue reads one value at the current cursor, exactly as it was
// written by Writer.WriteValue, advancing the cursor past it.
func (r *Reader) ReadValue() (types.Value, error) {
	tagByte, err := r.byteAt(r.pos)
	if err != nil {
		return nil, err
	}
	tag := types.Tag(tagByte)
	r.pos++

	if tag == types.TagNull {
		return types.NullValue, nil
	}
	if !tag.Shareable() {
		return r.readScalarPayload(tag)
	}

	id, n, err := readVarint(r.body, r.pos)
	if err != nil {
		return nil, err
	}
	r.pos += n

	if int(id) >= len(r.slots) {
		return nil, newFormatErr(int64(r.pos), "object id out of range")
	}
	if r.slots[id] != nil {
		return r.slots[id], nil
	}

	// First visit of this id: the cursor is already sitting at the start
	// of its payload (tag+id were just consumed above, in place, exactly
	// where Writer.WriteValue wrote them), so allocate the shell and fill
	// it in without moving the cursor anywhere else.
	shell, err := r.newShell(tag)
	if err != nil {
		return nil, err
	}
	r.slots[id] = shell

	if err := r.fillPayload(tag, shell); err != nil {
		return nil, err
	}

	return shell, nil
}

func (r *Reader) readScalarPayload(tag types.Tag) (types.Value, error) {
	switch tag {
	case types.TagBoolean:
		b, err := r.byteAt(r.pos)
		if err != nil {
			return nil, err
		}
		r.pos++
		return types.Bool(b != 0), nil
	case types.TagByte:
		b, err := r.byteAt(r.pos)
		if err != nil {
			return nil, err
		}
		r.pos++
		return types.Byte(b), nil
	case types.TagInt:
		v, n, err := readVarint(r.body, r.pos)
		if err != nil {
			return nil, err
		}
		r.pos += n
		return types.Int(int32(v)), nil
	case types.TagLong:
		v, n, err := readVarlong(r.body, r.pos)
		if err != nil {
			return nil, err
		}
		r.pos += n
		return types.Long(int64(v)), nil
	case types.TagDouble:
		bits, err := readUint64(r.body, r.pos)
		if err != nil {
			return nil, err
		}
		r.pos += 8
		return types.Double(math.Float64frombits(bits)), nil
	case types.TagDecimal:
		flag, err := r.byteAt(r.pos)
		if err != nil {
			return nil, err
		}
		r.pos++
		if flag == 0 {
			return types.Decimal{Null: true}, nil
		}
		s, err := r.readRawString()
		if err != nil {
			return nil, err
		}
		return types.Decimal{Text: s}, nil
	default:
		return nil, newFormatErr(int64(r.pos), "unexpected scalar tag "+tag.String())
	}
}

// The methods below are the public primitive-read surface external codecs
// use to read back what their EncodePayload counterpart wrote; ReadValue
// is the recursive entry point for any nested values.

// ReadByte reads a single raw byte.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.byteAt(r.pos)
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

// ReadVarint reads a 7-bit-per-byte variable-length integer.
func (r *Reader) ReadVarint() (uint32, error) {
	v, n, err := readVarint(r.body, r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// ReadVarlong reads a 7-bit-per-byte variable-length integer.
func (r *Reader) ReadVarlong() (uint64, error) {
	v, n, err := readVarlong(r.body, r.pos)
	if err != nil {
		return 0, err
	}
	r.pos += n
	return v, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) { return r.readRawString() }

func (r *Reader) readRawString() (string, error) {
	n, adv, err := readVarint(r.body, r.pos)
	if err != nil {
		return "", err
	}
	r.pos += adv
	if r.pos+int(n) > len(r.body) {
		return "", newFormatErr(int64(r.pos), "truncated string")
	}
	s := string(r.body[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// newShell allocates an empty, correctly-typed value for tag, reading any
// header fields (e.g. an Instance's class name) it needs to pick the
// concrete type, but never recursing into nested sub-values.
func (r *Reader) newShell(tag types.Tag) (types.Value, error) {
	switch tag {
	case types.TagString:
		s, err := r.readRawString()
		if err != nil {
			return nil, err
		}
		return types.Str(s), nil
	case types.TagStringBuffer:
		return types.NewStringBuffer(), nil
	case types.TagList:
		return types.NewList(nil), nil
	case types.TagMap:
		return types.NewMap(), nil
	case types.TagArray:
		return types.NewArray(types.TagAny, 1, nil), nil
	case types.TagHeapLocal:
		return types.NewHeapLocal(types.NullValue), nil
	case types.TagMatcher:
		return &types.Matcher{}, nil
	case types.TagBuiltin:
		classID, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return nil, err
		}
		r.pos += adv
		return types.Builtin{ClassID: int32(classID)}, nil
	case types.TagInstance:
		name, err := r.readRawString()
		if err != nil {
			return nil, err
		}
		return r.typeTags.NewShell(name)
	case types.TagClass:
		name, err := r.readRawString()
		if err != nil {
			return nil, err
		}
		return types.ClassVal{Ref: namedClassRef(name)}, nil
	default:
		ec, ok := externalCodecs[tag]
		if !ok {
			return nil, newFormatErr(int64(r.pos), "no decoder registered for tag "+tag.String())
		}
		return ec.NewShell(r)
	}
}

// fillPayload reads the rest of the payload into shell, mutating it in
// place. String is immutable, so newShell already read its full content
// and fillPayload is a no-op for it.
func (r *Reader) fillPayload(tag types.Tag, shell types.Value) error {
	switch tag {
	case types.TagString:
		return nil // fully read by newShell; strings contain no nested values
	case types.TagStringBuffer:
		s, err := r.readRawString()
		if err != nil {
			return err
		}
		shell.(*types.StringBuffer).Append(s)
		return nil
	case types.TagList:
		l := shell.(*types.List)
		n, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv
		l.Elems = make([]types.Value, n)
		for i := range l.Elems {
			v, err := r.ReadValue()
			if err != nil {
				return err
			}
			l.Elems[i] = v
		}
		return nil
	case types.TagMap:
		m := shell.(*types.Map)
		n, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv
		for i := uint32(0); i < n; i++ {
			k, err := r.ReadValue()
			if err != nil {
				return err
			}
			v, err := r.ReadValue()
			if err != nil {
				return err
			}
			m.Set(k, v)
		}
		return nil
	case types.TagArray:
		a := shell.(*types.Array)
		elemTagByte, err := r.byteAt(r.pos)
		if err != nil {
			return err
		}
		a.ElemTag = types.Tag(elemTagByte)
		r.pos++
		dims, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv
		a.Dims = int(dims)
		n, adv2, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv2
		a.Elems = make([]types.Value, n)
		for i := range a.Elems {
			v, err := r.ReadValue()
			if err != nil {
				return err
			}
			a.Elems[i] = v
		}
		return nil
	case types.TagHeapLocal:
		h := shell.(*types.HeapLocal)
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		h.Val = v
		return nil
	case types.TagMatcher:
		m := shell.(*types.Matcher)
		src, err := r.readRawString()
		if err != nil {
			return err
		}
		pat, err := r.readRawString()
		if err != nil {
			return err
		}
		pos, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv
		foundByte, err := r.byteAt(r.pos)
		if err != nil {
			return err
		}
		r.pos++
		start, adv2, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv2
		end, adv3, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv3
		m.Source, m.Pattern, m.Pos = src, pat, int(pos)
		m.Found = foundByte != 0
		m.Start, m.End = int(start), int(end)
		return nil
	case types.TagBuiltin:
		return nil // fully read by newShell; opaque, contains no nested values
	case types.TagInstance:
		inst := shell.(*types.Instance)
		n, adv, err := readVarint(r.body, r.pos)
		if err != nil {
			return err
		}
		r.pos += adv
		for i := uint32(0); i < n; i++ {
			name, err := r.readRawString()
			if err != nil {
				return err
			}
			v, err := r.ReadValue()
			if err != nil {
				return err
			}
			inst.Fields[name] = v
		}
		return nil
	case types.TagClass:
		return nil // name was the whole payload, already read in newShell
	default:
		ec, ok := externalCodecs[tag]
		if !ok {
			return newFormatErr(int64(r.pos), "no decoder registered for tag "+tag.String())
		}
		return ec.FillPayload(r, shell)
	}
}

// namedClassRef is the minimal types.ClassRef a restored Class value needs:
// its encoding is just the internal name (spec §4.1), so restore does not
// need the full class.Descriptor machinery to round-trip a first-class
// class reference. class.Descriptor also implements types.ClassRef, and a
// caller that needs the full descriptor looks it up by this name in its
// own registry.
type namedClassRef string

func (n namedClassRef) InternalName() string { return string(n) }
