package iterator

import (
	"fmt"

	"github.com/quilllang/quill/codec"
	"github.com/quilllang/quill/handle"
	"github.com/quilllang/quill/types"
)

// Every variant's wire record starts with its ordinal byte, which
// newShell reads to pick the concrete Go type before any nested value is
// decoded — this is what spec §4.6 calls the iterator's "checkpoint
// self-description": {iterator type tag, variant ordinal, version,
// fields…}. The outer tag+object-id and the format version are already
// handled by codec.Writer/Reader; only the ordinal is iterator-specific.
func init() {
	codec.RegisterTagCodec(types.TagIterator, codec.ExternalCodec{
		EncodePayload: encodeIterator,
		NewShell:      newIteratorShell,
		FillPayload:   fillIterator,
	})
}

func encodeIterator(w *codec.Writer, v types.Value) error {
	switch it := v.(type) {
	case *ListSource:
		w.WriteByte(byte(variantListSource))
		if err := w.WriteValue(it.List); err != nil {
			return err
		}
		w.WriteVarint(uint32(it.Index))

	case *MapEntriesSource:
		w.WriteByte(byte(variantMapEntriesSource))
		if err := w.WriteValue(it.Map); err != nil {
			return err
		}
		w.WriteVarint(uint32(it.Index))

	case *ArraySource:
		w.WriteByte(byte(variantArraySource))
		if err := w.WriteValue(it.Array); err != nil {
			return err
		}
		w.WriteVarint(uint32(it.Index))

	case *RangeSource:
		w.WriteByte(byte(variantRangeSource))
		w.WriteVarlong(zigzagIter(it.Start))
		w.WriteVarlong(zigzagIter(it.End))
		w.WriteVarlong(zigzagIter(it.Step))
		w.WriteVarlong(zigzagIter(it.Current))

	case *CharsSource:
		w.WriteByte(byte(variantCharsSource))
		w.WriteString(string(it.runes))
		w.WriteVarint(uint32(it.Index))

	case *StringSplitSource:
		w.WriteByte(byte(variantStringSplitSource))
		w.WriteString(it.Source)
		w.WriteString(it.Pattern)
		w.WriteString(it.Modifiers)
		w.WriteVarint(uint32(it.Pos))
		w.WriteString(it.pending)
		w.WriteByte(boolByteIter(it.hasNext))
		w.WriteByte(boolByteIter(it.findNext))
		w.WriteByte(boolByteIter(it.last))

	case *FilterIterator:
		w.WriteByte(byte(variantFilter))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		if err := writeOptionalHandle(w, it.Closure); err != nil {
			return err
		}
		w.WriteVarint(uint32(it.Location))
		w.WriteByte(boolByteIter(it.peekValid))
		if it.peekValid {
			if err := w.WriteValue(it.peeked); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.pending != nil))
		if it.pending != nil {
			if err := w.WriteValue(it.pending); err != nil {
				return err
			}
		}

	case *MapIterator:
		w.WriteByte(byte(variantMap))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		if err := writeOptionalHandle(w, it.Closure); err != nil {
			return err
		}
		w.WriteByte(boolByteIter(it.WithIndex))
		w.WriteVarlong(uint64(it.Index))
		w.WriteVarint(uint32(it.Location))

	case *FlatMapIterator:
		w.WriteByte(byte(variantFlatMap))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		if err := writeOptionalHandle(w, it.Closure); err != nil {
			return err
		}
		w.WriteByte(boolByteIter(it.inner != nil))
		if it.inner != nil {
			if err := w.WriteValue(it.inner); err != nil {
				return err
			}
		}

	case *UniqueIterator:
		w.WriteByte(byte(variantUnique))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteByte(boolByteIter(!it.First))
		if !it.First {
			if err := w.WriteValue(it.Prev); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.peekValid))
		if it.peekValid {
			if err := w.WriteValue(it.peeked); err != nil {
				return err
			}
		}

	case *LimitIterator:
		w.WriteByte(byte(variantLimit))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteVarlong(uint64(it.N))
		w.WriteVarlong(uint64(it.Emitted))

	case *NegativeLimitIterator:
		w.WriteByte(byte(variantNegativeLimit))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteVarlong(uint64(it.N))
		w.WriteVarint(uint32(len(it.buf)))
		for _, e := range it.buf {
			w.WriteByte(boolByteIter(e != nil))
			if e != nil {
				if err := w.WriteValue(e); err != nil {
					return err
				}
			}
		}
		w.WriteVarint(uint32(it.count))
		w.WriteVarint(uint32(it.head))
		w.WriteByte(boolByteIter(it.drained))
		w.WriteVarint(uint32(it.emitIndex))

	case *SkipIterator:
		w.WriteByte(byte(variantSkip))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteVarlong(uint64(it.N))
		w.WriteByte(boolByteIter(it.skipped))

	case *NegativeSkipIterator:
		w.WriteByte(byte(variantNegativeSkip))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteVarlong(uint64(it.N))
		w.WriteVarint(uint32(len(it.buf)))
		for _, e := range it.buf {
			if err := w.WriteValue(e); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.filled))
		w.WriteVarint(uint32(it.total))
		w.WriteVarint(uint32(it.emitIndex))

	case *GroupedIterator:
		w.WriteByte(byte(variantGrouped))
		if err := w.WriteValue(it.Source); err != nil {
			return err
		}
		w.WriteVarint(uint32(it.Size))
		w.WriteByte(boolByteIter(it.peekValid))
		if it.peekValid {
			if err := w.WriteValue(it.peeked); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.exhausted))

	case *TransposeIterator:
		w.WriteByte(byte(variantTranspose))
		w.WriteVarint(uint32(len(it.Sources)))
		for _, s := range it.Sources {
			if err := w.WriteValue(s); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.peekValid))
		if it.peekValid {
			if err := w.WriteValue(it.peeked); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.exhausted))

	case *StreamIterator:
		w.WriteByte(byte(variantStream))
		if err := writeOptionalHandle(w, it.Closure); err != nil {
			return err
		}
		w.WriteByte(boolByteIter(it.peekValid))
		if it.peekValid {
			if err := w.WriteValue(it.peeked); err != nil {
				return err
			}
		}
		w.WriteByte(boolByteIter(it.done))

	default:
		return fmt.Errorf("iterator: no encoder for variant %T", v)
	}
	return nil
}

func writeOptionalHandle(w *codec.Writer, h handle.Handle) error {
	w.WriteByte(boolByteIter(h != nil))
	if h != nil {
		return w.WriteValue(types.NewFunction(h))
	}
	return nil
}

func readOptionalHandle(r *codec.Reader) (handle.Handle, error) {
	has, err := r.ReadByte()
	if err != nil || has == 0 {
		return nil, err
	}
	v, err := r.ReadValue()
	if err != nil {
		return nil, err
	}
	h, ok := v.(handle.Handle)
	if !ok {
		return nil, fmt.Errorf("iterator: closure value is not a handle.Handle (got %T)", v)
	}
	return h, nil
}

func newIteratorShell(r *codec.Reader) (types.Value, error) {
	ord, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch variant(ord) {
	case variantListSource:
		return &ListSource{}, nil
	case variantMapEntriesSource:
		return &MapEntriesSource{}, nil
	case variantArraySource:
		return &ArraySource{}, nil
	case variantRangeSource:
		return &RangeSource{}, nil
	case variantCharsSource:
		return &CharsSource{}, nil
	case variantStringSplitSource:
		return &StringSplitSource{}, nil
	case variantFilter:
		return &FilterIterator{}, nil
	case variantMap:
		return &MapIterator{}, nil
	case variantFlatMap:
		return &FlatMapIterator{}, nil
	case variantUnique:
		return &UniqueIterator{}, nil
	case variantLimit:
		return &LimitIterator{}, nil
	case variantNegativeLimit:
		return &NegativeLimitIterator{}, nil
	case variantSkip:
		return &SkipIterator{}, nil
	case variantNegativeSkip:
		return &NegativeSkipIterator{}, nil
	case variantGrouped:
		return &GroupedIterator{}, nil
	case variantTranspose:
		return &TransposeIterator{}, nil
	case variantStream:
		return &StreamIterator{}, nil
	default:
		return nil, fmt.Errorf("iterator: unknown variant ordinal %d", ord)
	}
}

func asIteratorValue(v types.Value) (Iterator, error) {
	it, ok := v.(Iterator)
	if !ok {
		return nil, fmt.Errorf("iterator: expected an Iterator value, got %T", v)
	}
	return it, nil
}

func fillIterator(r *codec.Reader, shell types.Value) error {
	switch it := shell.(type) {
	case *ListSource:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		l, ok := v.(*types.List)
		if !ok {
			return fmt.Errorf("iterator: list_source's list is not a *types.List (got %T)", v)
		}
		it.List = l
		idx, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Index = int(idx)

	case *MapEntriesSource:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		m, ok := v.(*types.Map)
		if !ok {
			return fmt.Errorf("iterator: map_entries_source's map is not a *types.Map (got %T)", v)
		}
		it.Map = m
		idx, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Index = int(idx)
		it.entries = nil
		it.StartingCount = m.Len()

	case *ArraySource:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		a, ok := v.(*types.Array)
		if !ok {
			return fmt.Errorf("iterator: array_source's array is not a *types.Array (got %T)", v)
		}
		it.Array = a
		idx, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Index = int(idx)

	case *RangeSource:
		start, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		end, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		step, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		cur, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.Start = unzigzagIter(start)
		it.End = unzigzagIter(end)
		it.Step = unzigzagIter(step)
		it.Current = unzigzagIter(cur)

	case *CharsSource:
		s, err := r.ReadString()
		if err != nil {
			return err
		}
		idx, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.runes = []rune(s)
		it.Index = int(idx)

	case *StringSplitSource:
		src, err := r.ReadString()
		if err != nil {
			return err
		}
		pat, err := r.ReadString()
		if err != nil {
			return err
		}
		mods, err := r.ReadString()
		if err != nil {
			return err
		}
		pos, err := r.ReadVarint()
		if err != nil {
			return err
		}
		pending, err := r.ReadString()
		if err != nil {
			return err
		}
		hasNext, err := r.ReadByte()
		if err != nil {
			return err
		}
		findNext, err := r.ReadByte()
		if err != nil {
			return err
		}
		last, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.Source, it.Pattern, it.Modifiers = src, pat, mods
		it.Pos = int(pos)
		it.pending = pending
		it.hasNext = hasNext != 0
		it.findNext = findNext != 0
		it.last = last != 0

	case *FilterIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		closure, err := readOptionalHandle(r)
		if err != nil {
			return err
		}
		it.Closure = closure
		loc, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Location = int(loc)
		peekValid, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.peekValid = peekValid != 0
		if it.peekValid {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.peeked = pv
		}
		hasPending, err := r.ReadByte()
		if err != nil {
			return err
		}
		if hasPending != 0 {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.pending = pv
		}

	case *MapIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		closure, err := readOptionalHandle(r)
		if err != nil {
			return err
		}
		it.Closure = closure
		withIndex, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.WithIndex = withIndex != 0
		idx, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.Index = int64(idx)
		loc, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Location = int(loc)

	case *FlatMapIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		closure, err := readOptionalHandle(r)
		if err != nil {
			return err
		}
		it.Closure = closure
		hasInner, err := r.ReadByte()
		if err != nil {
			return err
		}
		if hasInner != 0 {
			iv, err := r.ReadValue()
			if err != nil {
				return err
			}
			inner, err := asIteratorValue(iv)
			if err != nil {
				return err
			}
			it.inner = inner
		}

	case *UniqueIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		hasPrev, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.First = hasPrev == 0
		if hasPrev != 0 {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.Prev = pv
		}
		peekValid, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.peekValid = peekValid != 0
		if it.peekValid {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.peeked = pv
		}

	case *LimitIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		n, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.N = int64(n)
		emitted, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.Emitted = int64(emitted)

	case *NegativeLimitIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		n, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.N = int64(n)
		bufLen, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.buf = make([]types.Value, bufLen)
		for i := range it.buf {
			has, err := r.ReadByte()
			if err != nil {
				return err
			}
			if has != 0 {
				ev, err := r.ReadValue()
				if err != nil {
					return err
				}
				it.buf[i] = ev
			}
		}
		count, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.count = int(count)
		head, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.head = int(head)
		drained, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.drained = drained != 0
		emitIndex, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.emitIndex = int(emitIndex)

	case *SkipIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		n, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.N = int64(n)
		skipped, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.skipped = skipped != 0

	case *NegativeSkipIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		n, err := r.ReadVarlong()
		if err != nil {
			return err
		}
		it.N = int64(n)
		bufLen, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.buf = make([]types.Value, bufLen)
		for i := range it.buf {
			ev, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.buf[i] = ev
		}
		filled, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.filled = filled != 0
		total, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.total = int(total)
		emitIndex, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.emitIndex = int(emitIndex)

	case *GroupedIterator:
		v, err := r.ReadValue()
		if err != nil {
			return err
		}
		source, err := asIteratorValue(v)
		if err != nil {
			return err
		}
		it.Source = source
		size, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Size = int(size)
		peekValid, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.peekValid = peekValid != 0
		if it.peekValid {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			l, ok := pv.(*types.List)
			if !ok {
				return fmt.Errorf("iterator: grouped's peeked value is not a *types.List (got %T)", pv)
			}
			it.peeked = l
		}
		exhausted, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.exhausted = exhausted != 0

	case *TransposeIterator:
		count, err := r.ReadVarint()
		if err != nil {
			return err
		}
		it.Sources = make([]Iterator, count)
		for i := range it.Sources {
			v, err := r.ReadValue()
			if err != nil {
				return err
			}
			s, err := asIteratorValue(v)
			if err != nil {
				return err
			}
			it.Sources[i] = s
		}
		peekValid, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.peekValid = peekValid != 0
		if it.peekValid {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			l, ok := pv.(*types.List)
			if !ok {
				return fmt.Errorf("iterator: transpose's peeked value is not a *types.List (got %T)", pv)
			}
			it.peeked = l
		}
		exhausted, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.exhausted = exhausted != 0

	case *StreamIterator:
		closure, err := readOptionalHandle(r)
		if err != nil {
			return err
		}
		it.Closure = closure
		peekValid, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.peekValid = peekValid != 0
		if it.peekValid {
			pv, err := r.ReadValue()
			if err != nil {
				return err
			}
			it.peeked = pv
		}
		done, err := r.ReadByte()
		if err != nil {
			return err
		}
		it.done = done != 0

	default:
		return fmt.Errorf("iterator: no decoder for variant %T", shell)
	}
	return nil
}

func zigzagIter(v int64) uint64   { return uint64((v << 1) ^ (v >> 63)) }
func unzigzagIter(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

func boolByteIter(b bool) byte {
	if b {
		return 1
	}
	return 0
}
