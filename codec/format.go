// Package codec implements the Binary Codec (spec §4.1): a
// variable-length-integer-based encoding for the runtime's value graph,
// with cycle support via an identity-to-id map on write and a
// shell-then-fill strategy on read, plus a rear-mounted object offset
// table.
//
// Format:
//
//	varint   version
//	uint32   num_objects
//	uint32   offset_table_start
//	bytes    root_object_encoding
//	bytes    other_object_encodings...
//	uint32[] offset_table   (num_objects entries, at offset_table_start)
//
// Each shareable object's encoding is type_tag:u8 id:varint payload...;
// repeat visits of the same identity write only type_tag:u8 id:varint.
package codec

import (
	"encoding/binary"

	"github.com/quilllang/quill/errs"
	"github.com/quilllang/quill/types"
)

// FormatVersion is the checkpoint format version this package writes and
// the only version it will restore. A mismatch on restore is a hard
// error per spec §6.
const FormatVersion = 1

func newFormatErr(offset int64, msg string) error {
	return errs.NewCheckpointFormatError(offset, msg)
}

// header mirrors the three fixed-width fields that precede the body.
type header struct {
	version          uint32
	numObjects       uint32
	offsetTableStart uint32
}

func putUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func readUint32(b []byte, pos int) (uint32, error) {
	if pos+4 > len(b) {
		return 0, newFormatErr(int64(pos), "truncated uint32")
	}
	return binary.LittleEndian.Uint32(b[pos:]), nil
}

func putUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func readUint64(b []byte, pos int) (uint64, error) {
	if pos+8 > len(b) {
		return 0, newFormatErr(int64(pos), "truncated uint64")
	}
	return binary.LittleEndian.Uint64(b[pos:]), nil
}

// Tag is re-exported for callers that only import codec.
type Tag = types.Tag
