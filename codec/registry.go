package codec

import (
	"fmt"

	"github.com/quilllang/quill/types"
)

// ExternalCodec lets a higher-level package (handle, iterator, cont) teach
// the codec how to serialize one of the tags it owns, without codec
// needing to import that package — each registers itself from an init()
// function, keeping the dependency graph acyclic while still satisfying
// spec §4.6's "self-describing" checkpoint requirement.
type ExternalCodec struct {
	// EncodePayload writes v's payload (everything after tag+id) to w.
	EncodePayload func(w *Writer, v types.Value) error

	// NewShell reads whatever header fields are needed to allocate an
	// empty, not-yet-populated value of this tag (e.g. an iterator's
	// variant ordinal) and returns it. It must not read nested
	// sub-values — those are read by FillPayload once the shell is
	// registered, so self-references resolve correctly.
	NewShell func(r *Reader) (types.Value, error)

	// FillPayload reads the remainder of the payload into shell,
	// mutating it in place.
	FillPayload func(r *Reader, shell types.Value) error
}

var externalCodecs = make(map[types.Tag]ExternalCodec)

// RegisterTagCodec installs the codec for an externally-owned tag. Calling
// it twice for the same tag is a programmer error (panics), since it can
// only mean two packages both claim ownership of the same tag.
func RegisterTagCodec(tag types.Tag, c ExternalCodec) {
	if _, exists := externalCodecs[tag]; exists {
		panic(fmt.Sprintf("codec: tag %s already registered", tag))
	}
	externalCodecs[tag] = c
}
