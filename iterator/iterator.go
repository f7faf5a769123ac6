// Package iterator implements the Lazy Iterator Family (spec §4.6): a
// polymorphic set of source and transformer variants sharing a
// has_next/next contract, each able to suspend mid-operation (when a
// closure it calls suspends) and to describe itself for checkpointing.
//
// Every concrete variant registers its wire shape in codec.go's variant
// table and is reached through the single TagIterator external codec, the
// same pattern package handle and package cont use to stay out of
// package codec's import graph.
package iterator

import (
	"github.com/quilllang/quill/types"
)

// Iterator is the shared capability every variant implements. HasNext and
// Next may return a *cont.Suspend error (checked with errors.As by the
// caller) when the underlying closure or source suspends; the caller is
// responsible for wrapping and rethrowing per spec §4.4/§4.6.
type Iterator interface {
	types.Value
	HasNext() (bool, error)
	Next() (types.Value, error)
}

// variant is the ordinal persisted in an iterator's checkpoint
// self-description ("iterator type tag, variant ordinal, version,
// fields…"), letting Restore pick the concrete Go type before reading the
// rest of the payload.
type variant byte

const (
	variantListSource variant = iota
	variantMapEntriesSource
	variantArraySource
	variantRangeSource
	variantCharsSource
	variantStringSplitSource
	variantFilter
	variantMap
	variantFlatMap
	variantUnique
	variantLimit
	variantNegativeLimit
	variantSkip
	variantNegativeSkip
	variantGrouped
	variantTranspose
	variantStream
)

// base gives every variant types.Value's Tag and Truthy for free; String
// and the identity-based Equal are defined by each variant.
type base struct{}

func (base) Tag() types.Tag  { return types.TagIterator }
func (base) Truthy() bool    { return true }

// entryList builds the two-element [key, value] list a map-entries
// source (or anything that forwards map elements, like Filter wrapping
// one) emits for each entry, per spec §4.6's "converts map-entry elements
// to two-element lists".
func entryList(k, v types.Value) *types.List {
	return types.NewList([]types.Value{k, v})
}
