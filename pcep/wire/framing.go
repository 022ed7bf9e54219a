/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"fmt"

	"github.com/pcepsim/pcepd/core"
)

// Framing describes a length-prefixed header format and the kinds that can appear behind it.
type Framing struct {
	Name   string
	Header *Schema
	// Length is the header field carrying the declared length.
	Length FieldID
	// LengthIncludesHeader is true when the declared length covers the header (and padding).
	// Otherwise it covers only the value and the value is padded to Pad bytes on the wire.
	LengthIncludesHeader bool
	// Pad is the wire alignment of a whole item. RSVP sub-objects use 1.
	Pad int
	// KeyOf extracts the registry key from a decoded header.
	KeyOf func(h *Record) uint32
	// StampKey writes the registry key into a header.
	StampKey func(h *Record, key uint32)
	kinds    map[uint32]*Kind
	fallback *Kind
}

func (f *Framing) String() string {
	return f.Name
}

// HeaderSize returns the header size in bytes.
func (f *Framing) HeaderSize() int {
	return f.Header.Size()
}

// Register adds a kind to the framing. Registering a key twice is an error.
func (f *Framing) Register(k *Kind) error {
	if f.kinds == nil {
		f.kinds = make(map[uint32]*Kind)
	}
	if old, ok := f.kinds[k.Key]; ok {
		return fmt.Errorf("%s key %d (%s): %w by %s", f.Name, k.Key, k.Name, ErrDuplicateKey, old.Name)
	}
	if k.Body == nil {
		k.Body = Empty
	}
	k.framing = f
	f.kinds[k.Key] = k
	return nil
}

// MustRegister registers kinds and panics on a duplicate key.
func (f *Framing) MustRegister(kinds ...*Kind) {
	for _, k := range kinds {
		if err := f.Register(k); err != nil {
			panic(err)
		}
	}
}

// SetFallback makes unregistered keys decode as the given kind instead of as Unknown items.
// The fallback keeps the key found in the header.
func (f *Framing) SetFallback(k *Kind) {
	if k.Body == nil {
		k.Body = Empty
	}
	k.framing = f
	f.fallback = k
}

// Lookup returns the kind registered for a key.
func (f *Framing) Lookup(key uint32) (*Kind, bool) {
	k, ok := f.kinds[key]
	return k, ok
}

// Kinds returns the number of registered kinds.
func (f *Framing) Kinds() int {
	return len(f.kinds)
}

// span returns the number of bytes an item with the given header occupies on the wire.
func (f *Framing) span(h *Record) int {
	declared := int(h.Get(f.Length))
	if f.LengthIncludesHeader {
		return declared
	}
	return f.HeaderSize() + padTo(declared, f.Pad)
}

// contentEnd returns the end of the declared content, excluding padding.
func (f *Framing) contentEnd(off int, h *Record) int {
	declared := int(h.Get(f.Length))
	if f.LengthIncludesHeader {
		return off + declared
	}
	return off + f.HeaderSize() + declared
}

// Kind is a registered container type: a key, a body schema, and what may follow the body.
type Kind struct {
	Name string
	Key  uint32
	Body *Schema
	// Payload is true when opaque bytes follow the body.
	Payload bool
	// Children is the framing of nested items, if any.
	Children *Framing

	framing *Framing
}

func (k *Kind) String() string {
	return k.Name
}

// Framing returns the framing the kind is registered with.
func (k *Kind) Framing() *Framing {
	return k.framing
}

// Fixed reports whether items of this kind always have exactly the body size.
func (k *Kind) Fixed() bool {
	return !k.Payload && k.Children == nil
}

// New creates an empty container of this kind.
func (k *Kind) New() *Container {
	return &Container{
		kind:   k,
		Header: NewRecord(k.framing.Header),
		Body:   NewRecord(k.Body),
	}
}

// Decode decodes one item of this framing at buf[off:end]. It never fails: malformed input degrades
// to Unknown or Blob items. The returned offset is where the next sibling starts.
func (f *Framing) Decode(buf []byte, off int, end int) (Item, int) {
	hs := f.HeaderSize()
	if end-off < hs {
		return NewBlob(buf[off:end], ErrShortHeader), end
	}
	h := NewRecord(f.Header)
	h.Decode(buf[off : off+hs])
	span := f.span(h)
	if span < hs {
		return NewBlob(buf[off:end], fmt.Errorf("%s: declared length %d below header size", f.Name, span)), end
	}
	if off+span > end && !f.LengthIncludesHeader && f.contentEnd(off, h) <= end {
		core.LogWarn(f, "Item at ", off, " is missing its padding")
		span = end - off
	}
	if off+span > end {
		return newUnknown(f, h, buf[off+hs:end], ErrTruncated), end
	}
	next := off + span

	k, ok := f.Lookup(f.KeyOf(h))
	if !ok && f.fallback != nil {
		k, ok = f.fallback, true
	}
	if !ok {
		return newUnknown(f, h, buf[off+hs:next], ErrUnregistered), next
	}
	c := &Container{kind: k, Header: h, Body: NewRecord(k.Body)}
	if err := c.decode(buf, off, next); err != nil {
		return newUnknown(f, h, buf[off+hs:next], err), next
	}
	return c, next
}

// DecodeItems decodes consecutive items until buf[off:end] is exhausted. An unreadable header turns
// the remainder into a Blob and stops the loop.
func (f *Framing) DecodeItems(buf []byte, off int, end int) []Item {
	var items []Item
	for off < end {
		it, next := f.Decode(buf, off, end)
		items = append(items, it)
		if b, ok := it.(*Blob); ok && next >= end {
			core.LogDebug(f, "Stopping at unreadable item: ", b.Cause)
		}
		off = next
	}
	return items
}
