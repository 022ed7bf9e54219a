/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"encoding/hex"
	"strconv"
)

// Blob holds bytes that could not be framed at all: gaps, unreadable headers and leftovers.
// A Blob is always invalid.
type Blob struct {
	Data  []byte
	Cause error
}

// NewBlob copies data into a new Blob.
func NewBlob(data []byte, cause error) *Blob {
	return &Blob{Data: append([]byte(nil), data...), Cause: cause}
}

func (b *Blob) Kind() *Kind { return nil }

func (b *Blob) Size() int { return len(b.Data) }

func (b *Blob) Valid() bool { return false }

func (b *Blob) EncodeTo(buf []byte) int {
	return copy(buf, b.Data)
}

func (b *Blob) Show() *Tree {
	t := NewTree("blob", hex.EncodeToString(b.Data))
	if b.Cause != nil {
		t.Add("cause", b.Cause.Error())
	}
	return t
}

// Unknown is an item with a readable header whose body is unregistered or unparseable.
// It keeps the original header values and bytes so that it re-encodes unchanged. An Unknown is always invalid.
type Unknown struct {
	framing *Framing
	Header  *Record
	Raw     []byte
	Cause   error
}

func newUnknown(f *Framing, h *Record, raw []byte, cause error) *Unknown {
	return &Unknown{framing: f, Header: h, Raw: append([]byte(nil), raw...), Cause: cause}
}

// Framing returns the framing the header was decoded with.
func (u *Unknown) Framing() *Framing { return u.framing }

// Key returns the registry key found in the header.
func (u *Unknown) Key() uint32 { return u.framing.KeyOf(u.Header) }

func (u *Unknown) Kind() *Kind { return nil }

func (u *Unknown) Size() int { return u.framing.HeaderSize() + len(u.Raw) }

func (u *Unknown) Valid() bool { return false }

// EncodeTo writes the header exactly as decoded, followed by the original bytes.
func (u *Unknown) EncodeTo(buf []byte) int {
	u.Header.EncodeTo(buf)
	return u.framing.HeaderSize() + copy(buf[u.framing.HeaderSize():], u.Raw)
}

func (u *Unknown) Show() *Tree {
	t := NewTree("unknown "+u.framing.Name, "")
	t.Add("key", strconv.FormatUint(uint64(u.Key()), 10))
	t.Children = append(t.Children, u.Header.Show().Children...)
	if len(u.Raw) > 0 {
		t.Add("raw", hex.EncodeToString(u.Raw))
	}
	if u.Cause != nil {
		t.Add("cause", u.Cause.Error())
	}
	return t
}
