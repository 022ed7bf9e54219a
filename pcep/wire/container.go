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

	"github.com/pcepsim/pcepd/core"
)

// Item is anything that can appear in a container's child list.
type Item interface {
	// Kind returns the registered kind, or nil for opaque items (Unknown and Blob).
	Kind() *Kind
	// Size returns the encoded size. It is computed on every call.
	Size() int
	// EncodeTo writes the item into buf, which must be zero-filled and at least Size() bytes long.
	EncodeTo(buf []byte) int
	// Valid reports whether the item and everything inside it decoded cleanly.
	Valid() bool
	Show() *Tree
}

// Container is a framed item: header, body fields, optional payload and nested children.
type Container struct {
	kind     *Kind
	Header   *Record
	Body     *Record
	Payload  []byte
	Children []Item

	lengthOverride int
	overridden     bool
}

func (c *Container) String() string {
	return c.kind.Name
}

// Kind returns the container's kind.
func (c *Container) Kind() *Kind {
	return c.kind
}

// Key returns the registry key from the header, which differs from the kind's key only for fallback kinds.
func (c *Container) Key() uint32 {
	if c.kind == c.kind.framing.fallback {
		return c.kind.framing.KeyOf(c.Header)
	}
	return c.kind.Key
}

// OverrideLength makes Encode stamp the given length instead of the computed one.
// It exists to reproduce non-conformant peers.
func (c *Container) OverrideLength(length int) {
	c.lengthOverride = length
	c.overridden = true
}

// ClearOverride restores the computed length.
func (c *Container) ClearOverride() {
	c.overridden = false
}

// Append adds children and returns the receiver.
func (c *Container) Append(items ...Item) *Container {
	c.Children = append(c.Children, items...)
	return c
}

func (c *Container) contentSize() int {
	n := c.Body.Size() + len(c.Payload)
	for _, child := range c.Children {
		n += child.Size()
	}
	return n
}

// Size returns the encoded size including header and padding.
func (c *Container) Size() int {
	f := c.kind.framing
	return f.HeaderSize() + padTo(c.contentSize(), f.Pad)
}

// Length returns the value that Encode stamps into the header length field.
func (c *Container) Length() int {
	if c.overridden {
		return c.lengthOverride
	}
	if c.kind.framing.LengthIncludesHeader {
		return c.Size()
	}
	return c.contentSize()
}

// Valid reports whether every child decoded cleanly.
func (c *Container) Valid() bool {
	for _, child := range c.Children {
		if !child.Valid() {
			return false
		}
	}
	return true
}

// EncodeTo stamps key and length into the header, then writes header, body, payload and children.
func (c *Container) EncodeTo(buf []byte) int {
	f := c.kind.framing
	if c.kind != f.fallback {
		f.StampKey(c.Header, c.kind.Key)
	}
	c.Header.SetDegraded(f.Length, uint64(c.Length()))
	c.Header.EncodeTo(buf)

	off := f.HeaderSize()
	c.Body.EncodeTo(buf[off:])
	off += c.Body.Size()
	off += copy(buf[off:], c.Payload)
	for _, child := range c.Children {
		off += child.EncodeTo(buf[off:])
	}
	return f.HeaderSize() + padTo(off-f.HeaderSize(), f.Pad)
}

// Encode writes the container into a freshly allocated buffer.
func (c *Container) Encode() []byte {
	buf := make([]byte, c.Size())
	c.EncodeTo(buf)
	return buf
}

// decode parses body, payload and children of a container whose header is already decoded.
// next is the end of the item's wire span.
func (c *Container) decode(buf []byte, off int, next int) error {
	f := c.kind.framing
	hs := f.HeaderSize()
	end := f.contentEnd(off, c.Header)
	if end > next {
		end = next
	}
	bodyEnd := off + hs + c.Body.Size()
	if bodyEnd > end {
		return &SizeError{Kind: c.kind.Name, Declared: int(c.Header.Get(f.Length)), Want: c.minLength()}
	}
	if c.kind.Fixed() && bodyEnd != end {
		return &SizeError{Kind: c.kind.Name, Declared: int(c.Header.Get(f.Length)), Want: c.minLength(), Fixed: true}
	}
	c.Body.Decode(buf[off+hs : bodyEnd])
	if c.kind.Payload {
		c.Payload = append([]byte(nil), buf[bodyEnd:end]...)
	} else if c.kind.Children != nil {
		c.Children = c.kind.Children.DecodeItems(buf, bodyEnd, end)
	}
	for i := end; i < next; i++ {
		if buf[i] != 0 {
			core.LogWarn(c, "Non-zero padding at offset ", i)
			break
		}
	}
	return nil
}

func (c *Container) minLength() int {
	if c.kind.framing.LengthIncludesHeader {
		return c.kind.framing.HeaderSize() + c.Body.Size()
	}
	return c.Body.Size()
}

// Show renders the container with its header, body, payload and children.
func (c *Container) Show() *Tree {
	t := NewTree(c.kind.Name, "")
	t.Add("length", strconv.Itoa(c.Length()))
	for _, f := range c.Header.Show().Children {
		if f.Label != c.kind.framing.Header.fields[c.kind.framing.Length].Name {
			t.Attach(f)
		}
	}
	t.Children = append(t.Children, c.Body.Show().Children...)
	if len(c.Payload) > 0 {
		t.Add("payload", hex.EncodeToString(c.Payload))
	}
	for _, child := range c.Children {
		t.Attach(child.Show())
	}
	if !c.Valid() {
		t.Add("valid", "false")
	}
	return t
}
