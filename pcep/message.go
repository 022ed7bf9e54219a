/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package pcep

import (
	"fmt"
	"time"

	"github.com/pcepsim/pcepd/pcep/wire"
)

// Message is a PCEP message: a common header followed by a flat list of objects.
//
// The flat list is authoritative. Restructure arranges it by the message grammar into a Group,
// which is a copy of the arrangement, not a live view: editing the Group changes nothing until it
// is written back with Flatten, and editing Objects after Restructure leaves the Group stale.
type Message struct {
	*wire.Container
	// Received is set when the message is read off a session.
	Received time.Time
}

// NewMessage creates an empty message of the given type.
func NewMessage(t MessageType) *Message {
	LoadCatalogue()
	k, ok := Messages.Lookup(uint32(t))
	if !ok {
		c := KindMsgGeneric.New()
		c.Header.SetDegraded(MessageTypeID, uint64(t))
		return &Message{Container: c}
	}
	return &Message{Container: k.New()}
}

// DecodeMessage decodes the message at the start of buf. Malformed objects degrade to Unknown and Blob
// items inside the message; an error is returned only if buf cannot hold the declared message.
func DecodeMessage(buf []byte) (*Message, error) {
	LoadCatalogue()
	hdr, err := PeekHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.Length < MessageHeaderSize {
		return nil, fmt.Errorf("%w: %s", ErrBadLength, hdr)
	}
	if hdr.Length > len(buf) {
		return nil, fmt.Errorf("%w: %s, have %d bytes", ErrShortMessage, hdr, len(buf))
	}
	it, _ := Messages.Decode(buf, 0, hdr.Length)
	c, ok := it.(*wire.Container)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadLength, hdr)
	}
	return &Message{Container: c}, nil
}

func (m *Message) String() string {
	return m.Type().String()
}

// Type returns the message type from the header.
func (m *Message) Type() MessageType {
	return MessageType(m.Container.Key())
}

// Version returns the protocol version from the header.
func (m *Message) Version() uint8 {
	return uint8(m.Header.Get(MessageVersion))
}

// Objects returns the flat object list.
func (m *Message) Objects() []wire.Item {
	return m.Children
}

// Valid reports whether the message has the supported version and every object decoded cleanly.
// It does not check the grammar; see Restructure.
func (m *Message) Valid() bool {
	return m.Version() == Version && m.Container.Valid()
}

// Restructure arranges the object list by the message grammar.
func (m *Message) Restructure() (*wire.Group, error) {
	gr, ok := GrammarFor(m.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGrammar, m.Type())
	}
	g := gr.NewGroup()
	g.Grab(m.Children, 0)
	return g, nil
}

// Flatten replaces the object list with the contents of g.
func (m *Message) Flatten(g *wire.Group) {
	m.Children = g.Pack(nil)
}

// Find returns the first object of the given kind.
func (m *Message) Find(k *wire.Kind) *wire.Container {
	return FindIn(m.Children, k)
}

// FindIn returns the first container of the given kind in items.
func FindIn(items []wire.Item, k *wire.Kind) *wire.Container {
	for _, it := range items {
		if it.Kind() == k {
			return it.(*wire.Container)
		}
	}
	return nil
}

// Show renders the message.
func (m *Message) Show() *wire.Tree {
	t := m.Container.Show()
	t.Label = m.Type().String()
	return t
}
