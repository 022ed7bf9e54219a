/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldKind determines how a field's bits are interpreted.
type FieldKind uint8

// Field kinds
const (
	KindUint FieldKind = iota
	KindFlag
	KindFloat32
	KindReserved
)

func (k FieldKind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindFlag:
		return "flag"
	case KindFloat32:
		return "float32"
	case KindReserved:
		return "reserved"
	default:
		return "unknown"
	}
}

// Field describes a value stored at a bit offset inside a record. Bit 0 is the most significant bit of byte 0.
// A Field stores nothing: values live in the Record that owns the schema.
type Field struct {
	Name    string
	Offset  int
	Width   int
	Kind    FieldKind
	Default uint64
}

// FieldID indexes a field within its schema.
type FieldID int

// Uint declares an unsigned integer field of up to 64 bits.
func Uint(name string, offset int, width int) Field {
	return Field{Name: name, Offset: offset, Width: width, Kind: KindUint}
}

// Flag declares a single-bit boolean field.
func Flag(name string, offset int) Field {
	return Field{Name: name, Offset: offset, Width: 1, Kind: KindFlag}
}

// Float32 declares a big-endian IEEE-754 single precision field. The offset must be byte-aligned.
func Float32(name string, offset int) Field {
	return Field{Name: name, Offset: offset, Width: 32, Kind: KindFloat32}
}

// Reserved declares bits that must be zero on the wire.
func Reserved(offset int, width int) Field {
	return Field{Name: fmt.Sprintf("reserved@%d", offset), Offset: offset, Width: width, Kind: KindReserved}
}

// WithDefault returns a copy of the field with a default value.
func (f Field) WithDefault(v uint64) Field {
	f.Default = v
	return f
}

// WithFloatDefault returns a copy of a float field with a default value.
func (f Field) WithFloatDefault(v float32) Field {
	f.Default = uint64(math.Float32bits(v))
	return f
}

func (f Field) end() int {
	return f.Offset + f.Width
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint64 {
	if f.Width >= 64 {
		return math.MaxUint64
	}
	return 1<<f.Width - 1
}

func (f Field) validate() error {
	if f.Offset < 0 || f.Width <= 0 || f.Width > 64 {
		return fmt.Errorf("%w: %s at %d width %d", ErrBadField, f.Name, f.Offset, f.Width)
	}
	switch f.Kind {
	case KindFlag:
		if f.Width != 1 {
			return fmt.Errorf("%w: flag %s must be one bit", ErrBadField, f.Name)
		}
	case KindFloat32:
		if f.Width != 32 || f.Offset%8 != 0 {
			return fmt.Errorf("%w: float %s must be byte-aligned and 32 bits", ErrBadField, f.Name)
		}
	}
	if f.Default > f.Max() {
		return fmt.Errorf("%w: default of %s", ErrOutOfRange, f.Name)
	}
	return nil
}

// read extracts the field's raw bits from buf. Reads never fail.
func (f Field) read(buf []byte) uint64 {
	if f.Kind == KindFloat32 {
		return uint64(binary.BigEndian.Uint32(buf[f.Offset/8:]))
	}
	return readBits(buf, f.Offset, f.Width)
}

// write ORs the value into buf, which must be zero over the field's bits. Zero values are not written.
func (f Field) write(buf []byte, v uint64) {
	if v == 0 {
		return
	}
	if f.Kind == KindFloat32 {
		binary.BigEndian.PutUint32(buf[f.Offset/8:], uint32(v))
		return
	}
	writeBits(buf, f.Offset, f.Width, v)
}

func readBits(buf []byte, off int, width int) uint64 {
	var v uint64
	for width > 0 {
		bit := off % 8
		n := 8 - bit
		if n > width {
			n = width
		}
		b := (buf[off/8] >> (8 - bit - n)) & byte(1<<n-1)
		v = v<<n | uint64(b)
		off += n
		width -= n
	}
	return v
}

func writeBits(buf []byte, off int, width int, v uint64) {
	for width > 0 {
		bit := off % 8
		n := 8 - bit
		if n > width {
			n = width
		}
		width -= n
		chunk := byte(v>>width) & byte(1<<n-1)
		buf[off/8] |= chunk << (8 - bit - n)
		off += n
	}
}
