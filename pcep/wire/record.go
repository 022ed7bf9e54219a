/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"fmt"
	"math"
	"strconv"

	"github.com/pcepsim/pcepd/core"
)

// Empty is the zero-field schema used by framing-only kinds.
var Empty = MustCompile("empty", 1)

// Record holds one value per field of a schema. Unset fields read as their default.
type Record struct {
	schema   *Schema
	vals     []uint64
	set      []bool
	warnings []string
}

// NewRecord creates an empty record. No value storage is allocated until a field is set.
func NewRecord(s *Schema) *Record {
	return &Record{schema: s}
}

func (r *Record) String() string {
	return r.schema.name
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Size returns the encoded byte size, which is always the schema size.
func (r *Record) Size() int {
	return r.schema.size
}

func (r *Record) ensure() {
	if r.vals == nil {
		r.vals = make([]uint64, len(r.schema.fields))
		r.set = make([]bool, len(r.schema.fields))
	}
}

// IsSet returns whether the field holds an explicit value.
func (r *Record) IsSet(id FieldID) bool {
	return r.set != nil && r.set[id]
}

// Get returns the raw value of a field.
func (r *Record) Get(id FieldID) uint64 {
	if r.set == nil || !r.set[id] {
		return r.schema.fields[id].Default
	}
	return r.vals[id]
}

// Flag returns the value of a flag field.
func (r *Record) Flag(id FieldID) bool {
	return r.Get(id) != 0
}

// Float returns the value of a float field.
func (r *Record) Float(id FieldID) float32 {
	return math.Float32frombits(uint32(r.Get(id)))
}

// Set stores a value, failing if it does not fit the field.
func (r *Record) Set(id FieldID, v uint64) error {
	f := r.schema.fields[id]
	if v > f.Max() {
		return fmt.Errorf("%s.%s=%d: %w", r.schema.name, f.Name, v, ErrOutOfRange)
	}
	if f.Kind == KindReserved && v != 0 {
		r.warn("forcing reserved bits ", f.Name, " to ", v)
	}
	r.ensure()
	r.vals[id] = v
	r.set[id] = true
	return nil
}

// SetDegraded stores a value, masking it to the field width with a warning if it does not fit.
func (r *Record) SetDegraded(id FieldID, v uint64) {
	f := r.schema.fields[id]
	if v > f.Max() {
		r.warn("value ", v, " masked to fit ", f.Name)
		v &= f.Max()
	}
	_ = r.Set(id, v)
}

// MustSet is Set for values that are known to fit. It panics otherwise.
func (r *Record) MustSet(id FieldID, v uint64) *Record {
	if err := r.Set(id, v); err != nil {
		panic(err)
	}
	return r
}

// SetFlag stores a flag value. It panics if the field is not a flag.
func (r *Record) SetFlag(id FieldID, v bool) {
	r.mustKind(id, KindFlag)
	if v {
		r.MustSet(id, 1)
	} else {
		r.MustSet(id, 0)
	}
}

// SetFloat stores a float value. It panics if the field is not a float.
func (r *Record) SetFloat(id FieldID, v float32) {
	r.mustKind(id, KindFloat32)
	r.MustSet(id, uint64(math.Float32bits(v)))
}

func (r *Record) mustKind(id FieldID, kind FieldKind) {
	if f := r.schema.fields[id]; f.Kind != kind {
		panic(fmt.Errorf("%s.%s is a %s field, not %s: %w", r.schema.name, f.Name, f.Kind, kind, ErrWrongKind))
	}
}

// Clear resets a field to its default.
func (r *Record) Clear(id FieldID) {
	if r.set != nil {
		r.set[id] = false
		r.vals[id] = 0
	}
}

// Warnings returns the conformance warnings raised while decoding or setting this record.
func (r *Record) Warnings() []string {
	return r.warnings
}

func (r *Record) warn(components ...interface{}) {
	msg := fmt.Sprint(components...)
	r.warnings = append(r.warnings, msg)
	core.LogWarn(r, components...)
}

// EncodeTo writes the record into buf, which must be zero-filled and at least Size() bytes long.
func (r *Record) EncodeTo(buf []byte) {
	for id, f := range r.schema.fields {
		v := r.Get(FieldID(id))
		if f.Kind == KindReserved && v != 0 {
			r.warn("writing set reserved bits ", f.Name)
		}
		f.write(buf, v)
	}
}

// Encode writes the record into a freshly allocated buffer.
func (r *Record) Encode() []byte {
	buf := make([]byte, r.schema.size)
	r.EncodeTo(buf)
	return buf
}

// Decode reads every field from buf, which must be at least Size() bytes long. Reads never fail;
// reserved bits found set only produce a warning.
func (r *Record) Decode(buf []byte) {
	r.ensure()
	for id, f := range r.schema.fields {
		v := f.read(buf)
		if f.Kind == KindReserved && v != 0 {
			r.warn("reserved bits ", f.Name, " set to ", v)
		}
		r.vals[id] = v
		r.set[id] = true
	}
}

// Show renders the record's fields in offset order. Reserved fields appear only when set.
func (r *Record) Show() *Tree {
	t := NewTree(r.schema.name, "")
	for _, id := range r.schema.order {
		f := r.schema.fields[id]
		v := r.Get(id)
		switch f.Kind {
		case KindReserved:
			if v != 0 {
				t.Add(f.Name, "0x"+strconv.FormatUint(v, 16))
			}
		case KindFlag:
			t.Add(f.Name, strconv.FormatBool(v != 0))
		case KindFloat32:
			t.Add(f.Name, strconv.FormatFloat(float64(math.Float32frombits(uint32(v))), 'g', -1, 32))
		default:
			t.Add(f.Name, strconv.FormatUint(v, 10))
		}
	}
	return t
}
