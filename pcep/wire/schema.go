/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// DefaultAlign is the byte alignment of PCEP records.
const DefaultAlign = 4

// Schema is the compiled layout of a record type. It is built once and shared by every Record of that type.
type Schema struct {
	name   string
	fields []Field
	byName map[string]FieldID
	// order lists field IDs sorted by bit offset.
	order []FieldID
	size  int
	align int
}

// Compile builds a schema from a list of fields. Uncovered bits below the byte size become reserved fields.
// Fields keep their declaration order as their FieldID; synthesized fields follow.
func Compile(name string, align int, fields ...Field) (*Schema, error) {
	if align <= 0 {
		align = DefaultAlign
	}
	s := &Schema{
		name:   name,
		byName: make(map[string]FieldID, len(fields)),
		align:  align,
	}

	highWater := 0
	for _, f := range fields {
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, ok := s.byName[f.Name]; ok {
			return nil, fmt.Errorf("%s: %w: %s", name, ErrDuplicateField, f.Name)
		}
		s.byName[f.Name] = FieldID(len(s.fields))
		s.fields = append(s.fields, f)
		if f.end() > highWater {
			highWater = f.end()
		}
	}
	s.size = padTo((highWater+7)/8, align)

	covered := make([]bool, s.size*8)
	for _, f := range fields {
		for b := f.Offset; b < f.end(); b++ {
			if covered[b] {
				return nil, fmt.Errorf("%s: %w at bit %d (%s)", name, ErrFieldOverlap, b, f.Name)
			}
			covered[b] = true
		}
	}
	for b := 0; b < len(covered); {
		if covered[b] {
			b++
			continue
		}
		start := b
		for b < len(covered) && !covered[b] && b-start < 64 {
			b++
		}
		r := Reserved(start, b-start)
		s.byName[r.Name] = FieldID(len(s.fields))
		s.fields = append(s.fields, r)
	}

	s.order = make([]FieldID, len(s.fields))
	for i := range s.order {
		s.order[i] = FieldID(i)
	}
	slices.SortStableFunc(s.order, func(a, b FieldID) bool {
		return s.fields[a].Offset < s.fields[b].Offset
	})
	return s, nil
}

// MustCompile is like Compile but panics on an invalid layout. Used for package-level schemas.
func MustCompile(name string, align int, fields ...Field) *Schema {
	s, err := Compile(name, align, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func padTo(n int, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

func (s *Schema) String() string {
	return s.name
}

// Name returns the name of the record type.
func (s *Schema) Name() string {
	return s.name
}

// Size returns the padded byte size of the record.
func (s *Schema) Size() int {
	return s.size
}

// Align returns the byte alignment of the record.
func (s *Schema) Align() int {
	return s.align
}

// NumFields returns the number of fields, including synthesized reserved fields.
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the field definition with the given ID.
func (s *Schema) Field(id FieldID) Field {
	return s.fields[id]
}

// ID looks up a field by name.
func (s *Schema) ID(name string) (FieldID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// MustID looks up a field by name and panics if it does not exist.
func (s *Schema) MustID(name string) FieldID {
	id, ok := s.byName[name]
	if !ok {
		panic(fmt.Sprintf("%s has no field %q", s.name, name))
	}
	return id
}

// Layout returns the fields ordered by bit offset.
func (s *Schema) Layout() []Field {
	ret := make([]Field, len(s.order))
	for i, id := range s.order {
		ret[i] = s.fields[id]
	}
	return ret
}
