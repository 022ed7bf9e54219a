/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package wire

import (
	"fmt"
	"strconv"
)

// Multiplicity is how many times a grammar rule may match.
type Multiplicity uint8

// Multiplicities
const (
	One Multiplicity = iota
	Optional
	Many
	OneOrMore
)

func (m Multiplicity) String() string {
	switch m {
	case One:
		return "1"
	case Optional:
		return "?"
	case Many:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return "!"
	}
}

func (m Multiplicity) required() bool {
	return m == One || m == OneOrMore
}

func (m Multiplicity) single() bool {
	return m == One || m == Optional
}

// Rule matches items of one of several kinds, or a nested grammar.
type Rule struct {
	Name  string
	Kinds []*Kind
	Sub   *Grammar
	Mult  Multiplicity
}

func (r *Rule) matches(k *Kind) bool {
	for _, want := range r.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// Grammar is an ordered list of rules describing the logical structure of an item sequence.
type Grammar struct {
	Name  string
	Rules []Rule

	index map[string]int
}

// NewGrammar creates a grammar from rules.
func NewGrammar(name string, rules ...Rule) *Grammar {
	g := &Grammar{Name: name, Rules: rules, index: make(map[string]int, len(rules))}
	for i, r := range rules {
		g.index[r.Name] = i
	}
	return g
}

// Match is a rule matching any of the given kinds.
func Match(name string, mult Multiplicity, kinds ...*Kind) Rule {
	return Rule{Name: name, Kinds: kinds, Mult: mult}
}

// Nest is a rule matching a nested grammar.
func Nest(name string, mult Multiplicity, sub *Grammar) Rule {
	return Rule{Name: name, Sub: sub, Mult: mult}
}

func (g *Grammar) rule(name string) int {
	i, ok := g.index[name]
	if !ok {
		panic(fmt.Errorf("%s: %w %q", g.Name, ErrUnknownRule, name))
	}
	return i
}

// NewGroup creates an empty group for building a structure by hand.
func (g *Grammar) NewGroup() *Group {
	return &Group{grammar: g, slots: make([][]Entry, len(g.Rules)), valid: true}
}

// Entry is one slot entry: either an item or a nested group.
type Entry struct {
	Item  Item
	Group *Group
}

// Group is a staging view of an item sequence arranged by a grammar. It does not track later
// changes to the sequence it was grabbed from, nor does the sequence track changes to the group.
type Group struct {
	grammar *Grammar
	slots   [][]Entry
	// Extra holds trailing items no rule accepted.
	Extra []Item
	valid bool
	count int
}

// Grammar returns the group's grammar.
func (g *Group) Grammar() *Grammar {
	return g.grammar
}

// Valid reports whether every required rule matched and no opaque or invalid item was seen.
func (g *Group) Valid() bool {
	return g.valid
}

// Grab arranges items[start:] by the grammar and returns the index after the last consumed item.
// The grab is complete when that index equals len(items). Items left over are kept in Extra so that
// Pack still reproduces the whole sequence.
func (g *Group) Grab(items []Item, start int) int {
	end := g.grab(items, start)
	g.Extra = nil
	if end < len(items) {
		g.Extra = append(g.Extra, items[end:]...)
		g.valid = false
	}
	return end
}

func (g *Group) grab(items []Item, start int) int {
	g.slots = make([][]Entry, len(g.grammar.Rules))
	g.valid = true
	g.count = 0
	i := start
	for ri := range g.grammar.Rules {
		rule := &g.grammar.Rules[ri]
		count := 0
		for i < len(items) {
			it := items[i]
			if it.Kind() == nil {
				g.slots[ri] = append(g.slots[ri], Entry{Item: it})
				g.valid = false
				i++
				continue
			}
			if rule.Mult.single() && count == 1 {
				break
			}
			if rule.Sub != nil {
				sub := rule.Sub.NewGroup()
				j := sub.grab(items, i)
				if sub.count == 0 {
					break
				}
				if !sub.valid {
					g.valid = false
				}
				g.slots[ri] = append(g.slots[ri], Entry{Group: sub})
				g.count += sub.count
				i = j
				count++
				continue
			}
			if !rule.matches(it.Kind()) {
				break
			}
			if !it.Valid() {
				g.valid = false
			}
			g.slots[ri] = append(g.slots[ri], Entry{Item: it})
			g.count++
			count++
			i++
		}
		if count == 0 && rule.Mult.required() {
			g.valid = false
		}
	}
	return i
}

// Pack appends the group's items to out in slot order and returns the result.
func (g *Group) Pack(out []Item) []Item {
	for ri, entries := range g.slots {
		count := 0
		for _, e := range entries {
			if e.Group != nil {
				out = e.Group.Pack(out)
				if !e.Group.valid {
					g.valid = false
				}
				count++
			} else {
				out = append(out, e.Item)
				if e.Item.Kind() != nil {
					count++
				}
			}
		}
		if count == 0 && g.grammar.Rules[ri].Mult.required() {
			g.valid = false
		}
	}
	return append(out, g.Extra...)
}

// Add appends an item to a rule's slot and returns the receiver.
func (g *Group) Add(rule string, it Item) *Group {
	ri := g.grammar.rule(rule)
	g.slots[ri] = append(g.slots[ri], Entry{Item: it})
	g.count++
	return g
}

// Nest appends a new nested group to a rule's slot and returns it.
func (g *Group) Nest(rule string) *Group {
	ri := g.grammar.rule(rule)
	sub := g.grammar.Rules[ri].Sub.NewGroup()
	g.slots[ri] = append(g.slots[ri], Entry{Group: sub})
	return sub
}

// Entries returns a rule's slot.
func (g *Group) Entries(rule string) []Entry {
	return g.slots[g.grammar.rule(rule)]
}

// Items returns the items in a rule's slot, skipping nested groups.
func (g *Group) Items(rule string) []Item {
	var ret []Item
	for _, e := range g.Entries(rule) {
		if e.Item != nil {
			ret = append(ret, e.Item)
		}
	}
	return ret
}

// First returns the first container in a rule's slot, or nil.
func (g *Group) First(rule string) *Container {
	for _, e := range g.Entries(rule) {
		if c, ok := e.Item.(*Container); ok {
			return c
		}
	}
	return nil
}

// Groups returns the nested groups in a rule's slot.
func (g *Group) Groups(rule string) []*Group {
	var ret []*Group
	for _, e := range g.Entries(rule) {
		if e.Group != nil {
			ret = append(ret, e.Group)
		}
	}
	return ret
}

// Show renders the group rule by rule.
func (g *Group) Show() *Tree {
	t := NewTree(g.grammar.Name, "")
	for ri, entries := range g.slots {
		if len(entries) == 0 {
			continue
		}
		r := &g.grammar.Rules[ri]
		slot := NewTree(r.Name, r.Mult.String())
		for i, e := range entries {
			if e.Group != nil {
				sub := e.Group.Show()
				sub.Value = strconv.Itoa(i)
				slot.Attach(sub)
			} else {
				slot.Attach(e.Item.Show())
			}
		}
		t.Attach(slot)
	}
	for _, it := range g.Extra {
		t.Attach(it.Show())
	}
	if !g.valid {
		t.Add("valid", "false")
	}
	return t
}
