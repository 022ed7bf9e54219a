/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package priority_queue

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Item is a handle to a queued value. It stays valid until the value is popped or removed.
type Item[V any, P constraints.Ordered] struct {
	Value    V
	priority P
	index    int
}

// Priority returns the priority the item is queued with.
func (it *Item[V, P]) Priority() P {
	return it.priority
}

// Queued reports whether the item is still in a queue.
func (it *Item[V, P]) Queued() bool {
	return it.index >= 0
}

type wrapper[V any, P constraints.Ordered] []*Item[V, P]

func (pq *wrapper[V, P]) Len() int {
	return len(*pq)
}

func (pq *wrapper[V, P]) Less(i, j int) bool {
	return (*pq)[i].priority < (*pq)[j].priority
}

func (pq *wrapper[V, P]) Swap(i, j int) {
	(*pq)[i], (*pq)[j] = (*pq)[j], (*pq)[i]
	(*pq)[i].index = i
	(*pq)[j].index = j
}

func (pq *wrapper[V, P]) Push(x any) {
	item := x.(*Item[V, P])
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *wrapper[V, P]) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*pq = old[0 : n-1]
	return item
}

// Queue represents a priority queue with MINIMUM priority.
type Queue[V any, P constraints.Ordered] struct {
	pq wrapper[V, P]
}

// New creates a new priority queue. Not required to call.
func New[V any, P constraints.Ordered]() Queue[V, P] {
	return Queue[V, P]{wrapper[V, P]{}}
}

// Len returns the length of the priority queue.
func (q *Queue[V, P]) Len() int {
	return len(q.pq)
}

// Push pushes the 'value' onto the priority queue.
func (q *Queue[V, P]) Push(value V, priority P) *Item[V, P] {
	ret := &Item[V, P]{
		Value:    value,
		priority: priority,
	}
	heap.Push(&q.pq, ret)
	return ret
}

// Peek returns the minimum element of the priority queue without removing it.
func (q *Queue[V, P]) Peek() V {
	return q.pq[0].Value
}

// PeekPriority returns the minimum element's priority.
func (q *Queue[V, P]) PeekPriority() P {
	return q.pq[0].priority
}

// Pop removes and returns the minimum element of the priority queue.
func (q *Queue[V, P]) Pop() V {
	return heap.Pop(&q.pq).(*Item[V, P]).Value
}

// Update changes the priority of a queued item.
func (q *Queue[V, P]) Update(it *Item[V, P], priority P) bool {
	if it.index < 0 || it.index >= len(q.pq) || q.pq[it.index] != it {
		return false
	}
	it.priority = priority
	heap.Fix(&q.pq, it.index)
	return true
}

// Remove takes a queued item out of the queue.
func (q *Queue[V, P]) Remove(it *Item[V, P]) bool {
	if it.index < 0 || it.index >= len(q.pq) || q.pq[it.index] != it {
		return false
	}
	heap.Remove(&q.pq, it.index)
	return true
}
