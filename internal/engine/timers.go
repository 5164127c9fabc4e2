package engine

import (
	"container/heap"
	"time"
)

type timerKind int

const (
	timerEvaluate timerKind = iota
	timerSweep
)

// sweepKey never collides with claim IDs
const sweepKey = "\x00sweep"

type delayItem struct {
	key      string
	kind     timerKind
	deadline time.Time
	index    int
}

type delayHeap []*delayItem

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].key < h[j].key
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	item := x.(*delayItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// delayQueue is a min-heap of keyed deadlines. Arming an existing key
// replaces its deadline; cancelling an unknown key is a no-op.
type delayQueue struct {
	heap  delayHeap
	items map[string]*delayItem
}

func newDelayQueue() *delayQueue {
	return &delayQueue{items: make(map[string]*delayItem)}
}

func (q *delayQueue) Arm(key string, kind timerKind, deadline time.Time) {
	if item, ok := q.items[key]; ok {
		item.kind = kind
		item.deadline = deadline
		heap.Fix(&q.heap, item.index)
		return
	}
	item := &delayItem{key: key, kind: kind, deadline: deadline}
	heap.Push(&q.heap, item)
	q.items[key] = item
}

// Cancel removes a pending deadline and reports whether one existed
func (q *delayQueue) Cancel(key string) bool {
	item, ok := q.items[key]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, item.index)
	delete(q.items, key)
	return true
}

// Peek returns the earliest deadline
func (q *delayQueue) Peek() (time.Time, bool) {
	if len(q.heap) == 0 {
		return time.Time{}, false
	}
	return q.heap[0].deadline, true
}

// PopDue removes and returns every item due at now, earliest first
func (q *delayQueue) PopDue(now time.Time) []*delayItem {
	var due []*delayItem
	for len(q.heap) > 0 && !q.heap[0].deadline.After(now) {
		item := heap.Pop(&q.heap).(*delayItem)
		delete(q.items, item.key)
		due = append(due, item)
	}
	return due
}

func (q *delayQueue) Armed(key string) bool {
	_, ok := q.items[key]
	return ok
}

func (q *delayQueue) Len() int {
	return len(q.heap)
}

func (q *delayQueue) Clear() {
	q.heap = nil
	q.items = make(map[string]*delayItem)
}
