package queue

import (
	"container/heap"
	"sync"
	"time"

	"jobqueue-service/internal/core/domain"
)

// Ref is a lightweight reference to a pending job. Job bodies live in the
// store; the queue orders only these references.
type Ref struct {
	ID        string
	Priority  domain.Priority
	CreatedAt time.Time

	// seq is assigned on first push and preserved across requeues so that a
	// job keeps its place within its priority class.
	seq uint64
}

// PriorityQueue orders pending job references by priority class, then by age
// within a class. All operations are safe for concurrent use.
type PriorityQueue struct {
	mu    sync.Mutex
	items refHeap
	index map[string]*item
	seq   uint64
}

// NewPriorityQueue creates an empty priority queue
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{
		index: make(map[string]*item),
	}
	heap.Init(&pq.items)
	return pq
}

// Push inserts a reference. A reference that was previously popped keeps its
// original position within its priority class when pushed again.
func (pq *PriorityQueue) Push(ref Ref) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if _, exists := pq.index[ref.ID]; exists {
		return
	}

	if ref.seq == 0 {
		pq.seq++
		ref.seq = pq.seq
	}

	it := &item{ref: ref}
	heap.Push(&pq.items, it)
	pq.index[ref.ID] = it
}

// Pop removes and returns the highest-priority reference, or false when the
// queue is empty
func (pq *PriorityQueue) Pop() (Ref, bool) {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	if pq.items.Len() == 0 {
		return Ref{}, false
	}

	it := heap.Pop(&pq.items).(*item)
	delete(pq.index, it.ref.ID)
	return it.ref, true
}

// Remove deletes the reference with the given id, if present
func (pq *PriorityQueue) Remove(id string) bool {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	it, exists := pq.index[id]
	if !exists {
		return false
	}

	heap.Remove(&pq.items, it.pos)
	delete(pq.index, id)
	return true
}

// Contains reports whether a reference with the given id is queued
func (pq *PriorityQueue) Contains(id string) bool {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	_, exists := pq.index[id]
	return exists
}

// Size returns the number of queued references
func (pq *PriorityQueue) Size() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.items.Len()
}

// Drain removes and returns every queued reference in dispatch order
func (pq *PriorityQueue) Drain() []Ref {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	refs := make([]Ref, 0, pq.items.Len())
	for pq.items.Len() > 0 {
		it := heap.Pop(&pq.items).(*item)
		delete(pq.index, it.ref.ID)
		refs = append(refs, it.ref)
	}
	return refs
}

type item struct {
	ref Ref
	pos int
}

type refHeap []*item

func (h refHeap) Len() int { return len(h) }

func (h refHeap) Less(i, j int) bool {
	a, b := h[i].ref, h[j].ref
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.seq < b.seq
}

func (h refHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *refHeap) Push(x interface{}) {
	it := x.(*item)
	it.pos = len(*h)
	*h = append(*h, it)
}

func (h *refHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}
