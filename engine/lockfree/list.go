// Package lockfree provides the append-only, lock-free data structures
// shared by the pipeline cache and the scratch allocator pool: a
// singly-linked list that supports concurrent lock-free iteration and
// insertion, and never frees nodes while the list is alive.
package lockfree

import "sync/atomic"

/**
 * @brief Append-only lock-free list.
 *
 * Supports lock-free iteration as well as insertion. Items cannot be
 * removed once added, since that would require locking around
 * deletion and iteration. This mirrors the discipline of the caches
 * that use it: they grow for the life of the program.
 */
type List[T any] struct {
	head atomic.Pointer[node[T]]
}

type node[T any] struct {
	data T
	next *node[T]
}

// Insert publishes data at the head of the list with a release CAS
// and returns it. Safe to call concurrently from any number of
// goroutines.
func (l *List[T]) Insert(data T) *T {
	n := &node[T]{data: data}

	for {
		head := l.head.Load()
		n.next = head

		if l.head.CompareAndSwap(head, n) {
			return &n.data
		}
	}
}

// Range calls fn for every element currently reachable from the head,
// in most-recently-inserted-first order. The pointer passed to fn
// stays valid for the life of the list, since nodes are never freed
// or moved, but Range itself does not guarantee total ordering across
// concurrent writers.
func (l *List[T]) Range(fn func(*T) bool) {
	for n := l.head.Load(); n != nil; n = n.next {
		if !fn(&n.data) {
			return
		}
	}
}

// Find returns the first element for which match returns true, or
// nil if none match.
func (l *List[T]) Find(match func(*T) bool) *T {
	var found *T
	l.Range(func(item *T) bool {
		if match(item) {
			found = item
			return false
		}
		return true
	})
	return found
}
