// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/gomlx/streamgemm/pkg/core/dtypes"

// prefetchRing is a two-slot ring of segment buffers: the current slot is consumed by the compute
// stage while the next segment is loaded into the other slot.
//
// A segment is the run of words read per step: one row of A, or one column of the transposed B.
type prefetchRing[T dtypes.Unsigned] struct {
	slots   [2][]T
	current int

	// loads counts segment loads since the last reset.
	loads int
}

func newPrefetchRing[T dtypes.Unsigned](segmentLanes int) *prefetchRing[T] {
	r := &prefetchRing[T]{}
	for ii := range r.slots {
		r.slots[ii] = make([]T, segmentLanes)
	}
	return r
}

// reset clears the ring and its counters.
func (r *prefetchRing[T]) reset() {
	for ii := range r.slots {
		clear(r.slots[ii])
	}
	r.current = 0
	r.loads = 0
}

// preload loads src into the current slot.
func (r *prefetchRing[T]) preload(src []T) {
	copy(r.slots[r.current], src)
	r.loads++
}

// prefetch loads src into the next slot, leaving the current one untouched.
func (r *prefetchRing[T]) prefetch(src []T) {
	copy(r.slots[1-r.current], src)
	r.loads++
}

// cur returns the current slot.
func (r *prefetchRing[T]) cur() []T {
	return r.slots[r.current]
}

// swap makes the prefetched slot the current one.
func (r *prefetchRing[T]) swap() {
	r.current = 1 - r.current
}
