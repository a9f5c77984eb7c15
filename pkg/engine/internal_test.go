// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package engine

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedLane uint32

func TestSelectDot(t *testing.T) {
	uint32Fn := selectDot[uint32]()
	assert.Equal(t, reflect.ValueOf(dotUint32x16).Pointer(), reflect.ValueOf(uint32Fn).Pointer(),
		"uint32 should use the unrolled 16-lane version")

	// Derived types fall back to the generic version, which must still work.
	named := selectDot[namedLane]()
	assert.Equal(t, namedLane(1*3+2*4), named([]namedLane{1, 2}, []namedLane{3, 4}))

	rng := rand.New(rand.NewPCG(1, 2))
	for _, size := range []int{16, 32, 128} {
		a := make([]uint32, size)
		b := make([]uint32, size)
		for ii := range a {
			a[ii] = rng.Uint32()
			b[ii] = rng.Uint32()
		}
		var want uint32
		for ii := range a {
			want += a[ii] * b[ii]
		}
		require.Equal(t, want, dotUint32x16(a, b), "size=%d", size)
		require.Equal(t, want, dotGeneric(a, b), "size=%d", size)
	}

	// Odd sizes exercise the generic tail.
	assert.Equal(t, uint8(1+4+9+16+25), dotGeneric([]uint8{1, 2, 3, 4, 5}, []uint8{1, 2, 3, 4, 5}))
}

func TestPrefetchRing(t *testing.T) {
	r := newPrefetchRing[uint16](4)
	r.preload([]uint16{1, 2, 3, 4})
	r.prefetch([]uint16{5, 6, 7, 8})
	assert.Equal(t, []uint16{1, 2, 3, 4}, r.cur(), "prefetch must not touch the current slot")
	r.swap()
	assert.Equal(t, []uint16{5, 6, 7, 8}, r.cur())
	r.prefetch([]uint16{9, 10, 11, 12})
	r.swap()
	assert.Equal(t, []uint16{9, 10, 11, 12}, r.cur())
	assert.Equal(t, 3, r.loads)

	r.reset()
	assert.Equal(t, 0, r.loads)
	assert.Equal(t, []uint16{0, 0, 0, 0}, r.cur())
}
