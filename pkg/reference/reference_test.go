// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package reference

import (
	"math/rand/v2"
	"testing"

	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiply(t *testing.T) {
	a := must.M1(matrix.FromRows([][]uint32{{1, 2}, {3, 4}, {5, 6}}))
	b := must.M1(matrix.FromRows([][]uint32{{7, 8, 9, 10}, {11, 12, 13, 14}}))
	want := must.M1(matrix.FromRows([][]uint32{
		{29, 32, 35, 38},
		{65, 72, 79, 86},
		{101, 112, 123, 134},
	}))
	got := must.M1(Multiply(a, b))
	require.True(t, want.Equal(got), "got %s", got)

	gotT := must.M1(MultiplyTransposed(a, matrix.Transpose(b)))
	require.True(t, want.Equal(gotT), "got %s", gotT)

	_, err := Multiply(a, a)
	require.Error(t, err)
	_, err = MultiplyTransposed(a, b)
	require.Error(t, err)
}

func TestWraparound(t *testing.T) {
	// (2^32-1)^2 = 1 (mod 2^32), so each dot product of 16 such terms is 16.
	a := matrix.New[uint32](2, 16)
	for ii := range a.Flat() {
		a.Flat()[ii] = ^uint32(0)
	}
	c := must.M1(MultiplyTransposed(a, a))
	for _, v := range c.Flat() {
		assert.Equal(t, uint32(16), v)
	}

	// 200*200*2 = 80000 = 0x13880, low 8 bits are 0x80.
	a8 := must.M1(matrix.FromRows([][]uint8{{200, 200}}))
	b8 := must.M1(matrix.FromRows([][]uint8{{200}, {200}}))
	c8 := must.M1(Multiply(a8, b8))
	assert.Equal(t, uint8(0x80), c8.At(0, 0))
}

func TestMultiplyPacked(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	n, m, p := 16, 32, 16
	a := matrix.Random[uint32](n, m, rng, 100)
	b := matrix.Random[uint32](m, p, rng, 100)
	bT := matrix.Transpose(b)
	want := must.M1(Multiply(a, b))

	out := packed.NewStream[uint32](n * p / 16)
	require.NoError(t, MultiplyPacked(must.M1(packed.Encode(a)), must.M1(packed.Encode(bT)), out, n, m, p))
	got := must.M1(packed.Decode(out, n, p))
	require.True(t, want.Equal(got))

	require.Error(t, MultiplyPacked(must.M1(packed.Encode(a)), must.M1(packed.Encode(bT)), out, n, m, 2*p))
	require.Error(t, MultiplyPacked(must.M1(packed.Encode(a)), must.M1(packed.Encode(bT)), out, 0, m, p))
}
