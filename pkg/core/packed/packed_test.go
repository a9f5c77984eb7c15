// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packed

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanes(t *testing.T) {
	assert.Equal(t, 64, Lanes[uint8]())
	assert.Equal(t, 32, Lanes[uint16]())
	assert.Equal(t, 16, Lanes[uint32]())
	assert.Equal(t, 8, Lanes[uint64]())
}

func testRoundTrip[T dtypes.Unsigned](t *testing.T) {
	lanes := Lanes[T]()
	dims := [][2]int{{1, lanes}, {lanes, lanes}, {2 * lanes, lanes}, {lanes, 4 * lanes}, {4, lanes / 2}}
	for _, d := range dims {
		rows, cols := d[0], d[1]
		t.Run(fmt.Sprintf("%dx%d", rows, cols), func(t *testing.T) {
			m := matrix.Random[T](rows, cols, rand.New(rand.NewPCG(uint64(rows), uint64(cols))), 0)
			s, err := Encode(m)
			require.NoError(t, err)
			require.Equal(t, rows*cols/lanes, s.Len())

			// Lane k of word i is element i*L+k.
			for i := range s.Len() {
				for k := range lanes {
					require.Equal(t, m.Flat()[i*lanes+k], s.Word(i).Lane(k))
				}
			}

			decoded, err := Decode(s, rows, cols)
			require.NoError(t, err)
			require.True(t, m.Equal(decoded), "decode(encode(M)) != M")
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Run("Uint8", testRoundTrip[uint8])
	t.Run("Uint16", testRoundTrip[uint16])
	t.Run("Uint32", testRoundTrip[uint32])
	t.Run("Uint64", testRoundTrip[uint64])
}

func TestEncodeDecodeErrors(t *testing.T) {
	// 3x5 uint32 elements don't fill whole words.
	_, err := Encode(matrix.New[uint32](3, 5))
	require.Error(t, err)

	s := NewStream[uint32](4)
	_, err = Decode(s, 16, 16)
	require.Error(t, err)
	_, err = Decode(s, 0, 64)
	require.Error(t, err)
	m, err := Decode(s, 8, 8)
	require.NoError(t, err)
	require.Equal(t, 8, m.Rows())

	// Decode must not alias the stream.
	s.Word(0).SetLane(0, 7)
	assert.Equal(t, uint32(0), m.At(0, 0))

	require.Error(t, EncodeInto(matrix.New[uint32](16, 16), s))
	require.NoError(t, EncodeInto(must.M1(matrix.FromFlat(4, 16, make([]uint32, 64))), s))
}

func TestWord(t *testing.T) {
	s := NewStream[uint32](2)
	w := s.Word(1)
	require.Len(t, w, 16)
	w.SetLane(3, 11)
	assert.Equal(t, uint32(11), s.Flat()[16+3])
	assert.Equal(t, []uint32{0, 0, 0, 11}, s.Words(1, 1)[:4])
	w.Clear()
	assert.Equal(t, uint32(0), w.Lane(3))
	assert.Panics(t, func() { w.SetLane(16, 1) })
	assert.Panics(t, func() { _ = w.Lane(-1) })
	assert.Panics(t, func() { _ = s.Word(2) })
	assert.Panics(t, func() { _ = s.Words(1, 2) })
	assert.Equal(t, uintptr(128), s.Memory())

	c := s.Clone()
	assert.True(t, c.Equal(s))
	c.Word(0).SetLane(0, 1)
	assert.False(t, c.Equal(s))
}

func TestBits512(t *testing.T) {
	var bits Bits512
	bits.SetRange(63, 32, 0xDEADBEEF)
	bits.SetRange(511, 480, 0xFFFFFFFF)
	assert.Equal(t, uint64(0xDEADBEEF)<<32, bits[0])
	assert.Equal(t, uint64(0xDEADBEEF), bits.Range(63, 32))
	assert.Equal(t, uint64(0xFFFFFFFF), bits.Range(511, 480))
	assert.Equal(t, uint64(0xFFFFFFFF)<<32, bits[7])
	bits.SetRange(63, 0, ^uint64(0))
	assert.Equal(t, ^uint64(0), bits.Range(63, 0))

	// Ranges crossing limbs are not allowed.
	assert.Panics(t, func() { bits.Range(79, 48) })
	assert.Panics(t, func() { bits.Range(512, 481) })

	// Lane k of a uint32 word sits at bits [32k+31, 32k].
	w := Word[uint32](make([]uint32, 16))
	for k := range w {
		w[k] = uint32(k*1000 + 1)
	}
	wordBits := w.Bits()
	for k := range w {
		assert.Equal(t, uint64(w[k]), wordBits.Range(32*k+31, 32*k))
	}
	w2 := Word[uint32](make([]uint32, 16))
	w2.SetBits(&wordBits)
	assert.Equal(t, w, w2)
}

func TestMarshalBinary(t *testing.T) {
	m := matrix.Random[uint16](32, 32, rand.New(rand.NewPCG(1, 2)), 0)
	s := must.M1(Encode(m))
	data := must.M1(s.MarshalBinary())
	require.Len(t, data, s.Len()*WordBytes)
	// Lane 0 of word 0 is the first two bytes, little-endian.
	assert.Equal(t, byte(m.At(0, 0)), data[0])
	assert.Equal(t, byte(m.At(0, 0)>>8), data[1])

	var s2 Stream[uint16]
	require.NoError(t, s2.UnmarshalBinary(data))
	require.True(t, s.Equal(&s2))
	require.Error(t, s2.UnmarshalBinary(data[:WordBytes+1]))
}
