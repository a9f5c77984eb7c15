// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package packed implements the packed word codec: conversion between logical matrices and streams
// of fixed-width (DataWidth bits) words, each holding Lanes[T]() values of type T.
//
// Lane k of word i holds the element at flat (row-major) index i*Lanes[T]()+k.
//
// Words are represented as arrays of lanes (see Word). The bit-level layout, where lane k occupies
// bits [k*W, (k+1)*W) of the word, is only materialized by Bits512 and by the binary marshaling of
// a Stream, which is what a memory-mapped device buffer would hold.
package packed

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/pkg/errors"
)

// DataWidth is the width of a packed word in bits.
const DataWidth = 512

// WordBytes is the size of a packed word in bytes.
const WordBytes = DataWidth / 8

// Lanes returns the number of values of type T in one packed word, e.g. 16 for uint32.
func Lanes[T dtypes.Unsigned]() int {
	return DataWidth / (8 * dtypes.Sizeof[T]())
}

// Word is a view of the lanes of one packed word.
type Word[T dtypes.Unsigned] []T

// Lane returns the value of lane k.
func (w Word[T]) Lane(k int) T {
	if k < 0 || k >= len(w) {
		exceptions.Panicf("packed.Word.Lane(%d) out-of-bounds for %d lanes", k, len(w))
	}
	return w[k]
}

// SetLane sets the value of lane k.
func (w Word[T]) SetLane(k int, value T) {
	if k < 0 || k >= len(w) {
		exceptions.Panicf("packed.Word.SetLane(%d) out-of-bounds for %d lanes", k, len(w))
	}
	w[k] = value
}

// Clear sets all lanes to zero.
func (w Word[T]) Clear() {
	clear(w)
}

// Stream is an ordered sequence of packed words, stored contiguously.
type Stream[T dtypes.Unsigned] struct {
	lanes int
	data  []T
}

// NewStream allocates a zeroed stream of numWords words.
func NewStream[T dtypes.Unsigned](numWords int) *Stream[T] {
	if numWords < 0 {
		exceptions.Panicf("packed.NewStream(%d): negative number of words", numWords)
	}
	lanes := Lanes[T]()
	return &Stream[T]{lanes: lanes, data: make([]T, numWords*lanes)}
}

// Len returns the number of words in the stream.
func (s *Stream[T]) Len() int {
	if s.lanes == 0 {
		return 0
	}
	return len(s.data) / s.lanes
}

// Lanes returns the number of lanes per word.
func (s *Stream[T]) Lanes() int { return s.lanes }

// Memory returns the number of bytes the stream occupies as packed words.
func (s *Stream[T]) Memory() uintptr { return uintptr(s.Len() * WordBytes) }

// Word returns a view (not a copy) of word i.
func (s *Stream[T]) Word(i int) Word[T] {
	if i < 0 || i >= s.Len() {
		exceptions.Panicf("packed.Stream.Word(%d) out-of-bounds for stream of %d words", i, s.Len())
	}
	return Word[T](s.data[i*s.lanes : (i+1)*s.lanes])
}

// Words returns a view (not a copy) of the lanes of count consecutive words starting at word start.
func (s *Stream[T]) Words(start, count int) []T {
	if start < 0 || count < 0 || start+count > s.Len() {
		exceptions.Panicf("packed.Stream.Words(%d, %d) out-of-bounds for stream of %d words", start, count, s.Len())
	}
	return s.data[start*s.lanes : (start+count)*s.lanes]
}

// Flat returns all the lanes of the stream, in order. It is not a copy.
func (s *Stream[T]) Flat() []T { return s.data }

// Clone returns a deep copy of the stream.
func (s *Stream[T]) Clone() *Stream[T] {
	return &Stream[T]{lanes: s.lanes, data: slices.Clone(s.data)}
}

// Equal returns whether both streams hold the same words.
func (s *Stream[T]) Equal(other *Stream[T]) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.lanes == other.lanes && slices.Equal(s.data, other.data)
}

// Encode packs the matrix into a new stream of m.Size()/Lanes[T]() words, in row-major order.
//
// It returns an error if the number of elements is not a multiple of the number of lanes.
func Encode[T dtypes.Unsigned](m *matrix.Matrix[T]) (*Stream[T], error) {
	lanes := Lanes[T]()
	size := m.Shape().Size()
	if size%lanes != 0 {
		return nil, errors.Errorf("packed.Encode: matrix %s has %d elements, not a multiple of the %d lanes per word",
			m.Shape(), size, lanes)
	}
	s := NewStream[T](size / lanes)
	copy(s.data, m.Flat())
	return s, nil
}

// EncodeInto packs the matrix into an existing stream, which must have exactly the right number of words.
func EncodeInto[T dtypes.Unsigned](m *matrix.Matrix[T], s *Stream[T]) error {
	if len(s.data) != m.Shape().Size() {
		return errors.Errorf("packed.EncodeInto: matrix %s needs %d lanes, stream has %d words of %d lanes",
			m.Shape(), m.Shape().Size(), s.Len(), s.lanes)
	}
	copy(s.data, m.Flat())
	return nil
}

// Decode unpacks the stream into a new rows x cols matrix. It is the inverse of Encode.
//
// It returns an error if the stream doesn't hold exactly rows*cols values.
func Decode[T dtypes.Unsigned](s *Stream[T], rows, cols int) (*matrix.Matrix[T], error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("packed.Decode: invalid dimensions %dx%d", rows, cols)
	}
	if rows*cols != len(s.data) {
		return nil, errors.Errorf("packed.Decode: %dx%d matrix needs %d values, stream has %d words of %d lanes (%d values)",
			rows, cols, rows*cols, s.Len(), s.lanes, len(s.data))
	}
	return matrix.FromFlat(rows, cols, slices.Clone(s.data))
}
