// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package matrix implements the logical (unpacked) 2D matrices of unsigned fixed-width integers
// that are multiplied by streamgemm, along with the transpose stage used to lay out the second
// operand so each of its columns is contiguous.
//
// All arithmetic on elements is the modular arithmetic of the Go unsigned type T.
package matrix

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Matrix is a row-major 2D matrix of unsigned integers of type T.
type Matrix[T dtypes.Unsigned] struct {
	shape shapes.Shape
	flat  []T
}

// New returns a zero-initialized matrix with the given dimensions.
// It panics if any of the dimensions is <= 0.
func New[T dtypes.Unsigned](rows, cols int) *Matrix[T] {
	shape := shapes.Make(dtypes.FromGenericsType[T](), rows, cols)
	return &Matrix[T]{shape: shape, flat: make([]T, shape.Size())}
}

// FromFlat creates a matrix that takes ownership of flat, which must hold rows*cols elements in row-major order.
func FromFlat[T dtypes.Unsigned](rows, cols int, flat []T) (*Matrix[T], error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Errorf("matrix.FromFlat: invalid dimensions %dx%d", rows, cols)
	}
	if len(flat) != rows*cols {
		return nil, errors.Errorf("matrix.FromFlat: %dx%d matrix requires %d elements, got %d",
			rows, cols, rows*cols, len(flat))
	}
	return &Matrix[T]{shape: shapes.Make(dtypes.FromGenericsType[T](), rows, cols), flat: flat}, nil
}

// FromRows creates a matrix copying the values of rows, which must all have the same length.
func FromRows[T dtypes.Unsigned](rows [][]T) (*Matrix[T], error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("matrix.FromRows: empty matrix")
	}
	m := New[T](len(rows), len(rows[0]))
	for rowIdx, row := range rows {
		if len(row) != m.shape.Cols {
			return nil, errors.Errorf("matrix.FromRows: row %d has %d columns, but row 0 has %d",
				rowIdx, len(row), m.shape.Cols)
		}
		copy(m.Row(rowIdx), row)
	}
	return m, nil
}

// Random returns a matrix filled with values uniformly drawn from [0, maxValue) using rng.
// If maxValue is 0 values span the whole range of T.
func Random[T dtypes.Unsigned](rows, cols int, rng *rand.Rand, maxValue uint64) *Matrix[T] {
	m := New[T](rows, cols)
	m.FillRandom(rng, maxValue)
	return m
}

// FillRandom overwrites all values of m with values uniformly drawn from [0, maxValue) using rng.
// If maxValue is 0 values span the whole range of T.
func (m *Matrix[T]) FillRandom(rng *rand.Rand, maxValue uint64) {
	for ii := range m.flat {
		if maxValue == 0 {
			m.flat[ii] = T(rng.Uint64())
		} else {
			m.flat[ii] = T(rng.Uint64N(maxValue))
		}
	}
}

// Shape returns the shape of the matrix.
func (m *Matrix[T]) Shape() shapes.Shape { return m.shape }

// Rows returns the number of rows.
func (m *Matrix[T]) Rows() int { return m.shape.Rows }

// Cols returns the number of columns.
func (m *Matrix[T]) Cols() int { return m.shape.Cols }

// Flat returns the underlying row-major storage. It is not a copy.
func (m *Matrix[T]) Flat() []T { return m.flat }

// Row returns a view (not a copy) of the given row.
func (m *Matrix[T]) Row(row int) []T {
	if row < 0 || row >= m.shape.Rows {
		exceptions.Panicf("Matrix%s.Row(%d) out-of-bounds", m.shape, row)
	}
	start := row * m.shape.Cols
	return m.flat[start : start+m.shape.Cols]
}

// At returns the element at (row, col).
func (m *Matrix[T]) At(row, col int) T {
	m.checkBounds(row, col)
	return m.flat[m.shape.FlatIndex(row, col)]
}

// Set the element at (row, col).
func (m *Matrix[T]) Set(row, col int, value T) {
	m.checkBounds(row, col)
	m.flat[m.shape.FlatIndex(row, col)] = value
}

func (m *Matrix[T]) checkBounds(row, col int) {
	if row < 0 || row >= m.shape.Rows || col < 0 || col >= m.shape.Cols {
		exceptions.Panicf("Matrix%s: position (%d, %d) out-of-bounds", m.shape, row, col)
	}
}

// Clone returns a deep copy of the matrix.
func (m *Matrix[T]) Clone() *Matrix[T] {
	return &Matrix[T]{shape: m.shape, flat: slices.Clone(m.flat)}
}

// Equal returns whether both matrices have the same shape and elements.
func (m *Matrix[T]) Equal(other *Matrix[T]) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.shape.Equal(other.shape) && slices.Equal(m.flat, other.flat)
}

// String pretty-prints the matrix. Large matrices are truncated.
func (m *Matrix[T]) String() string {
	const maxRows, maxCols = 8, 8
	var sb strings.Builder
	fmt.Fprintf(&sb, "Matrix%s", m.shape)
	for row := range min(m.shape.Rows, maxRows) {
		sb.WriteString("\n  [")
		for col := range min(m.shape.Cols, maxCols) {
			if col > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%d", m.At(row, col))
		}
		if m.shape.Cols > maxCols {
			sb.WriteString(" ...")
		}
		sb.WriteString("]")
	}
	if m.shape.Rows > maxRows {
		sb.WriteString("\n  ...")
	}
	return sb.String()
}
