// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

// Position of an element in a matrix.
type Position struct {
	Row, Col int
}

// FlatIndex returns the flat (row-major) index of the element at (row, col).
func (s Shape) FlatIndex(row, col int) int {
	return row*s.Cols + col
}

// PositionOf converts a flat (row-major) index back to the (row, col) position.
func (s Shape) PositionOf(flatIdx int) Position {
	return Position{Row: flatIdx / s.Cols, Col: flatIdx % s.Cols}
}
