// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// transposeBlockSize is the side of the square tiles copied at a time.
// 16x16 uint32 values is 1KB per tile, well within L1.
const transposeBlockSize = 16

// Transpose returns a new matrix t with t[j][k] == m[k][j].
//
// This is the pre-pass that makes, for every column j of m, its elements contiguous (row j of the result),
// so that the multiplication engine can stream them with sequential word reads.
func Transpose[T dtypes.Unsigned](m *Matrix[T]) *Matrix[T] {
	t := New[T](m.Cols(), m.Rows())
	transposeFlat(m.flat, m.Rows(), m.Cols(), t.flat)
	return t
}

// TransposeInto writes the transpose of src into dst, which must have the transposed shape of src.
func TransposeInto[T dtypes.Unsigned](src, dst *Matrix[T]) error {
	if !src.Shape().Transposed().Equal(dst.Shape()) {
		return errors.Errorf("TransposeInto: destination shape %s is not the transposed of source shape %s",
			dst.Shape(), src.Shape())
	}
	transposeFlat(src.flat, src.Rows(), src.Cols(), dst.flat)
	return nil
}

// transposeFlat transposes the rows x cols row-major src into the cols x rows row-major dst.
// It works on square tiles, clipped at the edges, so both reads and writes stay cache-local.
func transposeFlat[T dtypes.Unsigned](src []T, rows, cols int, dst []T) {
	for rowBlock := 0; rowBlock < rows; rowBlock += transposeBlockSize {
		rowEnd := min(rowBlock+transposeBlockSize, rows)
		for colBlock := 0; colBlock < cols; colBlock += transposeBlockSize {
			colEnd := min(colBlock+transposeBlockSize, cols)
			for row := rowBlock; row < rowEnd; row++ {
				srcRow := src[row*cols : (row+1)*cols]
				for col := colBlock; col < colEnd; col++ {
					dst[col*rows+row] = srcRow[col]
				}
			}
		}
	}
}
