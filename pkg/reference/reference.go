// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package reference implements the unoptimized triple-loop matrix multiplication used as an oracle
// to validate the streaming engine. It has no prefetching, packing or unrolling, and uses the same
// wraparound arithmetic of the unsigned type T.
package reference

import (
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/pkg/errors"
)

// MultiplyTransposed returns C = A·B where A is n×m and bT is B transposed (p×m).
// It reads both operands row-major, sharing the layout produced by matrix.Transpose.
func MultiplyTransposed[T dtypes.Unsigned](a, bT *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	if a.Cols() != bT.Cols() {
		return nil, errors.Errorf("reference.MultiplyTransposed: A%s and transposed B%s must have the same number of columns",
			a.Shape(), bT.Shape())
	}
	n, m, p := a.Rows(), a.Cols(), bT.Rows()
	c := matrix.New[T](n, p)
	multiplyTransposedFlat(a.Flat(), bT.Flat(), c.Flat(), n, m, p)
	return c, nil
}

func multiplyTransposedFlat[T dtypes.Unsigned](a, bT, c []T, n, m, p int) {
	for i := range n {
		for j := range p {
			var sum T
			for k := range m {
				sum += a[i*m+k] * bT[j*m+k]
			}
			c[i*p+j] = sum
		}
	}
}

// Multiply returns C = A·B where A is n×m and B is m×p, reading B in its original (not transposed) layout.
func Multiply[T dtypes.Unsigned](a, b *matrix.Matrix[T]) (*matrix.Matrix[T], error) {
	if a.Cols() != b.Rows() {
		return nil, errors.Errorf("reference.Multiply: A%s columns don't match B%s rows", a.Shape(), b.Shape())
	}
	n, m, p := a.Rows(), a.Cols(), b.Cols()
	c := matrix.New[T](n, p)
	for i := range n {
		for j := range p {
			var sum T
			for k := range m {
				sum += a.At(i, k) * b.At(k, j)
			}
			c.Set(i, j, sum)
		}
	}
	return c, nil
}

// MultiplyPacked runs the triple loop directly on packed streams, with the same arguments as the streaming
// engine: in1 is A (n×m), in2T is B transposed (p×m) and out receives C (n×p), all packed row-major.
func MultiplyPacked[T dtypes.Unsigned](in1, in2T, out *packed.Stream[T], n, m, p int) error {
	if n <= 0 || m <= 0 || p <= 0 {
		return errors.Errorf("reference.MultiplyPacked: invalid dimensions n=%d, m=%d, p=%d", n, m, p)
	}
	for _, s := range []struct {
		name      string
		stream    *packed.Stream[T]
		numValues int
	}{{"in1", in1, n * m}, {"in2T", in2T, p * m}, {"out", out, n * p}} {
		if len(s.stream.Flat()) != s.numValues {
			return errors.Errorf("reference.MultiplyPacked: %s has %d values (%d words), expected %d",
				s.name, len(s.stream.Flat()), s.stream.Len(), s.numValues)
		}
	}
	multiplyTransposedFlat(in1.Flat(), in2T.Flat(), out.Flat(), n, m, p)
	return nil
}
