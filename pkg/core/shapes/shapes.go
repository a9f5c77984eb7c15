// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines the Shape of the 2D matrices multiplied by streamgemm.
//
// A Shape holds the lane DType and the number of rows and columns. Data is always stored in
// row-major order.
//
// Shapes are meant to be created with Make, which panics (see github.com/gomlx/exceptions) for
// non-positive dimensions, as that is always a bug in the caller. Validations that depend on
// user input, like CheckPowerOfTwo, return errors instead.
package shapes

import (
	"fmt"
	"math/bits"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/pkg/errors"
)

// Shape of a matrix: its lane dtype and dimensions.
type Shape struct {
	DType      dtypes.DType
	Rows, Cols int
}

// Make returns a Shape with the values given. It panics if any of the dimensions is <= 0.
func Make(dtype dtypes.DType, rows, cols int) Shape {
	s := Shape{DType: dtype, Rows: rows, Cols: cols}
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
	}
	return s
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType.IsValid() && s.Rows > 0 && s.Cols > 0 }

// Size returns the number of elements.
func (s Shape) Size() int { return s.Rows * s.Cols }

// Memory returns the number of bytes used to store the elements, not counting any packing overhead.
func (s Shape) Memory() uintptr { return uintptr(s.Size() * s.DType.Size()) }

// Transposed returns the shape with rows and columns swapped.
func (s Shape) Transposed() Shape {
	return Shape{DType: s.DType, Rows: s.Cols, Cols: s.Rows}
}

// Equal compares two shapes.
func (s Shape) Equal(s2 Shape) bool {
	return s == s2
}

// String implements fmt.Stringer and pretty-prints the shape.
func (s Shape) String() string {
	return fmt.Sprintf("(%s)[%d %d]", s.DType, s.Rows, s.Cols)
}

// IsPowerOfTwo returns whether x is a positive power of two.
func IsPowerOfTwo(x int) bool {
	return x > 0 && bits.OnesCount(uint(x)) == 1
}

// CheckPowerOfTwo returns an error naming the first of the given dimensions that is not a power of two.
// The dimensions are given as name/value pairs, e.g.: CheckPowerOfTwo("n", n, "m", m).
func CheckPowerOfTwo(namesAndValues ...any) error {
	if len(namesAndValues)%2 != 0 {
		exceptions.Panicf("shapes.CheckPowerOfTwo requires name/value pairs, got %d arguments", len(namesAndValues))
	}
	for ii := 0; ii < len(namesAndValues); ii += 2 {
		name, _ := namesAndValues[ii].(string)
		value, ok := namesAndValues[ii+1].(int)
		if !ok {
			exceptions.Panicf("shapes.CheckPowerOfTwo: value for %q must be an int, got %T", name, namesAndValues[ii+1])
		}
		if !IsPowerOfTwo(value) {
			return errors.Errorf("dimension %s=%d is not a power of two", name, value)
		}
	}
	return nil
}
