// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package verify compares the streaming engine output with the reference multiplication.
//
// Any difference is a correctness failure: there is no tolerance, every mismatching element is
// reported with its index and both values.
package verify

import (
	"fmt"
	"strings"

	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/matrix"
	"github.com/gomlx/streamgemm/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Mismatch of one element.
type Mismatch[T dtypes.Unsigned] struct {
	// Index is the flat (row-major) index of the element, Row and Col its position.
	Index, Row, Col int

	// Got is the engine value, Want the reference value.
	Got, Want T
}

// String implements fmt.Stringer.
func (m Mismatch[T]) String() string {
	return fmt.Sprintf("Mismatch at index %d (row=%d, col=%d): HW=%d, SW=%d", m.Index, m.Row, m.Col, m.Got, m.Want)
}

// Report is the verdict of one comparison.
type Report[T dtypes.Unsigned] struct {
	Shape      shapes.Shape
	Mismatches []Mismatch[T]
}

// Passed returns whether there were no mismatches.
func (r *Report[T]) Passed() bool {
	return len(r.Mismatches) == 0
}

// Verdict returns "PASSED" or "FAILED".
func (r *Report[T]) Verdict() string {
	if r.Passed() {
		return "PASSED"
	}
	return "FAILED"
}

// Err returns nil if the comparison passed, or a *MismatchError otherwise.
func (r *Report[T]) Err() error {
	if r.Passed() {
		return nil
	}
	lines := make([]string, len(r.Mismatches))
	for ii, m := range r.Mismatches {
		lines[ii] = m.String()
	}
	return &MismatchError{Shape: r.Shape, Count: len(r.Mismatches), Details: lines}
}

// MismatchError is returned by Report.Err when the engine and the reference disagree.
type MismatchError struct {
	Shape   shapes.Shape
	Count   int
	Details []string
}

// maxDetailsInError is the number of mismatches listed by MismatchError.Error.
const maxDetailsInError = 10

// Error implements error.
func (e *MismatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d elements of the output %s don't match the reference", e.Count, e.Shape.Size(), e.Shape)
	for ii, line := range e.Details {
		if ii == maxDetailsInError {
			fmt.Fprintf(&sb, "\n\t... %d more", len(e.Details)-maxDetailsInError)
			break
		}
		sb.WriteString("\n\t")
		sb.WriteString(line)
	}
	return sb.String()
}

// Compare got (the engine output) against want (the reference output) element-wise.
//
// It returns an error only if the shapes differ; mismatching values are reported in the Report.
func Compare[T dtypes.Unsigned](got, want *matrix.Matrix[T]) (*Report[T], error) {
	if !got.Shape().Equal(want.Shape()) {
		return nil, errors.Errorf("verify.Compare: output shape %s doesn't match reference shape %s", got.Shape(), want.Shape())
	}
	report := &Report[T]{Shape: want.Shape()}
	gotFlat, wantFlat := got.Flat(), want.Flat()
	for flatIdx := range wantFlat {
		if gotFlat[flatIdx] != wantFlat[flatIdx] {
			pos := report.Shape.PositionOf(flatIdx)
			report.Mismatches = append(report.Mismatches, Mismatch[T]{
				Index: flatIdx, Row: pos.Row, Col: pos.Col,
				Got: gotFlat[flatIdx], Want: wantFlat[flatIdx],
			})
		}
	}
	return report, nil
}
