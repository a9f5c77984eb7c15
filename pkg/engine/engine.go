// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package engine implements the streaming multiplication engine: it computes C = A·B reading A and
// the transposed B as streams of packed words, and writes C as a stream of packed words.
//
// The engine is a synchronous pipeline with two prefetch stages feeding one compute stage:
//
//   - A is read one row segment (m/L words) at a time. The segment for row i+1 is prefetched into the
//     second slot of a two-slot ring before row i is processed, and the slots are swapped after the row.
//   - The transposed B is read one column segment (m/L words) at a time, double-buffered the same way
//     for column j+1 while column j is computed. Column 0 is reloaded at the start of every row.
//   - Each (i, j) result is the L-wide multiply-accumulate of the two current segments, written into
//     lane j%L of output word j/L of the row group.
//   - The row group (p/L words) is flushed once, after all p columns of the row are computed.
//
// With m == p == L each segment and each row group is exactly one packed word.
//
// All arithmetic is the modular arithmetic of the unsigned lane type T: overflow silently wraps.
package engine

import (
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/gomlx/streamgemm/pkg/core/packed"
	"github.com/gomlx/streamgemm/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrPrecondition is wrapped by the errors returned for dimensions or streams the engine can't handle.
var ErrPrecondition = errors.New("engine precondition violated")

// Stats of the last Multiply call.
type Stats struct {
	// AWordsRead and BWordsRead count the packed words loaded into the prefetch rings.
	AWordsRead, BWordsRead int

	// RowFlushes counts the writes of output row groups, and WordsFlushed the packed words written.
	RowFlushes, WordsFlushed int

	// DotProducts counts the (i, j) results computed.
	DotProducts int
}

// Engine multiplies an n×m matrix A by an m×p matrix B, given as packed streams.
//
// An Engine owns its prefetch buffers and is not safe for concurrent use: create one Engine per goroutine.
// It can be reused for any number of Multiply calls, each one fully independent of the previous.
type Engine[T dtypes.Unsigned] struct {
	n, m, p int
	lanes   int

	// segmentWords is the number of words in a row of A or a column of B: m/L.
	segmentWords int

	// rowGroupWords is the number of output words per row of C: p/L.
	rowGroupWords int

	aRing, bRing *prefetchRing[T]
	rowGroup     []T
	outWords     []packed.Word[T]
	dot          dotFn[T]

	stats Stats
}

// New creates an engine for the given dimensions.
//
// It returns an error (wrapping ErrPrecondition) unless n, m and p are powers of two and m and p are
// multiples of the number of lanes per packed word (16 for uint32).
func New[T dtypes.Unsigned](n, m, p int) (*Engine[T], error) {
	lanes := packed.Lanes[T]()
	if err := shapes.CheckPowerOfTwo("n", n, "m", m, "p", p); err != nil {
		return nil, errors.Wrapf(ErrPrecondition, "engine.New[%s](n=%d, m=%d, p=%d): %v",
			dtypes.FromGenericsType[T](), n, m, p, err)
	}
	if m%lanes != 0 {
		return nil, errors.Wrapf(ErrPrecondition, "engine.New[%s]: m=%d must be a multiple of the %d lanes per word",
			dtypes.FromGenericsType[T](), m, lanes)
	}
	if p%lanes != 0 {
		return nil, errors.Wrapf(ErrPrecondition, "engine.New[%s]: p=%d must be a multiple of the %d lanes per word",
			dtypes.FromGenericsType[T](), p, lanes)
	}
	e := &Engine[T]{
		n: n, m: m, p: p,
		lanes:         lanes,
		segmentWords:  m / lanes,
		rowGroupWords: p / lanes,
		aRing:         newPrefetchRing[T](m),
		bRing:         newPrefetchRing[T](m),
		rowGroup:      make([]T, p),
		dot:           selectDot[T](),
	}
	e.outWords = make([]packed.Word[T], e.rowGroupWords)
	for ii := range e.outWords {
		e.outWords[ii] = packed.Word[T](e.rowGroup[ii*lanes : (ii+1)*lanes])
	}
	return e, nil
}

// Dims returns the dimensions the engine was created for.
func (e *Engine[T]) Dims() (n, m, p int) {
	return e.n, e.m, e.p
}

// InputWords returns the number of words expected for the in1 and transposed in2 streams.
func (e *Engine[T]) InputWords() (in1Words, in2Words int) {
	return e.n * e.segmentWords, e.p * e.segmentWords
}

// OutputWords returns the number of words written to the output stream.
func (e *Engine[T]) OutputWords() int {
	return e.n * e.rowGroupWords
}

// Stats returns the counters of the last Multiply call.
func (e *Engine[T]) Stats() Stats {
	return e.stats
}

// Multiply computes out = in1 · in2, where in1 is A (n×m) packed row-major, in2T is B transposed
// (p×m) packed row-major, and out receives C (n×p) packed row-major.
//
// It returns an error (wrapping ErrPrecondition) if the streams don't have the expected number of words.
// out must not share storage with the inputs.
func (e *Engine[T]) Multiply(in1, in2T, out *packed.Stream[T]) error {
	in1Words, in2Words := e.InputWords()
	if in1.Len() != in1Words {
		return errors.Wrapf(ErrPrecondition, "engine.Multiply: in1 has %d words, expected %d for n=%d, m=%d",
			in1.Len(), in1Words, e.n, e.m)
	}
	if in2T.Len() != in2Words {
		return errors.Wrapf(ErrPrecondition, "engine.Multiply: transposed in2 has %d words, expected %d for p=%d, m=%d",
			in2T.Len(), in2Words, e.p, e.m)
	}
	if out.Len() != e.OutputWords() {
		return errors.Wrapf(ErrPrecondition, "engine.Multiply: out has %d words, expected %d for n=%d, p=%d",
			out.Len(), e.OutputWords(), e.n, e.p)
	}
	e.run(in1, in2T, out)
	klog.V(2).Infof("engine.Multiply[%s](n=%d, m=%d, p=%d): %+v", dtypes.FromGenericsType[T](), e.n, e.m, e.p, e.stats)
	return nil
}

// run is the pipeline itself, for streams already validated.
func (e *Engine[T]) run(in1, in2T, out *packed.Stream[T]) {
	seg := e.segmentWords
	lanes := e.lanes
	e.aRing.reset()
	e.bRing.reset()
	e.stats = Stats{}

	e.aRing.preload(in1.Words(0, seg))
	for i := range e.n {
		if i+1 < e.n {
			e.aRing.prefetch(in1.Words((i+1)*seg, seg))
		}
		e.bRing.preload(in2T.Words(0, seg))
		for _, w := range e.outWords {
			w.Clear()
		}
		aCur := e.aRing.cur()

		for j := range e.p {
			if j+1 < e.p {
				e.bRing.prefetch(in2T.Words((j+1)*seg, seg))
			}
			e.outWords[j/lanes][j%lanes] = e.dot(aCur, e.bRing.cur())
			e.bRing.swap()
		}

		// Single flush of the row group.
		copy(out.Words(i*e.rowGroupWords, e.rowGroupWords), e.rowGroup)
		e.stats.RowFlushes++
		e.stats.WordsFlushed += e.rowGroupWords
		e.aRing.swap()
	}

	e.stats.AWordsRead = e.aRing.loads * seg
	e.stats.BWordsRead = e.bRing.loads * seg
	e.stats.DotProducts = e.n * e.p
}

// Multiply is a convenience function that creates an Engine for the given dimensions and runs it once.
func Multiply[T dtypes.Unsigned](in1, in2T, out *packed.Stream[T], n, m, p int) error {
	e, err := New[T](n, m, p)
	if err != nil {
		return err
	}
	return e.Multiply(in1, in2T, out)
}
