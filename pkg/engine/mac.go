// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/gomlx/streamgemm/pkg/core/dtypes"

// dotFn returns the sum of the lane-wise products of a and b, with the wraparound of T.
// len(a) == len(b) and it is a multiple of the number of lanes per word.
type dotFn[T dtypes.Unsigned] func(a, b []T) T

// selectDot returns the fastest available implementation for T.
func selectDot[T dtypes.Unsigned]() dotFn[T] {
	if fn, ok := any(dotUint32x16).(func(a, b []T) T); ok {
		return fn
	}
	return dotGeneric[T]
}

// dotGeneric uses 4 independent accumulators. Partial sums wrap in T, which equals truncating
// a wider sum to the width of T.
func dotGeneric[T dtypes.Unsigned](a, b []T) T {
	var sum0, sum1, sum2, sum3 T
	b = b[:len(a)]
	k := 0
	for ; k+4 <= len(a); k += 4 {
		sum0 += a[k] * b[k]
		sum1 += a[k+1] * b[k+1]
		sum2 += a[k+2] * b[k+2]
		sum3 += a[k+3] * b[k+3]
	}
	for ; k < len(a); k++ {
		sum0 += a[k] * b[k]
	}
	return sum0 + sum1 + sum2 + sum3
}

// dotUint32x16 is fully unrolled over the 16 lanes of a 512-bit word of uint32.
// Products are widened to uint64; the low 32 bits of the uint64 sum are exact even if it wraps.
func dotUint32x16(a, b []uint32) uint32 {
	var sum uint64
	b = b[:len(a)]
	for w := 0; w+16 <= len(a); w += 16 {
		aw := a[w : w+16 : w+16]
		bw := b[w : w+16 : w+16]
		sum += uint64(aw[0])*uint64(bw[0]) + uint64(aw[1])*uint64(bw[1]) +
			uint64(aw[2])*uint64(bw[2]) + uint64(aw[3])*uint64(bw[3]) +
			uint64(aw[4])*uint64(bw[4]) + uint64(aw[5])*uint64(bw[5]) +
			uint64(aw[6])*uint64(bw[6]) + uint64(aw[7])*uint64(bw[7]) +
			uint64(aw[8])*uint64(bw[8]) + uint64(aw[9])*uint64(bw[9]) +
			uint64(aw[10])*uint64(bw[10]) + uint64(aw[11])*uint64(bw[11]) +
			uint64(aw[12])*uint64(bw[12]) + uint64(aw[13])*uint64(bw[13]) +
			uint64(aw[14])*uint64(bw[14]) + uint64(aw[15])*uint64(bw[15])
	}
	return uint32(sum)
}
