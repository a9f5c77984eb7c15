// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package packed

import (
	"encoding/binary"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/streamgemm/pkg/core/dtypes"
	"github.com/pkg/errors"
)

const limbBits = 64

// Bits512 is the bit-level view of one packed word: 8 little-endian 64-bit limbs, bit 0 is the
// least significant bit of limb 0.
type Bits512 [DataWidth / limbBits]uint64

// Range returns bits [lo, hi] (inclusive) of the word. The range can't be wider than 64 bits nor
// cross a limb boundary, which always holds for the lanes of a power-of-two width.
func (b *Bits512) Range(hi, lo int) uint64 {
	limb, shift, mask := b.locate(hi, lo)
	return (b[limb] >> shift) & mask
}

// SetRange sets bits [lo, hi] (inclusive) to the low bits of value.
func (b *Bits512) SetRange(hi, lo int, value uint64) {
	limb, shift, mask := b.locate(hi, lo)
	b[limb] = (b[limb] &^ (mask << shift)) | ((value & mask) << shift)
}

func (b *Bits512) locate(hi, lo int) (limb int, shift uint, mask uint64) {
	width := hi - lo + 1
	if lo < 0 || hi >= DataWidth || width <= 0 || width > limbBits || lo/limbBits != hi/limbBits {
		exceptions.Panicf("packed.Bits512: invalid bit range [%d:%d]", hi, lo)
	}
	limb = lo / limbBits
	shift = uint(lo % limbBits)
	if width == limbBits {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << uint(width)) - 1
	}
	return
}

// Bits returns the bit-level view of the word: lane k occupies bits [k*W, (k+1)*W).
func (w Word[T]) Bits() Bits512 {
	var bits Bits512
	width := 8 * dtypes.Sizeof[T]()
	for k := range w {
		bits.SetRange(width*(k+1)-1, width*k, uint64(w.Lane(k)))
	}
	return bits
}

// SetBits sets the lanes of the word from its bit-level view.
func (w Word[T]) SetBits(bits *Bits512) {
	width := 8 * dtypes.Sizeof[T]()
	for k := range w {
		w.SetLane(k, T(bits.Range(width*(k+1)-1, width*k)))
	}
}

// MarshalBinary implements encoding.BinaryMarshaler. Each word is written as WordBytes bytes in
// little-endian order, the layout of a 512-bit word in device memory.
func (s *Stream[T]) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, s.Len()*WordBytes)
	for ii := range s.Len() {
		bits := s.Word(ii).Bits()
		for _, limb := range bits {
			data = binary.LittleEndian.AppendUint64(data, limb)
		}
	}
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The stream is resized to hold len(data)/WordBytes words.
func (s *Stream[T]) UnmarshalBinary(data []byte) error {
	if len(data)%WordBytes != 0 {
		return errors.Errorf("packed.Stream.UnmarshalBinary: %d bytes is not a multiple of the %d bytes per word",
			len(data), WordBytes)
	}
	numWords := len(data) / WordBytes
	*s = *NewStream[T](numWords)
	var bits Bits512
	for ii := range numWords {
		wordData := data[ii*WordBytes : (ii+1)*WordBytes]
		for limb := range bits {
			bits[limb] = binary.LittleEndian.Uint64(wordData[limb*8:])
		}
		s.Word(ii).SetBits(&bits)
	}
	return nil
}
