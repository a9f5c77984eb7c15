// Package dtypes includes the DType enum for the unsigned fixed-width lane types supported by streamgemm.
//
// It is a narrow fork of GoMLX's dtypes: only unsigned integers are supported, since all arithmetic is
// modular (wraparound) arithmetic on W-bit lanes.
package dtypes

import (
	"maps"
	"slices"
	"strings"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Unsigned is the constraint for Go types that can be used as lanes of a packed word.
type Unsigned interface {
	constraints.Unsigned
}

func init() {
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// FromGenericsType returns the DType enum for the given type.
// Types derived from the supported ones (e.g. `type Pixel uint8`) are resolved to their underlying type.
func FromGenericsType[T Unsigned]() DType {
	var t T
	switch any(t).(type) {
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	}
	// Derived types: resolve by width.
	switch Sizeof[T]() {
	case 1:
		return Uint8
	case 2:
		return Uint16
	case 4:
		return Uint32
	case 8:
		return Uint64
	}
	return InvalidDType
}

// Sizeof returns the number of bytes used by one value of T.
func Sizeof[T Unsigned]() int {
	var t T
	return int(unsafe.Sizeof(t))
}

// Size returns the number of bytes for the given DType, or 0 for an invalid dtype.
func (dtype DType) Size() int {
	switch dtype {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Uint32:
		return 4
	case Uint64:
		return 8
	}
	return 0
}

// Bits returns the width W of the dtype in bits.
func (dtype DType) Bits() int {
	return 8 * dtype.Size()
}

// IsValid returns whether dtype is one of the supported lane types.
func (dtype DType) IsValid() bool {
	return dtype.Size() > 0
}

// Parse converts a name (e.g. "uint32", "U32") to a DType.
func Parse(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		dtype, found = MapOfNames[strings.ToLower(name)]
	}
	if !found || !dtype.IsValid() {
		return InvalidDType, errors.Errorf("unknown or unsupported dtype %q, valid values are uint8, uint16, uint32 and uint64", name)
	}
	return dtype, nil
}
