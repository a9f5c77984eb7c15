package dtypes

// DType is an enum with the lane types a packed word can hold.
//
// The numeric values follow the PJRT buffer type enum, so they stay stable if more types are added.
type DType int32

const (
	// InvalidDType is the zero value, for a DType not set.
	InvalidDType DType = 0

	// Uint8 packs 64 lanes per 512-bit word.
	Uint8 DType = 6

	// Uint16 packs 32 lanes per 512-bit word.
	Uint16 DType = 7

	// Uint32 packs 16 lanes per 512-bit word. It is the lane type of the reference hardware kernel.
	Uint32 DType = 8

	// Uint64 packs 8 lanes per 512-bit word.
	Uint64 DType = 9
)

// Aliases using the C enum names.
const (
	U8  = Uint8
	U16 = Uint16
	U32 = Uint32
	U64 = Uint64
)

// String implements fmt.Stringer.
func (dtype DType) String() string {
	switch dtype {
	case Uint8:
		return "Uint8"
	case Uint16:
		return "Uint16"
	case Uint32:
		return "Uint32"
	case Uint64:
		return "Uint64"
	}
	return "InvalidDType"
}

// MapOfNames to their dtypes. It includes also aliases to the various dtypes.
// It is also later initialized to include the lower-case version of the names.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
}
