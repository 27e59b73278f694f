package magic

// Opcode tables shared with the runtime's native implementations. Values
// are frozen: the runtime switches on them directly.

var mathOneArg = map[string]int{
	"fabs":  0,
	"acos":  1,
	"asin":  2,
	"atan":  3,
	"ceil":  4,
	"cos":   5,
	"exp":   6,
	"floor": 7,
	"log":   8,
	"round": 9,
	"sin":   10,
	"sqrt":  11,
	"tan":   12,
	"cbrt":  13,
	"log2":  14,
	"log10": 15,
	"trunc": 16,
}

var mathTwoArg = map[string]int{
	"atan2": 0,
	"pow":   1,
}

var arrayIter = map[string]int{
	"every":   0,
	"some":    1,
	"forEach": 2,
	"map":     3,
	"filter":  4,
}

// Typed array element types.
var typedArrayElem = map[string]int{
	"uint8":        0,
	"uint8clamped": 1,
	"int8":         2,
	"uint16":       3,
	"int16":        4,
	"uint32":       5,
	"int32":        6,
	"float32":      7,
	"float64":      8,
}

// Buffer field types for readField/writeField.
var bufferField = map[string]int{
	"8bit":   0,
	"16bit":  1,
	"32bit":  2,
	"float":  3,
	"double": 4,
	"varint": 5,
}

// Buffer field magic layout.
const (
	bufferFieldTypeMask  = 0x07
	bufferFlagBigEndian  = 0x08
	bufferFlagSigned     = 0x10
	bufferFlagTypedArray = 0x20
)

// Typed array constructor magic layout: shift in bits 0..1, element type
// in bits 2..5.
const (
	typedArrayShiftMask = 0x03
	typedArrayElemShift = 2
)
