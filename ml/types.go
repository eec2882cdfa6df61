// types.go - Datentypen und Konstanten fuer ML-Operationen
// Dieses Modul definiert grundlegende Typen wie DType.
package ml

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeF32
	DTypeF16
	DTypeQ80
	DTypeI32
)

func (t DType) String() string {
	switch t {
	case DTypeF32:
		return "F32"
	case DTypeF16:
		return "F16"
	case DTypeQ80:
		return "Q8_0"
	case DTypeI32:
		return "I32"
	default:
		return "?"
	}
}

// MinFinite returns the most negative finite value representable in t.
// Attention masks use this instead of -Inf so that fully blocked softmax
// rows stay finite.
func (t DType) MinFinite() float32 {
	if t == DTypeF16 {
		return -65504
	}

	return -3.4028234663852886e+38
}
