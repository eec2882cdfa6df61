// tensor_ops.go - Lookup- und Konvertierungs-Operationen
// Enthält: Rows, Cast

package cpu

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

// Rows sammelt Zeilen (Dim-0-Streifen) von t anhand der int32-Indizes in
// t2. Fuer t mit Form (d, R) und Indizes mit Form (n, b) hat das Ergebnis
// die Form (d, n, b).
func (t *Tensor) Rows(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	ids := cast(t2)
	if ids.dtype != ml.DTypeI32 {
		panic(fmt.Sprintf("cpu: Rows with %v indices", ids.dtype))
	}
	if t.dims[2] != 1 || t.dims[3] != 1 {
		panic(fmt.Sprintf("cpu: Rows on tensor of shape %v", t.Shape()))
	}

	d0 := t.dims[0]
	nrows := t.dims[1]
	shape := append([]int{d0}, ids.Shape()...)
	out := newTensor(ml.DTypeF32, shape...)

	for j, r := range ids.i32 {
		if r < 0 || int(r) >= nrows {
			panic(fmt.Sprintf("cpu: Rows index %d out of range [0, %d)", r, nrows))
		}
		copy(out.f32[j*d0:(j+1)*d0], t.f32[int(r)*d0:(int(r)+1)*d0])
	}

	return out
}

// Cast konvertiert den Tensor in den Ziel-DType. F16 wird wertgenau
// gerundet, aber als f32 gespeichert; Q8_0 quantisiert blockweise.
func (t *Tensor) Cast(ctx ml.Context, dtype ml.DType) ml.Tensor {
	if t.dtype == dtype {
		return t
	}

	out := newTensor(dtype, t.Shape()...)
	switch {
	case t.dtype == ml.DTypeF32 && dtype == ml.DTypeF16:
		for i, v := range t.f32 {
			out.f32[i] = roundF16(v)
		}
	case t.dtype == ml.DTypeF16 && dtype == ml.DTypeF32:
		copy(out.f32, t.f32)
	case (t.dtype == ml.DTypeF32 || t.dtype == ml.DTypeF16) && dtype == ml.DTypeQ80:
		quantizeQ80(t.f32, out.q80)
	case t.dtype == ml.DTypeQ80 && dtype == ml.DTypeF32:
		dequantizeQ80(t.q80, out.f32)
	default:
		panic(fmt.Sprintf("cpu: Cast %v to %v", t.dtype, dtype))
	}

	return out
}
