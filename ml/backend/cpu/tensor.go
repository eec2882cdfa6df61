// tensor.go - Tensor-Struktur und Basis-Methoden
// Enthält: Tensor struct, Shape, Bytes, Floats, DType

package cpu

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/peftlab/peftllama/ml"
)

// Tensor ist ein dicht gepackter Tensor im Hauptspeicher. Dim(0) ist die
// innerste (zusammenhaengende) Dimension, wie beim ggml-Layout.
type Tensor struct {
	dtype ml.DType
	rank  int
	dims  [4]int

	f32 []float32
	i32 []int32
	q80 []blockQ80
}

func shape4(shape []int) (int, [4]int) {
	if len(shape) == 0 || len(shape) > 4 {
		panic(fmt.Sprintf("cpu: tensor rank %d out of range", len(shape)))
	}

	dims := [4]int{1, 1, 1, 1}
	for i, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("cpu: non-positive dimension %d in shape %v", d, shape))
		}
		dims[i] = d
	}

	return len(shape), dims
}

func newTensor(dtype ml.DType, shape ...int) *Tensor {
	rank, dims := shape4(shape)
	t := &Tensor{dtype: dtype, rank: rank, dims: dims}

	n := dims[0] * dims[1] * dims[2] * dims[3]
	switch dtype {
	case ml.DTypeF32, ml.DTypeF16:
		t.f32 = make([]float32, n)
	case ml.DTypeI32:
		t.i32 = make([]int32, n)
	case ml.DTypeQ80:
		if dims[0]%blockSize != 0 {
			panic(fmt.Sprintf("cpu: Q8_0 row length %d is not a multiple of %d", dims[0], blockSize))
		}
		t.q80 = make([]blockQ80, n/blockSize)
	default:
		panic(fmt.Sprintf("cpu: unsupported dtype %v", dtype))
	}

	return t
}

func (t *Tensor) numElements() int {
	return t.dims[0] * t.dims[1] * t.dims[2] * t.dims[3]
}

// LogValue gibt den Tensor als slog-Wert zurück
func (t *Tensor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dtype", t.dtype.String()),
		slog.Any("shape", t.Shape()),
	)
}

func (t *Tensor) Dim(n int) int {
	if n >= 4 {
		return 1
	}
	return t.dims[n]
}

func (t *Tensor) Stride(n int) int {
	s := 1
	for i := 0; i < n && i < 4; i++ {
		s *= t.dims[i]
	}
	return s
}

func (t *Tensor) Shape() []int {
	shape := make([]int, t.rank)
	copy(shape, t.dims[:t.rank])
	return shape
}

func (t *Tensor) DType() ml.DType {
	return t.dtype
}

func (t *Tensor) Bytes() []byte {
	switch t.dtype {
	case ml.DTypeF32, ml.DTypeF16:
		b := make([]byte, 4*len(t.f32))
		for i, v := range t.f32 {
			binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
		}
		return b
	case ml.DTypeI32:
		b := make([]byte, 4*len(t.i32))
		for i, v := range t.i32 {
			binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
		}
		return b
	default:
		return nil
	}
}

func (t *Tensor) Floats() []float32 {
	switch t.dtype {
	case ml.DTypeF32, ml.DTypeF16:
		s := make([]float32, len(t.f32))
		copy(s, t.f32)
		return s
	case ml.DTypeQ80:
		s := make([]float32, t.numElements())
		dequantizeQ80(t.q80, s)
		return s
	case ml.DTypeI32:
		s := make([]float32, len(t.i32))
		for i, v := range t.i32 {
			s[i] = float32(v)
		}
		return s
	default:
		return nil
	}
}

// Ints gibt die Rohwerte eines I32-Tensors zurueck.
func (t *Tensor) Ints() []int32 {
	if t.dtype != ml.DTypeI32 {
		panic(fmt.Sprintf("cpu: Ints on %v tensor", t.dtype))
	}
	s := make([]int32, len(t.i32))
	copy(s, t.i32)
	return s
}

func (t *Tensor) FromFloats(s []float32) {
	if len(s) != t.numElements() {
		panic(fmt.Sprintf("cpu: FromFloats with %d values into tensor of %d", len(s), t.numElements()))
	}

	switch t.dtype {
	case ml.DTypeF32:
		copy(t.f32, s)
	case ml.DTypeF16:
		for i, v := range s {
			t.f32[i] = roundF16(v)
		}
	case ml.DTypeQ80:
		quantizeQ80(s, t.q80)
	default:
		panic(fmt.Sprintf("cpu: FromFloats on %v tensor", t.dtype))
	}
}

func (t *Tensor) FromInts(s []int32) {
	if t.dtype != ml.DTypeI32 {
		panic(fmt.Sprintf("cpu: FromInts on %v tensor", t.dtype))
	}
	if len(s) != t.numElements() {
		panic(fmt.Sprintf("cpu: FromInts with %d values into tensor of %d", len(s), t.numElements()))
	}
	copy(t.i32, s)
}

func cast(t ml.Tensor) *Tensor {
	if c, ok := t.(*Tensor); ok {
		return c
	}
	panic(fmt.Sprintf("cpu: foreign tensor %T", t))
}
