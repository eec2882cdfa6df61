// context.go - Eager Compute-Context
// Enthält: Context-Implementierung und Tensor-Konstruktoren

package cpu

import (
	"github.com/peftlab/peftllama/ml"
)

// Context fuehrt Operationen sofort aus. Forward und Compute existieren
// nur, damit Aufrufer gegen das Graph-Interface programmieren koennen;
// Ergebnisse sind immer schon materialisiert.
type Context struct {
	b *Backend
}

func (c Context) Empty(dtype ml.DType, shape ...int) ml.Tensor {
	return newTensor(dtype, shape...)
}

func (c Context) Zeros(dtype ml.DType, shape ...int) ml.Tensor {
	return newTensor(dtype, shape...)
}

func (c Context) FromFloats(s []float32, shape ...int) ml.Tensor {
	t := newTensor(ml.DTypeF32, shape...)
	t.FromFloats(s)
	return t
}

func (c Context) FromInts(s []int32, shape ...int) ml.Tensor {
	t := newTensor(ml.DTypeI32, shape...)
	t.FromInts(s)
	return t
}

func (c Context) Arange(start, stop, step float32, dtype ml.DType) ml.Tensor {
	var f32 []float32
	var i32 []int32
	for v := start; v < stop; v += step {
		f32 = append(f32, v)
		i32 = append(i32, int32(v))
	}

	switch dtype {
	case ml.DTypeI32:
		t := newTensor(ml.DTypeI32, len(i32))
		t.FromInts(i32)
		return t
	default:
		t := newTensor(ml.DTypeF32, len(f32))
		t.FromFloats(f32)
		return t
	}
}

func (c Context) Forward(...ml.Tensor) ml.Context { return c }

func (c Context) Compute(...ml.Tensor) {}

func (c Context) Close() {}

func (c Context) Input() ml.Context { return c }

func (c Context) Layer(int) ml.Context { return c }
