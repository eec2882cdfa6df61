// tensor_arithmetic.go - Basis-Arithmetik-Operationen für Tensoren
// Enthält: Add, Mul, Scale, Repeat, Concat

package cpu

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

// binaryOp wendet op elementweise an. t2 wird auf die Form von t
// gebroadcastet: jede Dimension von t2 muss gleich der von t oder 1 sein.
func (t *Tensor) binaryOp(t2 ml.Tensor, name string, op func(a, b float32) float32) ml.Tensor {
	b := cast(t2)
	for i := range 4 {
		if b.dims[i] != t.dims[i] && b.dims[i] != 1 {
			panic(fmt.Sprintf("cpu: %s with incompatible shapes %v and %v", name, t.Shape(), b.Shape()))
		}
	}

	out := newTensor(ml.DTypeF32, t.Shape()...)
	d := t.dims
	for i3 := range d[3] {
		for i2 := range d[2] {
			for i1 := range d[1] {
				aBase := ((i3*d[2]+i2)*d[1] + i1) * d[0]
				bBase := ((i3%b.dims[3]*b.dims[2]+i2%b.dims[2])*b.dims[1] + i1%b.dims[1]) * b.dims[0]
				if b.dims[0] == d[0] {
					for i0 := range d[0] {
						out.f32[aBase+i0] = op(t.f32[aBase+i0], b.f32[bBase+i0])
					}
				} else {
					bv := b.f32[bBase]
					for i0 := range d[0] {
						out.f32[aBase+i0] = op(t.f32[aBase+i0], bv)
					}
				}
			}
		}
	}

	return out
}

// Add addiert zwei Tensoren elementweise
func (t *Tensor) Add(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binaryOp(t2, "Add", func(a, b float32) float32 { return a + b })
}

// Mul multipliziert zwei Tensoren elementweise
func (t *Tensor) Mul(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.binaryOp(t2, "Mul", func(a, b float32) float32 { return a * b })
}

// Scale multipliziert alle Elemente mit einem Skalar
func (t *Tensor) Scale(ctx ml.Context, s float64) ml.Tensor {
	out := newTensor(ml.DTypeF32, t.Shape()...)
	f := float32(s)
	for i, v := range t.f32 {
		out.f32[i] = v * f
	}
	return out
}

// Repeat wiederholt den Tensor n-mal entlang der Dimension dim
func (t *Tensor) Repeat(ctx ml.Context, dim, n int) ml.Tensor {
	if dim < 0 || dim >= 4 || n < 1 {
		panic(fmt.Sprintf("cpu: Repeat dim %d n %d", dim, n))
	}

	shape := [4]int{t.dims[0], t.dims[1], t.dims[2], t.dims[3]}
	shape[dim] *= n
	rank := max(t.rank, dim+1)
	out := newTensor(ml.DTypeF32, shape[:rank]...)

	inner := t.Stride(dim)
	block := inner * t.dims[dim]
	outer := t.numElements() / block
	for o := range outer {
		src := t.f32[o*block : (o+1)*block]
		for r := range n {
			copy(out.f32[(o*n+r)*block:], src)
		}
	}

	return out
}

// Concat haengt t2 entlang der Dimension dim an
func (t *Tensor) Concat(ctx ml.Context, t2 ml.Tensor, dim int) ml.Tensor {
	b := cast(t2)
	for i := range 4 {
		if i != dim && t.dims[i] != b.dims[i] {
			panic(fmt.Sprintf("cpu: Concat dim %d with incompatible shapes %v and %v", dim, t.Shape(), b.Shape()))
		}
	}

	shape := [4]int{t.dims[0], t.dims[1], t.dims[2], t.dims[3]}
	shape[dim] += b.dims[dim]
	rank := max(t.rank, max(b.rank, dim+1))
	out := newTensor(ml.DTypeF32, shape[:rank]...)

	inner := t.Stride(dim)
	blockA := inner * t.dims[dim]
	blockB := inner * b.dims[dim]
	outer := t.numElements() / blockA
	for o := range outer {
		copy(out.f32[o*(blockA+blockB):], t.f32[o*blockA:(o+1)*blockA])
		copy(out.f32[o*(blockA+blockB)+blockA:], b.f32[o*blockB:(o+1)*blockB])
	}

	return out
}
