// tensor_shape.go - Form-Operationen
// Enthält: Reshape, Permute, Contiguous, Slice, Duplicate

package cpu

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

// Reshape interpretiert die Daten mit neuer Form. Die Daten werden geteilt,
// nicht kopiert.
func (t *Tensor) Reshape(ctx ml.Context, shape ...int) ml.Tensor {
	rank, dims := shape4(shape)
	if dims[0]*dims[1]*dims[2]*dims[3] != t.numElements() {
		panic(fmt.Sprintf("cpu: Reshape %v to %v", t.Shape(), shape))
	}

	return &Tensor{dtype: t.dtype, rank: rank, dims: dims, f32: t.f32, i32: t.i32, q80: t.q80}
}

// Permute ordnet die Dimensionen um: Dimension i des Eingabetensors wird
// Dimension shape[i] des Ergebnisses. Das Ergebnis wird materialisiert.
func (t *Tensor) Permute(ctx ml.Context, shape ...int) ml.Tensor {
	axes := [4]int{0, 1, 2, 3}
	copy(axes[:], shape)

	var seen [4]bool
	for _, a := range axes {
		if a < 0 || a >= 4 || seen[a] {
			panic(fmt.Sprintf("cpu: Permute with invalid axes %v", shape))
		}
		seen[a] = true
	}

	var nd [4]int
	for i := range 4 {
		nd[axes[i]] = t.dims[i]
	}
	rank := 4
	for rank > 1 && nd[rank-1] == 1 {
		rank--
	}

	out := newTensor(ml.DTypeF32, nd[:rank]...)
	var j [4]int
	flat := 0
	for i3 := range t.dims[3] {
		j[axes[3]] = i3
		for i2 := range t.dims[2] {
			j[axes[2]] = i2
			for i1 := range t.dims[1] {
				j[axes[1]] = i1
				for i0 := range t.dims[0] {
					j[axes[0]] = i0
					out.f32[((j[3]*nd[2]+j[2])*nd[1]+j[1])*nd[0]+j[0]] = t.f32[flat]
					flat++
				}
			}
		}
	}

	return out
}

// Contiguous ist im eager Backend ein Durchreich: jede Operation
// materialisiert ihr Ergebnis bereits dicht gepackt. Eine optionale
// Zielform wirkt wie Reshape.
func (t *Tensor) Contiguous(ctx ml.Context, shape ...int) ml.Tensor {
	if len(shape) > 0 {
		return t.Reshape(ctx, shape...)
	}
	return t
}

// Slice schneidet [low, high) mit Schrittweite step entlang dim aus.
func (t *Tensor) Slice(ctx ml.Context, dim, low, high, step int) ml.Tensor {
	if dim < 0 || dim >= 4 || low < 0 || high > t.dims[dim] || low >= high || step < 1 {
		panic(fmt.Sprintf("cpu: Slice dim %d [%d:%d:%d] of %v", dim, low, high, step, t.Shape()))
	}

	outDim := (high - low + step - 1) / step
	shape := [4]int{t.dims[0], t.dims[1], t.dims[2], t.dims[3]}
	shape[dim] = outDim
	out := newTensor(ml.DTypeF32, shape[:t.rank]...)

	inner := t.Stride(dim)
	block := inner * t.dims[dim]
	outer := t.numElements() / block
	for o := range outer {
		j := 0
		for idx := low; idx < high; idx += step {
			copy(out.f32[(o*outDim+j)*inner:(o*outDim+j+1)*inner], t.f32[o*block+idx*inner:o*block+(idx+1)*inner])
			j++
		}
	}

	return out
}

// Duplicate kopiert den Tensor vollstaendig.
func (t *Tensor) Duplicate(ctx ml.Context) ml.Tensor {
	out := newTensor(t.dtype, t.Shape()...)
	copy(out.f32, t.f32)
	copy(out.i32, t.i32)
	copy(out.q80, t.q80)
	return out
}
