// tensor_matrix.go - Matrixmultiplikation
// Enthält: Mulmat, MulmatFullPrec

package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/peftlab/peftllama/ml"
)

// Mulmat berechnet die ggml-Matrixmultiplikation: fuer a mit Form (K, M)
// und b mit Form (K, N) ist das Ergebnis (M, N) mit
// out[n][m] = sum_k a[m][k] * b[n][k]. Die beiden aeusseren Dimensionen
// werden elementweise durchlaufen, wobei a gebroadcastet wird.
func (t *Tensor) Mulmat(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	a, b := t, cast(t2)
	if a.dims[0] != b.dims[0] {
		panic(fmt.Sprintf("cpu: Mulmat with incompatible shapes %v and %v", a.Shape(), b.Shape()))
	}
	if b.dims[2]%a.dims[2] != 0 || b.dims[3]%a.dims[3] != 0 {
		panic(fmt.Sprintf("cpu: Mulmat with non-broadcastable batch dims %v and %v", a.Shape(), b.Shape()))
	}

	k := a.dims[0]
	m := a.dims[1]
	n := b.dims[1]

	rank := max(2, b.rank)
	shape := [4]int{m, n, b.dims[2], b.dims[3]}
	out := newTensor(ml.DTypeF32, shape[:rank]...)

	for i3 := range b.dims[3] {
		for i2 := range b.dims[2] {
			bOff := (i3*b.dims[2] + i2) * n * k
			outOff := (i3*b.dims[2] + i2) * n * m
			aIdx := (i3%a.dims[3])*a.dims[2] + i2%a.dims[2]

			if a.dtype == ml.DTypeQ80 {
				blocksPerRow := k / blockSize
				aBlocks := a.q80[aIdx*m*blocksPerRow:]
				for in := range n {
					row := b.f32[bOff+in*k : bOff+(in+1)*k]
					for im := range m {
						out.f32[outOff+in*m+im] = dotQ80(aBlocks[im*blocksPerRow:(im+1)*blocksPerRow], row)
					}
				}
				continue
			}

			ga := blas32.General{Rows: m, Cols: k, Stride: k, Data: a.f32[aIdx*m*k : (aIdx+1)*m*k]}
			gb := blas32.General{Rows: n, Cols: k, Stride: k, Data: b.f32[bOff : bOff+n*k]}
			gc := blas32.General{Rows: n, Cols: m, Stride: m, Data: out.f32[outOff : outOff+n*m]}
			blas32.Gemm(blas.NoTrans, blas.Trans, 1, gb, ga, 0, gc)
		}
	}

	return out
}

// MulmatFullPrec entspricht Mulmat; der CPU-Backend rechnet ohnehin in f32.
func (t *Tensor) MulmatFullPrec(ctx ml.Context, t2 ml.Tensor) ml.Tensor {
	return t.Mulmat(ctx, t2)
}
