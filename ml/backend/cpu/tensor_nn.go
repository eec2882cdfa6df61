// tensor_nn.go - Neuronale Netzwerk-Operationen
// Enthält: Softmax, RMSNorm, SILU, GELU, Tanh

package cpu

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/peftlab/peftllama/ml"
)

// Softmax normalisiert jede Zeile (Dim 0) auf Summe 1, numerisch
// stabilisiert durch Subtraktion des Zeilenmaximums.
func (t *Tensor) Softmax(ctx ml.Context) ml.Tensor {
	out := newTensor(ml.DTypeF32, t.Shape()...)
	d0 := t.dims[0]
	for r := 0; r < t.numElements(); r += d0 {
		row := t.f32[r : r+d0]

		m := row[0]
		for _, v := range row[1:] {
			if v > m {
				m = v
			}
		}

		var sum float64
		for i, v := range row {
			e := math32.Exp(v - m)
			out.f32[r+i] = e
			sum += float64(e)
		}

		inv := float32(1 / sum)
		for i := range row {
			out.f32[r+i] *= inv
		}
	}
	return out
}

// RMSNorm normalisiert jede Zeile mit 1/sqrt(mean(x^2)+eps) und skaliert
// mit den Gewichten.
func (t *Tensor) RMSNorm(ctx ml.Context, weight ml.Tensor, eps float32) ml.Tensor {
	w := cast(weight)
	d0 := t.dims[0]
	if w.dims[0] != d0 {
		panic(fmt.Sprintf("cpu: RMSNorm weight %v for tensor %v", w.Shape(), t.Shape()))
	}

	out := newTensor(ml.DTypeF32, t.Shape()...)
	for r := 0; r < t.numElements(); r += d0 {
		row := t.f32[r : r+d0]

		var ss float64
		for _, v := range row {
			ss += float64(v) * float64(v)
		}
		inv := float32(1 / math.Sqrt(ss/float64(d0)+float64(eps)))

		for i, v := range row {
			out.f32[r+i] = v * inv * w.f32[i]
		}
	}
	return out
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func (t *Tensor) unaryOp(up []ml.Tensor, name string, op func(x float32) float32) ml.Tensor {
	out := newTensor(ml.DTypeF32, t.Shape()...)
	for i, v := range t.f32 {
		out.f32[i] = op(v)
	}

	if len(up) > 0 {
		u := cast(up[0])
		if u.numElements() != t.numElements() {
			panic(fmt.Sprintf("cpu: %s with mismatched up shape %v for %v", name, u.Shape(), t.Shape()))
		}
		for i, v := range u.f32 {
			out.f32[i] *= v
		}
	}

	return out
}

// SILU berechnet x*sigmoid(x), optional fusioniert mit einer elementweisen
// Multiplikation (Gate-Up-Fusion).
func (t *Tensor) SILU(ctx ml.Context, up ...ml.Tensor) ml.Tensor {
	return t.unaryOp(up, "SILU", func(x float32) float32 { return x * sigmoid(x) })
}

// GELU verwendet die tanh-Naeherung wie ggml.
func (t *Tensor) GELU(ctx ml.Context, up ...ml.Tensor) ml.Tensor {
	return t.unaryOp(up, "GELU", func(x float32) float32 {
		return 0.5 * x * (1 + math32.Tanh(0.79788456*(x+0.044715*x*x*x)))
	})
}

func (t *Tensor) Tanh(ctx ml.Context) ml.Tensor {
	return t.unaryOp(nil, "Tanh", math32.Tanh)
}
