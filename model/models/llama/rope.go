// Modul: rope.go
// Beschreibung: Rotary Position Embeddings (RoPE) in der rotate-half-Form
// Hauptstrukturen:
//   - rotaryTable: Cos/Sin-Tabellen, indiziert ueber Positions-IDs
//   - applyRotary: Wendet die Rotation auf Query- oder Key-Tensoren an

package llama

import (
	"math"

	"github.com/peftlab/peftllama/ml"
)

// rotaryTable haelt vorberechnete Cos/Sin-Tabellen der Form
// (headDim, maxPositions). Die Frequenzen der ersten Haelfte jeder Zeile
// wiederholen sich in der zweiten Haelfte, passend zur rotate-half-Form.
// Die Tabellen wachsen monoton, wenn eine Position das bisherige Maximum
// erreicht.
type rotaryTable struct {
	headDim      int
	base         float64
	maxPositions int

	cos, sin ml.Tensor
}

func newRotaryTable(headDim int, base float64, maxPositions int) *rotaryTable {
	return &rotaryTable{headDim: headDim, base: base, maxPositions: maxPositions}
}

// Lookup liefert Cos/Sin-Tensoren der Form (headDim, 1, seqLen, batchSize)
// fuer die gegebenen Positions-IDs. positions ist zeilenweise flach:
// Eintrag b*seqLen+i gehoert zu Position i der Sequenz b.
func (r *rotaryTable) Lookup(ctx ml.Context, positions []int32, seqLen, batchSize int) (cos, sin ml.Tensor) {
	needed := r.maxPositions
	for _, p := range positions {
		if int(p) >= needed {
			needed = int(p) + 1
		}
	}
	r.ensure(ctx, needed)

	ids := ctx.Input().FromInts(positions, len(positions))
	cos = r.cos.Rows(ctx, ids).Reshape(ctx, r.headDim, 1, seqLen, batchSize)
	sin = r.sin.Rows(ctx, ids).Reshape(ctx, r.headDim, 1, seqLen, batchSize)
	return cos, sin
}

// ensure baut die Tabellen, wenn sie fehlen oder zu kurz sind
func (r *rotaryTable) ensure(ctx ml.Context, maxPositions int) {
	if r.cos != nil && maxPositions <= r.maxPositions {
		return
	}
	if maxPositions > r.maxPositions {
		r.maxPositions = maxPositions
	}

	half := r.headDim / 2
	cos := make([]float32, r.maxPositions*r.headDim)
	sin := make([]float32, r.maxPositions*r.headDim)
	for pos := range r.maxPositions {
		row := pos * r.headDim
		for i := range half {
			angle := float64(pos) * math.Pow(r.base, -2*float64(i)/float64(r.headDim))
			c, s := float32(math.Cos(angle)), float32(math.Sin(angle))
			cos[row+i], cos[row+half+i] = c, c
			sin[row+i], sin[row+half+i] = s, s
		}
	}

	r.cos = ctx.Input().FromFloats(cos, r.headDim, r.maxPositions)
	r.sin = ctx.Input().FromFloats(sin, r.headDim, r.maxPositions)
}

// applyRotary rotiert t (headDim, heads, seq, batch) mit den nachgeschlagenen
// Cos/Sin-Werten (headDim, 1, seq, batch): t*cos + rotateHalf(t)*sin
func applyRotary(ctx ml.Context, t, cos, sin ml.Tensor) ml.Tensor {
	return t.Mul(ctx, cos).Add(ctx, rotateHalf(ctx, t).Mul(ctx, sin))
}

// rotateHalf bildet (x1, x2) auf (-x2, x1) ab, mit x1/x2 als erster und
// zweiter Haelfte von Dim 0
func rotateHalf(ctx ml.Context, t ml.Tensor) ml.Tensor {
	half := t.Dim(0) / 2
	x1 := t.Slice(ctx, 0, 0, half, 1)
	x2 := t.Slice(ctx, 0, half, t.Dim(0), 1)
	return x2.Scale(ctx, -1).Concat(ctx, x1, 0)
}
