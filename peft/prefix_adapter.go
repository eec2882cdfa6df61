// Package peft - Prefix-Adapter
//
// Diese Datei enthaelt:
// - PrefixAdapter: additiver Attention-Term aus gelernten virtuellen
//   Keys/Values, unabhaengig vom echten KV-Cache
package peft

import (
	"math"

	"github.com/peftlab/peftllama/ml"
)

// PrefixAdapter berechnet pro Kopf eine Attention der Query-Zustaende
// gegen gelernte Prefix-Keys und addiert das Ergebnis, skaliert mit
// tanh(gate), auf die Attention-Ausgabe. Das Gate ist mit 0 initialisiert,
// der Term verschwindet also zu Beginn.
type PrefixAdapter struct {
	Identity

	// (headDim, prefixLen, heads)
	PrefixKey ml.Tensor `st:"peft_prefix_adapter.prefix_key"`

	// (prefixLen, headDim, heads)
	PrefixValue ml.Tensor `st:"peft_prefix_adapter.prefix_value"`

	// (1, heads)
	Gate ml.Tensor `st:"peft_prefix_adapter.gate"`
}

func (p *PrefixAdapter) AttentionTerm(ctx ml.Context, query ml.Tensor) ml.Tensor {
	headDim := query.Dim(0)

	// (headDim, seq, heads, batch)
	q := query.Permute(ctx, 0, 2, 1, 3)

	// (prefixLen, seq, heads, batch)
	scores := p.PrefixKey.Mulmat(ctx, q)
	scores = scores.Scale(ctx, 1/math.Sqrt(float64(headDim)))
	scores = scores.Softmax(ctx)

	// (headDim, seq, heads, batch)
	term := p.PrefixValue.Mulmat(ctx, scores)

	term = term.Permute(ctx, 0, 2, 1, 3)
	return term.Mul(ctx, p.Gate.Tanh(ctx))
}
