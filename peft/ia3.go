// Package peft - IA3 (gelernte Reskalierung)
//
// Diese Datei enthaelt:
// - IA3Attention: Skalenvektoren fuer Key und Value
// - IA3MLP: Skalenvektor fuer das Gating-Zwischenergebnis
package peft

import (
	"github.com/peftlab/peftllama/ml"
)

// IA3Attention skaliert Key und Value elementweise pro Kanal, vor der
// Aufteilung in Koepfe. Die Skalen werden nahe 1 initialisiert.
type IA3Attention struct {
	Identity
	KeyScale   ml.Tensor `st:"peft_ia3.k_scale"`
	ValueScale ml.Tensor `st:"peft_ia3.v_scale"`
}

func (s *IA3Attention) Projections(ctx ml.Context, query, key, value ml.Tensor) (ml.Tensor, ml.Tensor, ml.Tensor) {
	return query, key.Mul(ctx, s.KeyScale), value.Mul(ctx, s.ValueScale)
}

// IA3MLP skaliert das Zwischenergebnis nach dem Gating
type IA3MLP struct {
	Identity
	Scale ml.Tensor `st:"peft_ia3.scale"`
}

func (s *IA3MLP) Intermediate(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return x.Mul(ctx, s.Scale)
}
