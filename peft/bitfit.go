// Package peft - BitFit (Bias-only Feinabstimmung)
//
// Diese Datei enthaelt:
// - AddBias: gelernter additiver Bias pro Kanal
// - BitFitAttention, BitFitMLP, BitFitLayer: Bias-Einhaengepunkte nach
//   jeder Projektion, dem Gating und den Normalisierungen
package peft

import (
	"github.com/peftlab/peftllama/ml"
)

// AddBias addiert einen gelernten Bias auf die innerste Dimension
type AddBias struct {
	Bias ml.Tensor `st:"bias"`
}

func (b *AddBias) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return x.Add(ctx, b.Bias)
}

// BitFitAttention addiert Biases nach den vier Attention-Projektionen
type BitFitAttention struct {
	Identity
	Query  *AddBias `st:"peft_q_proj_bias"`
	Key    *AddBias `st:"peft_k_proj_bias"`
	Value  *AddBias `st:"peft_v_proj_bias"`
	Output *AddBias `st:"peft_o_proj_bias"`
}

func (b *BitFitAttention) Projections(ctx ml.Context, query, key, value ml.Tensor) (ml.Tensor, ml.Tensor, ml.Tensor) {
	return b.Query.Forward(ctx, query), b.Key.Forward(ctx, key), b.Value.Forward(ctx, value)
}

func (b *BitFitAttention) AttentionOutput(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return b.Output.Forward(ctx, x)
}

// BitFitMLP addiert Biases nach Gate-, Up- und Down-Projektion
type BitFitMLP struct {
	Identity
	Gate *AddBias `st:"peft_gate_proj_bias"`
	Up   *AddBias `st:"peft_up_proj_bias"`
	Down *AddBias `st:"peft_down_proj_bias"`
}

func (b *BitFitMLP) GateUp(ctx ml.Context, gate, up ml.Tensor) (ml.Tensor, ml.Tensor) {
	return b.Gate.Forward(ctx, gate), b.Up.Forward(ctx, up)
}

func (b *BitFitMLP) MLPOutput(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return b.Down.Forward(ctx, x)
}

// BitFitLayer addiert Biases nach den beiden Layer-Normalisierungen
type BitFitLayer struct {
	Identity
	InputNorm *AddBias `st:"peft_input_layernorm_bias"`
	PostNorm  *AddBias `st:"peft_post_attention_layernorm_bias"`
}

func (b *BitFitLayer) NormOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor {
	if site == SiteAttention {
		return b.InputNorm.Forward(ctx, x)
	}
	return b.PostNorm.Forward(ctx, x)
}
