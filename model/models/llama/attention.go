// Modul: attention.go
// Beschreibung: Multi-Head Self-Attention fuer das LLaMA-Modell
// Hauptstrukturen:
//   - Attention: Q/K/V/O-Projektionen mit PEFT-Einhaengepunkten
//   - Forward: Fuehrt den Attention-Vorwaertsdurchlauf durch

package llama

import (
	"math"

	"github.com/peftlab/peftllama/kvcache"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
	"github.com/peftlab/peftllama/peft"
)

// Attention implementiert den Attention-Mechanismus. Die Hooks greifen an
// drei Punkten ein: nach den Projektionen (LoRA, IA3, BitFit), als
// additiver Term auf die Attention-Ausgabe (Prefix-Adapter) und nach der
// Output-Projektion (BitFit).
type Attention struct {
	Query  *nn.Linear `st:"q_proj"`
	Key    *nn.Linear `st:"k_proj"`
	Value  *nn.Linear `st:"v_proj"`
	Output *nn.Linear `st:"o_proj"`

	Hooks peft.AttentionHooks
}

// Forward fuehrt den Attention-Vorwaertsdurchlauf durch. Ist ein Cache
// gesetzt, werden die neuen rotierten Keys und Values angehaengt und die
// Attention laeuft gegen den vollen Cache-Inhalt.
func (attn *Attention) Forward(ctx ml.Context, hiddenStates, cos, sin, mask ml.Tensor, cache kvcache.Cache, opts *Options) ml.Tensor {
	seqLength := hiddenStates.Dim(1)
	batchSize := hiddenStates.Dim(2)

	query := attn.Query.Forward(ctx, hiddenStates)
	key := attn.Key.Forward(ctx, hiddenStates)
	value := attn.Value.Forward(ctx, hiddenStates)

	query, key, value = attn.Hooks.Projections(ctx, query, key, value)

	query = query.Reshape(ctx, opts.headDim, opts.numHeads, seqLength, batchSize)
	key = key.Reshape(ctx, opts.headDim, opts.numHeads, seqLength, batchSize)
	value = value.Reshape(ctx, opts.headDim, opts.numHeads, seqLength, batchSize)

	query = applyRotary(ctx, query, cos, sin)
	key = applyRotary(ctx, key, cos, sin)

	if cache != nil {
		cache.Put(ctx, key, value)
		key, value = cache.Get(ctx)
	}

	attention := nn.Attention(ctx, query, key, value, mask, 1/math.Sqrt(float64(opts.headDim)))

	if term := attn.Hooks.AttentionTerm(ctx, query); term != nil {
		attention = attention.Add(ctx, term)
	}

	attention = attention.Reshape(ctx, opts.hiddenSize, seqLength, batchSize)
	attention = attn.Output.Forward(ctx, attention)
	return attn.Hooks.AttentionOutput(ctx, attention)
}
