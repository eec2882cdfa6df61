// Package peft - LoRA (Low-Rank Adaptation)
//
// Diese Datei enthaelt:
// - LoRA: Low-Rank-Korrektur fuer eine einzelne Projektion
// - LoRAAttention: haengt LoRA an die Query- und Value-Projektion
package peft

import (
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
)

// LoRA addiert eine Low-Rank-Korrektur B(A(x)) auf die Ausgabe einer
// eingefrorenen Projektion. A projiziert auf den Rang herunter,
// B wieder auf die volle Breite hinauf.
type LoRA struct {
	A *nn.Linear `st:"lora_a"`
	B *nn.Linear `st:"lora_b"`
}

func (l *LoRA) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return x.Add(ctx, l.B.Forward(ctx, l.A.Forward(ctx, x)))
}

// LoRAAttention korrigiert die Query- und Value-Projektion eines Layers
type LoRAAttention struct {
	Identity
	Query *LoRA `st:"peft_q_proj_lora"`
	Value *LoRA `st:"peft_v_proj_lora"`
}

func (l *LoRAAttention) Projections(ctx ml.Context, query, key, value ml.Tensor) (ml.Tensor, ml.Tensor, ml.Tensor) {
	return l.Query.Forward(ctx, query), key, l.Value.Forward(ctx, value)
}
