// Package peft - Prompt-Tuning
//
// Diese Datei enthaelt:
// - Prompt: gelernte virtuelle Embeddings, die der Token-Sequenz
//   vorangestellt werden
package peft

import (
	"github.com/peftlab/peftllama/ml"
)

// Prompt stellt gelernte Embeddings (hidden, promptLen) vor die
// Token-Embeddings und verlaengert damit Query- und Key-Seite. Der
// Decoder-Stack wendet den Hook nur beim Priming an.
type Prompt struct {
	Embedding ml.Tensor `st:"peft_prompt.embedding"`
}

func (p *Prompt) PrependPrompt(ctx ml.Context, embeddings ml.Tensor) ml.Tensor {
	batchSize := embeddings.Dim(2)

	prompt := p.Embedding.Reshape(ctx, p.Embedding.Dim(0), p.Embedding.Dim(1), 1)
	prompt = prompt.Repeat(ctx, 2, batchSize)

	return prompt.Concat(ctx, embeddings, 1)
}

func (p *Prompt) PromptLength() int {
	return p.Embedding.Dim(1)
}
