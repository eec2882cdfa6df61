// Package peft - Prefix-Tuning
//
// Diese Datei enthaelt:
// - Prefixes: gelernte virtuelle Key/Value-Eintraege pro Layer, die vor
//   dem ersten Forward Pass in den Cache gelegt werden
package peft

import (
	"github.com/peftlab/peftllama/ml"
)

// PrefixLayer haelt die gelernten Cache-Eintraege eines Layers.
// Key hat die Form (headDim, heads, prefixLen), Value entsprechend.
type PrefixLayer struct {
	Key   ml.Tensor `st:"key"`
	Value ml.Tensor `st:"value"`
}

// Prefixes verlaengert die Key-Seite jedes Layers um gelernte virtuelle
// Eintraege, ohne Query-Tokens hinzuzufuegen
type Prefixes struct {
	Layers []PrefixLayer `st:"peft_prefixes.layers"`
}

func (p *Prefixes) PrefixKV(ctx ml.Context, layer, batchSize int) (ml.Tensor, ml.Tensor) {
	l := p.Layers[layer]
	return l.Key.Repeat(ctx, 3, batchSize), l.Value.Repeat(ctx, 3, batchSize)
}

func (p *Prefixes) PrefixLength() int {
	return p.Layers[0].Key.Dim(2)
}
