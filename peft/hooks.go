// Package peft - Hook-Interfaces und Identity
//
// Diese Datei enthaelt:
// - Site: unterscheidet Attention- und MLP-Einhaengepunkte eines Layers
// - AttentionHooks, MLPHooks, LayerHooks, StackHooks, CachePrefix:
//   die fuenf Hook-Interfaces der Einhaengepunkte
// - Identity: die No-Op-Implementierung aller Hooks
package peft

import (
	"github.com/peftlab/peftllama/ml"
)

// Site benennt den Einhaengepunkt innerhalb eines Decoder-Layers
type Site int

const (
	SiteAttention Site = iota
	SiteMLP
)

// AttentionHooks greift in den Attention-Block eines Layers ein.
type AttentionHooks interface {
	// Projections transformiert Query/Key/Value direkt nach der
	// Projektion, vor der Aufteilung in Koepfe. Alle drei Tensoren
	// haben die Form (hidden, seq, batch).
	Projections(ctx ml.Context, query, key, value ml.Tensor) (ml.Tensor, ml.Tensor, ml.Tensor)

	// AttentionTerm liefert einen additiven Term fuer die Attention-
	// Ausgabe vor der Output-Projektion, berechnet aus den rotierten
	// Query-Zustaenden (headDim, heads, seq, batch), oder nil.
	AttentionTerm(ctx ml.Context, query ml.Tensor) ml.Tensor

	// AttentionOutput transformiert die Ausgabe der Output-Projektion
	AttentionOutput(ctx ml.Context, x ml.Tensor) ml.Tensor
}

// MLPHooks greift in den Feed-Forward-Block eines Layers ein.
type MLPHooks interface {
	// GateUp transformiert Gate- und Up-Projektion vor dem Gating
	GateUp(ctx ml.Context, gate, up ml.Tensor) (ml.Tensor, ml.Tensor)

	// Intermediate transformiert das Zwischenergebnis nach dem Gating
	Intermediate(ctx ml.Context, x ml.Tensor) ml.Tensor

	// MLPOutput transformiert die Ausgabe der Down-Projektion
	MLPOutput(ctx ml.Context, x ml.Tensor) ml.Tensor
}

// LayerHooks greift auf Layer-Ebene ein, ausserhalb der Sub-Bloecke.
type LayerHooks interface {
	// NormOutput transformiert die Ausgabe der Normalisierung vor dem
	// jeweiligen Sub-Block
	NormOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor

	// SublayerOutput transformiert die Ausgabe des Sub-Blocks vor der
	// Residual-Addition
	SublayerOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor
}

// StackHooks greift vor dem ersten Layer des Decoder-Stacks ein.
type StackHooks interface {
	// PrependPrompt stellt gelernte virtuelle Embeddings vor die
	// Token-Embeddings (hidden, seq, batch) und verlaengert damit die
	// Sequenz
	PrependPrompt(ctx ml.Context, embeddings ml.Tensor) ml.Tensor

	// PromptLength liefert die Anzahl vorangestellter virtueller Tokens
	PromptLength() int
}

// CachePrefix liefert gelernte virtuelle Key/Value-Eintraege, die vor dem
// ersten Forward Pass direkt in den Cache jedes Layers gelegt werden.
type CachePrefix interface {
	// PrefixKV liefert (key, value) eines Layers, expandiert auf
	// batchSize Sequenzen: (headDim, heads, prefixLen, batchSize)
	PrefixKV(ctx ml.Context, layer, batchSize int) (ml.Tensor, ml.Tensor)

	// PrefixLength liefert die Anzahl virtueller Cache-Eintraege
	PrefixLength() int
}

// Identity ist die No-Op-Implementierung aller Hooks ausser CachePrefix.
// Strategien implementieren nur die Hooks, die sie brauchen, und betten
// Identity fuer den Rest ein.
type Identity struct{}

func (Identity) Projections(ctx ml.Context, query, key, value ml.Tensor) (ml.Tensor, ml.Tensor, ml.Tensor) {
	return query, key, value
}

func (Identity) AttentionTerm(ctx ml.Context, query ml.Tensor) ml.Tensor { return nil }

func (Identity) AttentionOutput(ctx ml.Context, x ml.Tensor) ml.Tensor { return x }

func (Identity) GateUp(ctx ml.Context, gate, up ml.Tensor) (ml.Tensor, ml.Tensor) { return gate, up }

func (Identity) Intermediate(ctx ml.Context, x ml.Tensor) ml.Tensor { return x }

func (Identity) MLPOutput(ctx ml.Context, x ml.Tensor) ml.Tensor { return x }

func (Identity) NormOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor { return x }

func (Identity) SublayerOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor { return x }

func (Identity) PrependPrompt(ctx ml.Context, embeddings ml.Tensor) ml.Tensor { return embeddings }

func (Identity) PromptLength() int { return 0 }
