// Package input - Batch-Typ fuer den Forward Pass
//
// Ein Batch buendelt alles, was ein Modell fuer einen einzelnen Forward
// Pass braucht: Token-Ids, Rope-Positionen, Attention-Maske und den
// Key/Value-Cache des laufenden Generierungslaufs.
package input

import (
	"github.com/peftlab/peftllama/kvcache"
	"github.com/peftlab/peftllama/ml"
)

// Batch beschreibt einen Forward Pass.
type Batch struct {
	// Inputs sind die Token-Ids, Form (seq, batch)
	Inputs ml.Tensor

	// Positions sind die Rope-Positionen pro Token, flach (seq*batch).
	// Padding-Tokens tragen eine Sentinel-Position jenseits der
	// gueltigen Eintraege; die Maske blendet sie aus.
	Positions []int32

	// Mask ist die additive Attention-Maske (keyLen, queryLen, 1, batch)
	// mit 0 fuer sichtbar und dem kleinsten endlichen Wert fuer geblockt
	Mask ml.Tensor

	// Cache haelt die Key/Value-Historie. Nil bedeutet: der Pass liest
	// und schreibt keine Historie (einfaches Scoring).
	Cache kvcache.Cache

	// NumTokens ist die Anzahl der Cache-Eintraege, die dieser Pass pro
	// Sequenz anhaengt, einschliesslich struktureller Prompt-Tokens
	NumTokens int

	// Prime markiert den ersten Pass eines Generierungslaufs. Nur dann
	// duerfen Strategien virtuellen Kontext injizieren.
	Prime bool
}
