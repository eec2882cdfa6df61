// Package kvcache - Konstruktoren und Initialisierung
//
// Dieses Modul enthaelt die Factory-Funktion und den Lebenszyklus des
// Standard-Caches:
// - NewCausalCache: Cache fuer autoregressive Decodierung
// - Init: Festlegen der Cache-Geometrie
// - Close: Ressourcenfreigabe
package kvcache

import (
	"github.com/peftlab/peftllama/ml"
)

// Causal waechst mit jedem Forward-Pass um die neu berechneten Key/Value-
// Eintraege. Eintraege behalten ihre Einfuege-Reihenfolge; welche davon
// sichtbar sind, entscheidet die Attention-Maske des Modells.
type Causal struct {
	backend ml.Backend
	dtype   ml.DType

	batchSize int
	numHeads  int
	headDim   int

	// Anzahl der Tokens des laufenden Forward-Pass, gesetzt von StartForward
	curBatchSize int

	curLayer int

	// pro Layer: (headDim, numHeads, Len, batchSize)
	keys   map[int]ml.Tensor
	values map[int]ml.Tensor
}

func NewCausalCache() *Causal {
	return &Causal{
		keys:   make(map[int]ml.Tensor),
		values: make(map[int]ml.Tensor),
	}
}

func (c *Causal) Init(backend ml.Backend, dtype ml.DType, batchSize, numHeads, headDim int) {
	c.backend = backend
	c.dtype = dtype
	c.batchSize = batchSize
	c.numHeads = numHeads
	c.headDim = headDim
}

func (c *Causal) Close() {
	c.keys = nil
	c.values = nil
}
