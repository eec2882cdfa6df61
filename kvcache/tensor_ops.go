// Package kvcache - Tensor-Operationen (Get/Put)
//
// Dieses Modul enthaelt die Kern-Tensor-Operationen:
// - SetLayer: Setzt den aktiven Layer
// - Get: Liest Key/Value-Tensoren aus dem Cache
// - Put: Schreibt Key/Value-Tensoren in den Cache
package kvcache

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

func (c *Causal) SetLayer(layer int) {
	c.curLayer = layer
}

func (c *Causal) Get(ctx ml.Context) (ml.Tensor, ml.Tensor) {
	return c.keys[c.curLayer], c.values[c.curLayer]
}

func (c *Causal) Put(ctx ml.Context, key, value ml.Tensor) {
	kHeadDim := key.Dim(0)
	numKVHeads := key.Dim(1)
	batchSize := key.Dim(2)
	numSequences := key.Dim(3)

	if c.curBatchSize != batchSize {
		panic(fmt.Errorf("inconsistent batch sizes (layer: %v, batch size: %v layer batch size: %v)", c.curLayer, c.curBatchSize, batchSize))
	}

	if kHeadDim != c.headDim || numKVHeads != c.numHeads || numSequences != c.batchSize {
		panic(fmt.Errorf("inconsistent cache geometry (layer: %v, cache: %vx%vx%v tensor: %vx%vx%v)",
			c.curLayer, c.headDim, c.numHeads, c.batchSize, kHeadDim, numKVHeads, numSequences))
	}

	for i := range 4 {
		if value.Dim(i) != key.Dim(i) {
			panic(fmt.Errorf("inconsistent key/value shapes (layer: %v, key: %v value: %v)", c.curLayer, key.Shape(), value.Shape()))
		}
	}

	if c.keys[c.curLayer] != nil {
		c.keys[c.curLayer] = c.keys[c.curLayer].Concat(ctx, key, 2)
		c.values[c.curLayer] = c.values[c.curLayer].Concat(ctx, value, 2)
	} else {
		c.keys[c.curLayer] = key.Duplicate(ctx)
		c.values[c.curLayer] = value.Duplicate(ctx)
	}
}
