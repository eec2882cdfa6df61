// Package kvcache - Forward Pass Operationen
//
// Dieses Modul enthaelt den Ablauf rund um einen Forward Pass:
// - StartForward: Prueft und beginnt einen neuen Forward Pass
// - Seed: Befuellt den Cache vor dem ersten Forward Pass
package kvcache

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

func (c *Causal) StartForward(ctx ml.Context, batchSize, numTokens int) error {
	if batchSize != c.batchSize {
		return fmt.Errorf("%w (cache: %v batch: %v)", ErrShapeMismatch, c.batchSize, batchSize)
	}

	if numTokens <= 0 {
		return fmt.Errorf("%w (tokens: %v)", ErrShapeMismatch, numTokens)
	}

	c.curBatchSize = numTokens

	return nil
}

// Seed stores precomputed key/value entries for a layer before the first
// forward pass. Seeded entries behave like regular tokens at the start of
// every sequence.
func (c *Causal) Seed(ctx ml.Context, layer int, key, value ml.Tensor) error {
	if c.keys[layer] != nil {
		return fmt.Errorf("%w (layer %v is not empty)", ErrNotSupported, layer)
	}

	if key.Dim(0) != c.headDim || key.Dim(1) != c.numHeads || key.Dim(3) != c.batchSize {
		return fmt.Errorf("%w (cache: %vx%vx%v key: %v)", ErrShapeMismatch, c.headDim, c.numHeads, c.batchSize, key.Shape())
	}

	for i := range 4 {
		if value.Dim(i) != key.Dim(i) {
			return fmt.Errorf("%w (key: %v value: %v)", ErrShapeMismatch, key.Shape(), value.Shape())
		}
	}

	c.keys[layer] = key.Duplicate(ctx)
	c.values[layer] = value.Duplicate(ctx)

	return nil
}
