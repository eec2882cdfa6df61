// Package kvcache - Sequenz-Operationen
//
// Dieses Modul verwaltet sequenzweite Operationen auf dem Cache:
// - ShiftRight: Richtet die gueltigen Eintraege jeder Zeile rechtsbuendig aus
// - Len: Aktuelle Cache-Laenge in Tokens
package kvcache

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

// ShiftRight rotates each sequence's entries left by valid[i] so that the
// first valid[i] entries end up flush with the end of the cache. After priming
// with end-padded prompts this puts the live entries of every row at the same
// trailing positions, so a single trailing window can mask the whole batch
// during generation.
func (c *Causal) ShiftRight(ctx ml.Context, valid []int32) error {
	if len(valid) != c.batchSize {
		return fmt.Errorf("%w (cache: %v valid: %v)", ErrShapeMismatch, c.batchSize, len(valid))
	}

	length := c.Len()
	for i, n := range valid {
		if n < 0 || int(n) > length {
			return fmt.Errorf("%w (row %v: %v of %v entries)", ErrShapeMismatch, i, n, length)
		}
	}

	for layer, key := range c.keys {
		c.keys[layer] = alignRight(ctx, key, valid, length)
		c.values[layer] = alignRight(ctx, c.values[layer], valid, length)
	}

	return nil
}

func alignRight(ctx ml.Context, t ml.Tensor, valid []int32, length int) ml.Tensor {
	var out ml.Tensor

	for i, n := range valid {
		row := t.Slice(ctx, 3, i, i+1, 1)

		// rotating by 0 or by the full length is the identity
		if n > 0 && int(n) < length {
			head := row.Slice(ctx, 2, 0, int(n), 1)
			tail := row.Slice(ctx, 2, int(n), length, 1)
			row = tail.Concat(ctx, head, 2)
		}

		if out == nil {
			out = row
		} else {
			out = out.Concat(ctx, row, 3)
		}
	}

	return out
}

func (c *Causal) Len() int {
	for _, key := range c.keys {
		if key != nil {
			return key.Dim(2)
		}
	}

	return 0
}
