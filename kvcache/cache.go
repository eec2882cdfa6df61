// Package kvcache - Cache-Interface und Fehler
//
// Der Cache speichert die Key/Value-Historie der Self-Attention pro Layer.
// Jeder Generierungslauf besitzt seinen Cache exklusiv; er darf nicht von
// nebenlaeufigen Laeufen geteilt werden.
package kvcache

import (
	"errors"

	"github.com/peftlab/peftllama/ml"
)

var (
	// ErrShapeMismatch zeigt an, dass Eingaben nicht zu den bei Init
	// festgelegten Cache-Dimensionen passen. Das ist ein Aufruffehler.
	ErrShapeMismatch = errors.New("kv cache shape mismatch")

	// ErrNotSupported zeigt an, dass der Cache eine Operation nicht
	// unterstuetzt.
	ErrNotSupported = errors.New("cache does not support this operation")
)

type Cache interface {
	// Init prepares the cache for a run over batchSize sequences with the
	// given attention geometry.
	Init(backend ml.Backend, dtype ml.DType, batchSize, numHeads, headDim int)

	// SetLayer sets the active layer of the cache
	SetLayer(layer int)

	// Get returns the full history of the active layer as (key, value),
	// each of shape (headDim, numHeads, Len(), batchSize).
	Get(ctx ml.Context) (ml.Tensor, ml.Tensor)

	// Put appends key and value of the current pass to the active layer.
	Put(ctx ml.Context, key, value ml.Tensor)

	// Seed stores an initial history for a layer before the first forward
	// pass, e.g. learned prefix key/value entries.
	Seed(ctx ml.Context, layer int, key, value ml.Tensor) error

	// StartForward declares the geometry of the upcoming forward pass:
	// numTokens entries will be appended per sequence.
	StartForward(ctx ml.Context, batchSize, numTokens int) error

	// ShiftRight rotates each sequence's entries left by its valid length
	// so that the valid block ends at the highest positions.
	ShiftRight(ctx ml.Context, valid []int32) error

	// Len returns the number of cached entries per sequence.
	Len() int

	// Close closes the cache and frees resources associated with it
	Close()
}
