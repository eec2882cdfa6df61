// Modul: options.go
// Beschreibung: Konfigurationsoptionen fuer das LLaMA-Modell
// Hauptstrukturen:
//   - Options: Enthaelt alle Modell-spezifischen Konfigurationsparameter
//   - newOptions: Liest und validiert die Parameter aus params.json

package llama

import (
	"errors"
	"fmt"

	"github.com/peftlab/peftllama/fs"
	"github.com/peftlab/peftllama/ml"
)

// ErrConfiguration wird bei struktureller Fehlkonfiguration beim
// Modellbau ausgeloest und nie zur Laufzeit.
var ErrConfiguration = errors.New("invalid model configuration")

// Options enthaelt alle konfigurierbaren Parameter fuer das LLaMA-Modell
type Options struct {
	hiddenSize,
	numHeads,
	headDim,
	numLayers,
	vocabSize int

	mlpHiddenSize,
	maxSequenceLength int

	eps      float32
	ropeBase float64

	padID,
	bosID,
	eosID int32

	dtype ml.DType

	gradientCheckpointing bool
}

// newOptions liest die Modellparameter aus der Checkpoint-Konfiguration
// (params.json) und validiert sie
func newOptions(c fs.Config) (*Options, error) {
	o := Options{
		hiddenSize:            int(c.Uint("dim")),
		numHeads:              int(c.Uint("n_heads")),
		numLayers:             int(c.Uint("n_layers")),
		vocabSize:             int(c.Uint("vocab_size")),
		maxSequenceLength:     int(c.Uint("max_seq_length", 2048)),
		eps:                   c.Float("norm_eps", 1e-6),
		ropeBase:              float64(c.Float("rope_theta", 10000)),
		padID:                 int32(c.Uint("pad_token_id", 0)),
		bosID:                 int32(c.Uint("bos_token_id", 1)),
		eosID:                 int32(c.Uint("eos_token_id", 2)),
		gradientCheckpointing: c.Bool("gradient_checkpointing", false),
	}

	if o.hiddenSize <= 0 || o.numLayers <= 0 || o.vocabSize <= 0 {
		return nil, fmt.Errorf("%w: dim=%d n_layers=%d vocab_size=%d", ErrConfiguration, o.hiddenSize, o.numLayers, o.vocabSize)
	}

	if o.numHeads <= 0 || o.hiddenSize%o.numHeads != 0 {
		return nil, fmt.Errorf("%w: dim %d not divisible by n_heads %d", ErrConfiguration, o.hiddenSize, o.numHeads)
	}
	o.headDim = o.hiddenSize / o.numHeads

	if o.headDim%2 != 0 {
		return nil, fmt.Errorf("%w: head dimension %d must be even for rotary embeddings", ErrConfiguration, o.headDim)
	}

	if o.maxSequenceLength <= 0 {
		return nil, fmt.Errorf("%w: max_seq_length %d", ErrConfiguration, o.maxSequenceLength)
	}

	for _, id := range []int32{o.padID, o.bosID, o.eosID} {
		if id < 0 || int(id) >= o.vocabSize {
			return nil, fmt.Errorf("%w: token id %d outside vocabulary of %d", ErrConfiguration, id, o.vocabSize)
		}
	}

	switch c.String("dtype", "float16") {
	case "float16":
		o.dtype = ml.DTypeF16
	case "float32":
		o.dtype = ml.DTypeF32
	default:
		return nil, fmt.Errorf("%w: unsupported dtype %q", ErrConfiguration, c.String("dtype"))
	}

	o.mlpHiddenSize = mlpHiddenSize(o.hiddenSize, int(c.Uint("multiple_of", 256)))
	return &o, nil
}

// mlpHiddenSize berechnet die Breite des Feed-Forward-Blocks:
// 2/3 von 4*dim, aufgerundet auf das naechste Vielfache von multipleOf
func mlpHiddenSize(hiddenSize, multipleOf int) int {
	h := 2 * (4 * hiddenSize) / 3
	return multipleOf * ((h + multipleOf - 1) / multipleOf)
}
