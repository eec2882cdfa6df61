// Modul: model.go
// Beschreibung: LLaMA Modell-Definition und Initialisierung
// Hauptstrukturen:
//   - Model: Hauptstruktur des LLaMA-Modells mit PEFT-Hooks
//   - Layer: Ein Decoder-Layer mit Attention- und MLP-Block
//   - New: Erstellt ein neues LLaMA-Modell aus der Konfiguration
//   - Forward: Fuehrt den Vorwaertsdurchlauf des gesamten Modells durch

package llama

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"

	"github.com/peftlab/peftllama/kvcache"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
	"github.com/peftlab/peftllama/model"
	"github.com/peftlab/peftllama/model/input"
	"github.com/peftlab/peftllama/peft"
)

// ErrCacheNotEmpty meldet einen Prime-Batch gegen einen Cache, der schon
// Eintraege traegt. Die Prompt-Injektion darf nur einmal pro Lauf passieren.
var ErrCacheNotEmpty = errors.New("prompt injection requires an empty cache")

// NumericError meldet einen NaN-Befund in einem Zwischenzustand des
// Vorwaertsdurchlaufs
type NumericError struct {
	Layer  int
	Tensor string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("nan in %s of layer %d", e.Tensor, e.Layer)
}

func checkNaN(ctx ml.Context, t ml.Tensor, layer int, name string) error {
	for _, v := range t.Floats() {
		if math32.IsNaN(v) {
			slog.Debug("nan in forward pass", "layer", layer, "tensor", name, "dump", ml.Dump(ctx, t))
			return &NumericError{Layer: layer, Tensor: name}
		}
	}
	return nil
}

// Layer repraesentiert einen Decoder-Layer. Die Hooks greifen nach den
// Normalisierungen (BitFit) und auf den Sub-Block-Ausgaben vor der
// Residual-Addition (Adapter) ein.
type Layer struct {
	InputNorm *nn.RMSNorm `st:"input_layernorm"`
	Attention *Attention  `st:"self_attn"`
	PostNorm  *nn.RMSNorm `st:"post_attention_layernorm"`
	MLP       *MLP        `st:"mlp"`

	Hooks peft.LayerHooks
}

// Forward fuehrt einen Layer-Vorwaertsdurchlauf mit Pre-Normalisierung
// und Residual-Verbindungen durch
func (l *Layer) Forward(ctx ml.Context, layer int, hiddenStates, cos, sin, mask ml.Tensor, cache kvcache.Cache, opts *Options) (ml.Tensor, error) {
	residual := hiddenStates

	normed := l.InputNorm.Forward(ctx, hiddenStates, opts.eps)
	normed = l.Hooks.NormOutput(ctx, normed, peft.SiteAttention)
	if err := checkNaN(ctx, normed, layer, "input_layernorm"); err != nil {
		return nil, err
	}

	attnOut := l.Attention.Forward(ctx, normed, cos, sin, mask, cache, opts)
	if err := checkNaN(ctx, attnOut, layer, "attention_output"); err != nil {
		return nil, err
	}

	attnOut = l.Hooks.SublayerOutput(ctx, attnOut, peft.SiteAttention)
	hiddenStates = residual.Add(ctx, attnOut)
	if err := checkNaN(ctx, hiddenStates, layer, "attention_residual"); err != nil {
		return nil, err
	}

	residual = hiddenStates
	normed = l.PostNorm.Forward(ctx, hiddenStates, opts.eps)
	normed = l.Hooks.NormOutput(ctx, normed, peft.SiteMLP)

	mlpOut := l.MLP.Forward(ctx, normed, opts)
	mlpOut = l.Hooks.SublayerOutput(ctx, mlpOut, peft.SiteMLP)

	hiddenStates = residual.Add(ctx, mlpOut)
	if err := checkNaN(ctx, hiddenStates, layer, "mlp_residual"); err != nil {
		return nil, err
	}

	return hiddenStates, nil
}

// Model repraesentiert das vollstaendige LLaMA-Modell. Genau eine
// PEFT-Strategie ist aktiv; ihre Hooks sind beim Bau fest verdrahtet,
// inaktive Varianten werden nie allokiert.
type Model struct {
	model.Base

	TokenEmbedding *nn.Embedding `st:"model.embed_tokens"`
	Layers         []Layer       `st:"model.layers"`
	OutputNorm     *nn.RMSNorm   `st:"model.norm"`
	Output         *nn.Linear    `st:"lm_head"`

	Prompt peft.StackHooks `st:"model"`
	Prefix peft.CachePrefix

	rot *rotaryTable

	*Options
}

// New erstellt ein neues LLaMA-Modell aus der gegebenen Konfiguration
func New(b ml.Backend) (model.Model, error) {
	c := b.Config()

	opts, err := newOptions(c)
	if err != nil {
		return nil, err
	}

	peftConfig := peft.FromConfig(c)
	if err := peftConfig.Validate(); err != nil {
		return nil, err
	}

	layers := make([]Layer, opts.numLayers)
	for i := range layers {
		layers[i] = Layer{
			Attention: &Attention{Hooks: peftConfig.Attention()},
			MLP:       &MLP{Hooks: peftConfig.MLP()},
			Hooks:     peftConfig.Layer(),
		}
	}

	m := Model{
		Layers:  layers,
		Prompt:  peftConfig.Stack(),
		Prefix:  peftConfig.Prefix(opts.numLayers),
		rot:     newRotaryTable(opts.headDim, opts.ropeBase, opts.maxSequenceLength),
		Options: opts,
	}

	return &m, nil
}

// Forward fuehrt den vollstaendigen Vorwaertsdurchlauf des Modells durch.
// Bei aktivem Prompt-Tuning werden die virtuellen Embeddings genau einmal
// vorangestellt: beim Scoring ohne Cache oder beim Prime-Schritt einer
// Generierung.
func (m *Model) Forward(ctx ml.Context, batch input.Batch) (ml.Tensor, error) {
	hiddenStates := m.TokenEmbedding.Forward(ctx, batch.Inputs)

	positions := batch.Positions
	if promptLen := m.Prompt.PromptLength(); promptLen > 0 {
		if batch.Prime && batch.Cache != nil && batch.Cache.Len() > 0 {
			return nil, ErrCacheNotEmpty
		}

		if batch.Cache == nil || batch.Prime {
			hiddenStates = m.Prompt.PrependPrompt(ctx, hiddenStates)
			positions = extendPositions(positions, batch.Inputs.Dim(0), promptLen)
		}
	}

	cos, sin := m.rot.Lookup(ctx, positions, hiddenStates.Dim(1), hiddenStates.Dim(2))

	for i := range m.Layers {
		if batch.Cache != nil {
			batch.Cache.SetLayer(i)
		}

		var err error
		hiddenStates, err = m.Layers[i].Forward(ctx, i, hiddenStates, cos, sin, batch.Mask, batch.Cache, m.Options)
		if err != nil {
			return nil, err
		}
	}

	hiddenStates = m.OutputNorm.Forward(ctx, hiddenStates, m.eps)
	return m.Output.Forward(ctx, hiddenStates), nil
}

func init() {
	model.Register("llama", New)
}
