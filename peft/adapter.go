// Package peft - Bottleneck-Adapter
//
// Diese Datei enthaelt:
// - Adapter: Engpass-Block (Down-Projektion, GELU, Up-Projektion)
// - HoulsbyAdapterLayer: Adapter nach Attention und MLP
// - PfeifferAdapterLayer: Adapter nur nach dem MLP
package peft

import (
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
)

// Adapter ist ein Engpass-Block, der als Residuum auf die Ausgabe eines
// Sub-Blocks addiert wird: x + Up(GELU(Down(x)))
type Adapter struct {
	Down *nn.Linear `st:"down_proj"`
	Up   *nn.Linear `st:"up_proj"`
}

func (a *Adapter) Forward(ctx ml.Context, x ml.Tensor) ml.Tensor {
	return x.Add(ctx, a.Up.Forward(ctx, a.Down.Forward(ctx, x).GELU(ctx)))
}

// HoulsbyAdapterLayer haengt je einen Adapter hinter den Attention- und
// den MLP-Block
type HoulsbyAdapterLayer struct {
	Identity
	Attention *Adapter `st:"peft_adapter_attn"`
	MLP       *Adapter `st:"peft_adapter_mlp"`
}

func (l *HoulsbyAdapterLayer) SublayerOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor {
	if site == SiteAttention {
		return l.Attention.Forward(ctx, x)
	}
	return l.MLP.Forward(ctx, x)
}

// PfeifferAdapterLayer haengt einen Adapter nur hinter den MLP-Block
type PfeifferAdapterLayer struct {
	Identity
	MLP *Adapter `st:"peft_adapter_mlp"`
}

func (l *PfeifferAdapterLayer) SublayerOutput(ctx ml.Context, x ml.Tensor, site Site) ml.Tensor {
	if site == SiteMLP {
		return l.MLP.Forward(ctx, x)
	}
	return x
}
