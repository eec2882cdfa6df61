// Modul: mlp.go
// Beschreibung: Gated Feed-Forward-Block (SwiGLU) fuer das LLaMA-Modell
// Hauptstrukturen:
//   - MLP: Gate/Up/Down-Projektionen mit PEFT-Einhaengepunkten
//   - Forward: down(silu(gate(x)) * up(x))

package llama

import (
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
	"github.com/peftlab/peftllama/peft"
)

// MLP implementiert den Feed-Forward-Block. Die Hooks greifen nach den
// Gate/Up-Projektionen (BitFit), auf dem Zwischenergebnis (IA3) und nach
// der Down-Projektion (BitFit) ein.
type MLP struct {
	Gate *nn.Linear `st:"gate_proj"`
	Up   *nn.Linear `st:"up_proj"`
	Down *nn.Linear `st:"down_proj"`

	Hooks peft.MLPHooks
}

// Forward fuehrt den Feed-Forward-Vorwaertsdurchlauf durch
func (mlp *MLP) Forward(ctx ml.Context, hiddenStates ml.Tensor, opts *Options) ml.Tensor {
	gate := mlp.Gate.Forward(ctx, hiddenStates)
	up := mlp.Up.Forward(ctx, hiddenStates)
	gate, up = mlp.Hooks.GateUp(ctx, gate, up)

	intermediate := gate.SILU(ctx, up)
	intermediate = mlp.Hooks.Intermediate(ctx, intermediate)

	down := mlp.Down.Forward(ctx, intermediate)
	return mlp.Hooks.MLPOutput(ctx, down)
}
