// Modul: validate.go
// Beschreibung: Vollstaendigkeitspruefung nach dem Laden der Gewichte
// Hauptstrukturen:
//   - Validate: Sammelt alle fehlenden Parameter (Basis + aktive
//     PEFT-Variante) und meldet sie gesammelt

package llama

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/nn"
	"github.com/peftlab/peftllama/peft"
)

// ErrMissingParameters meldet Gewichte, die der Checkpoint nicht enthaelt
var ErrMissingParameters = errors.New("checkpoint is missing parameters")

// Validate prueft nach der Reflection-Population, dass jeder erwartete
// Parameter gefunden wurde. Gemeldet werden alle fehlenden Namen auf
// einmal, nicht nur der erste.
func (m *Model) Validate() error {
	var missing missingSet

	missing.embedding("model.embed_tokens", m.TokenEmbedding)
	missing.norm("model.norm", m.OutputNorm)
	missing.linear("lm_head", m.Output)

	for i := range m.Layers {
		l := &m.Layers[i]
		prefix := fmt.Sprintf("model.layers.%d", i)

		missing.norm(prefix+".input_layernorm", l.InputNorm)
		missing.norm(prefix+".post_attention_layernorm", l.PostNorm)

		if attn := l.Attention; attn != nil {
			missing.linear(prefix+".self_attn.q_proj", attn.Query)
			missing.linear(prefix+".self_attn.k_proj", attn.Key)
			missing.linear(prefix+".self_attn.v_proj", attn.Value)
			missing.linear(prefix+".self_attn.o_proj", attn.Output)

			switch hooks := attn.Hooks.(type) {
			case *peft.LoRAAttention:
				missing.lora(prefix+".self_attn.peft_q_proj_lora", hooks.Query)
				missing.lora(prefix+".self_attn.peft_v_proj_lora", hooks.Value)
			case *peft.BitFitAttention:
				missing.bias(prefix+".self_attn.peft_q_proj_bias", hooks.Query)
				missing.bias(prefix+".self_attn.peft_k_proj_bias", hooks.Key)
				missing.bias(prefix+".self_attn.peft_v_proj_bias", hooks.Value)
				missing.bias(prefix+".self_attn.peft_o_proj_bias", hooks.Output)
			case *peft.IA3Attention:
				missing.tensor(prefix+".self_attn.peft_ia3.k_scale", hooks.KeyScale)
				missing.tensor(prefix+".self_attn.peft_ia3.v_scale", hooks.ValueScale)
			case *peft.PrefixAdapter:
				missing.tensor(prefix+".self_attn.peft_prefix_adapter.prefix_key", hooks.PrefixKey)
				missing.tensor(prefix+".self_attn.peft_prefix_adapter.prefix_value", hooks.PrefixValue)
				missing.tensor(prefix+".self_attn.peft_prefix_adapter.gate", hooks.Gate)
			}
		}

		if mlp := l.MLP; mlp != nil {
			missing.linear(prefix+".mlp.gate_proj", mlp.Gate)
			missing.linear(prefix+".mlp.up_proj", mlp.Up)
			missing.linear(prefix+".mlp.down_proj", mlp.Down)

			switch hooks := mlp.Hooks.(type) {
			case *peft.BitFitMLP:
				missing.bias(prefix+".mlp.peft_gate_proj_bias", hooks.Gate)
				missing.bias(prefix+".mlp.peft_up_proj_bias", hooks.Up)
				missing.bias(prefix+".mlp.peft_down_proj_bias", hooks.Down)
			case *peft.IA3MLP:
				missing.tensor(prefix+".mlp.peft_ia3.scale", hooks.Scale)
			}
		}

		switch hooks := l.Hooks.(type) {
		case *peft.BitFitLayer:
			missing.bias(prefix+".peft_input_layernorm_bias", hooks.InputNorm)
			missing.bias(prefix+".peft_post_attention_layernorm_bias", hooks.PostNorm)
		case *peft.HoulsbyAdapterLayer:
			missing.adapter(prefix+".peft_adapter_attn", hooks.Attention)
			missing.adapter(prefix+".peft_adapter_mlp", hooks.MLP)
		case *peft.PfeifferAdapterLayer:
			missing.adapter(prefix+".peft_adapter_mlp", hooks.MLP)
		}
	}

	if prompt, ok := m.Prompt.(*peft.Prompt); ok {
		missing.tensor("model.peft_prompt.embedding", prompt.Embedding)
	}

	if prefixes, ok := m.Prefix.(*peft.Prefixes); ok {
		for i := range prefixes.Layers {
			missing.tensor(fmt.Sprintf("peft_prefixes.layers.%d.key", i), prefixes.Layers[i].Key)
			missing.tensor(fmt.Sprintf("peft_prefixes.layers.%d.value", i), prefixes.Layers[i].Value)
		}
	}

	if len(missing.names) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParameters, strings.Join(missing.names, ", "))
	}
	return nil
}

// missingSet sammelt die Namen fehlender Parameter
type missingSet struct {
	names []string
}

func (s *missingSet) tensor(name string, t ml.Tensor) {
	if t == nil {
		s.names = append(s.names, name)
	}
}

func (s *missingSet) linear(name string, l *nn.Linear) {
	if l == nil {
		s.names = append(s.names, name+".weight")
		return
	}
	s.tensor(name+".weight", l.Weight)
}

func (s *missingSet) embedding(name string, e *nn.Embedding) {
	if e == nil {
		s.names = append(s.names, name+".weight")
		return
	}
	s.tensor(name+".weight", e.Weight)
}

func (s *missingSet) norm(name string, n *nn.RMSNorm) {
	if n == nil {
		s.names = append(s.names, name+".weight")
		return
	}
	s.tensor(name+".weight", n.Weight)
}

func (s *missingSet) bias(name string, b *peft.AddBias) {
	if b == nil {
		s.names = append(s.names, name+".bias")
		return
	}
	s.tensor(name+".bias", b.Bias)
}

func (s *missingSet) lora(name string, l *peft.LoRA) {
	if l == nil {
		s.names = append(s.names, name+".lora_a.weight", name+".lora_b.weight")
		return
	}
	s.linear(name+".lora_a", l.A)
	s.linear(name+".lora_b", l.B)
}

func (s *missingSet) adapter(name string, a *peft.Adapter) {
	if a == nil {
		s.names = append(s.names, name+".down_proj.weight", name+".up_proj.weight")
		return
	}
	s.linear(name+".down_proj", a.Down)
	s.linear(name+".up_proj", a.Up)
}
