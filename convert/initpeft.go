// initpeft.go - Initialisierung der PEFT-Parameter eines Checkpoints
// Hauptfunktionen: InitPeft, writePeftConfig
package convert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/peftlab/peftllama/fs"
	"github.com/peftlab/peftllama/fs/safetensors"
	"github.com/peftlab/peftllama/peft"
)

// initStd ist die Standardabweichung der gaussschen Initialisierung
const initStd = 0.02

// PeftParamsFile ist der Dateiname der geschriebenen PEFT-Gewichte
const PeftParamsFile = "peft_params.safetensors"

// InitPeft schreibt frisch initialisierte Parameter der in cfg gewaehlten
// Strategie als safetensors-Datei in das Checkpoint-Verzeichnis und haelt
// die Konfiguration in peft.json fest. Die Initialisierung ist so gewaehlt,
// dass die Strategie zu Beginn die Ausgabe des Basismodells nicht
// veraendert, soweit sie das strukturell kann: LoRA-B, Adapter-Up, alle
// Biases und das Prefix-Adapter-Gate starten bei null, IA3-Skalen bei eins.
// Fester seed ergibt eine byte-identische Datei.
func InitPeft(dir string, cfg peft.Config, seed int64) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Mode == peft.ModeNone {
		return fmt.Errorf("peft mode %q has no parameters to initialize", cfg.Mode)
	}

	config, err := fs.LoadConfig(dir)
	if err != nil {
		return err
	}
	g, err := geometryFrom(config)
	if err != nil {
		return err
	}

	w := &initWriter{
		rng:     rand.New(rand.NewSource(seed)),
		tensors: orderedmap.New[string, safetensors.TensorData](),
	}

	switch cfg.Mode {
	case peft.ModeLoRA:
		for i := range g.layers {
			for _, proj := range []string{"peft_q_proj_lora", "peft_v_proj_lora"} {
				name := fmt.Sprintf("model.layers.%d.self_attn.%s", i, proj)
				w.gaussian(name+".lora_a.weight", int64(cfg.LoRARank), int64(g.hidden))
				w.zeros(name+".lora_b.weight", int64(g.hidden), int64(cfg.LoRARank))
			}
		}

	case peft.ModeAdapter:
		sites := []string{"peft_adapter_mlp"}
		if cfg.AdapterVariant == peft.AdapterHoulsby {
			sites = []string{"peft_adapter_attn", "peft_adapter_mlp"}
		}
		for i := range g.layers {
			for _, site := range sites {
				name := fmt.Sprintf("model.layers.%d.%s", i, site)
				w.gaussian(name+".down_proj.weight", int64(cfg.AdapterSize), int64(g.hidden))
				w.zeros(name+".up_proj.weight", int64(g.hidden), int64(cfg.AdapterSize))
			}
		}

	case peft.ModeBitFit:
		for i := range g.layers {
			prefix := fmt.Sprintf("model.layers.%d.", i)
			for _, proj := range []string{"q", "k", "v", "o"} {
				w.zeros(prefix+"self_attn.peft_"+proj+"_proj_bias.bias", int64(g.hidden))
			}
			w.zeros(prefix+"mlp.peft_gate_proj_bias.bias", int64(g.mlpHidden))
			w.zeros(prefix+"mlp.peft_up_proj_bias.bias", int64(g.mlpHidden))
			w.zeros(prefix+"mlp.peft_down_proj_bias.bias", int64(g.hidden))
			w.zeros(prefix+"peft_input_layernorm_bias.bias", int64(g.hidden))
			w.zeros(prefix+"peft_post_attention_layernorm_bias.bias", int64(g.hidden))
		}

	case peft.ModeIA3:
		for i := range g.layers {
			prefix := fmt.Sprintf("model.layers.%d.", i)
			w.ones(prefix+"self_attn.peft_ia3.k_scale", int64(g.hidden))
			w.ones(prefix+"self_attn.peft_ia3.v_scale", int64(g.hidden))
			w.ones(prefix+"mlp.peft_ia3.scale", int64(g.mlpHidden))
		}

	case peft.ModePrompt:
		w.gaussian("model.peft_prompt.embedding", int64(cfg.NumPrefixTokens), int64(g.hidden))

	case peft.ModePrefix:
		for i := range g.layers {
			name := fmt.Sprintf("peft_prefixes.layers.%d.", i)
			w.gaussian(name+"key", int64(cfg.NumPrefixTokens), int64(g.heads), int64(g.headDim))
			w.gaussian(name+"value", int64(cfg.NumPrefixTokens), int64(g.heads), int64(g.headDim))
		}

	case peft.ModePrefixAdapter:
		for i := range g.layers {
			name := fmt.Sprintf("model.layers.%d.self_attn.peft_prefix_adapter.", i)
			w.gaussian(name+"prefix_key", int64(g.heads), int64(cfg.NumPrefixTokens), int64(g.headDim))
			w.gaussian(name+"prefix_value", int64(g.heads), int64(g.headDim), int64(cfg.NumPrefixTokens))
			w.zeros(name+"gate", int64(g.heads), 1)
		}
	}

	path := filepath.Join(dir, PeftParamsFile)
	if err := safetensors.Write(path, w.tensors); err != nil {
		return err
	}
	if err := writePeftConfig(dir, cfg); err != nil {
		return err
	}

	slog.Info("initialized peft parameters", "mode", cfg.Mode, "tensors", w.tensors.Len(), "path", path)
	return nil
}

// geometry haelt die Modellabmessungen, die die Initialisierer brauchen
type geometry struct {
	hidden, heads, headDim, layers, mlpHidden int
}

func geometryFrom(c fs.Config) (geometry, error) {
	g := geometry{
		hidden: int(c.Uint("dim")),
		heads:  int(c.Uint("n_heads")),
		layers: int(c.Uint("n_layers")),
	}
	if g.hidden <= 0 || g.heads <= 0 || g.layers <= 0 || g.hidden%g.heads != 0 {
		return geometry{}, fmt.Errorf("invalid model geometry: dim=%d n_heads=%d n_layers=%d", g.hidden, g.heads, g.layers)
	}
	g.headDim = g.hidden / g.heads

	// muss der Feed-Forward-Breite des Modells entsprechen:
	// 2/3 von 4*dim, aufgerundet auf das naechste Vielfache von multiple_of
	multipleOf := int(c.Uint("multiple_of", 256))
	h := 2 * (4 * g.hidden) / 3
	g.mlpHidden = multipleOf * ((h + multipleOf - 1) / multipleOf)

	return g, nil
}

// initWriter sammelt Tensoren in Einfuegereihenfolge. Formen sind in
// torch-Konvention, wie sie der Checkpoint-Leser erwartet.
type initWriter struct {
	rng     *rand.Rand
	tensors *orderedmap.OrderedMap[string, safetensors.TensorData]
}

func (w *initWriter) fill(name string, value float32, shape ...int64) {
	values := make([]float32, tensorElements(shape))
	for i := range values {
		values[i] = value
	}
	w.tensors.Set(name, safetensors.TensorData{Shape: shape, Values: values})
}

func (w *initWriter) zeros(name string, shape ...int64) {
	w.fill(name, 0, shape...)
}

func (w *initWriter) ones(name string, shape ...int64) {
	w.fill(name, 1, shape...)
}

func (w *initWriter) gaussian(name string, shape ...int64) {
	values := make([]float32, tensorElements(shape))
	for i := range values {
		values[i] = float32(w.rng.NormFloat64() * initStd)
	}
	w.tensors.Set(name, safetensors.TensorData{Shape: shape, Values: values})
}

func tensorElements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

// writePeftConfig schreibt die Strategie-Hyperparameter nach peft.json,
// damit der Lader die Variante ohne weitere Angaben aktiviert
func writePeftConfig(dir string, cfg peft.Config) error {
	data, err := json.MarshalIndent(map[string]any{
		"peft_mode":         cfg.Mode,
		"num_prefix_tokens": cfg.NumPrefixTokens,
		"lora_rank":         cfg.LoRARank,
		"adapter_size":      cfg.AdapterSize,
		"adapter_version":   cfg.AdapterVariant,
	}, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "peft.json"), append(data, '\n'), 0o644)
}
