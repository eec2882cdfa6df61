// initpeft_test.go - Tests fuer die PEFT-Initialisierung
package convert_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/peftlab/peftllama/convert"
	"github.com/peftlab/peftllama/fs/safetensors"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/model"
	_ "github.com/peftlab/peftllama/model/models/llama"
	"github.com/peftlab/peftllama/peft"
)

const testConfig = `{
	"dim": 4,
	"n_heads": 2,
	"n_layers": 2,
	"vocab_size": 8,
	"multiple_of": 8,
	"max_seq_length": 16,
	"norm_eps": 1e-5,
	"dtype": "float32"
}`

func vals(n int, seed float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.25 * math.Sin(seed+1.7*float64(i)))
	}
	return out
}

// baseCheckpoint legt ein ladbares Basismodell nach testConfig an
func baseCheckpoint(t *testing.T) string {
	t.Helper()

	tensors := orderedmap.New[string, safetensors.TensorData]()
	add := func(name string, seed float64, shape ...int64) {
		n := int64(1)
		for _, d := range shape {
			n *= d
		}
		tensors.Set(name, safetensors.TensorData{Shape: shape, Values: vals(int(n), seed)})
	}
	addOnes := func(name string, n int) {
		values := make([]float32, n)
		for i := range values {
			values[i] = 1
		}
		tensors.Set(name, safetensors.TensorData{Shape: []int64{int64(n)}, Values: values})
	}

	add("model.embed_tokens.weight", 1, 8, 4)
	for i := range 2 {
		prefix := fmt.Sprintf("model.layers.%d.", i)
		seed := float64(10 * (i + 1))

		addOnes(prefix+"input_layernorm.weight", 4)
		add(prefix+"self_attn.q_proj.weight", seed+1, 4, 4)
		add(prefix+"self_attn.k_proj.weight", seed+2, 4, 4)
		add(prefix+"self_attn.v_proj.weight", seed+3, 4, 4)
		add(prefix+"self_attn.o_proj.weight", seed+4, 4, 4)
		addOnes(prefix+"post_attention_layernorm.weight", 4)
		add(prefix+"mlp.gate_proj.weight", seed+5, 16, 4)
		add(prefix+"mlp.up_proj.weight", seed+6, 16, 4)
		add(prefix+"mlp.down_proj.weight", seed+7, 4, 16)
	}
	addOnes("model.norm.weight", 4)
	add("lm_head.weight", 2, 8, 4)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := safetensors.Write(filepath.Join(dir, "model.safetensors"), tensors); err != nil {
		t.Fatal(err)
	}
	return dir
}

func scoreCheckpoint(t *testing.T, dir string) []float32 {
	t.Helper()

	m, err := model.NewTextModel(dir, ml.BackendParams{})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Backend().Close()

	if err := m.Backend().Load(context.Background(), func(float32) {}); err != nil {
		t.Fatal(err)
	}

	logits, err := m.Score(m.Backend().NewContext(), [][]int32{{1, 3, 2}})
	if err != nil {
		t.Fatal(err)
	}
	return logits.Floats()
}

func peftConfig(mode peft.Mode) peft.Config {
	return peft.Config{
		Mode:            mode,
		NumPrefixTokens: 2,
		LoRARank:        2,
		AdapterSize:     2,
		AdapterVariant:  peft.AdapterHoulsby,
	}
}

// TestInitPeftLoadable prueft, dass ein Basismodell nach InitPeft unter
// jeder Strategie ladbar und auswertbar ist. Die PEFT-Gewichte liegen
// dabei in einem eigenen Shard neben den Basisgewichten.
func TestInitPeftLoadable(t *testing.T) {
	modes := []peft.Mode{
		peft.ModePrefix, peft.ModePrompt, peft.ModeLoRA, peft.ModeAdapter,
		peft.ModeBitFit, peft.ModeIA3, peft.ModePrefixAdapter,
	}

	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			dir := baseCheckpoint(t)
			if err := convert.InitPeft(dir, peftConfig(mode), 42); err != nil {
				t.Fatal(err)
			}

			logits := scoreCheckpoint(t, dir)

			// Prompt-Tuning stellt 2 virtuelle Tokens voran
			want := 8 * 3
			if mode == peft.ModePrompt {
				want = 8 * 5
			}
			if len(logits) != want {
				t.Fatalf("len(logits) = %d, erwartet %d", len(logits), want)
			}
			for i, v := range logits {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					t.Fatalf("Logit %d = %v, erwartet endlichen Wert", i, v)
				}
			}
		})
	}
}

// TestInitPeftPreservesBaseModel prueft, dass die Initialisierung das
// Basismodell exakt reproduziert: alle frisch initialisierten Terme
// verschwinden
func TestInitPeftPreservesBaseModel(t *testing.T) {
	modes := []peft.Mode{
		peft.ModeLoRA, peft.ModeAdapter, peft.ModeBitFit,
		peft.ModeIA3, peft.ModePrefixAdapter,
	}

	for _, mode := range modes {
		t.Run(string(mode), func(t *testing.T) {
			dir := baseCheckpoint(t)
			base := scoreCheckpoint(t, dir)

			if err := convert.InitPeft(dir, peftConfig(mode), 42); err != nil {
				t.Fatal(err)
			}
			tuned := scoreCheckpoint(t, dir)

			if diff := cmp.Diff(base, tuned); diff != "" {
				t.Errorf("Logits weichen vom Basismodell ab (-base +peft):\n%s", diff)
			}
		})
	}
}

// TestInitPeftDeterministic prueft, dass gleicher Seed byte-identische
// Dateien ergibt und verschiedene Seeds verschiedene
func TestInitPeftDeterministic(t *testing.T) {
	write := func(seed int64) []byte {
		t.Helper()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := convert.InitPeft(dir, peftConfig(peft.ModeLoRA), seed); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(dir, convert.PeftParamsFile))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	first := write(42)
	second := write(42)
	other := write(43)

	if !bytes.Equal(first, second) {
		t.Error("gleicher Seed ergibt verschiedene Dateien")
	}
	if bytes.Equal(first, other) {
		t.Error("verschiedene Seeds ergeben identische Dateien")
	}
}

// TestInitPeftConfigWritten prueft, dass peft.json die Strategie traegt
func TestInitPeftConfigWritten(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := convert.InitPeft(dir, peftConfig(peft.ModeIA3), 1); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "peft.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"peft_mode": "ia3"`)) {
		t.Errorf("peft.json nennt die Strategie nicht: %s", data)
	}
}

// TestInitPeftErrors prueft die Ablehnung ungueltiger Aufrufe
func TestInitPeftErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := convert.InitPeft(dir, peftConfig(peft.ModeNone), 1); err == nil {
		t.Error("mode none sollte abgelehnt werden")
	}

	err := convert.InitPeft(dir, peftConfig("lroa"), 1)
	if !errors.Is(err, peft.ErrUnknownMode) {
		t.Errorf("Fehler = %v, erwartet ErrUnknownMode", err)
	}

	if err := convert.InitPeft(t.TempDir(), peftConfig(peft.ModeLoRA), 1); err == nil {
		t.Error("fehlende params.json sollte abgelehnt werden")
	}
}
