// model_test.go - Integrationstests fuer das Laden vollstaendiger Checkpoints
package model_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/peftlab/peftllama/fs/safetensors"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/model"
	"github.com/peftlab/peftllama/model/models/llama"
)

// testConfig beschreibt ein Miniaturmodell: dim 4, 2 Koepfe, 2 Schichten,
// Vokabular 8, MLP-Breite 16
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

func addTensor(tensors *orderedmap.OrderedMap[string, safetensors.TensorData], name string, seed float64, shape ...int64) {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	tensors.Set(name, safetensors.TensorData{Shape: shape, Values: vals(int(n), seed)})
}

func addOnes(tensors *orderedmap.OrderedMap[string, safetensors.TensorData], name string, n int) {
	values := make([]float32, n)
	for i := range values {
		values[i] = 1
	}
	tensors.Set(name, safetensors.TensorData{Shape: []int64{int64(n)}, Values: values})
}

// checkpointTensors liefert alle Gewichte des Basismodells aus testConfig
func checkpointTensors() *orderedmap.OrderedMap[string, safetensors.TensorData] {
	tensors := orderedmap.New[string, safetensors.TensorData]()

	addTensor(tensors, "model.embed_tokens.weight", 1, 8, 4)
	for i := range 2 {
		prefix := fmt.Sprintf("model.layers.%d.", i)
		seed := float64(10 * (i + 1))

		addOnes(tensors, prefix+"input_layernorm.weight", 4)
		addTensor(tensors, prefix+"self_attn.q_proj.weight", seed+1, 4, 4)
		addTensor(tensors, prefix+"self_attn.k_proj.weight", seed+2, 4, 4)
		addTensor(tensors, prefix+"self_attn.v_proj.weight", seed+3, 4, 4)
		addTensor(tensors, prefix+"self_attn.o_proj.weight", seed+4, 4, 4)
		addOnes(tensors, prefix+"post_attention_layernorm.weight", 4)
		addTensor(tensors, prefix+"mlp.gate_proj.weight", seed+5, 16, 4)
		addTensor(tensors, prefix+"mlp.up_proj.weight", seed+6, 16, 4)
		addTensor(tensors, prefix+"mlp.down_proj.weight", seed+7, 4, 16)
	}
	addOnes(tensors, "model.norm.weight", 4)
	addTensor(tensors, "lm_head.weight", 2, 8, 4)

	return tensors
}

// writeCheckpoint legt ein Checkpoint-Verzeichnis mit params.json, den
// Gewichten und optional peft.json an
func writeCheckpoint(t *testing.T, tensors *orderedmap.OrderedMap[string, safetensors.TensorData], peftConfig string) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	if peftConfig != "" {
		if err := os.WriteFile(filepath.Join(dir, "peft.json"), []byte(peftConfig), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := safetensors.Write(filepath.Join(dir, "model.safetensors"), tensors); err != nil {
		t.Fatal(err)
	}
	return dir
}

func loadTextModel(t *testing.T, dir string) model.TextModel {
	t.Helper()

	m, err := model.NewTextModel(dir, ml.BackendParams{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Backend().Close)

	if err := m.Backend().Load(context.Background(), func(float32) {}); err != nil {
		t.Fatal(err)
	}
	return m
}

// TestNewScore laedt ein Checkpoint von der Platte und bewertet einen Prompt
func TestNewScore(t *testing.T) {
	dir := writeCheckpoint(t, checkpointTensors(), "")
	m := loadTextModel(t, dir)

	logits, err := m.Score(m.Backend().NewContext(), [][]int32{{1, 3, 2}})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{8, 3}, logits.Shape()); diff != "" {
		t.Errorf("Logits-Form unerwartet (-want +got):\n%s", diff)
	}
	for i, v := range logits.Floats() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("Logit %d = %v, erwartet endlichen Wert", i, v)
		}
	}
}

// TestNewGenerate laedt ein Checkpoint und erzeugt Tokens
func TestNewGenerate(t *testing.T) {
	dir := writeCheckpoint(t, checkpointTensors(), "")
	m := loadTextModel(t, dir)

	out, err := m.Generate(m.Backend().NewContext(), [][]int32{{1, 3}}, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 1 || len(out[0]) != 4 {
		t.Fatalf("Ausgabe = %v, erwartet eine Zeile mit 4 Tokens", out)
	}
	if out[0][0] != 1 || out[0][1] != 3 {
		t.Errorf("Prompt-Praefix = %v, erwartet [1 3]", out[0][:2])
	}
	for _, id := range out[0] {
		if id < 0 || id >= 8 {
			t.Errorf("Token %d ausserhalb des Vokabulars", id)
		}
	}
}

// TestNewMissingParameters prueft, dass fehlende Gewichte gesammelt
// gemeldet werden
func TestNewMissingParameters(t *testing.T) {
	tensors := checkpointTensors()
	tensors.Delete("lm_head.weight")
	tensors.Delete("model.layers.1.mlp.down_proj.weight")

	dir := writeCheckpoint(t, tensors, "")
	_, err := model.New(dir, ml.BackendParams{})
	if !errors.Is(err, llama.ErrMissingParameters) {
		t.Fatalf("Fehler = %v, erwartet ErrMissingParameters", err)
	}
	for _, name := range []string{"lm_head.weight", "model.layers.1.mlp.down_proj.weight"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Fehlermeldung nennt %q nicht: %v", name, err)
		}
	}
}

// TestNewPeftConfig prueft, dass peft.json die Variante aktiviert und deren
// Gewichte eingefordert werden
func TestNewPeftConfig(t *testing.T) {
	peftConfig := `{"peft_mode": "lora", "lora_rank": 2}`

	t.Run("mit Gewichten", func(t *testing.T) {
		tensors := checkpointTensors()
		for i := range 2 {
			prefix := fmt.Sprintf("model.layers.%d.self_attn.", i)
			seed := float64(100 * (i + 1))
			addTensor(tensors, prefix+"peft_q_proj_lora.lora_a.weight", seed+1, 2, 4)
			addTensor(tensors, prefix+"peft_q_proj_lora.lora_b.weight", seed+2, 4, 2)
			addTensor(tensors, prefix+"peft_v_proj_lora.lora_a.weight", seed+3, 2, 4)
			addTensor(tensors, prefix+"peft_v_proj_lora.lora_b.weight", seed+4, 4, 2)
		}

		dir := writeCheckpoint(t, tensors, peftConfig)
		if _, err := model.New(dir, ml.BackendParams{}); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("ohne Gewichte", func(t *testing.T) {
		dir := writeCheckpoint(t, checkpointTensors(), peftConfig)
		_, err := model.New(dir, ml.BackendParams{})
		if !errors.Is(err, llama.ErrMissingParameters) {
			t.Fatalf("Fehler = %v, erwartet ErrMissingParameters", err)
		}
		if !strings.Contains(err.Error(), "peft_q_proj_lora.lora_a.weight") {
			t.Errorf("Fehlermeldung nennt die LoRA-Gewichte nicht: %v", err)
		}
	})
}

// TestNewUnknownArchitecture prueft die Ablehnung fremder Architekturen
func TestNewUnknownArchitecture(t *testing.T) {
	dir := t.TempDir()
	config := `{"architecture": "gpt2", "dim": 4, "n_heads": 2, "n_layers": 1, "vocab_size": 8}`
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := safetensors.Write(filepath.Join(dir, "model.safetensors"), checkpointTensors()); err != nil {
		t.Fatal(err)
	}

	_, err := model.New(dir, ml.BackendParams{})
	if !errors.Is(err, model.ErrUnsupportedModel) {
		t.Fatalf("Fehler = %v, erwartet ErrUnsupportedModel", err)
	}
}

// TestNewNoWeights prueft die Fehlermeldung bei leerem Checkpoint
func TestNewNoWeights(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "params.json"), []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := model.New(dir, ml.BackendParams{})
	if err == nil || !strings.Contains(err.Error(), "no model weights") {
		t.Fatalf("Fehler = %v, erwartet 'no model weights'", err)
	}
}
