// peft_test.go - Unit Tests fuer Konfiguration und Strategie-Hooks
package peft

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/peftlab/peftllama/ml/backend/cpu"
	"github.com/peftlab/peftllama/ml/nn"
)

// TestConfigValidate prueft die Validierung aller Modi
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"none ist gueltig", Config{Mode: ModeNone}, nil},
		{"prefix braucht Tokens", Config{Mode: ModePrefix}, ErrInvalidConfig},
		{"prefix mit Tokens", Config{Mode: ModePrefix, NumPrefixTokens: 16}, nil},
		{"prompt braucht Tokens", Config{Mode: ModePrompt}, ErrInvalidConfig},
		{"lora braucht Rang", Config{Mode: ModeLoRA}, ErrInvalidConfig},
		{"lora mit Rang", Config{Mode: ModeLoRA, LoRARank: 8}, nil},
		{"adapter braucht Groesse", Config{Mode: ModeAdapter, AdapterVariant: AdapterPfeiffer}, ErrInvalidConfig},
		{"adapter houlsby", Config{Mode: ModeAdapter, AdapterSize: 64, AdapterVariant: AdapterHoulsby}, nil},
		{"adapter unbekannte Variante", Config{Mode: ModeAdapter, AdapterSize: 64, AdapterVariant: "parallel"}, ErrInvalidConfig},
		{"bitfit ohne Parameter", Config{Mode: ModeBitFit}, nil},
		{"ia3 ohne Parameter", Config{Mode: ModeIA3}, nil},
		{"prefix_adapter braucht Tokens", Config{Mode: ModePrefixAdapter}, ErrInvalidConfig},
		{"unbekannter Modus", Config{Mode: "loera"}, ErrUnknownMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, erwartet nil", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, erwartet %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateSuggestion prueft den Korrekturvorschlag bei Tippfehlern
func TestValidateSuggestion(t *testing.T) {
	err := Config{Mode: "loera"}.Validate()
	if err == nil || !strings.Contains(err.Error(), `"lora"`) {
		t.Errorf("Validate() = %v, erwartet Vorschlag fuer \"lora\"", err)
	}
}

// TestFactories prueft, dass nur die aktive Strategie allokiert wird
func TestFactories(t *testing.T) {
	if _, ok := Config{Mode: ModeLoRA}.Attention().(*LoRAAttention); !ok {
		t.Errorf("lora: Attention-Hooks sind kein *LoRAAttention")
	}
	if _, ok := Config{Mode: ModeLoRA}.MLP().(Identity); !ok {
		t.Errorf("lora: MLP-Hooks sind nicht Identity")
	}
	if _, ok := Config{Mode: ModeAdapter, AdapterVariant: AdapterHoulsby}.Layer().(*HoulsbyAdapterLayer); !ok {
		t.Errorf("adapter houlsby: Layer-Hooks sind kein *HoulsbyAdapterLayer")
	}
	if _, ok := Config{Mode: ModeAdapter, AdapterVariant: AdapterPfeiffer}.Layer().(*PfeifferAdapterLayer); !ok {
		t.Errorf("adapter pfeiffer: Layer-Hooks sind kein *PfeifferAdapterLayer")
	}
	if _, ok := Config{Mode: ModePrompt}.Stack().(*Prompt); !ok {
		t.Errorf("prompt: Stack-Hooks sind kein *Prompt")
	}
	if got := Config{Mode: ModeNone}.Prefix(2); got != nil {
		t.Errorf("none: Prefix = %v, erwartet nil", got)
	}
	if got := Config{Mode: ModePrefix, NumPrefixTokens: 4}.Prefix(2); got == nil {
		t.Errorf("prefix: Prefix = nil, erwartet *Prefixes")
	}
}

// TestIdentity prueft, dass Identity alle Eingaben unveraendert liefert
func TestIdentity(t *testing.T) {
	ctx := cpu.Context{}
	x := ctx.FromFloats([]float32{1, 2}, 2)

	var id Identity
	q, k, v := id.Projections(ctx, x, x, x)
	if q != x || k != x || v != x {
		t.Errorf("Projections veraendert Eingaben")
	}
	if id.AttentionTerm(ctx, x) != nil {
		t.Errorf("AttentionTerm != nil")
	}
	if id.NormOutput(ctx, x, SiteMLP) != x || id.SublayerOutput(ctx, x, SiteAttention) != x {
		t.Errorf("Layer-Hooks veraendern Eingaben")
	}
	if id.PromptLength() != 0 {
		t.Errorf("PromptLength = %d, erwartet 0", id.PromptLength())
	}
}

// TestLoRAForward prueft die Low-Rank-Korrektur x + B(A(x))
func TestLoRAForward(t *testing.T) {
	ctx := cpu.Context{}

	lora := &LoRA{
		A: &nn.Linear{Weight: ctx.FromFloats([]float32{1, 1}, 2, 1)},
		B: &nn.Linear{Weight: ctx.FromFloats([]float32{0.5, 0.25}, 1, 2)},
	}

	x := ctx.FromFloats([]float32{1, 2}, 2, 1)
	got := lora.Forward(ctx, x).Floats()

	// A(x) = 3, B(3) = (1.5, 0.75), x + = (2.5, 2.75)
	if diff := cmp.Diff([]float32{2.5, 2.75}, got); diff != "" {
		t.Errorf("LoRA Forward unerwartet (-want +got):\n%s", diff)
	}
}

// TestBitFitGateUp prueft, dass Gate und Up getrennte Biases bekommen
func TestBitFitGateUp(t *testing.T) {
	ctx := cpu.Context{}

	mlp := &BitFitMLP{
		Gate: &AddBias{Bias: ctx.FromFloats([]float32{1, 1}, 2)},
		Up:   &AddBias{Bias: ctx.FromFloats([]float32{-1, -1}, 2)},
		Down: &AddBias{Bias: ctx.FromFloats([]float32{0, 0}, 2)},
	}

	gate := ctx.FromFloats([]float32{1, 2}, 2, 1)
	up := ctx.FromFloats([]float32{1, 2}, 2, 1)

	gotGate, gotUp := mlp.GateUp(ctx, gate, up)

	if diff := cmp.Diff([]float32{2, 3}, gotGate.Floats()); diff != "" {
		t.Errorf("Gate-Bias unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0, 1}, gotUp.Floats()); diff != "" {
		t.Errorf("Up-Bias unerwartet (-want +got):\n%s", diff)
	}
}

// TestIA3Projections prueft die Reskalierung von Key und Value
func TestIA3Projections(t *testing.T) {
	ctx := cpu.Context{}

	ia3 := &IA3Attention{
		KeyScale:   ctx.FromFloats([]float32{2, 2}, 2),
		ValueScale: ctx.FromFloats([]float32{0.5, 0.5}, 2),
	}

	x := ctx.FromFloats([]float32{1, 2}, 2, 1)
	q, k, v := ia3.Projections(ctx, x, x, x)

	if q != x {
		t.Errorf("Query wurde veraendert")
	}
	if diff := cmp.Diff([]float32{2, 4}, k.Floats()); diff != "" {
		t.Errorf("Key-Skalierung unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0.5, 1}, v.Floats()); diff != "" {
		t.Errorf("Value-Skalierung unerwartet (-want +got):\n%s", diff)
	}
}

// TestAdapterResidual prueft, dass ein Adapter mit Null-Up-Projektion
// die Eingabe unveraendert laesst
func TestAdapterResidual(t *testing.T) {
	ctx := cpu.Context{}

	adapter := &Adapter{
		Down: &nn.Linear{Weight: ctx.FromFloats([]float32{1, -1}, 2, 1)},
		Up:   &nn.Linear{Weight: ctx.FromFloats([]float32{0, 0}, 1, 2)},
	}

	x := ctx.FromFloats([]float32{3, 4}, 2, 1)
	got := adapter.Forward(ctx, x).Floats()

	if diff := cmp.Diff([]float32{3, 4}, got); diff != "" {
		t.Errorf("Adapter mit Null-Up veraendert Eingabe (-want +got):\n%s", diff)
	}
}

// TestPromptPrepend prueft das Voranstellen der virtuellen Embeddings
func TestPromptPrepend(t *testing.T) {
	ctx := cpu.Context{}

	prompt := &Prompt{Embedding: ctx.FromFloats([]float32{10, 11, 20, 21}, 2, 2)}

	if prompt.PromptLength() != 2 {
		t.Fatalf("PromptLength = %d, erwartet 2", prompt.PromptLength())
	}

	// (hidden=2, seq=1, batch=2)
	embeddings := ctx.FromFloats([]float32{1, 2, 3, 4}, 2, 1, 2)
	got := prompt.PrependPrompt(ctx, embeddings)

	if diff := cmp.Diff([]int{2, 3, 2}, got.Shape()); diff != "" {
		t.Fatalf("Shape nach PrependPrompt unerwartet (-want +got):\n%s", diff)
	}

	want := []float32{
		10, 11, 20, 21, 1, 2, // Zeile 0: Prompt, dann Token
		10, 11, 20, 21, 3, 4, // Zeile 1
	}
	if diff := cmp.Diff(want, got.Floats()); diff != "" {
		t.Errorf("PrependPrompt unerwartet (-want +got):\n%s", diff)
	}
}

// TestPrefixKV prueft die Expansion der Prefix-Eintraege auf die Batch-Groesse
func TestPrefixKV(t *testing.T) {
	ctx := cpu.Context{}

	prefixes := &Prefixes{Layers: []PrefixLayer{{
		Key:   ctx.FromFloats([]float32{1, 2}, 1, 1, 2),
		Value: ctx.FromFloats([]float32{3, 4}, 1, 1, 2),
	}}}

	if prefixes.PrefixLength() != 2 {
		t.Fatalf("PrefixLength = %d, erwartet 2", prefixes.PrefixLength())
	}

	key, value := prefixes.PrefixKV(ctx, 0, 2)

	if diff := cmp.Diff([]int{1, 1, 2, 2}, key.Shape()); diff != "" {
		t.Fatalf("Key-Shape unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 1, 2}, key.Floats()); diff != "" {
		t.Errorf("Key-Expansion unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{3, 4, 3, 4}, value.Floats()); diff != "" {
		t.Errorf("Value-Expansion unerwartet (-want +got):\n%s", diff)
	}
}

// TestPrefixAdapterZeroGate prueft, dass der Term bei Gate 0 verschwindet
func TestPrefixAdapterZeroGate(t *testing.T) {
	ctx := cpu.Context{}

	adapter := &PrefixAdapter{
		PrefixKey:   ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3, 1),
		PrefixValue: ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 3, 2, 1),
		Gate:        ctx.FromFloats([]float32{0}, 1, 1),
	}

	// (headDim=2, heads=1, seq=2, batch=1)
	query := ctx.FromFloats([]float32{1, 0, 0, 1}, 2, 1, 2, 1)
	term := adapter.AttentionTerm(ctx, query)

	if diff := cmp.Diff(query.Shape(), term.Shape()); diff != "" {
		t.Fatalf("Term-Shape unerwartet (-want +got):\n%s", diff)
	}

	for i, v := range term.Floats() {
		if v != 0 {
			t.Fatalf("Term[%d] = %v, erwartet 0 bei Gate 0", i, v)
		}
	}
}

// TestPrefixAdapterUniformValues prueft den Term bei identischen
// Prefix-Values: die Softmax-Gewichtung mittelt dann zu genau diesem Wert
func TestPrefixAdapterUniformValues(t *testing.T) {
	ctx := cpu.Context{}

	adapter := &PrefixAdapter{
		PrefixKey: ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3, 1),
		// Values aller Prefix-Positionen identisch: (7, 9) pro Kanal
		PrefixValue: ctx.FromFloats([]float32{7, 7, 7, 9, 9, 9}, 3, 2, 1),
		// tanh(100) ~ 1
		Gate: ctx.FromFloats([]float32{100}, 1, 1),
	}

	query := ctx.FromFloats([]float32{1, 0, 0, 1}, 2, 1, 2, 1)
	term := adapter.AttentionTerm(ctx, query)

	want := []float32{7, 9, 7, 9}
	if diff := cmp.Diff(want, term.Floats(), cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("Term bei uniformen Values unerwartet (-want +got):\n%s", diff)
	}
}
