// Package model - Model-Interface und Initialisierung
//
// Dieses Paket definiert das Model-Interface und stellt Funktionen
// zur Initialisierung und Verwaltung von ML-Modellen bereit.
//
// Hauptkomponenten:
// - Model: Interface für alle Modell-Architekturen
// - Base: Basis-Implementierung für gemeinsame Funktionalität
// - New: Erstellt neue Model-Instanzen
// - Register: Registriert Modell-Konstruktoren
// - Forward: Führt Vorwärts-Pass durch

package model

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/peftlab/peftllama/ml"
	_ "github.com/peftlab/peftllama/ml/backend"
	"github.com/peftlab/peftllama/model/input"
)

// Fehler-Definitionen
var (
	ErrUnsupportedModel = errors.New("model not supported")
)

// Model definiert das Interface für spezifische Modell-Architekturen
type Model interface {
	Forward(ml.Context, input.Batch) (ml.Tensor, error)

	Backend() ml.Backend
}

// Validator ist ein optionales Interface für Post-Load-Validierung
type Validator interface {
	Validate() error
}

// TextModel bewertet und generiert Token-Sequenzen
type TextModel interface {
	Model

	// Score liefert die Logits eines vollen Vorwaertsdurchlaufs
	Score(ctx ml.Context, prompts [][]int32) (ml.Tensor, error)

	// Generate erzeugt generationLength neue Tokens pro Prompt
	Generate(ctx ml.Context, prompts [][]int32, generationLength int) ([][]int32, error)
}

// NewTextModel laedt ein Modell und prueft, dass es Texterzeugung kann
func NewTextModel(modelPath string, params ml.BackendParams) (TextModel, error) {
	m, err := New(modelPath, params)
	if err != nil {
		return nil, err
	}

	tm, ok := m.(TextModel)
	if !ok {
		return nil, fmt.Errorf("%w: not a text model", ErrUnsupportedModel)
	}

	return tm, nil
}

// Base implementiert gemeinsame Felder und Methoden für alle Modelle
type Base struct {
	b ml.Backend
}

// Backend gibt das Backend zurück, das das Modell ausführt
func (m *Base) Backend() ml.Backend {
	return m.b
}

// models speichert registrierte Modell-Konstruktoren
var models = make(map[string]func(ml.Backend) (Model, error))

// Register registriert einen Modell-Konstruktor für eine Architektur
func Register(name string, f func(ml.Backend) (Model, error)) {
	if _, ok := models[name]; ok {
		panic("model: model already registered")
	}

	models[name] = f
}

// New initialisiert eine neue Model-Instanz basierend auf den Metadaten
// des Checkpoints. Die Tensor-Daten selbst laedt erst Backend.Load.
func New(modelPath string, params ml.BackendParams) (Model, error) {
	b, err := ml.NewBackend(modelPath, params)
	if err != nil {
		return nil, err
	}

	m, err := modelForArch(b)
	if err != nil {
		return nil, err
	}

	base := Base{b: b}
	v := reflect.ValueOf(m)
	v.Elem().Set(populateFields(base, v.Elem()))

	if validator, ok := m.(Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, err
		}
	}

	if u, ok := b.(interface{ Unused() []string }); ok {
		for _, name := range u.Unused() {
			slog.Warn("checkpoint tensor not used by model", "name", name)
		}
	}

	return m, nil
}

// modelForArch erstellt ein Model basierend auf der Architektur
func modelForArch(b ml.Backend) (Model, error) {
	arch := b.Config().Architecture()

	f, ok := models[arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, arch)
	}

	return f(b)
}

// Forward führt einen Vorwärts-Pass durch das Modell aus
func Forward(ctx ml.Context, m Model, batch input.Batch) (ml.Tensor, error) {
	if batch.Inputs == nil {
		return nil, errors.New("batch has no inputs")
	}

	if len(batch.Positions) != batch.Inputs.Dim(0)*batch.Inputs.Dim(1) {
		return nil, fmt.Errorf("length of positions (%v) must match inputs (%v x %v)",
			len(batch.Positions), batch.Inputs.Dim(0), batch.Inputs.Dim(1))
	}

	if batch.Cache != nil {
		if err := batch.Cache.StartForward(ctx, batch.Inputs.Dim(1), batch.NumTokens); err != nil {
			return nil, err
		}
	}

	t, err := m.Forward(ctx, batch)
	if err != nil {
		return nil, err
	}

	ctx.Forward(t)

	return t, nil
}
