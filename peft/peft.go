// Package peft - Konfiguration und Strategie-Auswahl
//
// Dieses Paket implementiert die parameter-effizienten Feinabstimmungs-
// Strategien (PEFT). Pro Modell ist genau eine Strategie aktiv; sie wird
// einmal aus der Konfiguration aufgebaut und haengt sich an feste
// Einhaengepunkte in Attention, MLP, Layer und Decoder-Stack. Inaktive
// Strategien werden nie allokiert.
//
// Hauptkomponenten:
// - Mode: Kennung der aktiven Strategie
// - Config: Hyperparameter aller Strategien plus Validierung
// - Factory-Methoden: bauen die Hook-Implementierungen der aktiven Strategie
package peft

import (
	"errors"
	"fmt"
	"slices"

	"github.com/agnivade/levenshtein"
	"github.com/peftlab/peftllama/fs"
)

type Mode string

const (
	ModeNone          Mode = "none"
	ModePrefix        Mode = "prefix"
	ModePrompt        Mode = "prompt"
	ModeLoRA          Mode = "lora"
	ModeAdapter       Mode = "adapter"
	ModeBitFit        Mode = "bitfit"
	ModeIA3           Mode = "ia3"
	ModePrefixAdapter Mode = "prefix_adapter"
)

// Modes listet alle unterstuetzten Strategien
var Modes = []Mode{
	ModeNone,
	ModePrefix,
	ModePrompt,
	ModeLoRA,
	ModeAdapter,
	ModeBitFit,
	ModeIA3,
	ModePrefixAdapter,
}

const (
	AdapterHoulsby  = "houlsby"
	AdapterPfeiffer = "pfeiffer"
)

var (
	ErrUnknownMode   = errors.New("unknown peft mode")
	ErrInvalidConfig = errors.New("invalid peft configuration")
)

// Config enthaelt die Hyperparameter aller Strategien. Welche Felder
// gelesen werden, bestimmt Mode; Validate prueft nur die Felder der
// aktiven Strategie.
type Config struct {
	Mode Mode

	// Anzahl virtueller Tokens (prefix, prompt, prefix_adapter)
	NumPrefixTokens int

	// Rang der Low-Rank-Korrektur (lora)
	LoRARank int

	// Breite des Engpasses (adapter)
	AdapterSize int

	// Adapter-Platzierung: houlsby (Attention+MLP) oder pfeiffer (nur MLP)
	AdapterVariant string
}

// FromConfig liest die PEFT-Konfiguration aus den Checkpoint-Parametern
func FromConfig(c fs.Config) Config {
	return Config{
		Mode:            Mode(c.String("peft_mode", string(ModeNone))),
		NumPrefixTokens: int(c.Uint("num_prefix_tokens", 16)),
		LoRARank:        int(c.Uint("lora_rank", 8)),
		AdapterSize:     int(c.Uint("adapter_size", 64)),
		AdapterVariant:  c.String("adapter_version", AdapterPfeiffer),
	}
}

func (c Config) Validate() error {
	if !slices.Contains(Modes, c.Mode) {
		if suggestion := suggestMode(c.Mode); suggestion != "" {
			return fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownMode, c.Mode, suggestion)
		}
		return fmt.Errorf("%w: %q", ErrUnknownMode, c.Mode)
	}

	switch c.Mode {
	case ModePrefix, ModePrompt, ModePrefixAdapter:
		if c.NumPrefixTokens <= 0 {
			return fmt.Errorf("%w: num_prefix_tokens must be positive for mode %q", ErrInvalidConfig, c.Mode)
		}
	case ModeLoRA:
		if c.LoRARank <= 0 {
			return fmt.Errorf("%w: lora_rank must be positive for mode %q", ErrInvalidConfig, c.Mode)
		}
	case ModeAdapter:
		if c.AdapterSize <= 0 {
			return fmt.Errorf("%w: adapter_size must be positive for mode %q", ErrInvalidConfig, c.Mode)
		}
		if c.AdapterVariant != AdapterHoulsby && c.AdapterVariant != AdapterPfeiffer {
			return fmt.Errorf("%w: adapter_version must be %q or %q, got %q", ErrInvalidConfig, AdapterHoulsby, AdapterPfeiffer, c.AdapterVariant)
		}
	}

	return nil
}

// suggestMode sucht die naechstgelegene bekannte Strategie fuer Tippfehler
func suggestMode(mode Mode) Mode {
	var best Mode
	bestDistance := 4

	for _, m := range Modes {
		if d := levenshtein.ComputeDistance(string(mode), string(m)); d < bestDistance {
			best, bestDistance = m, d
		}
	}

	return best
}

// Attention baut die Attention-Hooks der aktiven Strategie fuer einen Layer
func (c Config) Attention() AttentionHooks {
	switch c.Mode {
	case ModeLoRA:
		return &LoRAAttention{}
	case ModeBitFit:
		return &BitFitAttention{}
	case ModeIA3:
		return &IA3Attention{}
	case ModePrefixAdapter:
		return &PrefixAdapter{}
	default:
		return Identity{}
	}
}

// MLP baut die MLP-Hooks der aktiven Strategie fuer einen Layer
func (c Config) MLP() MLPHooks {
	switch c.Mode {
	case ModeBitFit:
		return &BitFitMLP{}
	case ModeIA3:
		return &IA3MLP{}
	default:
		return Identity{}
	}
}

// Layer baut die Layer-Hooks der aktiven Strategie
func (c Config) Layer() LayerHooks {
	switch c.Mode {
	case ModeAdapter:
		if c.AdapterVariant == AdapterHoulsby {
			return &HoulsbyAdapterLayer{}
		}
		return &PfeifferAdapterLayer{}
	case ModeBitFit:
		return &BitFitLayer{}
	default:
		return Identity{}
	}
}

// Stack baut die Stack-Hooks der aktiven Strategie
func (c Config) Stack() StackHooks {
	if c.Mode == ModePrompt {
		return &Prompt{}
	}
	return Identity{}
}

// Prefix baut den Cache-Prefix der aktiven Strategie oder nil,
// wenn die Strategie keinen virtuellen Cache-Inhalt beisteuert
func (c Config) Prefix(numLayers int) CachePrefix {
	if c.Mode == ModePrefix {
		return &Prefixes{Layers: make([]PrefixLayer, numLayers)}
	}
	return nil
}
