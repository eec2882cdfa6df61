// Package fs - Checkpoint-Konfiguration
//
// Dieses Modul enthaelt den KV-Typ und die zugehoerigen Methoden:
// - Config: Interface fuer Modell-Metadaten
// - KV: Map fuer die Schluessel aus params.json und peft.json
// - Generische Getter (String, Uint, Float, Bool)
package fs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// Config liefert die Metadaten eines Checkpoints.
type Config interface {
	Architecture() string

	String(key string, defaultValue ...string) string
	Uint(key string, defaultValue ...uint32) uint32
	Float(key string, defaultValue ...float32) float32
	Bool(key string, defaultValue ...bool) bool
}

// KV repraesentiert die Key-Value Metadaten aus params.json und peft.json
type KV map[string]any

// Architecture gibt die Modell-Architektur zurueck
func (kv KV) Architecture() string {
	return kv.String("architecture", "llama")
}

// String gibt einen String-Wert zurueck
func (kv KV) String(key string, defaultValue ...string) string {
	val, _ := keyValue(kv, key, append(defaultValue, "")...)
	return val
}

// Uint gibt einen uint32-Wert zurueck
func (kv KV) Uint(key string, defaultValue ...uint32) uint32 {
	val, _ := keyValue(kv, key, append(defaultValue, 0)...)
	return val
}

// Float gibt einen float32-Wert zurueck
func (kv KV) Float(key string, defaultValue ...float32) float32 {
	val, _ := keyValue(kv, key, append(defaultValue, 0)...)
	return val
}

// Bool gibt einen bool-Wert zurueck
func (kv KV) Bool(key string, defaultValue ...bool) bool {
	val, _ := keyValue(kv, key, append(defaultValue, false)...)
	return val
}

// Has prueft, ob ein Schluessel vorhanden ist
func (kv KV) Has(key string) bool {
	_, ok := kv[key]
	return ok
}

// Keys gibt alle Schluessel sortiert zurueck
func (kv KV) Keys() []string {
	return slices.Sorted(maps.Keys(kv))
}

type valueTypes interface {
	string | uint32 | float32 | bool
}

// keyValue ist eine generische Hilfsfunktion zum Lesen von KV-Werten.
// encoding/json liefert Zahlen als float64; sie werden hier konvertiert.
func keyValue[T valueTypes](kv KV, key string, defaultValue ...T) (T, bool) {
	if val, ok := kv[key]; ok {
		if t, ok := val.(T); ok {
			return t, true
		}
		if f, ok := val.(float64); ok {
			switch any(defaultValue[0]).(type) {
			case uint32:
				return any(uint32(f)).(T), true
			case float32:
				return any(float32(f)).(T), true
			}
		}
	}

	slog.Debug("key with type not found", "key", key, "default", defaultValue[0])
	return defaultValue[0], false
}

// LoadConfig liest params.json (erforderlich) und peft.json (optional) aus
// dem Checkpoint-Verzeichnis. Schluessel aus peft.json ueberschreiben
// gleichnamige Schluessel aus params.json.
func LoadConfig(dir string) (KV, error) {
	kv := KV{}
	if err := readJSON(filepath.Join(dir, "params.json"), kv); err != nil {
		return nil, fmt.Errorf("loading model config: %w", err)
	}

	if err := readJSON(filepath.Join(dir, "peft.json"), kv); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading peft config: %w", err)
	}

	return kv, nil
}

func readJSON(path string, kv KV) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	maps.Copy(kv, m)
	return nil
}
