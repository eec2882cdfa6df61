// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - BoolWithDefault/Bool: Boolean-Getter mit Default-Wert
// - String: String-Getter
// - Uint: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
// - Values: Gibt alle Konfigurationswerte als String-Map zurueck
package envconfig

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

// BoolWithDefault gibt eine Funktion zurueck, die einen Bool mit Default-Wert liest
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint gibt eine Funktion zurueck, die einen uint mit Default-Wert liest
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	ret := map[string]EnvVar{
		"PEFTLLAMA_DEBUG":             {"PEFTLLAMA_DEBUG", LogLevel(), "Show additional debug information (e.g. PEFTLLAMA_DEBUG=1)"},
		"PEFTLLAMA_HOST":              {"PEFTLLAMA_HOST", Host(), "IP address for the server (default 127.0.0.1:8080)"},
		"PEFTLLAMA_LOAD_TIMEOUT":      {"PEFTLLAMA_LOAD_TIMEOUT", LoadTimeout(), "How long to allow checkpoint loads to stall before giving up (default \"5m\")"},
		"PEFTLLAMA_MODELS":            {"PEFTLLAMA_MODELS", Models(), "The path to the checkpoints directory"},
		"PEFTLLAMA_ORIGINS":           {"PEFTLLAMA_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		"PEFTLLAMA_NUM_THREADS":       {"PEFTLLAMA_NUM_THREADS", NumThreads(), "Maximum number of goroutines reading checkpoint shards"},
		"PEFTLLAMA_USE_8BIT":          {"PEFTLLAMA_USE_8BIT", Use8Bit(), "Quantize linear weights to 8 bit at load time"},
		"PEFTLLAMA_GENERATION_LENGTH": {"PEFTLLAMA_GENERATION_LENGTH", GenerationLength(), "Number of new tokens when a request gives no length (default: 16)"},
		"PEFTLLAMA_NOHISTORY":         {"PEFTLLAMA_NOHISTORY", NoHistory(), "Do not preserve readline history"},

		// Proxy-Einstellungen
		"HTTP_PROXY":  {"HTTP_PROXY", String("HTTP_PROXY")(), "HTTP proxy"},
		"HTTPS_PROXY": {"HTTPS_PROXY", String("HTTPS_PROXY")(), "HTTPS proxy"},
		"NO_PROXY":    {"NO_PROXY", String("NO_PROXY")(), "No proxy"},
	}

	// Nicht-Windows: Case-sensitive Proxy-Variablen
	if runtime.GOOS != "windows" {
		ret["http_proxy"] = EnvVar{"http_proxy", String("http_proxy")(), "HTTP proxy"}
		ret["https_proxy"] = EnvVar{"https_proxy", String("https_proxy")(), "HTTPS proxy"}
		ret["no_proxy"] = EnvVar{"no_proxy", String("no_proxy")(), "No proxy"}
	}

	return ret
}

// Values gibt alle Konfigurationswerte als String-Map zurueck
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
