// config_features.go - Laufzeit-Einstellungen fuer Backend und Generierung
//
// Dieses Modul enthaelt:
// - Backend-Einstellungen (Threads, Quantisierung)
// - Generierungs-Einstellungen
package envconfig

var (
	// NumThreads begrenzt die Goroutines beim Lesen der Checkpoint-Shards.
	// 0 = eine pro Shard
	// Konfigurierbar via PEFTLLAMA_NUM_THREADS
	NumThreads = Uint("PEFTLLAMA_NUM_THREADS", 0)

	// Use8Bit quantisiert Linearprojektionen beim Laden auf 8 Bit,
	// unabhaengig von der Checkpoint-Konfiguration
	// Konfigurierbar via PEFTLLAMA_USE_8BIT
	Use8Bit = Bool("PEFTLLAMA_USE_8BIT")

	// GenerationLength ist die Anzahl neuer Tokens, wenn eine Anfrage
	// keine Laenge angibt
	// Konfigurierbar via PEFTLLAMA_GENERATION_LENGTH
	GenerationLength = Uint("PEFTLLAMA_GENERATION_LENGTH", 16)

	// NoHistory deaktiviert die Readline-History im interaktiven Modus
	// Konfigurierbar via PEFTLLAMA_NOHISTORY
	NoHistory = Bool("PEFTLLAMA_NOHISTORY")
)
