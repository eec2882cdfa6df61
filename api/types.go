// types.go - API-Typen (Requests, Responses, Fehler, Metriken)
// Enthaelt: StatusError, ScoreRequest/Response, GenerateRequest/Response,
// ShowResponse, Metrics
package api

import (
	"fmt"
	"os"
	"time"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the server logs for details"
	}
}

// ScoreRequest ist die Anfrage an [Client.Score]. Prompts sind Zeilen von
// Token-IDs; kuerzere Zeilen fuellt der Server links mit dem Pad-Token auf.
type ScoreRequest struct {
	Prompts [][]int32 `json:"prompts"`
}

// ScoreResponse ist die Antwort von [Client.Score]. Logits liegen flach in
// Speicherreihenfolge, Shape nennt die Dimensionen von innen nach aussen:
// Vokabular, Positionen, Zeilen.
type ScoreResponse struct {
	Logits []float32 `json:"logits"`
	Shape  []int     `json:"shape"`

	Metrics
}

// GenerateRequest ist die Anfrage an [Client.Generate]. Length ist die
// Anzahl neuer Tokens pro Zeile; 0 nutzt den Server-Default.
type GenerateRequest struct {
	Prompts [][]int32 `json:"prompts"`
	Length  int       `json:"length,omitempty"`
}

// GenerateResponse ist die Antwort von [Client.Generate]. Jede Sequenz ist
// der unaufgefuellte Prompt gefolgt von den erzeugten Tokens.
type GenerateResponse struct {
	Sequences [][]int32 `json:"sequences"`

	Metrics
}

// ShowResponse beschreibt das geladene Modell
type ShowResponse struct {
	Architecture      string    `json:"architecture"`
	PeftMode          string    `json:"peft_mode"`
	HiddenSize        int       `json:"dim"`
	NumHeads          int       `json:"n_heads"`
	NumLayers         int       `json:"n_layers"`
	VocabSize         int       `json:"vocab_size"`
	MaxSequenceLength int       `json:"max_seq_length"`
	DType             string    `json:"dtype"`
	Use8Bit           bool      `json:"use_8bit,omitempty"`
	LoadedAt          time.Time `json:"loaded_at,omitzero"`
}

// Metrics enthaelt Performance-Metriken fuer Anfragen
type Metrics struct {
	TotalDuration      time.Duration `json:"total_duration,omitempty"`
	PromptEvalCount    int           `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration time.Duration `json:"prompt_eval_duration,omitempty"`
	EvalCount          int           `json:"eval_count,omitempty"`
	EvalDuration       time.Duration `json:"eval_duration,omitempty"`
}

func (m *Metrics) Summary() {
	if m.TotalDuration > 0 {
		fmt.Fprintf(os.Stderr, "total duration:       %v\n", m.TotalDuration)
	}

	if m.PromptEvalCount > 0 {
		fmt.Fprintf(os.Stderr, "prompt eval count:    %d token(s)\n", m.PromptEvalCount)
	}

	if m.PromptEvalDuration > 0 {
		fmt.Fprintf(os.Stderr, "prompt eval duration: %s\n", m.PromptEvalDuration)
		fmt.Fprintf(os.Stderr, "prompt eval rate:     %.2f tokens/s\n", float64(m.PromptEvalCount)/m.PromptEvalDuration.Seconds())
	}

	if m.EvalCount > 0 {
		fmt.Fprintf(os.Stderr, "eval count:           %d token(s)\n", m.EvalCount)
	}

	if m.EvalDuration > 0 {
		fmt.Fprintf(os.Stderr, "eval duration:        %s\n", m.EvalDuration)
		fmt.Fprintf(os.Stderr, "eval rate:            %.2f tokens/s\n", float64(m.EvalCount)/m.EvalDuration.Seconds())
	}
}
