// routes_generate.go - HTTP-Handler fuer Score- und Generate-Anfragen
package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peftlab/peftllama/api"
	"github.com/peftlab/peftllama/envconfig"
	"github.com/peftlab/peftllama/model/models/llama"
)

// statusForError ordnet Modellfehler einem HTTP-Status zu. Numerische
// Fehler im Vorwaertsdurchlauf sind Serverfehler, alles andere sind
// ungueltige Anfragen.
func statusForError(err error) int {
	var numErr *llama.NumericError
	if errors.As(err, &numErr) {
		return http.StatusInternalServerError
	}

	return http.StatusBadRequest
}

// countTokens zaehlt die Tokens ueber alle Prompts
func countTokens(prompts [][]int32) int {
	var n int
	for _, p := range prompts {
		n += len(p)
	}

	return n
}

// ScoreHandler fuehrt einen vollen Vorwaertsdurchlauf aus und liefert
// die Logits aller Positionen
func (s *Server) ScoreHandler(c *gin.Context) {
	checkpointStart := time.Now()

	var req api.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	if len(req.Prompts) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing prompts"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.model.Backend().NewContext()
	defer ctx.Close()

	checkpointEval := time.Now()

	logits, err := s.model.Score(ctx, req.Prompts)
	if err != nil {
		c.AbortWithStatusJSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	resp := api.ScoreResponse{
		Logits: logits.Floats(),
		Shape:  logits.Shape(),
	}
	resp.PromptEvalCount = countTokens(req.Prompts)
	resp.PromptEvalDuration = time.Since(checkpointEval)
	resp.TotalDuration = time.Since(checkpointStart)

	c.JSON(http.StatusOK, resp)
}

// GenerateHandler erzeugt pro Prompt neue Tokens per Greedy-Decoding.
// Ohne explizite Laenge in der Anfrage gilt der konfigurierte
// Standardwert.
func (s *Server) GenerateHandler(c *gin.Context) {
	checkpointStart := time.Now()

	var req api.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		default:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	if len(req.Prompts) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing prompts"})
		return
	}

	length := req.Length
	if length == 0 {
		length = int(envconfig.GenerationLength())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.model.Backend().NewContext()
	defer ctx.Close()

	checkpointEval := time.Now()

	sequences, err := s.model.Generate(ctx, req.Prompts, length)
	if err != nil {
		c.AbortWithStatusJSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	resp := api.GenerateResponse{Sequences: sequences}
	resp.PromptEvalCount = countTokens(req.Prompts)
	resp.EvalCount = countTokens(sequences) - countTokens(req.Prompts)
	resp.EvalDuration = time.Since(checkpointEval)
	resp.TotalDuration = time.Since(checkpointStart)

	c.JSON(http.StatusOK, resp)
}
