// routes_show.go - HTTP-Handler fuer Modell-Metadaten
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peftlab/peftllama/api"
)

// ShowHandler liefert die Konfiguration des geladenen Modells
func (s *Server) ShowHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.ShowResponse{
		Architecture:      s.config.Architecture(),
		PeftMode:          s.config.String("peft_mode", "none"),
		HiddenSize:        int(s.config.Uint("dim")),
		NumHeads:          int(s.config.Uint("n_heads")),
		NumLayers:         int(s.config.Uint("n_layers")),
		VocabSize:         int(s.config.Uint("vocab_size")),
		MaxSequenceLength: int(s.config.Uint("max_seq_length", 2048)),
		DType:             s.config.String("dtype", "float16"),
		Use8Bit:           s.config.Bool("use_8bit", false),
		LoadedAt:          s.loaded,
	})
}
