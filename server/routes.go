// Package server - Haupt-Router und Server-Setup fuer PeftLlama
// Beinhaltet: Server-Struct, Router-Registrierung, Server-Start
package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/peftlab/peftllama/envconfig"
	"github.com/peftlab/peftllama/fs"
	"github.com/peftlab/peftllama/model"
	"github.com/peftlab/peftllama/version"
)

var mode string = gin.DebugMode

// Server bedient ein einzelnes geladenes Modell ueber HTTP
type Server struct {
	addr   net.Addr
	model  model.TextModel
	config fs.Config
	loaded time.Time

	// serialisiert Vorwaertsdurchlaeufe, das CPU-Backend rechnet
	// ohnehin mit allen konfigurierten Threads pro Durchlauf
	mu sync.Mutex
}

func init() {
	switch mode {
	case gin.DebugMode:
	case gin.ReleaseMode:
	case gin.TestMode:
	default:
		mode = gin.DebugMode
	}

	gin.SetMode(mode)
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		"X-Request-Id",
	}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		allowedHostsMiddleware(s.addr),
		requestIDMiddleware(),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "PeftLlama is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "PeftLlama is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Inference
	r.POST("/api/score", s.ScoreHandler)
	r.POST("/api/generate", s.GenerateHandler)
	r.GET("/api/show", s.ShowHandler)

	return r
}
