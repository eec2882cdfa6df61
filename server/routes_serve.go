// routes_serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - Hauptfunktion zum Starten des HTTP-Servers
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/peftlab/peftllama/envconfig"
	"github.com/peftlab/peftllama/logutil"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/model"
	"github.com/peftlab/peftllama/version"
)

// LoadModel laedt das Modell aus dem Checkpoint-Verzeichnis in den
// Server. Die Backend-Parameter kommen aus der Umgebung.
func (s *Server) LoadModel(ctx context.Context, modelDir string) error {
	checkpointStart := time.Now()

	m, err := model.NewTextModel(modelDir, ml.BackendParams{
		NumThreads: int(envconfig.NumThreads()),
		Quantize:   envconfig.Use8Bit(),
	})
	if err != nil {
		return fmt.Errorf("load model %s: %w", modelDir, err)
	}

	var last int
	if err := m.Backend().Load(ctx, func(progress float32) {
		if pct := int(progress * 100); pct >= last+25 {
			last = pct
			slog.Info("loading model weights", "progress", fmt.Sprintf("%d%%", pct))
		}
	}); err != nil {
		m.Backend().Close()
		return fmt.Errorf("load model %s: %w", modelDir, err)
	}

	s.model = m
	s.config = m.Backend().Config()
	s.loaded = time.Now()

	slog.Info("model loaded",
		"dir", modelDir,
		"architecture", s.config.Architecture(),
		"peft_mode", s.config.String("peft_mode", "none"),
		"duration", time.Since(checkpointStart))

	return nil
}

// Serve laedt das Modell und startet den HTTP-Server auf dem Listener
func Serve(ln net.Listener, modelDir string) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s := &Server{addr: ln.Addr()}

	loadCtx, loadDone := context.WithTimeout(context.Background(), envconfig.LoadTimeout())
	err := s.LoadModel(loadCtx, modelDir)
	loadDone()
	if err != nil {
		return err
	}

	http.Handle("/", s.GenerateRoutes())

	ctx, done := context.WithCancel(context.Background())

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{
		// Use http.DefaultServeMux so we get net/http/pprof for
		// free.
		Handler: nil,
	}

	// listen for a ctrl+c and unload the model before exiting
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		s.model.Backend().Close()
		done()
	}()

	err = srvr.Serve(ln)
	// If server is closed from the signal handler, wait for the ctx to be done
	// otherwise error out quickly
	if !slices.Contains([]error{http.ErrServerClosed}, err) {
		return err
	}
	<-ctx.Done()
	return nil
}
