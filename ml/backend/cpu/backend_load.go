// backend_load.go - Laden von Checkpoints
// Enthält: New, Load, Shard-Verwaltung, Quantisierungs-Auswahl

package cpu

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/peftlab/peftllama/fs"
	"github.com/peftlab/peftllama/fs/safetensors"
	"github.com/peftlab/peftllama/fs/torch"
	"github.com/peftlab/peftllama/logutil"
	"github.com/peftlab/peftllama/ml"
)

// shard ist eine safetensors-Datei, deren Header bei New geparst wurde und
// deren Daten Load liest
type shard struct {
	path string
	file *safetensors.File
}

// quantizableSuffixes benennt die Linearprojektionen des Basismodells.
// PEFT-Parameter und Embeddings bleiben immer in voller Praezision, wie
// beim 8-bit-Laden des Originalmodells.
var quantizableSuffixes = []string{
	"q_proj.weight", "k_proj.weight", "v_proj.weight", "o_proj.weight",
	"gate_proj.weight", "up_proj.weight", "down_proj.weight",
	"lm_head.weight",
}

func quantizable(name string) bool {
	if strings.Contains(name, "peft_") {
		return false
	}
	for _, s := range quantizableSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// dimsOf kehrt eine torch-Form um: die letzte torch-Dimension ist die
// innerste Tensor-Dimension.
func dimsOf(shape []int64) []int {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[len(shape)-1-i] = int(d)
	}
	if len(dims) == 0 {
		dims = []int{1}
	}
	return dims
}

// New liest die Konfiguration und legt alle Tensoren des Checkpoints an.
// safetensors-Shards liefern ihre Namen und Formen aus dem Header; ihre
// Daten liest erst Load. torch-Shards kennen ihre Namen erst nach dem
// Entpickeln und werden deshalb sofort vollstaendig gelesen.
func New(modelPath string, params ml.BackendParams) (ml.Backend, error) {
	config, err := fs.LoadConfig(modelPath)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		modelPath: modelPath,
		config:    config,
		params:    params,
		quantize:  params.Quantize || config.Bool("use_8bit"),
		tensors:   make(map[string]*Tensor),
		claimed:   make(map[string]bool),
	}

	stPaths, err := filepath.Glob(filepath.Join(modelPath, "*.safetensors"))
	if err != nil {
		return nil, err
	}
	var torchPaths []string
	for _, pattern := range []string{"*.bin", "*.pth", "*.pt"} {
		matches, err := filepath.Glob(filepath.Join(modelPath, pattern))
		if err != nil {
			return nil, err
		}
		torchPaths = append(torchPaths, matches...)
	}
	slices.Sort(stPaths)
	slices.Sort(torchPaths)

	if len(stPaths)+len(torchPaths) == 0 {
		return nil, fmt.Errorf("no model weights found in %s", modelPath)
	}

	for _, path := range stPaths {
		f, err := safetensors.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		for _, meta := range f.Tensors() {
			if err := b.create(meta.Name, dimsOf(meta.Shape)); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}

		b.shards = append(b.shards, shard{path: path, file: f})
	}

	for _, path := range torchPaths {
		weights, err := torch.Load(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		for _, w := range weights {
			if err := b.create(w.Name, dimsOf(w.Shape)); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}

			logutil.Trace("loaded tensor", "name", w.Name, "shape", w.Shape)
			b.tensors[w.Name].FromFloats(w.Values)
		}
	}

	slog.Info("checkpoint opened", "path", modelPath,
		"safetensors", len(stPaths), "torch", len(torchPaths),
		"quantize", b.quantize)

	return b, nil
}

// create legt einen leeren Tensor unter dem Namen an. Doppelte Namen ueber
// Shards hinweg sind ein Fehler: jeder Parameter existiert genau einmal.
func (b *Backend) create(name string, dims []int) error {
	if _, ok := b.tensors[name]; ok {
		return fmt.Errorf("duplicate tensor %q", name)
	}

	dtype := ml.DTypeF32
	if b.quantize && quantizable(name) {
		if dims[0]%blockSize == 0 {
			dtype = ml.DTypeQ80
		} else {
			slog.Warn("tensor not quantizable", "name", name, "dims", dims)
		}
	}

	b.tensors[name] = newTensor(dtype, dims...)
	b.names = append(b.names, name)
	return nil
}

// Load liest die Gewichtsdaten der safetensors-Shards parallel ein.
// torch-Shards sind zu diesem Zeitpunkt schon vollstaendig geladen.
func (b *Backend) Load(ctx context.Context, progress func(float32)) error {
	if len(b.shards) == 0 {
		if progress != nil {
			progress(1)
		}
		return nil
	}

	start := time.Now()
	total := len(b.shards)
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	if b.params.NumThreads > 0 {
		g.SetLimit(b.params.NumThreads)
	}

	var mu sync.Mutex
	for _, s := range b.shards {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			for _, meta := range s.file.Tensors() {
				values, err := s.file.ReadFloats(meta)
				if err != nil {
					return fmt.Errorf("reading %s: %w", s.path, err)
				}

				logutil.Trace("loaded tensor", "name", meta.Name, "dtype", meta.DType, "shape", meta.Shape)
				b.tensors[meta.Name].FromFloats(values)
			}

			if progress != nil {
				mu.Lock()
				progress(float32(done.Add(1)) / float32(total))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("checkpoint loaded", "tensors", len(b.names), "duration", time.Since(start))
	return nil
}
