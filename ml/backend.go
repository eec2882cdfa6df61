// backend.go - Backend-Interface und Registrierung fuer ML-Backends
// Dieses Modul definiert das Backend-Interface und die Backend-Factory-Funktionen.
package ml

import (
	"context"
	"fmt"

	"github.com/peftlab/peftllama/fs"
)

// Backend represents a model execution backend (e.g., the pure-Go CPU backend).
type Backend interface {
	// Close frees all memory associated with this backend
	Close()

	// Load reads the checkpoint's tensor data into memory. progress is
	// called with values in [0, 1] as shards complete.
	Load(ctx context.Context, progress func(float32)) error

	Config() fs.Config

	// Get returns the named weight, or nil if the checkpoint does not
	// contain it.
	Get(name string) Tensor

	// Names lists every tensor in the checkpoint in load order.
	Names() []string

	NewContext() Context
}

// BackendParams controls how the backend loads and executes models
type BackendParams struct {
	// NumThreads bounds the number of goroutines used to read checkpoint
	// shards. Zero means one per shard.
	NumThreads int

	// Quantize converts eligible linear weights to 8-bit blocks at load
	// time, overriding the checkpoint's own setting.
	Quantize bool
}

var backends = make(map[string]func(string, BackendParams) (Backend, error))

// RegisterBackend registers a backend factory function.
func RegisterBackend(name string, f func(string, BackendParams) (Backend, error)) {
	if _, ok := backends[name]; ok {
		panic("backend: backend already registered")
	}

	backends[name] = f
}

// NewBackend creates a new backend instance for the given model path.
func NewBackend(modelPath string, params BackendParams) (Backend, error) {
	if backend, ok := backends["cpu"]; ok {
		return backend(modelPath, params)
	}

	return nil, fmt.Errorf("unsupported backend")
}
