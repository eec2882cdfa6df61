// backend.go - CPU-Backend
// Enthält: Backend struct, Get, Names, Config, NewContext, Registrierung

package cpu

import (
	"github.com/peftlab/peftllama/fs"
	"github.com/peftlab/peftllama/ml"
)

// Backend haelt alle Gewichte eines Checkpoints im Hauptspeicher.
type Backend struct {
	modelPath string
	config    fs.KV
	params    ml.BackendParams
	quantize  bool

	tensors map[string]*Tensor
	names   []string

	// claimed merkt sich, welche Namen ueber Get abgerufen wurden
	claimed map[string]bool

	// shards werden bei New vorbereitet und bei Load gelesen
	shards []shard
}

func init() {
	ml.RegisterBackend("cpu", New)
}

func (b *Backend) Close() {}

func (b *Backend) Config() fs.Config {
	return b.config
}

func (b *Backend) Get(name string) ml.Tensor {
	if t, ok := b.tensors[name]; ok {
		b.claimed[name] = true
		return t
	}
	return nil
}

func (b *Backend) Names() []string {
	names := make([]string, len(b.names))
	copy(names, b.names)
	return names
}

// Unused listet die Tensoren des Checkpoints, die nie ueber Get abgerufen
// wurden, in Ladereihenfolge
func (b *Backend) Unused() []string {
	var unused []string
	for _, name := range b.names {
		if !b.claimed[name] {
			unused = append(unused, name)
		}
	}
	return unused
}

func (b *Backend) NewContext() ml.Context {
	return Context{b: b}
}
