// Package torch liest PyTorch-Checkpoints (pickle-Format, legacy und zip)
// ueber gopickle und konvertiert die Gewichte nach float32.
package torch

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
)

// Tensor ist ein Gewicht aus einem torch-Checkpoint. Shape ist in
// torch-Konvention (aeusserste Dimension zuerst).
type Tensor struct {
	Name   string
	Shape  []int64
	Values []float32
}

// Load entpickelt ein state dict. Nicht-Tensor-Eintraege werden ignoriert.
func Load(path string) ([]Tensor, error) {
	m, err := pytorch.Load(path)
	if err != nil {
		return nil, err
	}

	entries := map[string]*pytorch.Tensor{}
	switch d := m.(type) {
	case *types.OrderedDict:
		for k, v := range d.Map {
			collect(entries, k, v.Value)
		}
	case *types.Dict:
		for _, e := range *d {
			collect(entries, e.Key, e.Value)
		}
	default:
		return nil, fmt.Errorf("unexpected checkpoint root %T", m)
	}

	tensors := make([]Tensor, 0, len(entries))
	for name, t := range entries {
		values, err := storageFloats(t)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}

		shape := make([]int64, len(t.Size))
		for i, d := range t.Size {
			shape[i] = int64(d)
		}
		if len(shape) == 0 {
			shape = []int64{1}
		}

		tensors = append(tensors, Tensor{Name: name, Shape: shape, Values: values})
	}

	slices.SortFunc(tensors, func(a, b Tensor) int {
		return strings.Compare(a.Name, b.Name)
	})

	return tensors, nil
}

func collect(entries map[string]*pytorch.Tensor, key, value any) {
	name, ok := key.(string)
	if !ok {
		return
	}
	if t, ok := value.(*pytorch.Tensor); ok {
		entries[name] = t
	}
}

func storageFloats(t *pytorch.Tensor) ([]float32, error) {
	n := 1
	for _, d := range t.Size {
		n *= d
	}
	offset := int(t.StorageOffset)

	view := func(data []float32) ([]float32, error) {
		if offset+n > len(data) {
			return nil, fmt.Errorf("storage of %d elements for view of %d at offset %d", len(data), n, offset)
		}
		out := make([]float32, n)
		copy(out, data[offset:offset+n])
		return out, nil
	}

	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		return view(s.Data)
	case *pytorch.HalfStorage:
		return view(s.Data)
	case *pytorch.BFloat16Storage:
		return view(s.Data)
	case *pytorch.DoubleStorage:
		if offset+n > len(s.Data) {
			return nil, fmt.Errorf("storage of %d elements for view of %d at offset %d", len(s.Data), n, offset)
		}
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(s.Data[offset+i])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported storage %T", t.Source)
	}
}
