// Package safetensors liest und schreibt Checkpoints im safetensors-Format:
// 8 Byte Header-Laenge (LE), JSON-Header mit dtype/shape/data_offsets pro
// Tensor, danach die Rohdaten.
package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"
)

// TensorMeta beschreibt einen Tensor im Header. Shape ist in
// torch-Konvention (aeusserste Dimension zuerst).
type TensorMeta struct {
	Name  string
	DType string
	Shape []int64

	start, end int64
}

// File ist ein geparster safetensors-Header.
type File struct {
	path       string
	dataOffset int64
	tensors    []TensorMeta
}

type headerEntry struct {
	DType   string   `json:"dtype"`
	Shape   []int64  `json:"shape"`
	Offsets [2]int64 `json:"data_offsets"`
}

// Open parst den Header. Die Tensordaten werden erst bei ReadFloats gelesen.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("safetensors header: %w", err)
	}
	if headerLen > 100<<20 {
		return nil, fmt.Errorf("safetensors header of %d bytes is implausible", headerLen)
	}

	raw := make([]byte, headerLen)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, fmt.Errorf("safetensors header: %w", err)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("safetensors header: %w", err)
	}

	file := &File{path: path, dataOffset: 8 + int64(headerLen)}
	for name, msg := range header {
		if name == "__metadata__" {
			continue
		}

		var entry headerEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			return nil, fmt.Errorf("safetensors entry %q: %w", name, err)
		}

		meta := TensorMeta{
			Name:  name,
			DType: entry.DType,
			Shape: entry.Shape,
			start: entry.Offsets[0],
			end:   entry.Offsets[1],
		}

		size, err := dtypeSize(meta.DType)
		if err != nil {
			return nil, fmt.Errorf("safetensors entry %q: %w", name, err)
		}
		if n := elements(meta.Shape) * size; n != meta.end-meta.start {
			return nil, fmt.Errorf("safetensors entry %q: %d bytes for shape %v", name, meta.end-meta.start, meta.Shape)
		}

		file.tensors = append(file.tensors, meta)
	}

	slices.SortFunc(file.tensors, func(a, b TensorMeta) int {
		return int(a.start - b.start)
	})

	return file, nil
}

// Tensors gibt die Tensoren in Datei-Reihenfolge zurueck.
func (f *File) Tensors() []TensorMeta {
	return f.tensors
}

// ReadFloats liest einen Tensor und konvertiert ihn nach float32.
func (f *File) ReadFloats(meta TensorMeta) ([]float32, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw := make([]byte, meta.end-meta.start)
	if _, err := file.ReadAt(raw, f.dataOffset+meta.start); err != nil {
		return nil, fmt.Errorf("tensor %q: %w", meta.Name, err)
	}

	switch meta.DType {
	case "F32":
		values := make([]float32, len(raw)/4)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
		return values, nil
	case "F16":
		values := make([]float32, len(raw)/2)
		for i := range values {
			values[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
		return values, nil
	case "BF16":
		return bfloat16.DecodeFloat32(raw), nil
	default:
		return nil, fmt.Errorf("tensor %q: unsupported dtype %s", meta.Name, meta.DType)
	}
}

func elements(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}

func dtypeSize(dtype string) (int64, error) {
	switch dtype {
	case "F32":
		return 4, nil
	case "F16", "BF16":
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %s", dtype)
	}
}
