// write.go - Schreiben von safetensors-Dateien

package safetensors

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// TensorData ist ein zu schreibender Tensor. Shape ist in torch-Konvention;
// Values sind zeilenweise (letzte Dimension zusammenhaengend) abgelegt.
type TensorData struct {
	Shape  []int64
	Values []float32
}

// Write schreibt die Tensoren in Einfuege-Reihenfolge als F32-Datei.
// Die Reihenfolge der Map bestimmt Header- und Datenlayout.
func Write(path string, tensors *orderedmap.OrderedMap[string, TensorData]) error {
	header := orderedmap.New[string, headerEntry]()
	var offset int64
	for pair := tensors.Oldest(); pair != nil; pair = pair.Next() {
		td := pair.Value
		if elements(td.Shape) != int64(len(td.Values)) {
			return fmt.Errorf("tensor %q: %d values for shape %v", pair.Key, len(td.Values), td.Shape)
		}

		size := int64(len(td.Values)) * 4
		header.Set(pair.Key, headerEntry{
			DType:   "F32",
			Shape:   td.Shape,
			Offsets: [2]int64{offset, offset + size},
		})
		offset += size
	}

	raw, err := json.Marshal(header)
	if err != nil {
		return err
	}
	// auf 8 Byte auffuellen, wie es die Referenzimplementierung tut
	for len(raw)%8 != 0 {
		raw = append(raw, ' ')
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(raw))); err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}

	var buf [4]byte
	for pair := tensors.Oldest(); pair != nil; pair = pair.Next() {
		for _, v := range pair.Value.Values {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
