// quant.go - Q8_0 Block-Quantisierung
// Enthält: blockQ80, quantizeQ80, dequantizeQ80, dotQ80

package cpu

import (
	"github.com/chewxy/math32"
	"github.com/x448/float16"
)

// blockSize ist die Anzahl der Gewichte pro Q8_0-Block.
const blockSize = 32

// blockQ80 speichert 32 Gewichte als int8 mit einem gemeinsamen
// f16-Skalierungsfaktor, im ggml Q8_0-Layout.
type blockQ80 struct {
	scale float16.Float16
	qs    [blockSize]int8
}

func quantizeQ80(src []float32, dst []blockQ80) {
	for i := range dst {
		vals := src[i*blockSize : (i+1)*blockSize]

		var amax float32
		for _, v := range vals {
			if a := math32.Abs(v); a > amax {
				amax = a
			}
		}

		d := amax / 127
		var id float32
		if d != 0 {
			id = 1 / d
		}

		dst[i].scale = float16.Fromfloat32(d)
		for j, v := range vals {
			dst[i].qs[j] = int8(math32.Round(v * id))
		}
	}
}

func dequantizeQ80(src []blockQ80, dst []float32) {
	for i, b := range src {
		d := b.scale.Float32()
		for j, q := range b.qs {
			dst[i*blockSize+j] = d * float32(q)
		}
	}
}

// dotQ80 bildet das Skalarprodukt einer Q8_0-Zeile mit einem f32-Vektor.
func dotQ80(blocks []blockQ80, v []float32) float32 {
	var total float64
	for i, b := range blocks {
		var sum float32
		base := i * blockSize
		for j, q := range b.qs {
			sum += float32(q) * v[base+j]
		}
		total += float64(b.scale.Float32()) * float64(sum)
	}
	return float32(total)
}

// roundF16 rundet einen f32-Wert auf die naechste f16-darstellbare Zahl.
func roundF16(v float32) float32 {
	return float16.Fromfloat32(v).Float32()
}
