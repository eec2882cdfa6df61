// Modul: mask.go
// Beschreibung: Attention-Masken und Rope-Positions-IDs
// Hauptstrukturen:
//   - causalMask: Kausale Maske fuer volle Sequenzen, optional mit
//     frei attendierbaren Prefix-Spalten
//   - generationStepMask: Einzeilige Maske fuer Dekodier-Schritte
//   - ropePositions: Positions-IDs mit Padding-Sentinel

package llama

import (
	"github.com/peftlab/peftllama/ml"
)

// causalMask baut eine additive Maske der Form (prefixLen+seqLen, seqLen).
// Query q darf die Keys 0..prefixLen+q sehen; alles dahinter erhaelt den
// negativsten endlichen Wert des dtypes, nie -Inf. Padding-Positionen
// bleiben attendierbar, die Maske haengt nur von den Laengen ab.
func causalMask(ctx ml.Context, seqLen, prefixLen int, dtype ml.DType) ml.Tensor {
	blocked := dtype.MinFinite()
	keyLen := prefixLen + seqLen

	data := make([]float32, keyLen*seqLen)
	for q := range seqLen {
		for k := prefixLen + q + 1; k < keyLen; k++ {
			data[q*keyLen+k] = blocked
		}
	}

	return ctx.Input().FromFloats(data, keyLen, seqLen)
}

// generationStepMask baut die Maske eines einzelnen Dekodier-Schritts:
// (totalSeq, 1, 1, batch), pro Zeile sind nur die letzten numValid[i]
// Spalten des rechtsbuendigen Caches attendierbar.
func generationStepMask(ctx ml.Context, totalSeq int, numValid []int32, dtype ml.DType) ml.Tensor {
	blocked := dtype.MinFinite()

	data := make([]float32, totalSeq*len(numValid))
	for i, valid := range numValid {
		row := data[i*totalSeq : (i+1)*totalSeq]
		for k := range totalSeq - int(valid) {
			row[k] = blocked
		}
	}

	return ctx.Input().FromFloats(data, totalSeq, 1, 1, len(numValid))
}

// ropePositions berechnet die Rope-Positions-IDs eines gepaddeten Batches,
// zeilenweise flach. Gueltige Tokens zaehlen fortlaufend ab offset;
// Padding-Tokens erhalten den Sentinel (maskiert, ihr Rotationswert geht
// nie in die Ausgabe ein).
func ropePositions(rows [][]int32, padID, sentinel, offset int32) []int32 {
	var positions []int32
	for _, row := range rows {
		n := offset
		for _, id := range row {
			if id == padID {
				positions = append(positions, sentinel)
			} else {
				positions = append(positions, n)
				n++
			}
		}
	}
	return positions
}

// extendPositions stellt jedem Batch-Eintrag die strukturellen
// Prompt-Positionen 0..promptLen-1 voran. positions ist zeilenweise flach
// mit seqLen Eintraegen pro Zeile.
func extendPositions(positions []int32, seqLen, promptLen int) []int32 {
	batchSize := len(positions) / seqLen
	extended := make([]int32, 0, batchSize*(promptLen+seqLen))
	for b := range batchSize {
		for p := range promptLen {
			extended = append(extended, int32(p))
		}
		extended = append(extended, positions[b*seqLen:(b+1)*seqLen]...)
	}
	return extended
}
