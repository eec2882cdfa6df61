// Modul: generate.go
// Beschreibung: Scoring und schrittweise Generierung
// Hauptstrukturen:
//   - Score: Ein einzelner voller Vorwaertsdurchlauf, liefert Logits
//   - Generate: Prime/Align/Step-Zustandsmaschine mit KV-Cache
//
// Der Cache gehoert exklusiv einem Aufruf: er wird hier angelegt und am
// Ende geschlossen, nie zwischen Aufrufen geteilt.

package llama

import (
	"errors"
	"fmt"

	"github.com/peftlab/peftllama/kvcache"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/model"
	"github.com/peftlab/peftllama/model/input"
)

// Score fuehrt einen vollen Vorwaertsdurchlauf ueber die gegebenen
// Sequenzen aus und liefert die Logits (vocab, seq, batch). Kuerzere
// Zeilen werden rechts mit dem Pad-Token aufgefuellt. Bei aktivem
// Prompt-Tuning deckt die Sequenzachse auch die vorangestellten
// virtuellen Positionen ab.
func (m *Model) Score(ctx ml.Context, prompts [][]int32) (ml.Tensor, error) {
	if len(prompts) == 0 {
		return nil, errors.New("score needs at least one sequence")
	}

	rows, seqLen := padRows(prompts, m.padID)
	if seqLen == 0 {
		return nil, errors.New("score needs at least one token")
	}

	cache, err := m.newCache(ctx, len(rows))
	if err != nil {
		return nil, err
	}
	if cache != nil {
		defer cache.Close()
	}

	batch := input.Batch{
		Inputs:    m.inputTensor(ctx, rows, seqLen),
		Positions: ropePositions(rows, m.padID, int32(m.maxSequenceLength-1), int32(m.Prompt.PromptLength())),
		Mask:      m.primeMask(ctx, seqLen),
		Cache:     cache,
		NumTokens: seqLen,
	}

	return model.Forward(ctx, m, batch)
}

// Generate erzeugt generationLength neue Tokens pro Prompt per Greedy-
// Argmax und liefert pro Zeile prompt ++ generierte Tokens. Der Ablauf:
// ein Prime-Durchlauf ueber den vollen Prompt, eine einmalige
// Rechtsausrichtung des Caches, danach Einzeltoken-Schritte gegen den
// vollen Cache.
func (m *Model) Generate(ctx ml.Context, prompts [][]int32, generationLength int) ([][]int32, error) {
	if generationLength <= 0 {
		return nil, fmt.Errorf("generation length must be positive, got %d", generationLength)
	}
	if len(prompts) == 0 {
		return nil, errors.New("generate needs at least one prompt")
	}

	rows, seqLen := padRows(prompts, m.padID)
	batchSize := len(rows)

	numValid := make([]int32, batchSize)
	for i, row := range rows {
		numValid[i] = countValid(row, m.padID)
		if numValid[i] == 0 {
			return nil, fmt.Errorf("prompt %d has no valid tokens", i)
		}
	}

	cache := kvcache.NewCausalCache()
	cache.Init(m.Backend(), m.dtype, batchSize, m.numHeads, m.headDim)
	defer cache.Close()

	structuralLen := m.structuralLength()
	if m.Prefix != nil {
		if err := m.seedPrefix(ctx, cache, batchSize); err != nil {
			return nil, err
		}
	}

	// Prime: der volle Prompt in einem Durchlauf. Das erste Token kommt
	// vom Argmax an der letzten gueltigen Position jeder Zeile, nicht an
	// der letzten Position der gepaddeten Sequenz.
	promptLen := m.Prompt.PromptLength()
	batch := input.Batch{
		Inputs:    m.inputTensor(ctx, rows, seqLen),
		Positions: ropePositions(rows, m.padID, int32(m.maxSequenceLength-1), int32(promptLen)),
		Mask:      m.primeMask(ctx, seqLen),
		Cache:     cache,
		NumTokens: promptLen + seqLen,
		Prime:     true,
	}

	logits, err := model.Forward(ctx, m, batch)
	if err != nil {
		return nil, err
	}

	generated := make([][]int32, batchSize)
	tokens := make([]int32, batchSize)
	values := logits.Floats()
	for i := range tokens {
		tokens[i] = argmax(values, m.vocabSize, logits.Dim(1), i, promptLen+int(numValid[i])-1)
		generated[i] = append(generated[i], tokens[i])
	}

	// Align: den Cache einmal rechtsbuendig ausrichten, inklusive der
	// strukturellen Eintraege der aktiven Variante
	valid := make([]int32, batchSize)
	for i := range valid {
		valid[i] = numValid[i] + int32(structuralLen)
	}
	if err := cache.ShiftRight(ctx, valid); err != nil {
		return nil, err
	}

	// Steps: ein Token pro Zeile gegen den vollen Cache. Pro Zeile sind
	// nur die letzten numValid Spalten attendierbar; die Rope-Position
	// des neuen Tokens ist numValid nach dem Inkrement.
	totalSeq := seqLen + structuralLen
	for step := 1; step < generationLength; step++ {
		for i := range numValid {
			numValid[i]++
		}
		totalSeq++

		positions := make([]int32, batchSize)
		copy(positions, numValid)

		batch := input.Batch{
			Inputs:    ctx.Input().FromInts(tokens, 1, batchSize),
			Positions: positions,
			Mask:      generationStepMask(ctx, totalSeq, numValid, m.dtype),
			Cache:     cache,
			NumTokens: 1,
		}

		logits, err := model.Forward(ctx, m, batch)
		if err != nil {
			return nil, err
		}

		next := make([]int32, batchSize)
		values := logits.Floats()
		for i := range next {
			next[i] = argmax(values, m.vocabSize, logits.Dim(1), i, logits.Dim(1)-1)
			generated[i] = append(generated[i], next[i])
		}
		tokens = next
	}

	out := make([][]int32, batchSize)
	for i, p := range prompts {
		out[i] = append(append([]int32{}, p...), generated[i]...)
	}
	return out, nil
}

// newCache liefert den Cache fuer einen Scoring-Durchlauf: bei aktivem
// Prefix-Tuning ein frisch mit den virtuellen Eintraegen gefuellter Cache,
// sonst nil.
func (m *Model) newCache(ctx ml.Context, batchSize int) (kvcache.Cache, error) {
	if m.Prefix == nil {
		return nil, nil
	}

	cache := kvcache.NewCausalCache()
	cache.Init(m.Backend(), m.dtype, batchSize, m.numHeads, m.headDim)
	if err := m.seedPrefix(ctx, cache, batchSize); err != nil {
		cache.Close()
		return nil, err
	}
	return cache, nil
}

// seedPrefix legt die gelernten Prefix-Eintraege in jeden Layer des Caches
func (m *Model) seedPrefix(ctx ml.Context, cache kvcache.Cache, batchSize int) error {
	for i := range m.Layers {
		key, value := m.Prefix.PrefixKV(ctx, i, batchSize)
		if err := cache.Seed(ctx, i, key, value); err != nil {
			return err
		}
	}
	return nil
}

// primeMask baut die Maske des vollen Durchlaufs: kausal ueber die
// Sequenz, bei Prefix-Tuning mit frei attendierbaren Spalten fuer die
// virtuellen Cache-Eintraege, bei Prompt-Tuning kausal ueber die
// verlaengerte Sequenz.
func (m *Model) primeMask(ctx ml.Context, seqLen int) ml.Tensor {
	if m.Prefix != nil {
		return causalMask(ctx, seqLen, m.Prefix.PrefixLength(), m.dtype)
	}
	if promptLen := m.Prompt.PromptLength(); promptLen > 0 {
		return causalMask(ctx, promptLen+seqLen, 0, m.dtype)
	}
	return causalMask(ctx, seqLen, 0, m.dtype)
}

// structuralLength zaehlt die virtuellen Cache-Eintraege der aktiven
// Variante, die vor den Token-Eintraegen jeder Zeile liegen
func (m *Model) structuralLength() int {
	if m.Prefix != nil {
		return m.Prefix.PrefixLength()
	}
	return m.Prompt.PromptLength()
}

func (m *Model) inputTensor(ctx ml.Context, rows [][]int32, seqLen int) ml.Tensor {
	flat := make([]int32, 0, len(rows)*seqLen)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return ctx.Input().FromInts(flat, seqLen, len(rows))
}

// padRows fuellt kuerzere Zeilen rechts mit dem Pad-Token auf eine
// gemeinsame Laenge auf
func padRows(prompts [][]int32, padID int32) ([][]int32, int) {
	var maxLen int
	for _, p := range prompts {
		maxLen = max(maxLen, len(p))
	}

	rows := make([][]int32, len(prompts))
	for i, p := range prompts {
		row := make([]int32, maxLen)
		for j := range row {
			row[j] = padID
		}
		copy(row, p)
		rows[i] = row
	}
	return rows, maxLen
}

func countValid(row []int32, padID int32) int32 {
	var n int32
	for _, id := range row {
		if id != padID {
			n++
		}
	}
	return n
}

// argmax liefert die Token-ID mit dem hoechsten Logit an einer Position.
// values ist der flache Logit-Puffer (vocab, seq, batch).
func argmax(values []float32, vocabSize, seqLen, row, position int) int32 {
	base := (row*seqLen + position) * vocabSize

	best := 0
	for i := 1; i < vocabSize; i++ {
		if values[base+i] > values[base+best] {
			best = i
		}
	}
	return int32(best)
}
