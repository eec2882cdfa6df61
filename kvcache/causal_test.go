// causal_test.go - Unit Tests fuer den Key/Value-Cache
package kvcache

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/backend/cpu"
)

func testCache(t *testing.T, batchSize, numHeads, headDim int) (*Causal, ml.Context) {
	t.Helper()

	c := NewCausalCache()
	c.Init(nil, ml.DTypeF32, batchSize, numHeads, headDim)
	t.Cleanup(c.Close)

	return c, cpu.Context{}
}

// TestPutGet prueft Einfuegen und Auslesen ueber mehrere Forward-Paesse
func TestPutGet(t *testing.T) {
	c, ctx := testCache(t, 2, 1, 1)

	if c.Len() != 0 {
		t.Fatalf("Len = %d, erwartet 0 vor dem ersten Put", c.Len())
	}

	if err := c.StartForward(ctx, 2, 2); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx,
		ctx.FromFloats([]float32{1, 2, 5, 6}, 1, 1, 2, 2),
		ctx.FromFloats([]float32{101, 102, 105, 106}, 1, 1, 2, 2))

	if c.Len() != 2 {
		t.Fatalf("Len = %d, erwartet 2", c.Len())
	}

	if err := c.StartForward(ctx, 2, 1); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx,
		ctx.FromFloats([]float32{3, 7}, 1, 1, 1, 2),
		ctx.FromFloats([]float32{103, 107}, 1, 1, 1, 2))

	key, value := c.Get(ctx)

	if diff := cmp.Diff([]int{1, 1, 3, 2}, key.Shape()); diff != "" {
		t.Errorf("Key-Shape unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{1, 2, 3, 5, 6, 7}, key.Floats()); diff != "" {
		t.Errorf("Keys unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{101, 102, 103, 105, 106, 107}, value.Floats()); diff != "" {
		t.Errorf("Values unerwartet (-want +got):\n%s", diff)
	}
}

// TestLayersIndependent prueft, dass Layer getrennte Historien fuehren
func TestLayersIndependent(t *testing.T) {
	c, ctx := testCache(t, 1, 1, 1)

	if err := c.StartForward(ctx, 1, 1); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx, ctx.FromFloats([]float32{1}, 1, 1, 1, 1), ctx.FromFloats([]float32{2}, 1, 1, 1, 1))

	c.SetLayer(1)
	c.Put(ctx, ctx.FromFloats([]float32{3}, 1, 1, 1, 1), ctx.FromFloats([]float32{4}, 1, 1, 1, 1))

	c.SetLayer(0)
	key, value := c.Get(ctx)
	if key.Floats()[0] != 1 || value.Floats()[0] != 2 {
		t.Errorf("Layer 0 = (%v, %v), erwartet (1, 2)", key.Floats()[0], value.Floats()[0])
	}

	c.SetLayer(1)
	key, value = c.Get(ctx)
	if key.Floats()[0] != 3 || value.Floats()[0] != 4 {
		t.Errorf("Layer 1 = (%v, %v), erwartet (3, 4)", key.Floats()[0], value.Floats()[0])
	}
}

// TestPutInconsistentBatch prueft die Panik bei abweichender Token-Anzahl
func TestPutInconsistentBatch(t *testing.T) {
	c, ctx := testCache(t, 1, 1, 1)

	if err := c.StartForward(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Put mit falscher Token-Anzahl muss panicen")
		}
	}()

	c.SetLayer(0)
	c.Put(ctx, ctx.FromFloats([]float32{1}, 1, 1, 1, 1), ctx.FromFloats([]float32{2}, 1, 1, 1, 1))
}

// TestPutInconsistentGeometry prueft die Panik bei falscher Kopf-Geometrie
func TestPutInconsistentGeometry(t *testing.T) {
	c, ctx := testCache(t, 1, 2, 4)

	if err := c.StartForward(ctx, 1, 1); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Put mit falscher Kopf-Geometrie muss panicen")
		}
	}()

	c.SetLayer(0)
	c.Put(ctx, ctx.Zeros(ml.DTypeF32, 4, 1, 1, 1), ctx.Zeros(ml.DTypeF32, 4, 1, 1, 1))
}

// TestStartForwardBatchMismatch prueft den Fehler bei falscher Batch-Groesse
func TestStartForwardBatchMismatch(t *testing.T) {
	c, ctx := testCache(t, 2, 1, 1)

	err := c.StartForward(ctx, 3, 1)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("StartForward mit falscher Batch-Groesse = %v, erwartet ErrShapeMismatch", err)
	}
}

// TestShiftRight prueft die rechtsbuendige Ausrichtung pro Zeile
func TestShiftRight(t *testing.T) {
	c, ctx := testCache(t, 2, 1, 1)

	if err := c.StartForward(ctx, 2, 3); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx,
		ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 1, 1, 3, 2),
		ctx.FromFloats([]float32{101, 102, 103, 104, 105, 106}, 1, 1, 3, 2))

	// Zeile 0: zwei gueltige Eintraege rotieren ans Ende, Zeile 1 bleibt
	if err := c.ShiftRight(ctx, []int32{2, 3}); err != nil {
		t.Fatal(err)
	}

	key, value := c.Get(ctx)

	if diff := cmp.Diff([]float32{3, 1, 2, 4, 5, 6}, key.Floats()); diff != "" {
		t.Errorf("Keys nach ShiftRight unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{103, 101, 102, 104, 105, 106}, value.Floats()); diff != "" {
		t.Errorf("Values nach ShiftRight unerwartet (-want +got):\n%s", diff)
	}

	if c.Len() != 3 {
		t.Errorf("Len nach ShiftRight = %d, erwartet 3", c.Len())
	}
}

// TestShiftRightZero prueft, dass eine Rotation um 0 nichts veraendert
func TestShiftRightZero(t *testing.T) {
	c, ctx := testCache(t, 1, 1, 2)

	if err := c.StartForward(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx,
		ctx.FromFloats([]float32{1, 2, 3, 4}, 2, 1, 2, 1),
		ctx.FromFloats([]float32{5, 6, 7, 8}, 2, 1, 2, 1))

	if err := c.ShiftRight(ctx, []int32{0}); err != nil {
		t.Fatal(err)
	}

	key, _ := c.Get(ctx)
	if diff := cmp.Diff([]float32{1, 2, 3, 4}, key.Floats()); diff != "" {
		t.Errorf("Keys nach Null-Rotation unerwartet (-want +got):\n%s", diff)
	}
}

// TestShiftRightValidation prueft die Fehlerfaelle von ShiftRight
func TestShiftRightValidation(t *testing.T) {
	c, ctx := testCache(t, 2, 1, 1)

	if err := c.StartForward(ctx, 2, 2); err != nil {
		t.Fatal(err)
	}

	c.SetLayer(0)
	c.Put(ctx,
		ctx.FromFloats([]float32{1, 2, 3, 4}, 1, 1, 2, 2),
		ctx.FromFloats([]float32{5, 6, 7, 8}, 1, 1, 2, 2))

	if err := c.ShiftRight(ctx, []int32{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("ShiftRight mit falscher Zeilenzahl = %v, erwartet ErrShapeMismatch", err)
	}

	if err := c.ShiftRight(ctx, []int32{1, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("ShiftRight ueber die Cache-Laenge hinaus = %v, erwartet ErrShapeMismatch", err)
	}
}

// TestSeed prueft das Vorbefuellen eines Layers vor dem ersten Forward Pass
func TestSeed(t *testing.T) {
	c, ctx := testCache(t, 2, 1, 1)

	c.SetLayer(0)
	if err := c.Seed(ctx, 0,
		ctx.FromFloats([]float32{10, 11, 20, 21}, 1, 1, 2, 2),
		ctx.FromFloats([]float32{110, 111, 120, 121}, 1, 1, 2, 2)); err != nil {
		t.Fatal(err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len nach Seed = %d, erwartet 2", c.Len())
	}

	if err := c.StartForward(ctx, 2, 1); err != nil {
		t.Fatal(err)
	}

	c.Put(ctx,
		ctx.FromFloats([]float32{12, 22}, 1, 1, 1, 2),
		ctx.FromFloats([]float32{112, 122}, 1, 1, 1, 2))

	key, _ := c.Get(ctx)
	if diff := cmp.Diff([]float32{10, 11, 12, 20, 21, 22}, key.Floats()); diff != "" {
		t.Errorf("Keys nach Seed und Put unerwartet (-want +got):\n%s", diff)
	}

	// Ein zweites Seed auf denselben Layer ist nicht erlaubt
	err := c.Seed(ctx, 0,
		ctx.Zeros(ml.DTypeF32, 1, 1, 2, 2),
		ctx.Zeros(ml.DTypeF32, 1, 1, 2, 2))
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("Seed auf befuellten Layer = %v, erwartet ErrNotSupported", err)
	}
}

// TestSeedShapeMismatch prueft die Geometrie-Pruefung von Seed
func TestSeedShapeMismatch(t *testing.T) {
	c, ctx := testCache(t, 2, 4, 8)

	err := c.Seed(ctx, 0,
		ctx.Zeros(ml.DTypeF32, 8, 2, 3, 2),
		ctx.Zeros(ml.DTypeF32, 8, 2, 3, 2))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Seed mit falscher Kopfzahl = %v, erwartet ErrShapeMismatch", err)
	}
}
