// dump_test.go - Unit Tests fuer die Tensor-Dump-Ausgabe
package ml_test

import (
	"testing"

	"github.com/peftlab/peftllama/ml"
	"github.com/peftlab/peftllama/ml/backend/cpu"
)

func TestDumpMatrix(t *testing.T) {
	ctx := cpu.Context{}

	got := ml.Dump(ctx, ctx.FromFloats([]float32{1, 2, -3, 4}, 2, 2))
	want := "[[ 1.0000, 2.0000],\n [-3.0000, 4.0000]]"

	if got != want {
		t.Errorf("Dump = %q, erwartet %q", got, want)
	}
}

func TestDumpInts(t *testing.T) {
	ctx := cpu.Context{}

	got := ml.Dump(ctx, ctx.FromInts([]int32{1, -2, 3}, 3))
	want := "[ 1, -2, 3]"

	if got != want {
		t.Errorf("Dump = %q, erwartet %q", got, want)
	}
}

// TestDumpEdgeItems prueft das Kuerzen langer Dimensionen auf die
// Randelemente
func TestDumpEdgeItems(t *testing.T) {
	ctx := cpu.Context{}

	vals := make([]float32, 10)
	for i := range vals {
		vals[i] = float32(i)
	}

	got := ml.Dump(ctx, ctx.FromFloats(vals, 10), ml.DumpWithThreshold(4))
	want := "[ 0.0000, 1.0000, 2.0000, ...,  7.0000, 8.0000, 9.0000]"

	if got != want {
		t.Errorf("Dump = %q, erwartet %q", got, want)
	}
}
