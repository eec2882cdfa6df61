// tensor_test.go - Unit Tests fuer die Tensor-Operationen des CPU-Backends
package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/peftlab/peftllama/ml"
)

// TestMulmat prueft die ggml-Vertragsform: a (K, M) mal b (K, N) ergibt
// (M, N) mit out[n][m] = dot(a-Zeile m, b-Zeile n)
func TestMulmat(t *testing.T) {
	ctx := Context{}

	a := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := ctx.FromFloats([]float32{1, 1, 2, -1}, 2, 2)

	out := a.Mulmat(ctx, b)

	if diff := cmp.Diff([]int{3, 2}, out.Shape()); diff != "" {
		t.Errorf("Shape unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{3, 7, 11, 0, 2, 4}, out.Floats()); diff != "" {
		t.Errorf("Mulmat unerwartet (-want +got):\n%s", diff)
	}
}

// TestMulmatBroadcast prueft, dass a ueber die Batch-Dimensionen von b
// gebroadcastet wird
func TestMulmatBroadcast(t *testing.T) {
	ctx := Context{}

	a := ctx.FromFloats([]float32{2, 3}, 2, 1)
	b := ctx.FromFloats([]float32{1, 1, 10, 20}, 2, 1, 2)

	out := a.Mulmat(ctx, b)

	if diff := cmp.Diff([]int{1, 1, 2}, out.Shape()); diff != "" {
		t.Errorf("Shape unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{5, 80}, out.Floats()); diff != "" {
		t.Errorf("Mulmat unerwartet (-want +got):\n%s", diff)
	}
}

// TestMulmatQuantized prueft das Q8_0-Skalarprodukt. Die Zeilen sind so
// gewaehlt, dass der Skalierungsfaktor exakt 1 ist und die Quantisierung
// verlustfrei bleibt.
func TestMulmatQuantized(t *testing.T) {
	ctx := Context{}

	vals := make([]float32, 64)
	vals[0], vals[1], vals[2], vals[3] = 127, -127, 2, 3
	vals[32], vals[63] = -127, 1

	a := ctx.FromFloats(vals, 32, 2).Cast(ctx, ml.DTypeQ80)

	ones := make([]float32, 32)
	for i := range ones {
		ones[i] = 1
	}
	b := ctx.FromFloats(ones, 32, 1)

	out := a.Mulmat(ctx, b)

	if diff := cmp.Diff([]int{2, 1}, out.Shape()); diff != "" {
		t.Errorf("Shape unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{5, -126}, out.Floats()); diff != "" {
		t.Errorf("Mulmat unerwartet (-want +got):\n%s", diff)
	}
}

// TestSoftmax prueft Zeilennormalisierung und numerische Stabilitaet bei
// grossen Eingaben
func TestSoftmax(t *testing.T) {
	ctx := Context{}

	out := ctx.FromFloats([]float32{0, 0, 0, 10000}, 2, 2).Softmax(ctx)

	if diff := cmp.Diff([]float32{0.5, 0.5, 0, 1}, out.Floats()); diff != "" {
		t.Errorf("Softmax unerwartet (-want +got):\n%s", diff)
	}
}

// TestRMSNorm prueft die Zeilennormalisierung mit Gewichtsskalierung
func TestRMSNorm(t *testing.T) {
	ctx := Context{}

	x := ctx.FromFloats([]float32{2, 2, 0, 4}, 2, 2)
	w := ctx.FromFloats([]float32{2, 1}, 2)

	out := x.RMSNorm(ctx, w, 0)

	want := []float32{2, 1, 0, 1.4142135}
	if diff := cmp.Diff(want, out.Floats(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("RMSNorm unerwartet (-want +got):\n%s", diff)
	}
}

// TestSILU prueft x*sigmoid(x) einzeln und mit fusionierter
// Up-Multiplikation
func TestSILU(t *testing.T) {
	ctx := Context{}

	x := ctx.FromFloats([]float32{0, 1, -1}, 3)

	out := x.SILU(ctx)
	want := []float32{0, 0.7310586, -0.26894143}
	if diff := cmp.Diff(want, out.Floats(), cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("SILU unerwartet (-want +got):\n%s", diff)
	}

	up := ctx.FromFloats([]float32{2, 10, -3}, 3)
	fused := x.SILU(ctx, up)
	wantFused := []float32{0, 7.310586, 0.8068243}
	if diff := cmp.Diff(wantFused, fused.Floats(), cmpopts.EquateApprox(0, 1e-5)); diff != "" {
		t.Errorf("SILU mit Up unerwartet (-want +got):\n%s", diff)
	}
}

// TestPermute prueft die Achsenumordnung fuer die Transposition und fuer
// die Attention-Umordnung 0,2,1,3
func TestPermute(t *testing.T) {
	ctx := Context{}

	got := ctx.FromFloats([]float32{1, 2, 3, 4}, 2, 2).Permute(ctx, 1, 0)
	if diff := cmp.Diff([]float32{1, 3, 2, 4}, got.Floats()); diff != "" {
		t.Errorf("Transposition unerwartet (-want +got):\n%s", diff)
	}

	heads := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 2, 2, 2).Permute(ctx, 0, 2, 1, 3)
	if diff := cmp.Diff([]int{2, 2, 2}, heads.Shape()); diff != "" {
		t.Errorf("Shape unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 5, 6, 3, 4, 7, 8}, heads.Floats()); diff != "" {
		t.Errorf("Attention-Permute unerwartet (-want +got):\n%s", diff)
	}
}

// TestRows prueft das Einsammeln von Embedding-Zeilen anhand von
// Token-Indizes
func TestRows(t *testing.T) {
	ctx := Context{}

	table := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	ids := ctx.FromInts([]int32{2, 0, 1, 1}, 2, 2)

	out := table.Rows(ctx, ids)

	if diff := cmp.Diff([]int{2, 2, 2}, out.Shape()); diff != "" {
		t.Errorf("Shape unerwartet (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]float32{5, 6, 1, 2, 3, 4, 3, 4}, out.Floats()); diff != "" {
		t.Errorf("Rows unerwartet (-want +got):\n%s", diff)
	}
}

// TestSliceRepeatConcat prueft die Form-Operationen, die der Cache und die
// Rope-Anwendung verwenden
func TestSliceRepeatConcat(t *testing.T) {
	ctx := Context{}

	x := ctx.FromFloats([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	tail := x.Slice(ctx, 1, 1, 3, 1)
	if diff := cmp.Diff([]float32{3, 4, 5, 6}, tail.Floats()); diff != "" {
		t.Errorf("Slice unerwartet (-want +got):\n%s", diff)
	}

	strided := x.Slice(ctx, 1, 0, 3, 2)
	if diff := cmp.Diff([]float32{1, 2, 5, 6}, strided.Floats()); diff != "" {
		t.Errorf("Slice mit Schrittweite unerwartet (-want +got):\n%s", diff)
	}

	rep := ctx.FromFloats([]float32{1, 2}, 2).Repeat(ctx, 1, 2)
	if diff := cmp.Diff([]int{2, 2}, rep.Shape()); diff != "" {
		t.Errorf("Repeat-Shape unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 1, 2}, rep.Floats()); diff != "" {
		t.Errorf("Repeat unerwartet (-want +got):\n%s", diff)
	}

	appended := ctx.FromFloats([]float32{1, 2}, 2, 1).Concat(ctx, ctx.FromFloats([]float32{3, 4, 5, 6}, 2, 2), 1)
	if diff := cmp.Diff([]int{2, 3}, appended.Shape()); diff != "" {
		t.Errorf("Concat-Shape unerwartet (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, appended.Floats()); diff != "" {
		t.Errorf("Concat unerwartet (-want +got):\n%s", diff)
	}
}

// TestAddBroadcast prueft das Broadcasting von Zeilen und Skalaren
func TestAddBroadcast(t *testing.T) {
	ctx := Context{}

	a := ctx.FromFloats([]float32{1, 2, 3, 4}, 2, 2)

	row := a.Add(ctx, ctx.FromFloats([]float32{10, 20}, 2))
	if diff := cmp.Diff([]float32{11, 22, 13, 24}, row.Floats()); diff != "" {
		t.Errorf("Zeilen-Broadcast unerwartet (-want +got):\n%s", diff)
	}

	scalar := a.Add(ctx, ctx.FromFloats([]float32{100}, 1))
	if diff := cmp.Diff([]float32{101, 102, 103, 104}, scalar.Floats()); diff != "" {
		t.Errorf("Skalar-Broadcast unerwartet (-want +got):\n%s", diff)
	}

	scaled := a.Scale(ctx, 0.5)
	if diff := cmp.Diff([]float32{0.5, 1, 1.5, 2}, scaled.Floats()); diff != "" {
		t.Errorf("Scale unerwartet (-want +got):\n%s", diff)
	}
}

// TestCastF16 prueft die wertgenaue f16-Rundung. 2049 liegt genau zwischen
// zwei f16-Werten und rundet zur geraden Mantisse.
func TestCastF16(t *testing.T) {
	ctx := Context{}

	h := ctx.FromFloats([]float32{1, 0.1, 2049}, 3).Cast(ctx, ml.DTypeF16)

	if h.DType() != ml.DTypeF16 {
		t.Fatalf("DType = %v, erwartet F16", h.DType())
	}

	want := []float32{1, 0.0999755859375, 2048}
	if diff := cmp.Diff(want, h.Floats()); diff != "" {
		t.Errorf("f16-Rundung unerwartet (-want +got):\n%s", diff)
	}

	back := h.Cast(ctx, ml.DTypeF32)
	if back.DType() != ml.DTypeF32 {
		t.Fatalf("DType = %v, erwartet F32", back.DType())
	}
	if diff := cmp.Diff(want, back.Floats()); diff != "" {
		t.Errorf("Ruecktransformation unerwartet (-want +got):\n%s", diff)
	}
}

// TestCastQ80Roundtrip prueft eine verlustfreie Quantisierungsrunde:
// ganzzahlige Werte mit Betragsmaximum 127 ergeben den Skalierungsfaktor 1
func TestCastQ80Roundtrip(t *testing.T) {
	ctx := Context{}

	vals := make([]float32, 32)
	vals[0], vals[1] = 127, -127
	for i := 2; i < 32; i++ {
		vals[i] = float32(i)
	}

	q := ctx.FromFloats(vals, 32).Cast(ctx, ml.DTypeQ80)

	if q.DType() != ml.DTypeQ80 {
		t.Fatalf("DType = %v, erwartet Q80", q.DType())
	}

	if diff := cmp.Diff(vals, q.Floats()); diff != "" {
		t.Errorf("Quantisierungsrunde unerwartet (-want +got):\n%s", diff)
	}

	f := q.Cast(ctx, ml.DTypeF32)
	if diff := cmp.Diff(vals, f.Floats()); diff != "" {
		t.Errorf("Dequantisierung unerwartet (-want +got):\n%s", diff)
	}
}
