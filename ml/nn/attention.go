package nn

import (
	"fmt"

	"github.com/peftlab/peftllama/ml"
)

// Attention implements scaled dot-product attention: softmax(q·kᵀ·scale + mask)·v.
//
// Shapes follow the backend layout:
//
//	query:  (d_k, heads, seq_len_q, batch)
//	key:    (d_k, kv_heads, seq_len_k, batch)
//	value:  (d_v, kv_heads, seq_len_k, batch)
//	mask:   additive, broadcastable to (seq_len_k, seq_len_q, heads, batch)
//
// The result has shape (d_v, heads, seq_len_q, batch). Callers own any
// cache interaction; key and value are attended exactly as passed.
func Attention(ctx ml.Context, query, key, value, mask ml.Tensor, scale float64) ml.Tensor {
	if query.Dim(0) != key.Dim(0) {
		panic(fmt.Errorf("d_k in attention operation does not match between query(%v) and key(%v)", query.Dim(0), key.Dim(0)))
	}

	if key.Dim(1) != value.Dim(1) {
		panic(fmt.Errorf("kv heads in attention operation does not match between key(%v) and value(%v)", key.Dim(1), value.Dim(1)))
	}

	if key.Dim(2) != value.Dim(2) {
		panic(fmt.Errorf("seq_len_k in attention operation does not match between key(%v) and value(%v)", key.Dim(2), value.Dim(2)))
	}

	if sdpa, ok := query.(ml.ScaledDotProductAttention); ok {
		return sdpa.ScaledDotProductAttention(ctx, key, value, mask, scale)
	}

	query = query.Permute(ctx, 0, 2, 1, 3)
	key = key.Permute(ctx, 0, 2, 1, 3)
	value = value.Permute(ctx, 1, 2, 0, 3).Contiguous(ctx)

	kq := key.MulmatFullPrec(ctx, query)

	kq = kq.Scale(ctx, scale)
	if mask != nil {
		kq = kq.Add(ctx, mask)
	}
	kq = kq.Softmax(ctx)

	kqv := value.Mulmat(ctx, kq)
	return kqv.Permute(ctx, 0, 2, 1, 3).Contiguous(ctx)
}
