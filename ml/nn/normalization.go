package nn

import (
	"github.com/peftlab/peftllama/ml"
)

type RMSNorm struct {
	Weight ml.Tensor `st:"weight"`
}

func (m *RMSNorm) Forward(ctx ml.Context, t ml.Tensor, eps float32) ml.Tensor {
	return t.RMSNorm(ctx, m.Weight, eps)
}
