package nn

import (
	"github.com/peftlab/peftllama/ml"
)

type Embedding struct {
	Weight ml.Tensor `st:"weight"`
}

func (m *Embedding) Forward(ctx ml.Context, hiddenState ml.Tensor) ml.Tensor {
	return m.Weight.Rows(ctx, hiddenState)
}
