package backend

import (
	_ "github.com/peftlab/peftllama/ml/backend/cpu"
)
