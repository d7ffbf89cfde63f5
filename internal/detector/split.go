package detector

import (
	"fmt"

	"github.com/MeKo-Tech/textdet/internal/onnx"
)

// SplitProbabilityMaps slices a batched model output of shape [N,1,H,W] or
// [N,H,W] into one map per image. Maps share the tensor's data.
func SplitProbabilityMaps(t onnx.Tensor) ([]ProbabilityMap, error) {
	var n, h, w int
	switch len(t.Shape) {
	case 4:
		dims, err := t.Dims(4)
		if err != nil {
			return nil, err
		}
		if dims[1] != 1 {
			return nil, fmt.Errorf("%w: expected 1 channel, got %d", onnx.ErrShapeMismatch, dims[1])
		}
		n, h, w = dims[0], dims[2], dims[3]
	case 3:
		dims, err := t.Dims(3)
		if err != nil {
			return nil, err
		}
		n, h, w = dims[0], dims[1], dims[2]
	default:
		return nil, fmt.Errorf("%w: probability output must be 3D or 4D, got shape %v", onnx.ErrShapeMismatch, t.Shape)
	}

	per := h * w
	maps := make([]ProbabilityMap, n)
	for i := range n {
		maps[i] = ProbabilityMap{Width: w, Height: h, Data: t.Data[i*per : (i+1)*per]}
	}
	return maps, nil
}
