package seglink

import (
	"fmt"

	"github.com/MeKo-Tech/textdet/internal/onnx"
)

// Channel counts of the three per-level tensors.
const (
	clsChannels = 2
	lnkGroup    = 4
	regChannels = 6
)

// LevelTensors are the raw outputs of one feature level, NHWC with N = 1.
type LevelTensors struct {
	Cls onnx.Tensor `json:"cls"`
	Lnk onnx.Tensor `json:"lnk"`
	Reg onnx.Tensor `json:"reg"`
}

// Output is everything the decoder needs for one image.
type Output struct {
	Levels []LevelTensors `json:"levels"`
	// InputWidth and InputHeight are the network input size.
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`
	// PadSide is the side of the zero-padded square the input was resized from.
	PadSide int `json:"pad_side"`
	// ImageWidth and ImageHeight are the original image size.
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`
}

// Validate checks the sizes carried next to the tensors.
func (o Output) Validate() error {
	if o.InputWidth <= 0 || o.InputHeight <= 0 {
		return fmt.Errorf("%w: input size %dx%d", onnx.ErrShapeMismatch, o.InputWidth, o.InputHeight)
	}
	if o.PadSide <= 0 || o.ImageWidth <= 0 || o.ImageHeight <= 0 {
		return fmt.Errorf("%w: pad side %d, image size %dx%d",
			onnx.ErrShapeMismatch, o.PadSide, o.ImageWidth, o.ImageHeight)
	}
	return nil
}

// OutputNames returns the model output names in the order SplitBatch
// expects: cls, lnk, reg for each level.
func OutputNames() []string {
	names := make([]string, 0, 3*NumLevels)
	for l := range NumLevels {
		for _, kind := range []string{"cls", "lnk", "reg"} {
			names = append(names, fmt.Sprintf("dete_%d/conv_%s/BiasAdd:0", l, kind))
		}
	}
	return names
}

// SplitBatch regroups batched model outputs, given as cls, lnk, reg per
// level, into per-image level lists. Every tensor must be [N,H,W,C] with the
// same N.
func SplitBatch(tensors []onnx.Tensor) ([][]LevelTensors, error) {
	if len(tensors) == 0 || len(tensors)%3 != 0 {
		return nil, fmt.Errorf("%w: expected a multiple of 3 tensors, got %d", onnx.ErrShapeMismatch, len(tensors))
	}
	n := -1
	for i, t := range tensors {
		dims, err := t.Dims(4)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		if n < 0 {
			n = dims[0]
		} else if dims[0] != n {
			return nil, fmt.Errorf("%w: tensor %d has batch %d, want %d", onnx.ErrShapeMismatch, i, dims[0], n)
		}
	}

	levels := len(tensors) / 3
	out := make([][]LevelTensors, n)
	for b := range n {
		out[b] = make([]LevelTensors, levels)
		for l := range levels {
			var parts [3]onnx.Tensor
			for k := range 3 {
				item, err := tensors[3*l+k].Batch(b)
				if err != nil {
					return nil, err
				}
				parts[k] = item
			}
			out[b][l] = LevelTensors{Cls: parts[0], Lnk: parts[1], Reg: parts[2]}
		}
	}
	return out, nil
}
