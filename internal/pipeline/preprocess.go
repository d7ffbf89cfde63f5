package pipeline

import (
	"errors"
	"image"
	"image/color"

	"github.com/MeKo-Tech/textdet/internal/mempool"
	"github.com/MeKo-Tech/textdet/internal/onnx"
	"github.com/MeKo-Tech/textdet/internal/utils"
)

// prepared is one image converted to a network input.
type prepared struct {
	tensor onnx.Tensor
	width  int
	height int
	// padSide is the side of the zero-padded square (SegLink input).
	padSide int
	// letterbox is set when the DB input was letterboxed.
	letterbox *utils.Letterbox
}

func (p prepared) release() { mempool.PutFloat32(p.tensor.Data) }

// prepareDB resizes img to size x size (or letterboxes it onto white),
// subtracts the channel mean, divides by 255 and lays it out as BGR [1,3,H,W].
func prepareDB(img image.Image, size int, letterbox bool) (prepared, error) {
	if img == nil {
		return prepared{}, errors.New("nil image")
	}
	b := img.Bounds()
	p := prepared{width: b.Dx(), height: b.Dy()}

	var input image.Image
	if letterbox {
		canvas, lb, err := utils.LetterboxImage(img, size, color.White)
		if err != nil {
			return prepared{}, err
		}
		input, p.letterbox = canvas, &lb
	} else {
		resized, err := utils.ResizeExact(img, size, size)
		if err != nil {
			return prepared{}, err
		}
		input = resized
	}

	data, w, h, err := utils.NormalizeNCHW(input, 1.0/255)
	if err != nil {
		return prepared{}, err
	}
	p.tensor = onnx.Tensor{Data: data, Shape: []int64{1, 3, int64(h), int64(w)}}
	return p, nil
}

// prepareSegLink pads img top-left to a square, resizes it to size x size,
// subtracts the channel mean and lays it out as BGR [1,H,W,3].
func prepareSegLink(img image.Image, size int) (prepared, error) {
	if img == nil {
		return prepared{}, errors.New("nil image")
	}
	b := img.Bounds()
	p := prepared{width: b.Dx(), height: b.Dy(), padSide: max(b.Dx(), b.Dy())}

	square, err := utils.PadSquare(img)
	if err != nil {
		return prepared{}, err
	}
	resized, err := utils.ResizeExact(square, size, size)
	if err != nil {
		return prepared{}, err
	}
	data, w, h, err := utils.NormalizeNHWC(resized, true)
	if err != nil {
		return prepared{}, err
	}
	p.tensor = onnx.Tensor{Data: data, Shape: []int64{1, int64(h), int64(w), 3}}
	return p, nil
}
