package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/textdet/internal/mempool"
	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ChannelMean is subtracted from the network input by output channel, which
// is B, G, R for both decoders.
var ChannelMean = [3]float32{123.68, 116.78, 103.94}

// PadSquare places img at the top-left corner of a black square whose side
// is max(width, height).
func PadSquare(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "pad", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())
	if side <= 0 {
		return nil, &ImageProcessingError{Operation: "pad", Err: errors.New("invalid image dimensions")}
	}
	background := imaging.New(side, side, color.Black)
	return imaging.Paste(background, img, image.Pt(0, 0)), nil
}

// ResizeExact stretches img to w x h ignoring aspect ratio.
func ResizeExact(img image.Image, w, h int) (*image.NRGBA, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if w <= 0 || h <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", w, h),
		}
	}
	return imaging.Resize(img, w, h, imaging.Linear), nil
}

// NormalizeNCHW writes planar BGR into a pooled buffer, subtracting
// ChannelMean per plane and multiplying by scale. Release it with
// mempool.PutFloat32.
func NormalizeNCHW(img image.Image, scale float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	plane := width * height
	tensor := mempool.GetFloat32(3 * plane)
	for y := range height {
		for x := range width {
			i := nrgba.PixOffset(x, y)
			idx := y*width + x
			for c := range 3 {
				tensor[c*plane+idx] = (float32(nrgba.Pix[i+2-c]) - ChannelMean[c]) * scale
			}
		}
	}
	return tensor, width, height, nil
}

// NormalizeNHWC writes interleaved pixels, reversed to BGR when bgr is set,
// and subtracts ChannelMean from each output channel.
func NormalizeNHWC(img image.Image, bgr bool) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}
	tensor := mempool.GetFloat32(3 * width * height)
	for y := range height {
		for x := range width {
			i := nrgba.PixOffset(x, y)
			o := (y*width + x) * 3
			for c := range 3 {
				src := c
				if bgr {
					src = 2 - c
				}
				tensor[o+c] = float32(nrgba.Pix[i+src]) - ChannelMean[c]
			}
		}
	}
	return tensor, width, height, nil
}

// Letterbox records how an image was fitted into a square canvas.
type Letterbox struct {
	OrigWidth, OrigHeight int
	Target                int
	Scale                 float64
	PadX, PadY            float64
}

// LetterboxImage resizes img to fit a target x target canvas keeping its
// aspect ratio and centers it on fill.
func LetterboxImage(img image.Image, target int, fill color.Color) (*image.NRGBA, Letterbox, error) {
	if img == nil {
		return nil, Letterbox{}, &ImageProcessingError{Operation: "letterbox", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	ow, oh := b.Dx(), b.Dy()
	if ow <= 0 || oh <= 0 || target <= 0 {
		return nil, Letterbox{}, &ImageProcessingError{
			Operation: "letterbox",
			Err:       fmt.Errorf("invalid dimensions: %dx%d -> %d", ow, oh, target),
		}
	}
	aspect := float64(ow) / float64(oh)
	nw, nh := target, target
	if aspect > 1 {
		nh = max(1, int(float64(target)/aspect))
	} else {
		nw = max(1, int(float64(target)*aspect))
	}
	resized := imaging.Resize(img, nw, nh, imaging.Box)
	px, py := (target-nw)/2, (target-nh)/2
	canvas := imaging.New(target, target, fill)
	canvas = imaging.Paste(canvas, resized, image.Pt(px, py))

	lb := Letterbox{
		OrigWidth:  ow,
		OrigHeight: oh,
		Target:     target,
		Scale:      float64(target) / float64(max(ow, oh)),
		PadX:       float64(px),
		PadY:       float64(py),
	}
	return canvas, lb, nil
}

// Unmap converts canvas polygons back to original image coordinates,
// clamped to [0,w-1]x[0,h-1]. Entries whose area collapses to zero come
// back nil so the result stays index-aligned with polys.
func (lb Letterbox) Unmap(polys [][]image.Point) [][]image.Point {
	out := make([][]image.Point, len(polys))
	for i, poly := range polys {
		mapped := make([]image.Point, len(poly))
		for j, p := range poly {
			x := int((float64(p.X) - lb.PadX) / lb.Scale)
			y := int((float64(p.Y) - lb.PadY) / lb.Scale)
			mapped[j] = image.Pt(clampInt(x, 0, lb.OrigWidth-1), clampInt(y, 0, lb.OrigHeight-1))
		}
		if PolygonAreaInt(mapped) <= 0 {
			continue
		}
		out[i] = mapped
	}
	return out
}
