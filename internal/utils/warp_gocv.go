//go:build gocv

package utils

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// WarpBackend names the resampler compiled into this binary.
const WarpBackend = "gocv"

// warpPerspective delegates to OpenCV's getPerspectiveTransform and
// warpPerspective with linear interpolation.
func warpPerspective(src image.Image, srcQuad, dstQuad [4]Point, dstW, dstH int) (image.Image, error) {
	// The homography solve doubles as the degenerate-quad check.
	if _, err := computeHomography(srcQuad, dstQuad); err != nil {
		return nil, err
	}

	in, err := gocv.ImageToMatRGBA(src)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer in.Close()

	srcVec := gocv.NewPoint2fVectorFromPoints(toPoint2f(srcQuad))
	defer srcVec.Close()
	dstVec := gocv.NewPoint2fVectorFromPoints(toPoint2f(dstQuad))
	defer dstVec.Close()

	m := gocv.GetPerspectiveTransform2f(srcVec, dstVec)
	defer m.Close()

	out := gocv.NewMat()
	defer out.Close()
	gocv.WarpPerspective(in, &out, m, image.Pt(dstW, dstH))

	img, err := out.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert warped mat: %w", err)
	}
	return img, nil
}

func toPoint2f(q [4]Point) []gocv.Point2f {
	out := make([]gocv.Point2f, len(q))
	for i, p := range q {
		out[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}
	return out
}
