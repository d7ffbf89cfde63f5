package utils

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateQuad is returned when a quadrilateral has no usable extent.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// CropPerspective cuts the quadrilateral out of img and resamples it into an
// upright chip whose size follows the distances between opposite edge
// midpoints. Quad coordinates are relative to img.Bounds().Min.
func CropPerspective(img image.Image, quad [4]Point) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	tl, tr, br, bl := cropCorners(quad)
	w, h := ChipSize(quad)
	dstW, dstH := int(w), int(h)
	if dstW < 1 || dstH < 1 {
		return nil, &ImageProcessingError{
			Operation: "crop",
			Err:       fmt.Errorf("%w: chip size %.2fx%.2f", ErrDegenerateQuad, w, h),
		}
	}

	// Corners land on pixel centers of the first and last column/row.
	dst := [4]Point{
		{0, 0},
		{w - 1, 0},
		{w - 1, h - 1},
		{0, h - 1},
	}
	out, err := warpPerspective(img, [4]Point{tl, tr, br, bl}, dst, dstW, dstH)
	if err != nil {
		return nil, &ImageProcessingError{Operation: "crop", Err: err}
	}
	return out, nil
}

// ChipSize returns the width and height CropPerspective would produce.
func ChipSize(quad [4]Point) (float64, float64) {
	tl, tr, br, bl := cropCorners(quad)
	w := dist(mid(tl, bl), mid(tr, br))
	h := dist(mid(tl, tr), mid(bl, br))
	return w, h
}

// cropCorners sorts by x, then orders each side's pair by y.
func cropCorners(quad [4]Point) (tl, tr, br, bl Point) {
	p := quad
	sort.SliceStable(p[:], func(i, j int) bool { return p[i].X < p[j].X })
	if p[0].Y > p[1].Y {
		p[0], p[1] = p[1], p[0]
	}
	if p[2].Y > p[3].Y {
		p[2], p[3] = p[3], p[2]
	}
	return p[0], p[2], p[3], p[1]
}

func mid(a, b Point) Point { return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2} }

func dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// computeHomography solves the 3x3 matrix H mapping p[i] -> q[i] with h22 = 1.
func computeHomography(p, q [4]Point) ([9]float64, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		// A finite Condition is only an accuracy warning.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return [9]float64{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
		}
	}
	var H [9]float64
	for i := range 8 {
		H[i] = h.AtVec(i)
		if math.IsNaN(H[i]) || math.IsInf(H[i], 0) {
			return [9]float64{}, ErrDegenerateQuad
		}
	}
	H[8] = 1
	return H, nil
}

func applyHomography(h [9]float64, x, y float64) (float64, float64) {
	denom := h[6]*x + h[7]*y + h[8]
	if denom == 0 {
		return math.Inf(-1), math.Inf(-1)
	}
	sx := (h[0]*x + h[1]*y + h[2]) / denom
	sy := (h[3]*x + h[4]*y + h[5]) / denom
	return sx, sy
}
