package seglink

import (
	"image"
	"math"

	"github.com/MeKo-Tech/textdet/internal/utils"
)

// Segment is one oriented piece of text decoded at a positive node.
type Segment struct {
	CX, CY   float64
	W, H     float64
	Sin, Cos float64
}

// RBox is an oriented rectangle; Theta is in radians, counter-clockwise
// from the x axis in image coordinates.
type RBox struct {
	CX, CY float64
	W, H   float64
	Theta  float64
}

// CombineSegments reduces one group's segments to a single box. The long
// axis follows the circular mean of the segment angles; its extent spans the
// two segment centers farthest apart along that axis. segs must not be empty.
func CombineSegments(segs []Segment) RBox {
	if len(segs) == 1 {
		s := segs[0]
		return RBox{CX: s.CX, CY: s.CY, W: s.W, H: s.H, Theta: math.Atan2(s.Sin, s.Cos)}
	}

	var sumSin, sumCos float64
	for _, s := range segs {
		sumSin += s.Sin
		sumCos += s.Cos
	}
	theta := math.Atan2(sumSin, sumCos)
	k := math.Tan(theta)

	var b, hSum float64
	for _, s := range segs {
		b += s.CY - k*s.CX
		hSum += s.H
	}
	b /= float64(len(segs))

	proj := make([]utils.Point, len(segs))
	den := k*k + 1
	for i, s := range segs {
		proj[i] = utils.Point{
			X: (k*s.CY + s.CX - k*b) / den,
			Y: (k*k*s.CY + k*s.CX + b) / den,
		}
	}

	best, bi, bj := -1.0, 0, 1
	for i := range proj {
		for j := i + 1; j < len(proj); j++ {
			d := math.Hypot(proj[i].X-proj[j].X, proj[i].Y-proj[j].Y)
			if d > best {
				best, bi, bj = d, i, j
			}
		}
	}

	si, sj := segs[bi], segs[bj]
	return RBox{
		CX:    (si.CX + sj.CX) / 2,
		CY:    (si.CY + sj.CY) / 2,
		W:     best + (si.W+sj.W)/2,
		H:     hSum / float64(len(segs)),
		Theta: theta,
	}
}

// Polygon returns the four corners, starting at the corner behind the
// center along both axes and proceeding along the long axis first.
func (r RBox) Polygon() [4]utils.Point {
	sin, cos := math.Sincos(r.Theta)
	v1x, v1y := cos*r.W/2, sin*r.W/2
	v2x, v2y := -sin*r.H/2, cos*r.H/2
	return [4]utils.Point{
		{X: r.CX - v1x - v2x, Y: r.CY - v1y - v2y},
		{X: r.CX + v1x - v2x, Y: r.CY + v1y - v2y},
		{X: r.CX + v1x + v2x, Y: r.CY + v1y + v2y},
		{X: r.CX - v1x + v2x, Y: r.CY - v1y + v2y},
	}
}

// Contains reports whether p lies strictly inside the box.
func (r RBox) Contains(p utils.Point) bool {
	sin, cos := math.Sincos(r.Theta)
	dx, dy := r.CX-p.X, r.CY-p.Y
	along := math.Abs(dx*cos + dy*sin)
	across := math.Abs(-dx*sin + dy*cos)
	return along < r.W/2 && across < r.H/2
}

// scalePolygon maps network-input coordinates onto the original image:
// each axis is scaled by sx or sy, clipped to [0, w-1] x [0, h-1] and
// rounded.
func scalePolygon(pts [4]utils.Point, sx, sy float64, w, h int) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		x := utils.ClampFloat(p.X*sx, 0, float64(w-1))
		y := utils.ClampFloat(p.Y*sy, 0, float64(h-1))
		out[i] = image.Pt(int(math.Round(x)), int(math.Round(y)))
	}
	return out
}
