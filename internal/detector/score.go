package detector

import (
	"math"

	"github.com/MeKo-Tech/textdet/internal/utils"
)

// boxScore is the mean map value over the pixels covered by the convex
// polygon box, boundary included. Vertices are truncated to integers and
// the scan is limited to the box's bounding rectangle clipped to the map.
func boxScore(m ProbabilityMap, box []utils.Point) float64 {
	if len(box) < 3 {
		return 0
	}
	x0, y0, x1, y1 := utils.BoundingBox(box).ClipRect(m.Width, m.Height)

	ip := make([]utils.Point, len(box))
	for i, p := range box {
		ip[i] = utils.Point{X: math.Trunc(p.X), Y: math.Trunc(p.Y)}
	}

	var sum float64
	var n int
	for y := y0; y <= y1; y++ {
		lo, hi, ok := rowSpan(ip, float64(y))
		if !ok {
			continue
		}
		from := max(x0, int(math.Ceil(lo-1e-9)))
		to := min(x1, int(math.Floor(hi+1e-9)))
		for x := from; x <= to; x++ {
			sum += float64(m.At(x, y))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// rowSpan intersects the horizontal line at y with a convex polygon and
// returns the covered x interval.
func rowSpan(poly []utils.Point, y float64) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if (y < a.Y && y < b.Y) || (y > a.Y && y > b.Y) {
			continue
		}
		if a.Y == b.Y {
			lo = math.Min(lo, math.Min(a.X, b.X))
			hi = math.Max(hi, math.Max(a.X, b.X))
			continue
		}
		x := a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, lo <= hi
}
