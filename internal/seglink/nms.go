package seglink

import (
	"image"
	"math"
	"sort"

	"github.com/MeKo-Tech/textdet/internal/utils"
)

// NMSItem is a candidate polygon ranked by Score. Index lets callers map
// survivors back to their own data.
type NMSItem struct {
	Polygon []image.Point
	Score   float64
	Index   int
}

// WidthScore is the mean length of the edges p0p1 and p2p3.
func WidthScore(poly []image.Point) float64 {
	if len(poly) < 4 {
		return 0
	}
	return (dist(poly[0], poly[1]) + dist(poly[2], poly[3])) / 2
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// pointLineDist is the distance from p to the line through a and b.
func pointLineDist(p, a, b utils.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	den := math.Hypot(dx, dy) + 1e-6
	return math.Abs(p.X*dy-p.Y*dx+b.X*a.Y-b.Y*a.X) / den
}

// PolygonToRBox estimates the oriented box of a 4-point polygon.
func PolygonToRBox(poly []image.Point) RBox {
	p := utils.FromImagePoints(poly)
	c := utils.Point{
		X: (p[0].X + p[1].X + p[2].X + p[3].X) / 4,
		Y: (p[0].Y + p[1].Y + p[2].Y + p[3].Y) / 4,
	}
	t1 := math.Atan2(p[1].Y-p[0].Y, p[1].X-p[0].X)
	t2 := math.Atan2(p[2].Y-p[3].Y, p[2].X-p[3].X)
	return RBox{
		CX:    c.X,
		CY:    c.Y,
		W:     WidthScore(poly),
		H:     pointLineDist(c, p[0], p[1]) + pointLineDist(c, p[2], p[3]),
		Theta: (t1 + t2) / 2,
	}
}

// NMS removes candidates whose center lies inside a higher-scoring box, or
// whose box contains a higher-scoring box's center. Survivors are returned
// sorted by descending score; equal scores keep input order and never
// suppress each other.
func NMS(items []NMSItem) []NMSItem {
	sorted := make([]NMSItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	boxes := make([]RBox, len(sorted))
	for i, it := range sorted {
		if len(it.Polygon) == 4 {
			boxes[i] = PolygonToRBox(it.Polygon)
		}
	}

	active := make([]bool, len(sorted))
	for i := range active {
		active[i] = len(sorted[i].Polygon) == 4
	}
	for i := range sorted {
		if !active[i] {
			continue
		}
		ci := utils.Point{X: boxes[i].CX, Y: boxes[i].CY}
		for j := i + 1; j < len(sorted); j++ {
			if !active[j] {
				continue
			}
			cj := utils.Point{X: boxes[j].CX, Y: boxes[j].CY}
			if (boxes[j].Contains(ci) || boxes[i].Contains(cj)) && sorted[i].Score > sorted[j].Score {
				active[j] = false
			}
		}
	}

	out := make([]NMSItem, 0, len(sorted))
	for i, it := range sorted {
		if active[i] {
			out = append(out, it)
		}
	}
	return out
}
