package utils

import (
	"image"
	"math"
	"sort"
)

// MiniBox is a minimum-area rotated rectangle with canonically ordered
// vertices: top-left, top-right, bottom-right, bottom-left.
type MiniBox struct {
	Points    [4]Point
	ShortSide float64
}

// Slice returns the box vertices as a slice.
func (m MiniBox) Slice() []Point {
	return append([]Point(nil), m.Points[:]...)
}

// MinAreaRect computes the minimum-area rectangle enclosing the contour and
// returns it in canonical vertex order together with its shorter side.
func MinAreaRect(contour []Point) MiniBox {
	rect := MinimumAreaRectangle(contour)
	if len(rect) != 4 {
		return MiniBox{}
	}
	w := math.Hypot(rect[1].X-rect[0].X, rect[1].Y-rect[0].Y)
	h := math.Hypot(rect[2].X-rect[1].X, rect[2].Y-rect[1].Y)
	return MiniBox{
		Points:    canonicalOrder([4]Point{rect[0], rect[1], rect[2], rect[3]}),
		ShortSide: math.Min(w, h),
	}
}

// canonicalOrder sorts by x, then splits the left and right pairs by y.
func canonicalOrder(pts [4]Point) [4]Point {
	p := pts
	sort.SliceStable(p[:], func(i, j int) bool { return p[i].X < p[j].X })
	i1, i4 := 1, 0
	if p[1].Y > p[0].Y {
		i1, i4 = 0, 1
	}
	i2, i3 := 3, 2
	if p[3].Y > p[2].Y {
		i2, i3 = 2, 3
	}
	return [4]Point{p[i1], p[i2], p[i3], p[i4]}
}

// OrderPoints sorts four vertices by their angle around the centroid and
// rotates the cycle so that it starts left of the centroid. Applying it to
// its own output returns the same order.
func OrderPoints(pts [4]Point) [4]Point {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= 4
	cy /= 4

	type keyed struct {
		p     Point
		angle float64
		dist  float64
	}
	ks := make([]keyed, 4)
	for i, p := range pts {
		ks[i] = keyed{
			p:     p,
			angle: math.Atan2(p.Y-cy, p.X-cx),
			dist:  math.Hypot(p.X-cx, p.Y-cy),
		}
	}
	// Ties on angle are broken on the point itself so the result depends
	// only on the point set.
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.angle != b.angle {
			return a.angle < b.angle
		}
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.p.X != b.p.X {
			return a.p.X < b.p.X
		}
		return a.p.Y < b.p.Y
	})

	out := [4]Point{ks[0].p, ks[1].p, ks[2].p, ks[3].p}
	if out[0].X > cx {
		out = [4]Point{out[3], out[0], out[1], out[2]}
	}
	return out
}

// PolygonArea returns the absolute shoelace area.
func PolygonArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var s float64
	for i := range n {
		a := pts[i]
		b := pts[(i+1)%n]
		s += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(s) / 2
}

// PolygonAreaInt is PolygonArea for pixel coordinates.
func PolygonAreaInt(pts []image.Point) float64 {
	return PolygonArea(FromImagePoints(pts))
}

// PolygonPerimeter returns the length of the closed polyline.
func PolygonPerimeter(pts []Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var s float64
	for i := range n {
		a := pts[i]
		b := pts[(i+1)%n]
		s += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return s
}

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order without
// duplicating the first point at the end.
func ConvexHull(pts []Point) []Point {
	n := len(pts)
	if n <= 1 {
		return append([]Point(nil), pts...)
	}
	p := make([]Point, n)
	copy(p, pts)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X != p[j].X {
			return p[i].X < p[j].X
		}
		return p[i].Y < p[j].Y
	})
	p = removeDuplicatePoints(p)
	if len(p) <= 1 {
		return p
	}
	lower := buildHalfHull(p, false)
	upper := buildHalfHull(p, true)
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:1]
	for _, pt := range p[1:] {
		last := q[len(q)-1]
		if pt.X != last.X || pt.Y != last.Y {
			q = append(q, pt)
		}
	}
	return q
}

func buildHalfHull(p []Point, reverse bool) []Point {
	half := make([]Point, 0, len(p))
	for k := range p {
		pt := p[k]
		if reverse {
			pt = p[len(p)-1-k]
		}
		for len(half) >= 2 && cross(half[len(half)-2], half[len(half)-1], pt) <= 0 {
			half = half[:len(half)-1]
		}
		half = append(half, pt)
	}
	return half
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinimumAreaRectangle computes the minimum-area enclosing rectangle using a
// rotating calipers approach over the convex hull. Returns 4 points in
// hull order. Collinear input yields a zero-width rectangle.
func MinimumAreaRectangle(pts []Point) []Point {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return nil
	case 1:
		p := hull[0]
		return []Point{p, p, p, p}
	case 2:
		a, b := hull[0], hull[1]
		return []Point{a, b, b, a}
	}
	return findMinimumAreaRectangle(hull)
}

func findMinimumAreaRectangle(hull []Point) []Point {
	bestArea := math.Inf(1)
	var bestU, bestV Point
	var bestMinS, bestMaxS, bestMinT, bestMaxT float64
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		dx := b.X - a.X
		dy := b.Y - a.Y
		L := math.Hypot(dx, dy)
		if L == 0 {
			continue
		}
		ux, uy := dx/L, dy/L
		vx, vy := -uy, ux
		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*ux + p.Y*uy
			t := p.X*vx + p.Y*vy
			minS = math.Min(minS, s)
			maxS = math.Max(maxS, s)
			minT = math.Min(minT, t)
			maxT = math.Max(maxT, t)
		}
		area := (maxS - minS) * (maxT - minT)
		if area < bestArea {
			bestArea = area
			bestU = Point{ux, uy}
			bestV = Point{vx, vy}
			bestMinS, bestMaxS, bestMinT, bestMaxT = minS, maxS, minT, maxT
		}
	}
	corner := func(s, t float64) Point {
		return Point{X: bestU.X*s + bestV.X*t, Y: bestU.Y*s + bestV.Y*t}
	}
	return []Point{
		corner(bestMinS, bestMinT),
		corner(bestMaxS, bestMinT),
		corner(bestMaxS, bestMaxT),
		corner(bestMinS, bestMaxT),
	}
}
