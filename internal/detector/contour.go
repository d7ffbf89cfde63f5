package detector

import "github.com/MeKo-Tech/textdet/internal/utils"

// Clockwise 8-neighborhood in image coordinates: E, SE, S, SW, W, NW, N, NE.
var (
	ringDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ringDY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

const dirWest = 4

func ringIndex(dx, dy int) int {
	for i := range 8 {
		if ringDX[i] == dx && ringDY[i] == dy {
			return i
		}
	}
	return dirWest
}

// traceContour returns the outer boundary of a labeled component using
// Moore-neighbor tracing. Points are pixel coordinates in tracing order;
// interior points of straight runs are dropped.
func traceContour(labels []int32, w, h int, c component) []utils.Point {
	sx, sy := firstPixel(labels, w, c)
	if sx < 0 {
		return nil
	}
	isLabel := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == c.label
	}

	pts := make([]utils.Point, 0, 64)
	add := func(x, y int) {
		p := utils.Point{X: float64(x), Y: float64(y)}
		if n := len(pts); n >= 2 {
			// Drop b only when it sits inside a straight a->p run.
			a, b := pts[n-2], pts[n-1]
			v1x, v1y := b.X-a.X, b.Y-a.Y
			v2x, v2y := p.X-b.X, p.Y-b.Y
			if v1x*v2y-v1y*v2x == 0 && v1x*v2x+v1y*v2y > 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}
	add(sx, sy)

	// The raster-first pixel has no component pixel to its west.
	cx, cy, back := sx, sy, dirWest
	firstX, firstY, haveFirst := 0, 0, false
	maxSteps := 4*c.count + 8

	for range maxSteps {
		nx, ny, nback, ok := nextBoundaryPixel(isLabel, cx, cy, back)
		if !ok {
			break
		}
		if cx == sx && cy == sy {
			if haveFirst && nx == firstX && ny == firstY {
				break
			}
			if !haveFirst {
				firstX, firstY, haveFirst = nx, ny, true
			}
		}
		cx, cy, back = nx, ny, nback
		if cx != sx || cy != sy {
			add(cx, cy)
		}
	}
	return pts
}

// nextBoundaryPixel scans clockwise around (cx, cy) starting after the
// backtrack direction. It returns the next pixel and the direction from it
// back to the last background cell examined.
func nextBoundaryPixel(isLabel func(x, y int) bool, cx, cy, back int) (int, int, int, bool) {
	prevX, prevY := cx+ringDX[back], cy+ringDY[back]
	for k := 1; k <= 8; k++ {
		i := (back + k) % 8
		tx, ty := cx+ringDX[i], cy+ringDY[i]
		if isLabel(tx, ty) {
			return tx, ty, ringIndex(prevX-tx, prevY-ty), true
		}
		prevX, prevY = tx, ty
	}
	return 0, 0, 0, false
}

// firstPixel returns the raster-first pixel of the component.
func firstPixel(labels []int32, w int, c component) (int, int) {
	for y := c.minY; y <= c.maxY; y++ {
		for x := c.minX; x <= c.maxX; x++ {
			if labels[y*w+x] == c.label {
				return x, y
			}
		}
	}
	return -1, -1
}
