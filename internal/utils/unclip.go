package utils

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
)

// UnclipEpsilon is the smallest perimeter and area Unclip accepts.
const UnclipEpsilon = 1e-6

// unclipScale keeps sub-pixel precision through clipper's integer grid.
const unclipScale = 100.0

// Unclip grows a closed polygon outward by area*ratio/perimeter using round
// joins. It returns nil when the polygon is degenerate or ratio is not
// positive.
func Unclip(pts []Point, ratio float64) []Point {
	if len(pts) < 3 || ratio <= 0 {
		return nil
	}
	area := PolygonArea(pts)
	perimeter := PolygonPerimeter(pts)
	if perimeter < UnclipEpsilon || area < UnclipEpsilon {
		return nil
	}
	distance := area * ratio / perimeter

	path := make(clipper.Path, 0, len(pts))
	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(math.Round(p.X * unclipScale)),
			Y: clipper.CInt(math.Round(p.Y * unclipScale)),
		})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)
	solution := co.Execute(distance * unclipScale)

	var out []Point
	for _, sp := range solution {
		for _, ip := range sp {
			out = append(out, Point{X: float64(ip.X) / unclipScale, Y: float64(ip.Y) / unclipScale})
		}
	}
	if len(out) < 3 {
		return nil
	}
	return out
}
