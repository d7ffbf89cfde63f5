package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MeKo-Tech/textdet/internal/utils"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ResultJSON is the serializable form of one image's detections.
type ResultJSON struct {
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Detections []DetectionJSON `json:"detections"`
}

// DetectionJSON is one serialized detection.
type DetectionJSON struct {
	Polygon [][2]int `json:"polygon"`
	Score   float64  `json:"score"`
}

// NewResultJSON converts detections for an image of the given size.
func NewResultJSON(dets []Detection, width, height int) ResultJSON {
	out := ResultJSON{Width: width, Height: height, Detections: make([]DetectionJSON, 0, len(dets))}
	for _, d := range dets {
		dj := DetectionJSON{Score: d.Score, Polygon: make([][2]int, len(d.Polygon))}
		for i, p := range d.Polygon {
			dj.Polygon[i] = [2]int{p.X, p.Y}
		}
		out.Detections = append(out.Detections, dj)
	}
	return out
}

// ToJSON encodes detections with the given image dimensions.
func ToJSON(dets []Detection, width, height int) ([]byte, error) {
	return json.MarshalIndent(NewResultJSON(dets, width, height), "", "  ")
}

// FromJSON parses the output of ToJSON.
func FromJSON(data []byte) ([]Detection, int, int, error) {
	var res ResultJSON
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, 0, 0, err
	}
	dets := make([]Detection, len(res.Detections))
	for i, dj := range res.Detections {
		poly := make([]image.Point, len(dj.Polygon))
		for j, p := range dj.Polygon {
			poly[j] = image.Pt(p[0], p[1])
		}
		dets[i] = Detection{Polygon: poly, Score: dj.Score}
	}
	return dets, res.Width, res.Height, nil
}

// Validate checks scores and that every vertex lies inside a width x height
// image.
func Validate(dets []Detection, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("invalid image dimensions for validation")
	}
	for i, d := range dets {
		if d.Score < 0 || d.Score > 1 {
			return fmt.Errorf("detection %d score %v outside [0,1]", i, d.Score)
		}
		for _, p := range d.Polygon {
			if p.X < 0 || p.Y < 0 || p.X >= width || p.Y >= height {
				return fmt.Errorf("detection %d vertex %v out of bounds", i, p)
			}
		}
	}
	return nil
}

// Visualize draws every detection onto a copy of img, each in its own
// palette color.
func Visualize(img image.Image, dets []Detection, thickness int) *image.RGBA {
	if thickness <= 0 {
		thickness = 2
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)

	palette := colorful.FastHappyPalette(max(len(dets), 1))
	for i, d := range dets {
		r, g, bl := palette[i].RGB255()
		col := color.RGBA{R: r, G: g, B: bl, A: 255}
		pts := make([]image.Point, len(d.Polygon))
		for j, p := range d.Polygon {
			pts[j] = p.Add(b.Min)
		}
		utils.DrawPolygon(dst, pts, col, thickness)
	}
	return dst
}
