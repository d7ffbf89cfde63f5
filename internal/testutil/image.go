package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextImageConfig describes a synthetic page of centered text lines.
type TextImageConfig struct {
	Lines      []string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	// Rotation in degrees, counter-clockwise.
	Rotation float64
}

// DefaultTextImageConfig returns one dark line on a white 320x240 page.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Lines:      []string{"Sample Text"},
		Width:      320,
		Height:     240,
		Background: color.White,
		Foreground: color.Black,
	}
}

// GenerateTextImage renders cfg with the 7x13 bitmap font.
func GenerateTextImage(cfg TextImageConfig) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{cfg.Foreground}, Face: face}
	lineHeight := face.Metrics().Height.Ceil() * 2
	startY := (cfg.Height - len(cfg.Lines)*lineHeight) / 2
	for i, line := range cfg.Lines {
		w := font.MeasureString(face, line).Ceil()
		drawer.Dot = fixed.P((cfg.Width-w)/2, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	if cfg.Rotation != 0 {
		return imaging.Rotate(img, cfg.Rotation, cfg.Background)
	}
	return img
}

// CreateTestImage returns a uniform image.
func CreateTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// CompareImages reports whether the mean per-pixel RGBA distance, relative
// to the maximum, is within tolerance.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b := img1.Bounds()
	if b.Size() != img2.Bounds().Size() {
		return false
	}
	o := img2.Bounds().Min.Sub(b.Min)
	var total float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r1, g1, b1, a1 := img1.At(x, y).RGBA()
			r2, g2, b2, a2 := img2.At(x+o.X, y+o.Y).RGBA()
			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)
			total += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
		}
	}
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return true
	}
	return total/n/math.Sqrt(4*65535*65535) <= tolerance
}
