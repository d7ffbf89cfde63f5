package detector

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidMap is returned for probability maps whose data does not match
// their declared size.
var ErrInvalidMap = errors.New("invalid probability map")

// ProbabilityMap is a row-major per-pixel text probability grid.
type ProbabilityMap struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Data   []float32 `json:"data"`
}

// At returns the probability at (x, y).
func (m ProbabilityMap) At(x, y int) float32 { return m.Data[y*m.Width+x] }

// Validate checks that the map dimensions agree with its data.
func (m ProbabilityMap) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidMap, m.Width, m.Height)
	}
	if len(m.Data) != m.Width*m.Height {
		return fmt.Errorf("%w: %d values for %dx%d", ErrInvalidMap, len(m.Data), m.Width, m.Height)
	}
	return nil
}

// Detection is one text region in destination-image pixels.
type Detection struct {
	Polygon []image.Point
	Score   float64
}

// DBConfig holds the bitmap decoder thresholds.
type DBConfig struct {
	// Thresh binarizes the map: pixels strictly above it are text.
	Thresh float32
	// BoxThresh is the minimum mean probability inside a candidate box.
	BoxThresh float64
	// UnclipRatio scales the outward offset applied to surviving boxes.
	UnclipRatio float64
	// MaxCandidates caps the number of contours examined per map.
	MaxCandidates int
	// MinSize is the minimum short side before expansion.
	MinSize float64
	// MinSizeExpanded is the minimum short side after expansion.
	MinSizeExpanded float64
}

// DefaultDBConfig returns the standard DB decode thresholds.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Thresh:          0.2,
		BoxThresh:       0.3,
		UnclipRatio:     1.5,
		MaxCandidates:   1000,
		MinSize:         3,
		MinSizeExpanded: 5,
	}
}

// Validate reports configuration values the decoder cannot work with.
func (c DBConfig) Validate() error {
	if c.Thresh < 0 || c.Thresh > 1 {
		return fmt.Errorf("thresh must be in [0,1], got %v", c.Thresh)
	}
	if c.BoxThresh < 0 || c.BoxThresh > 1 {
		return fmt.Errorf("box thresh must be in [0,1], got %v", c.BoxThresh)
	}
	if c.UnclipRatio <= 0 {
		return fmt.Errorf("unclip ratio must be positive, got %v", c.UnclipRatio)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max candidates must be positive, got %d", c.MaxCandidates)
	}
	if c.MinSize < 0 || c.MinSizeExpanded < 0 {
		return errors.New("minimum sizes must not be negative")
	}
	return nil
}
