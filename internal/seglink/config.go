// Package seglink decodes multi-scale segment/link network outputs into
// oriented text polygons.
package seglink

import (
	"errors"
	"fmt"
)

// NumLevels is the number of detection feature levels.
const NumLevels = 6

// Config holds the fixed anchor table and decode thresholds.
type Config struct {
	// AnchorSizes is the receptive-field size in pixels per level.
	AnchorSizes []float64
	// Variance scales the six regression channels.
	Variance []float64
	// NodeThresh is the minimum positive-class probability of a node.
	NodeThresh float32
	// LinkThresh is the minimum positive-class probability of a link.
	LinkThresh float32
	// BaseStride is the stride of level 0; level l uses BaseStride*2^l.
	BaseStride float64
	// Eps is subtracted from decoded widths and heights.
	Eps float64
}

// DefaultConfig returns the standard anchor table and thresholds.
func DefaultConfig() Config {
	return Config{
		AnchorSizes: []float64{6, 11.84210526, 23.68421053, 45, 90, 150},
		Variance:    []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1},
		NodeThresh:  0.4,
		LinkThresh:  0.6,
		BaseStride:  4,
		Eps:         1e-6,
	}
}

// Validate reports configuration values the decoder cannot work with.
func (c Config) Validate() error {
	if len(c.AnchorSizes) != NumLevels {
		return fmt.Errorf("anchor table must have %d entries, got %d", NumLevels, len(c.AnchorSizes))
	}
	for i, a := range c.AnchorSizes {
		if a <= 0 {
			return fmt.Errorf("anchor size %d must be positive, got %v", i, a)
		}
	}
	if len(c.Variance) != regChannels {
		return fmt.Errorf("variance must have %d entries, got %d", regChannels, len(c.Variance))
	}
	for i, v := range c.Variance {
		if v <= 0 {
			return fmt.Errorf("variance %d must be positive, got %v", i, v)
		}
	}
	if c.NodeThresh < 0 || c.NodeThresh > 1 || c.LinkThresh < 0 || c.LinkThresh > 1 {
		return errors.New("node and link thresholds must be in [0,1]")
	}
	if c.BaseStride <= 0 {
		return fmt.Errorf("base stride must be positive, got %v", c.BaseStride)
	}
	if c.Eps < 0 {
		return fmt.Errorf("eps must not be negative, got %v", c.Eps)
	}
	return nil
}
