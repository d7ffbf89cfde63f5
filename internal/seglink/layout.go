package seglink

import (
	"fmt"

	"github.com/MeKo-Tech/textdet/internal/onnx"
)

// Neighbor counts per node: same-level ring, plus finer-level children.
const (
	localLinks = 8
	crossLinks = 4
)

// Level is one feature level's grid and its position in the flat arrays.
type Level struct {
	Index  int
	Height int
	Width  int
	Anchor float64
	Stride float64
	// Slots is the number of 4-value link vectors per node.
	Slots int
	// NodeOffset is the flat index of the level's first node.
	NodeOffset int
	// LinkOffset is the flat index of the level's first link vector.
	LinkOffset int
}

// Nodes returns the number of grid cells in the level.
func (lv Level) Nodes() int { return lv.Height * lv.Width }

// Layout maps flat node and link indices to levels and grid positions.
type Layout struct {
	Levels []Level
	Nodes  int
	Links  int
}

// requiredSlots is the number of distinct link vectors a level must provide
// when it does not share one vector among all neighbors.
func requiredSlots(level int) int {
	if level == 0 {
		return localLinks
	}
	return localLinks + crossLinks
}

// NewLayout validates the level tensor shapes against cfg and computes flat
// offsets.
func NewLayout(levels []LevelTensors, cfg Config) (Layout, error) {
	if len(levels) != len(cfg.AnchorSizes) {
		return Layout{}, fmt.Errorf("%w: %d levels, want %d", onnx.ErrShapeMismatch, len(levels), len(cfg.AnchorSizes))
	}
	var lay Layout
	stride := cfg.BaseStride
	for l, lt := range levels {
		cls, err := levelDims(lt.Cls, "cls", l)
		if err != nil {
			return Layout{}, err
		}
		lnk, err := levelDims(lt.Lnk, "lnk", l)
		if err != nil {
			return Layout{}, err
		}
		reg, err := levelDims(lt.Reg, "reg", l)
		if err != nil {
			return Layout{}, err
		}
		h, w := cls[1], cls[2]
		if lnk[1] != h || lnk[2] != w || reg[1] != h || reg[2] != w {
			return Layout{}, fmt.Errorf("%w: level %d grid sizes differ", onnx.ErrShapeMismatch, l)
		}
		if cls[3] != clsChannels || reg[3] != regChannels {
			return Layout{}, fmt.Errorf("%w: level %d has %d cls and %d reg channels",
				onnx.ErrShapeMismatch, l, cls[3], reg[3])
		}
		if lnk[3]%lnkGroup != 0 {
			return Layout{}, fmt.Errorf("%w: level %d link channels %d not a multiple of %d",
				onnx.ErrShapeMismatch, l, lnk[3], lnkGroup)
		}
		slots := lnk[3] / lnkGroup
		if slots != 1 && slots < requiredSlots(l) {
			return Layout{}, fmt.Errorf("%w: level %d has %d link vectors per node, want 1 or %d",
				onnx.ErrShapeMismatch, l, slots, requiredSlots(l))
		}

		lv := Level{
			Index:      l,
			Height:     h,
			Width:      w,
			Anchor:     cfg.AnchorSizes[l],
			Stride:     stride,
			Slots:      slots,
			NodeOffset: lay.Nodes,
			LinkOffset: lay.Links,
		}
		lay.Levels = append(lay.Levels, lv)
		lay.Nodes += lv.Nodes()
		lay.Links += lv.Nodes() * slots
		stride *= 2
	}
	return lay, nil
}

func levelDims(t onnx.Tensor, name string, level int) ([]int, error) {
	dims, err := t.Dims(4)
	if err != nil {
		return nil, fmt.Errorf("level %d %s: %w", level, name, err)
	}
	if dims[0] != 1 {
		return nil, fmt.Errorf("%w: level %d %s batch %d, want 1", onnx.ErrShapeMismatch, level, name, dims[0])
	}
	return dims, nil
}

// Coord maps a flat node index back to (level, x, y).
func (lay Layout) Coord(node int) (int, int, int) {
	for i := len(lay.Levels) - 1; i >= 0; i-- {
		lv := lay.Levels[i]
		if node >= lv.NodeOffset {
			local := node - lv.NodeOffset
			return i, local % lv.Width, local / lv.Width
		}
	}
	return -1, -1, -1
}

// NodeIndex returns the flat index of (level, x, y), or -1 outside the grid.
func (lay Layout) NodeIndex(level, x, y int) int {
	if level < 0 || level >= len(lay.Levels) {
		return -1
	}
	lv := lay.Levels[level]
	if x < 0 || y < 0 || x >= lv.Width || y >= lv.Height {
		return -1
	}
	return lv.NodeOffset + y*lv.Width + x
}

// linkVector returns the flat link-vector index for neighbor slot k of the
// node at (level, x, y).
func (lay Layout) linkVector(level, x, y, k int) int {
	lv := lay.Levels[level]
	base := lv.LinkOffset + (y*lv.Width+x)*lv.Slots
	if lv.Slots == 1 {
		return base
	}
	return base + k
}

// neighbor is a candidate join target and the link vector connecting it.
type neighbor struct {
	node int
	link int
}

// neighbors appends the in-grid neighbors of (level, x, y) to dst in slot
// order: the 8 same-level cells, then for level >= 1 the 4 finer cells.
func (lay Layout) neighbors(dst []neighbor, level, x, y int) []neighbor {
	type offset struct{ l, x, y int }
	cand := [localLinks + crossLinks]offset{
		{level, x - 1, y - 1}, {level, x, y - 1}, {level, x + 1, y - 1},
		{level, x - 1, y}, {level, x + 1, y},
		{level, x - 1, y + 1}, {level, x, y + 1}, {level, x + 1, y + 1},
		{level - 1, 2 * x, 2 * y}, {level - 1, 2*x + 1, 2 * y},
		{level - 1, 2 * x, 2*y + 1}, {level - 1, 2*x + 1, 2*y + 1},
	}
	n := localLinks
	if level > 0 {
		n += crossLinks
	}
	for k := range n {
		c := cand[k]
		idx := lay.NodeIndex(c.l, c.x, c.y)
		if idx < 0 {
			continue
		}
		dst = append(dst, neighbor{node: idx, link: lay.linkVector(level, x, y, k)})
	}
	return dst
}
