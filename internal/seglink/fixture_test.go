package seglink

import (
	"github.com/MeKo-Tech/textdet/internal/onnx"
)

// Logit pairs that softmax to roughly 0 or 1 for the positive class.
const (
	strong = 5
	weak   = -5
)

// fixture builds synthetic level tensors with every node and link negative.
type fixture struct {
	out   Output
	sizes [][2]int // per level {h, w}
	slots []int
}

// newFixture creates a 6-level output for a side x side network input.
// When full is set every level carries one link vector per neighbor,
// otherwise each node has a single shared vector.
func newFixture(side int, full bool) *fixture {
	f := &fixture{out: Output{
		InputWidth: side, InputHeight: side,
		PadSide: side, ImageWidth: side, ImageHeight: side,
	}}
	for l := range NumLevels {
		g := max(side/(4<<l), 1)
		slots := 1
		if full {
			slots = requiredSlots(l)
		}
		f.sizes = append(f.sizes, [2]int{g, g})
		f.slots = append(f.slots, slots)

		cls := make([]float32, g*g*clsChannels)
		for i := 0; i < len(cls); i += 2 {
			cls[i], cls[i+1] = strong, weak
		}
		lnk := make([]float32, g*g*slots*lnkGroup)
		for i := 0; i < len(lnk); i += lnkGroup {
			lnk[i], lnk[i+1], lnk[i+2], lnk[i+3] = strong, weak, strong, weak
		}
		// cos = 1 after the 0.1 variance.
		reg := make([]float32, g*g*regChannels)
		for i := 0; i < len(reg); i += regChannels {
			reg[i+5] = 10
		}
		f.out.Levels = append(f.out.Levels, LevelTensors{
			Cls: onnx.Tensor{Data: cls, Shape: []int64{1, int64(g), int64(g), clsChannels}},
			Lnk: onnx.Tensor{Data: lnk, Shape: []int64{1, int64(g), int64(g), int64(slots * lnkGroup)}},
			Reg: onnx.Tensor{Data: reg, Shape: []int64{1, int64(g), int64(g), regChannels}},
		})
	}
	return f
}

func (f *fixture) cell(l, x, y int) int { return y*f.sizes[l][1] + x }

// setNode marks (l, x, y) positive.
func (f *fixture) setNode(l, x, y int) {
	i := f.cell(l, x, y)
	f.out.Levels[l].Cls.Data[2*i], f.out.Levels[l].Cls.Data[2*i+1] = weak, strong
}

// setLink marks slot k of (l, x, y) positive; with shared vectors k is ignored.
func (f *fixture) setLink(l, x, y, k int) {
	s := f.slots[l]
	if s == 1 {
		k = 0
	}
	base := (f.cell(l, x, y)*s + k) * lnkGroup
	f.out.Levels[l].Lnk.Data[base], f.out.Levels[l].Lnk.Data[base+1] = weak, strong
}

// setCluster marks every cell of the row segment positive with all links on.
func (f *fixture) setCluster(l, y, x0, x1 int) {
	for x := x0; x <= x1; x++ {
		f.setNode(l, x, y)
		for k := range f.slots[l] {
			f.setLink(l, x, y, k)
		}
	}
}
