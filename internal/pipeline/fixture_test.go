package pipeline

import (
	"github.com/MeKo-Tech/textdet/internal/detector"
	"github.com/MeKo-Tech/textdet/internal/onnx"
	"github.com/MeKo-Tech/textdet/internal/seglink"
)

// blockMap is a w x h map with value v inside [x0,x1]x[y0,y1].
func blockMap(w, h, x0, y0, x1, y1 int, v float32) detector.ProbabilityMap {
	m := detector.ProbabilityMap{Width: w, Height: h, Data: make([]float32, w*h)}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			m.Data[y*w+x] = v
		}
	}
	return m
}

// cluster is a run of positive level-0 nodes on row y.
type cluster struct{ y, x0, x1 int }

// segLinkTensors builds cls, lnk, reg tensors per level for n images of a
// side x side input. Image b has clusters[b] positive with shared links on.
func segLinkTensors(side int, clusters [][]cluster) []onnx.Tensor {
	n := int64(len(clusters))
	var out []onnx.Tensor
	for l := range seglink.NumLevels {
		g := max(side/(4<<l), 1)
		per := g * g
		cls := make([]float32, int(n)*per*2)
		lnk := make([]float32, int(n)*per*4)
		reg := make([]float32, int(n)*per*6)
		for b := range int(n) {
			for i := range per {
				o := b*per + i
				cls[2*o], cls[2*o+1] = 5, -5
				lnk[4*o], lnk[4*o+1], lnk[4*o+2], lnk[4*o+3] = 5, -5, 5, -5
				reg[6*o+5] = 10
			}
			if l != 0 {
				continue
			}
			for _, c := range clusters[b] {
				for x := c.x0; x <= c.x1; x++ {
					o := b*per + c.y*g + x
					cls[2*o], cls[2*o+1] = -5, 5
					lnk[4*o], lnk[4*o+1] = -5, 5
				}
			}
		}
		gg := int64(g)
		out = append(out,
			onnx.Tensor{Data: cls, Shape: []int64{n, gg, gg, 2}},
			onnx.Tensor{Data: lnk, Shape: []int64{n, gg, gg, 4}},
			onnx.Tensor{Data: reg, Shape: []int64{n, gg, gg, 6}},
		)
	}
	return out
}

func segLinkOutputs(side int, clusters [][]cluster) []seglink.Output {
	levels, err := seglink.SplitBatch(segLinkTensors(side, clusters))
	if err != nil {
		panic(err)
	}
	outs := make([]seglink.Output, len(levels))
	for i, lv := range levels {
		outs[i] = seglink.Output{
			Levels: lv, InputWidth: side, InputHeight: side,
			PadSide: side, ImageWidth: side, ImageHeight: side,
		}
	}
	return outs
}
