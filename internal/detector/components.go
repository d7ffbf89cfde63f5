package detector

import (
	"github.com/MeKo-Tech/textdet/internal/mempool"
)

// component is the pixel extent of one connected blob in the mask.
type component struct {
	label int32
	count int
	minX  int
	minY  int
	maxX  int
	maxY  int
}

// binarize marks pixels whose probability is strictly above t.
// The mask comes from the pool; release it with mempool.PutBool.
func binarize(prob []float32, t float32) []bool {
	mask := mempool.GetBool(len(prob))
	for i, p := range prob {
		mask[i] = p > t
	}
	return mask
}

// neighbors8 lists the 8-connected offsets.
var neighbors8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// labelComponents assigns 8-connected component labels (starting at 1) in
// raster order of each blob's first pixel. At most limit blobs are labeled;
// remaining mask pixels keep label 0. The label buffer comes from the pool.
func labelComponents(mask []bool, w, h, limit int) ([]component, []int32) {
	labels := mempool.GetInt32(w * h)
	var comps []component
	queue := make([]int, 0, 64)

	for seed, on := range mask {
		if !on || labels[seed] != 0 {
			continue
		}
		if len(comps) >= limit {
			break
		}
		label := int32(len(comps) + 1)
		sx, sy := seed%w, seed/w
		c := component{label: label, minX: sx, minY: sy, maxX: sx, maxY: sy}

		labels[seed] = label
		queue = append(queue[:0], seed)
		for head := 0; head < len(queue); head++ {
			ci := queue[head]
			cx, cy := ci%w, ci/w
			c.count++
			c.minX = min(c.minX, cx)
			c.minY = min(c.minY, cy)
			c.maxX = max(c.maxX, cx)
			c.maxY = max(c.maxY, cy)
			for _, d := range neighbors8 {
				nx, ny := cx+d[0], cy+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = label
					queue = append(queue, ni)
				}
			}
		}
		comps = append(comps, c)
	}
	return comps, labels
}
