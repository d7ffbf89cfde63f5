package seglink

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/textdet/internal/mempool"
)

// ErrInconsistentGroups marks group bookkeeping that cannot describe the
// decoded segments.
var ErrInconsistentGroups = errors.New("inconsistent segment groups")

// Link probability vector columns.
const (
	linkWithinNeg = iota
	linkWithinPos
	linkCrossNeg
	linkCrossPos
)

// probabilities holds the flattened per-node and per-link outputs of one
// image. linkProb and reg come from the pool; call release when done.
type probabilities struct {
	nodePos  []float32
	linkProb []float32
	reg      []float32
}

func (p *probabilities) release() {
	mempool.PutFloat32(p.linkProb)
	mempool.PutFloat32(p.reg)
	p.linkProb, p.reg = nil, nil
}

// computeProbabilities applies the node and link softmaxes and the
// regression variance, flattening every level through lay.
func computeProbabilities(levels []LevelTensors, lay Layout, cfg Config) *probabilities {
	p := &probabilities{
		nodePos:  make([]float32, lay.Nodes),
		linkProb: mempool.GetFloat32(lay.Links * lnkGroup),
		reg:      mempool.GetFloat32(lay.Nodes * regChannels),
	}
	var variance [regChannels]float32
	for i, v := range cfg.Variance {
		variance[i] = float32(v)
	}

	for l, lt := range levels {
		lv := lay.Levels[l]
		cls := lt.Cls.Data
		for i := range lv.Nodes() {
			_, pos := softmax2(cls[2*i], cls[2*i+1])
			p.nodePos[lv.NodeOffset+i] = pos
		}

		lnk := lt.Lnk.Data
		dst := p.linkProb[lv.LinkOffset*lnkGroup : (lv.LinkOffset+lv.Nodes()*lv.Slots)*lnkGroup]
		for i := 0; i < len(dst); i += lnkGroup {
			dst[i+linkWithinNeg], dst[i+linkWithinPos] = softmax2(lnk[i], lnk[i+1])
			dst[i+linkCrossNeg], dst[i+linkCrossPos] = softmax2(lnk[i+2], lnk[i+3])
		}

		reg := lt.Reg.Data
		base := lv.NodeOffset * regChannels
		for i, v := range reg {
			p.reg[base+i] = v * variance[i%regChannels]
		}
	}
	return p
}

// groupNodes joins positive nodes over positive links and returns a group
// id per node: dense, 0-based in order of each group's first node, -1 for
// negative nodes.
func groupNodes(lay Layout, p *probabilities, cfg Config) ([]int, int) {
	positive := func(i int) bool { return p.nodePos[i] >= cfg.NodeThresh }
	ds := NewDisjointSet(lay.Nodes)

	var nbuf []neighbor
	for i := range lay.Nodes {
		if !positive(i) {
			continue
		}
		l, x, y := lay.Coord(i)
		nbuf = lay.neighbors(nbuf[:0], l, x, y)
		for _, nb := range nbuf {
			// Same-level and cross-level links are both gated on the
			// within-layer positive column.
			if positive(nb.node) && p.linkProb[nb.link*lnkGroup+linkWithinPos] >= cfg.LinkThresh {
				ds.Union(i, nb.node)
			}
		}
	}

	groups := make([]int, lay.Nodes)
	ids := make(map[int]int)
	for i := range groups {
		if !positive(i) {
			groups[i] = -1
			continue
		}
		root := ds.Find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids) + 1
			ids[root] = id
		}
		groups[i] = id - 1
	}
	return groups, len(ids)
}

// decodeSegments returns one segment per positive node in index order, with
// the node's group and positive probability.
func decodeSegments(lay Layout, p *probabilities, groups []int, cfg Config) ([]Segment, []int, []float64) {
	var segs []Segment
	var segGroups []int
	var scores []float64
	for i, g := range groups {
		if g < 0 {
			continue
		}
		l, x, y := lay.Coord(i)
		lv := lay.Levels[l]
		r := p.reg[i*regChannels : (i+1)*regChannels]
		a := lv.Anchor
		segs = append(segs, Segment{
			CX:  float64(r[0])*a + lv.Stride*(float64(x)+0.5),
			CY:  float64(r[1])*a + lv.Stride*(float64(y)+0.5),
			W:   math.Exp(float64(r[2]))*a - cfg.Eps,
			H:   math.Exp(float64(r[3]))*a - cfg.Eps,
			Sin: float64(r[4]),
			Cos: float64(r[5]),
		})
		segGroups = append(segGroups, g)
		scores = append(scores, float64(p.nodePos[i]))
	}
	return segs, segGroups, scores
}

// combineGroups combines each group's segments into one box and averages
// the group's node scores. Groups without segments are skipped. It fails
// when the bookkeeping is inconsistent: more groups than segments, or a
// group id outside [0, numGroups).
func combineGroups(segs []Segment, segGroups []int, scores []float64, numGroups int) ([]RBox, []float64, error) {
	if len(segGroups) != len(segs) || len(scores) != len(segs) {
		return nil, nil, fmt.Errorf("%w: %d segments, %d group ids, %d scores",
			ErrInconsistentGroups, len(segs), len(segGroups), len(scores))
	}
	if numGroups > len(segs) {
		return nil, nil, fmt.Errorf("%w: %d groups for %d segments", ErrInconsistentGroups, numGroups, len(segs))
	}
	members := make([][]Segment, numGroups)
	sums := make([]float64, numGroups)
	for i, g := range segGroups {
		if g < 0 || g >= numGroups {
			return nil, nil, fmt.Errorf("%w: group id %d outside [0,%d)", ErrInconsistentGroups, g, numGroups)
		}
		members[g] = append(members[g], segs[i])
		sums[g] += scores[i]
	}

	boxes := make([]RBox, 0, numGroups)
	groupScores := make([]float64, 0, numGroups)
	for g, m := range members {
		if len(m) == 0 {
			continue
		}
		boxes = append(boxes, CombineSegments(m))
		groupScores = append(groupScores, sums[g]/float64(len(m)))
	}
	return boxes, groupScores, nil
}
