package seglink

import "github.com/chewxy/math32"

// softmax2 returns the two-class softmax of (a, b).
func softmax2(a, b float32) (float32, float32) {
	m := math32.Max(a, b)
	ea := math32.Exp(a - m)
	eb := math32.Exp(b - m)
	s := ea + eb
	return ea / s, eb / s
}
