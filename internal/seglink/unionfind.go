package seglink

// DisjointSet is a union-find forest over n elements. The zero value is
// unusable; create one per decode with NewDisjointSet.
type DisjointSet struct {
	parent []int32
}

// NewDisjointSet returns n singleton sets.
func NewDisjointSet(n int) *DisjointSet {
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = -1
	}
	return &DisjointSet{parent: parent}
}

// Len returns the number of elements.
func (d *DisjointSet) Len() int { return len(d.parent) }

// Find returns the root of i and compresses the path to it.
func (d *DisjointSet) Find(i int) int {
	root := i
	for d.parent[root] >= 0 {
		root = int(d.parent[root])
	}
	for i != root {
		next := int(d.parent[i])
		d.parent[i] = int32(root)
		i = next
	}
	return root
}

// Union merges the sets of a and b; the root of a is attached under the
// root of b.
func (d *DisjointSet) Union(a, b int) {
	ra, rb := d.Find(a), d.Find(b)
	if ra != rb {
		d.parent[ra] = int32(rb)
	}
}

// Same reports whether a and b are in the same set.
func (d *DisjointSet) Same(a, b int) bool { return d.Find(a) == d.Find(b) }
