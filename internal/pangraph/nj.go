package pangraph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NJ builds a binary guide tree from a symmetric, zero-diagonal distance
// matrix via neighbor joining. The algorithm runs directly on a working
// copy of the matrix, one row/column folded away per join; off-the-shelf
// tree builders were too slow for the matrix sizes we see.
//
// The caller's matrix is left untouched. Names must be distinct and
// positionally aligned with the matrix.
func NJ(dist *mat.Dense, names []string) (*Tree, error) {
	rows, cols := dist.Dims()
	if rows != cols {
		return nil, fmt.Errorf("expected a square matrix, got %dx%d", rows, cols)
	}
	if rows != len(names) {
		return nil, fmt.Errorf("%d names for a %dx%d matrix", len(names), rows, cols)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("need at least 2 taxa, have %d", len(names))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("non-unique name %q", name)
		}
		seen[name] = true
	}

	// working buffer; shrinks by one dimension per join
	D := mat.DenseCopyOf(dist)

	t := NewTree()
	for _, name := range names {
		t.Root.Children = append(t.Root.Children, &Node{Name: name, Parent: t.Root})
	}

	idx := 0
	for n, _ := D.Dims(); n > 2; n, _ = D.Dims() {
		i, j := minQ(D)
		d1, d2, dnew := pairDists(D, i, j)

		node := &Node{
			Name:     fmt.Sprintf("NODE_%05d", idx),
			Parent:   t.Root,
			Children: []*Node{t.Root.Children[i], t.Root.Children[j]},
		}
		node.Children[0].NewParent(node, d1)
		node.Children[1].NewParent(node, d2)

		// the joined pair collapses into slot i; slot j disappears
		for k := 0; k < n; k++ {
			D.Set(i, k, dnew[k])
			D.Set(k, i, dnew[k])
		}
		D.Set(i, i, 0)
		D = dropRowsCols(D, []int{j})

		t.Root.Children[i] = node
		t.Root.Children = append(t.Root.Children[:j], t.Root.Children[j+1:]...)

		idx++
	}

	// the last pair splits its remaining distance evenly
	d := D.At(0, 1)
	t.Root.Children[0].NewParent(t.Root, d/2)
	t.Root.Children[1].NewParent(t.Root, d/2)

	return t, nil
}

// minQ finds the row-major first minimum of the Q criterion
//
//	Q[i,j] = (n-2)*D[i,j] - (rowSum(i) + colSum(j))
//
// with the diagonal never a candidate. D is symmetric, so column sums are
// row sums.
func minQ(D *mat.Dense) (int, int) {
	n, _ := D.Dims()

	sums := make([]float64, n)
	for i := 0; i < n; i++ {
		sums[i] = mat.Sum(D.RowView(i))
	}

	best := math.Inf(1)
	bi, bj := -1, -1
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if q := float64(n-2)*D.At(i, j) - (sums[i] + sums[j]); q < best {
				best, bi, bj = q, i, j
			}
		}
	}

	if bi > bj {
		bi, bj = bj, bi
	}
	return bi, bj
}

// pairDists computes the branch lengths of the pair being joined at i and j
// and the merged node's distances to every remaining taxon.
func pairDists(D *mat.Dense, i, j int) (d1, d2 float64, dnew []float64) {
	n, _ := D.Dims()

	ri := mat.Sum(D.RowView(i))
	rj := mat.Sum(D.RowView(j))
	d1 = 0.5*D.At(i, j) + (ri-rj)/(2*float64(n-2))
	d2 = D.At(i, j) - d1

	// a negative branch hands its deficit to its sibling; both end up
	// non-negative and d1+d2 still equals D[i,j]
	if d1 < 0 {
		d2 += d1
		d1 = 0
	}
	if d2 < 0 {
		d1 += d2
		d2 = 0
	}

	dnew = make([]float64, n)
	for k := 0; k < n; k++ {
		dnew[k] = 0.5 * (D.At(i, k) + D.At(j, k) - D.At(i, j))
	}

	return d1, d2, dnew
}
