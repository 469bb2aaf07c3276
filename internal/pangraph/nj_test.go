package pangraph

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// matFromRows is a test helper for building a Dense from row slices.
func matFromRows(rows [][]float64) *mat.Dense {
	n := len(rows)
	m := mat.NewDense(n, n, nil)
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

func Test_NJ(t *testing.T) {
	// for 3 taxa every Q value equals the negated sum of the three
	// pairwise distances, an unavoidable tie. these distances are exact
	// in binary, so the tie is exact and scan order joins A and B
	dist := matFromRows([][]float64{
		{0, 0.25, 0.5},
		{0.25, 0, 0.375},
		{0.5, 0.375, 0},
	})

	tree, err := NJ(dist, []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("NJ() err = %v", err)
	}

	if len(tree.Root.Children) != 2 {
		t.Fatalf("NJ() root has %d children, want 2", len(tree.Root.Children))
	}

	node, c := tree.Root.Children[0], tree.Root.Children[1]
	if node.Name != "NODE_00000" {
		t.Fatalf("NJ() first root child = %q, want NODE_00000", node.Name)
	}
	if c.Name != "C" {
		t.Fatalf("NJ() second root child = %q, want C", c.Name)
	}

	wantDists := map[string]float64{
		"A":          0.1875,  // 0.5*0.25 + (0.75-0.625)/2
		"B":          0.0625,  // 0.25 - 0.1875
		"C":          0.15625, // half the final 2x2 distance
		"NODE_00000": 0.15625,
	}
	for _, n := range tree.Postorder() {
		want, ok := wantDists[n.Name]
		if !ok {
			continue
		}
		if n.Dist == nil {
			t.Fatalf("NJ() %s has no branch length", n.Name)
		}
		if math.Abs(*n.Dist-want) > 1e-9 {
			t.Errorf("NJ() dist(%s) = %v, want %v", n.Name, *n.Dist, want)
		}
	}
}

func Test_NJ_additive(t *testing.T) {
	// an additive matrix: the joins recover the generating tree's branch
	// lengths exactly. the first Q minimum, at (a, b), is strict
	dist := matFromRows([][]float64{
		{0, 5, 9, 9, 8},
		{5, 0, 10, 10, 9},
		{9, 10, 0, 8, 7},
		{9, 10, 8, 0, 3},
		{8, 9, 7, 3, 0},
	})

	tree, err := NJ(dist, []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("NJ() err = %v", err)
	}

	wantDists := map[string]float64{
		"a": 2, "b": 3, "c": 4, "d": 2, "e": 0.5,
		"NODE_00000": 3, "NODE_00001": 2, "NODE_00002": 0.5,
	}
	for _, n := range tree.Postorder() {
		if n == tree.Root {
			continue
		}
		want, ok := wantDists[n.Name]
		if !ok {
			t.Fatalf("NJ() unexpected node %q", n.Name)
		}
		if n.Dist == nil {
			t.Fatalf("NJ() %s has no branch length", n.Name)
		}
		if math.Abs(*n.Dist-want) > 1e-9 {
			t.Errorf("NJ() dist(%s) = %v, want %v", n.Name, *n.Dist, want)
		}
	}
}

func Test_NJ_properties(t *testing.T) {
	const n = 8

	rnd := rand.New(rand.NewSource(42))
	dist := mat.NewDense(n, n, nil)
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("taxon_%d", i)
		for j := 0; j < i; j++ {
			d := rnd.Float64()
			dist.Set(i, j, d)
			dist.Set(j, i, d)
		}
	}
	orig := mat.DenseCopyOf(dist)

	tree, err := NJ(dist, names)
	if err != nil {
		t.Fatalf("NJ() err = %v", err)
	}

	// the caller's matrix is a working input, never mutated
	if !mat.Equal(dist, orig) {
		t.Error("NJ() mutated the input matrix")
	}

	leaves := map[string]bool{}
	nodes := 0
	for _, node := range tree.Postorder() {
		if node != tree.Root {
			nodes++
			if node.Dist == nil {
				t.Fatalf("NJ() %s has no branch length", node.Name)
			}
			if *node.Dist < 0 {
				t.Errorf("NJ() dist(%s) = %v, want >= 0", node.Name, *node.Dist)
			}
		}

		if node.IsLeaf() {
			leaves[node.Name] = true
			continue
		}
		if len(node.Children) != 2 {
			t.Errorf("NJ() %s has %d children, want 2", node.Name, len(node.Children))
		}
	}

	if len(leaves) != n {
		t.Errorf("NJ() produced %d leaves, want %d", len(leaves), n)
	}
	for _, name := range names {
		if !leaves[name] {
			t.Errorf("NJ() has no leaf for %q", name)
		}
	}

	// a binary tree over n taxa: n leaves + n-2 joins under the root,
	// 2n-3 edges in the unrooted-equivalent topology
	if want := 2*n - 2; nodes != want {
		t.Errorf("NJ() has %d non-root nodes, want %d", nodes, want)
	}
}

func Test_NJ_errors(t *testing.T) {
	square := matFromRows([][]float64{{0, 1}, {1, 0}})

	tests := []struct {
		name  string
		dist  *mat.Dense
		names []string
	}{
		{
			"non-unique names",
			square,
			[]string{"A", "A"},
		},
		{
			"too few taxa",
			matFromRows([][]float64{{0}}),
			[]string{"A"},
		},
		{
			"name count mismatch",
			square,
			[]string{"A", "B", "C"},
		},
		{
			"non-square matrix",
			mat.NewDense(2, 3, nil),
			[]string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NJ(tt.dist, tt.names); err == nil {
				t.Error("NJ() err = nil, want error")
			}
		})
	}
}

func Test_pairDists(t *testing.T) {
	// joining 0 and 1 here produces a negative d2: the deficit moves to
	// d1 and the pair total is preserved
	D := matFromRows([][]float64{
		{0, 0.2, 0.9},
		{0.2, 0, 0.1},
		{0.9, 0.1, 0},
	})

	d1, d2, dnew := pairDists(D, 0, 1)

	if d1 < 0 || d2 < 0 {
		t.Errorf("pairDists() = %v, %v, want both >= 0", d1, d2)
	}
	if got := d1 + d2; math.Abs(got-D.At(0, 1)) > 1e-9 {
		t.Errorf("pairDists() d1+d2 = %v, want %v", got, D.At(0, 1))
	}
	// uncorrected: d1 = 0.5, d2 = -0.3
	if math.Abs(d1-0.2) > 1e-9 || math.Abs(d2) > 1e-9 {
		t.Errorf("pairDists() = %v, %v, want 0.2, 0", d1, d2)
	}
	if want := 0.5 * (0.9 + 0.1 - 0.2); math.Abs(dnew[2]-want) > 1e-9 {
		t.Errorf("pairDists() dnew[2] = %v, want %v", dnew[2], want)
	}
}

func Test_minQ(t *testing.T) {
	// every distance here is exact in binary, so the three Q values tie
	// exactly and the first scan-order minimum wins
	D := matFromRows([][]float64{
		{0, 0.875, 0.75},
		{0.875, 0, 0.125},
		{0.75, 0.125, 0},
	})

	// Q[0,1] = 0.875 - (1.625+1.0) = -1.75
	// Q[0,2] = 0.75 - (1.625+0.875) = -1.75
	// Q[1,2] = 0.125 - (1.0+0.875) = -1.75
	i, j := minQ(D)
	if i != 0 || j != 1 {
		t.Errorf("minQ() = (%d, %d), want (0, 1)", i, j)
	}
}
