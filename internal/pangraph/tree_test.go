package pangraph

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jemmacfen/pangraph/internal/seqgraph"
)

// threeTaxa builds ((A:0.2,B:0.1)NODE_00000:0.15,C:0.15)ROOT by hand, a
// fixed topology independent of how the joining engine breaks ties.
func threeTaxa(t *testing.T) *Tree {
	t.Helper()

	tree := NewTree()
	node := &Node{Name: "NODE_00000"}
	a := &Node{Name: "A"}
	b := &Node{Name: "B"}
	c := &Node{Name: "C"}
	node.Children = []*Node{a, b}
	tree.Root.Children = []*Node{node, c}

	a.NewParent(node, 0.2)
	b.NewParent(node, 0.1)
	node.NewParent(tree.Root, 0.15)
	c.NewParent(tree.Root, 0.15)
	return tree
}

func Test_Postorder(t *testing.T) {
	tree := threeTaxa(t)

	var names []string
	for _, n := range tree.Postorder() {
		names = append(names, n.Name)
	}

	want := []string{"A", "B", "NODE_00000", "C", "ROOT"}
	if len(names) != len(want) {
		t.Fatalf("Postorder() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Postorder()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func Test_Leaves(t *testing.T) {
	tree := threeTaxa(t)

	first := tree.Leaves()
	second := tree.Leaves()

	if len(first) != 3 {
		t.Fatalf("Leaves() = %d leaves, want 3", len(first))
	}
	// cached after the first traversal
	if &first[0] != &second[0] {
		t.Error("Leaves() rebuilt the cached leaf list")
	}
	if tree.NumLeaves() != 3 {
		t.Errorf("NumLeaves() = %d, want 3", tree.NumLeaves())
	}
}

func Test_Attach(t *testing.T) {
	seqs := map[string]string{"A": "ACGT", "B": "ACGG", "C": "TTTT"}

	tree := threeTaxa(t)
	if err := tree.Attach(seqs); err != nil {
		t.Fatalf("Attach() err = %v", err)
	}
	for _, leaf := range tree.Leaves() {
		if tree.Seqs[leaf] != seqs[leaf.Name] {
			t.Errorf("Attach() seq(%s) = %q, want %q", leaf.Name, tree.Seqs[leaf], seqs[leaf.Name])
		}
	}

	// a name with no leaf and a leaf with no sequence are both errors
	if err := threeTaxa(t).Attach(map[string]string{"A": "ACGT", "B": "ACGG", "D": "TTTT"}); err == nil {
		t.Error("Attach() err = nil for an unknown taxon, want error")
	}
	if err := threeTaxa(t).Attach(map[string]string{"A": "ACGT"}); err == nil {
		t.Error("Attach() err = nil for a missing leaf, want error")
	}
}

func Test_WriteNewick(t *testing.T) {
	tree := threeTaxa(t)

	var buf bytes.Buffer
	if err := tree.WriteNewick(&buf); err != nil {
		t.Fatalf("WriteNewick() err = %v", err)
	}

	want := "((A:0.200000,B:0.100000)NODE_00000:0.150000,C:0.150000)ROOT:0.000000;"
	if buf.String() != want {
		t.Errorf("WriteNewick() = %q, want %q", buf.String(), want)
	}
}

func Test_Newick_roundTrip(t *testing.T) {
	tree := threeTaxa(t)

	var buf bytes.Buffer
	if err := tree.WriteNewick(&buf); err != nil {
		t.Fatalf("WriteNewick() err = %v", err)
	}

	parsed, err := ParseNewick(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseNewick() err = %v", err)
	}

	if parsed.Root.Name != "ROOT" {
		t.Errorf("ParseNewick() root = %q, want ROOT", parsed.Root.Name)
	}

	dists := map[string]float64{}
	for _, n := range tree.Leaves() {
		dists[n.Name] = *n.Dist
	}
	if parsed.NumLeaves() != len(dists) {
		t.Fatalf("ParseNewick() = %d leaves, want %d", parsed.NumLeaves(), len(dists))
	}
	for _, n := range parsed.Leaves() {
		want, ok := dists[n.Name]
		if !ok {
			t.Errorf("ParseNewick() unexpected leaf %q", n.Name)
			continue
		}
		if n.Dist == nil || math.Abs(*n.Dist-want) > 1e-6 {
			t.Errorf("ParseNewick() dist(%s) did not round-trip", n.Name)
		}
	}
}

// sameTopology walks two trees in lockstep comparing names, branch lengths
// and child order.
func sameTopology(t *testing.T, a, b *Node) {
	t.Helper()

	if a.Name != b.Name {
		t.Fatalf("topology: %q vs %q", a.Name, b.Name)
	}
	if (a.Dist == nil) != (b.Dist == nil) {
		t.Fatalf("topology: %s: one branch length missing", a.Name)
	}
	if a.Dist != nil && math.Abs(*a.Dist-*b.Dist) > 1e-12 {
		t.Fatalf("topology: %s: dist %v vs %v", a.Name, *a.Dist, *b.Dist)
	}
	if len(a.Children) != len(b.Children) {
		t.Fatalf("topology: %s: %d vs %d children", a.Name, len(a.Children), len(b.Children))
	}
	for i := range a.Children {
		sameTopology(t, a.Children[i], b.Children[i])
	}
}

func Test_JSON_roundTrip(t *testing.T) {
	backend := seqgraph.NewNaive()

	tree := threeTaxa(t)
	if err := tree.Attach(map[string]string{"A": "ACGT", "B": "ACGG", "C": "TTTT"}); err != nil {
		t.Fatalf("Attach() err = %v", err)
	}
	leafA := tree.Leaves()[0]
	leafA.Graph = backend.FromSequence("A", "ACGT")

	var buf bytes.Buffer
	if err := tree.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() err = %v", err)
	}

	loaded, err := ReadJSON(&buf, backend)
	if err != nil {
		t.Fatalf("ReadJSON() err = %v", err)
	}

	sameTopology(t, tree.Root, loaded.Root)

	for _, n := range loaded.Leaves() {
		if loaded.Seqs[n] == "" {
			t.Errorf("ReadJSON() no sequence rebound to %s", n.Name)
		}
	}

	// the embedded graph decodes back into a usable representation
	loadedA := loaded.Leaves()[0]
	if loadedA.Graph == nil {
		t.Fatal("ReadJSON() dropped the embedded graph")
	}
	seq, err := loadedA.Graph.Extract("A")
	if err != nil || seq != "ACGT" {
		t.Errorf("ReadJSON() graph.Extract(A) = %q, %v, want ACGT", seq, err)
	}
}

func Test_SaveJSON_zstd(t *testing.T) {
	tree := threeTaxa(t)
	if err := tree.Attach(map[string]string{"A": "ACGT", "B": "ACGG", "C": "TTTT"}); err != nil {
		t.Fatalf("Attach() err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "tree.json.zst")
	if err := tree.SaveJSON(path); err != nil {
		t.Fatalf("SaveJSON() err = %v", err)
	}

	loaded, err := LoadJSON(path, seqgraph.NewNaive())
	if err != nil {
		t.Fatalf("LoadJSON() err = %v", err)
	}
	sameTopology(t, tree.Root, loaded.Root)
}
