package pangraph

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jemmacfen/pangraph/internal/seqgraph"
	"github.com/klauspost/compress/zstd"
)

// stderr is for logging to Stderr (without an annoying timestamp)
var stderr = log.New(os.Stderr, "", 0)

// Tree is the guide tree: a synthetic root over the taxa, with input
// sequences bound to the leaves.
type Tree struct {
	// Root is the synthetic root created during neighbor joining
	Root *Node

	// Seqs maps each leaf to its input sequence
	Seqs map[*Node]string

	// leaves is the lazily built leaf list. the tree is not restructured
	// after traversal starts, so it is never invalidated
	leaves []*Node
}

// NewTree returns a tree holding only the synthetic root.
func NewTree() *Tree {
	root := &Node{Name: "ROOT"}
	root.NewParent(nil, 0)
	return &Tree{Root: root}
}

// Postorder lists every node, children fully before their parents.
func (t *Tree) Postorder() []*Node {
	return t.Root.Postorder(nil)
}

// Leaves lists the tree's leaf nodes, cached after the first traversal.
func (t *Tree) Leaves() []*Node {
	if t.leaves == nil {
		for _, n := range t.Postorder() {
			if n.IsLeaf() {
				t.leaves = append(t.leaves, n)
			}
		}
	}
	return t.leaves
}

// NumLeaves is the number of taxa in the tree.
func (t *Tree) NumLeaves() int {
	return len(t.Leaves())
}

// Attach binds input sequences to the tree's leaves by name. The keys must
// be exactly the tree's leaf set.
func (t *Tree) Attach(seqs map[string]string) error {
	byName := make(map[string]*Node, t.NumLeaves())
	for _, n := range t.Leaves() {
		byName[n.Name] = n
	}

	t.Seqs = make(map[*Node]string, len(seqs))
	for name, seq := range seqs {
		leaf, ok := byName[name]
		if !ok {
			return fmt.Errorf("no leaf named %q in the tree", name)
		}
		t.Seqs[leaf] = seq
	}

	if len(t.Seqs) != t.NumLeaves() {
		for _, n := range t.Leaves() {
			if _, ok := t.Seqs[n]; !ok {
				return fmt.Errorf("no sequence for leaf %q", n.Name)
			}
		}
	}

	return nil
}

// WriteNewick writes the tree in Newick form, every branch length to 6
// decimal places, terminated with a semicolon.
func (t *Tree) WriteNewick(w io.Writer) error {
	if err := t.Root.writeNewick(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, ";")
	return err
}

// treeJSON is the persisted form: the node hierarchy plus the leaf
// sequences keyed by leaf name.
type treeJSON struct {
	Tree *nodeJSON         `json:"tree"`
	Seqs map[string]string `json:"seqs"`
}

// WriteJSON persists the tree, embedded graphs included.
func (t *Tree) WriteJSON(w io.Writer) error {
	root, err := t.Root.toJSON()
	if err != nil {
		return err
	}

	doc := treeJSON{Tree: root, Seqs: map[string]string{}}
	for leaf, seq := range t.Seqs {
		doc.Seqs[leaf.Name] = seq
	}

	return json.NewEncoder(w).Encode(doc)
}

// ReadJSON rebuilds a persisted tree, decoding embedded graphs with the
// passed backend and re-binding the stored sequences to the leaves.
func ReadJSON(r io.Reader, backend seqgraph.Backend) (*Tree, error) {
	var doc treeJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding tree: %v", err)
	}
	if doc.Tree == nil {
		return nil, fmt.Errorf("tree document has no root")
	}

	root, err := nodeFromJSON(doc.Tree, nil, backend)
	if err != nil {
		return nil, err
	}

	t := &Tree{Root: root}
	if len(doc.Seqs) > 0 {
		if err := t.Attach(doc.Seqs); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// SaveJSON writes the tree to a file, zstd-compressed when the path ends
// in .zst. Merged pangenome documents embed every accepted graph and grow
// quickly, so compressed persistence is the default for large runs.
func (t *Tree) SaveJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return t.WriteJSON(f)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := t.WriteJSON(zw); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// LoadJSON reads a tree written by SaveJSON, sniffing zstd by extension.
func LoadJSON(path string, backend seqgraph.Backend) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return ReadJSON(f, backend)
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return ReadJSON(zr, backend)
}
