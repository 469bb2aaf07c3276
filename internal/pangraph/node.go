package pangraph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jemmacfen/pangraph/internal/seqgraph"
)

// Node is one taxon (leaf) or one inferred ancestor (internal node) in the
// guide tree.
type Node struct {
	// Name is a unique, stable identifier. Leaves are named for their
	// input sequence, internal nodes NODE_%05d in join order
	Name string

	// Dist is the branch length up to the parent. nil until the join that
	// resolves it; clamped to be non-negative
	Dist *float64

	// Children are the owned subtrees, in order. empty iff this is a leaf
	Children []*Node

	// Parent is a non-owning backref, used only to relink nodes while the
	// tree is being joined up. Structural traversals never follow it
	Parent *Node

	// Graph is the consolidated representation, once one has been
	// computed and accepted for this node
	Graph seqgraph.Graph

	// FAPath is where this node's sequence content was last materialized
	// (without the .fa suffix), for the alignment passes that read files
	FAPath string
}

// IsLeaf is whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// NewParent relinks the node under parent with the resolved branch length.
// Negative lengths are clamped to zero; the caller transfers the deficit to
// the sibling branch so the pair's total is preserved.
func (n *Node) NewParent(parent *Node, dist float64) {
	n.Parent = parent
	if dist < 0 {
		dist = 0
	}
	n.Dist = &dist
}

// Postorder appends the node's subtree to nodes, children fully before the
// node itself.
func (n *Node) Postorder(nodes []*Node) []*Node {
	for _, child := range n.Children {
		nodes = child.Postorder(nodes)
	}
	return append(nodes, n)
}

func (n *Node) String() string {
	if n.Dist == nil {
		return fmt.Sprintf("%s :: Unknown", n.Name)
	}
	return fmt.Sprintf("%s :: %.4f", n.Name, *n.Dist)
}

// writeNewick emits the node in Newick form: children parenthesized first,
// then the node's own name and branch length to 6 decimal places.
func (n *Node) writeNewick(w io.Writer) error {
	if !n.IsLeaf() {
		if _, err := io.WriteString(w, "("); err != nil {
			return err
		}
		for i, child := range n.Children {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := child.writeNewick(w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, ")"); err != nil {
			return err
		}
	}

	dist := 0.0
	if n.Dist != nil {
		dist = *n.Dist
	}
	_, err := fmt.Fprintf(w, "%s:%.6f", n.Name, dist)
	return err
}

// nodeJSON is the persisted form of one node.
type nodeJSON struct {
	Name     string          `json:"name"`
	Dist     *float64        `json:"dist"`
	Children []*nodeJSON     `json:"children"`
	FAPath   string          `json:"fapath"`
	Graph    json.RawMessage `json:"graph"`
}

// toJSON converts the node's subtree to its persisted form.
func (n *Node) toJSON() (*nodeJSON, error) {
	d := &nodeJSON{
		Name:     n.Name,
		Dist:     n.Dist,
		Children: make([]*nodeJSON, 0, len(n.Children)),
		FAPath:   n.FAPath,
	}

	if n.Graph != nil {
		raw, err := n.Graph.Encode()
		if err != nil {
			return nil, fmt.Errorf("encoding graph at %s: %v", n.Name, err)
		}
		d.Graph = raw
	}

	for _, child := range n.Children {
		cd, err := child.toJSON()
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, cd)
	}

	return d, nil
}

// nodeFromJSON rebuilds a node's subtree from its persisted form, decoding
// any embedded graphs with the passed backend.
func nodeFromJSON(d *nodeJSON, parent *Node, backend seqgraph.Backend) (*Node, error) {
	n := &Node{
		Name:   d.Name,
		Dist:   d.Dist,
		Parent: parent,
		FAPath: d.FAPath,
	}

	if len(d.Graph) > 0 && string(d.Graph) != "null" {
		if backend == nil {
			return nil, fmt.Errorf("node %s embeds a graph but no backend was passed", d.Name)
		}
		graph, err := backend.Decode(d.Graph)
		if err != nil {
			return nil, fmt.Errorf("decoding graph at %s: %v", d.Name, err)
		}
		n.Graph = graph
	}

	for _, cd := range d.Children {
		child, err := nodeFromJSON(cd, n, backend)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}
