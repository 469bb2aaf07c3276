package pangraph

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jemmacfen/pangraph/config"
	"github.com/jemmacfen/pangraph/internal/seqgraph"
)

// Align walks the tree bottom-up and merges child representations into a
// consolidated one at each internal node: leaves are seeded directly from
// their sequences, then every internal node fuses its children, keeps the
// result only if it compresses at least as well as the children did (minus
// the configured margin), and self-refines accepted results until an
// alignment pass reports no further work or the cap is hit.
//
// A rejected merge is not an error: the node is left without a
// representation and its parent falls back to merging against the
// grandchildren instead. Align returns the root's representation, which is
// nil if consolidation never reached the root.
func (t *Tree) Align(backend seqgraph.Backend, conf *config.Config) (seqgraph.Graph, error) {
	if t.NumLeaves() == 1 {
		// a single taxon has nothing to merge with
		return nil, nil
	}

	if err := os.MkdirAll(conf.TmpDir, 0755); err != nil {
		return nil, err
	}

	// seed every leaf from its input sequence and materialize it for the
	// file-based alignment passes
	for _, n := range t.Leaves() {
		seq, ok := t.Seqs[n]
		if !ok {
			return nil, fmt.Errorf("no sequence attached to leaf %q", n.Name)
		}

		n.Graph = backend.FromSequence(n.Name, strings.ToUpper(seq))
		n.FAPath = filepath.Join(conf.TmpDir, n.Name)
		if conf.Verbose {
			stderr.Printf("------> Outputting %s.fa", n.FAPath)
		}
		if err := writeGraphFasta(n.Graph, n.FAPath+".fa"); err != nil {
			return nil, err
		}
	}

	for _, n := range t.Postorder() {
		if n.IsLeaf() {
			continue
		}

		n.FAPath = filepath.Join(conf.TmpDir, n.Name)
		c0, c1 := n.Children[0], n.Children[1]
		stderr.Printf("Attempting to fuse %s with %s @ %s", c0.Name, c1.Name, n.Name)

		var err error
		switch {
		case c0.Graph != nil && c1.Graph != nil:
			if n.Graph, err = t.merge0(n, c0, c1, backend, conf); err != nil {
				return nil, err
			}
			if n.Graph == nil {
				// quality gate rejected the merge; the parent will
				// fall back one level
				continue
			}
		case c0.Graph != nil:
			if n.Graph, err = t.merge1(n, c0, c1, backend, conf); err != nil {
				return nil, err
			}
		case c1.Graph != nil:
			if n.Graph, err = t.merge1(n, c1, c0, backend, conf); err != nil {
				return nil, err
			}
		default:
			// neither child resolved; defer to the next level up
			continue
		}

		if n.Graph == nil {
			// both fallback branches failed. leave the subtree
			// unresolved and keep walking
			stderr.Printf("WARNING no fallback merge succeeded @ %s", n.Name)
			continue
		}

		if conf.Check {
			if err := t.check(n.Graph, conf.Verbose); err != nil {
				return nil, err
			}
		}
		if err := writeGraphFasta(n.Graph, n.FAPath+".fa"); err != nil {
			return nil, err
		}

		stderr.Printf("--> compression ratio: %v", n.Graph.CompressionRatio(false))
		stderr.Printf("--> number of blocks: %d", n.Graph.NumBlocks())
		stderr.Printf("--> number of members: %d", len(n.Graph.Names()))
	}

	return t.Root.Graph, nil
}

// merge0 fuses the representations of a and b into a candidate for n, runs
// one alignment pass over it, gates it on compression ratio against the
// children's own ratios, and self-refines an accepted candidate.
func (t *Tree) merge0(n, a, b *Node, backend seqgraph.Backend, conf *config.Config) (seqgraph.Graph, error) {
	if a.Graph == nil || b.Graph == nil {
		return nil, nil
	}

	fused := backend.Fuse(a.Graph, b.Graph)
	graph, _, err := fused.Union(a.FAPath, b.FAPath, filepath.Join(conf.TmpDir, n.Name))
	if err != nil {
		return nil, err
	}

	// a merge that compresses worse than the sequences did on their own
	// (past the configured slack) is degenerate; skip it
	cutoff := math.Min(a.Graph.CompressionRatio(false), b.Graph.CompressionRatio(false)) - conf.QualityMargin
	cutoff = math.Max(0, cutoff)
	if c := graph.CompressionRatio(false); c < cutoff {
		stderr.Printf("SKIPPING %s %v -- %v", n.Name, c, cutoff)
		stderr.Printf("CHILDREN %s %s", n.Children[0].Name, n.Children[1].Name)
		return nil, nil
	}

	// re-align the accepted candidate against itself until a pass reports
	// no further work. the cap bounds the loop; a candidate that is still
	// improving at the cap is kept as-is
	for i := 0; i < conf.SelfMergeCap; i++ {
		if conf.Verbose {
			stderr.Printf("----> merge round %d", i)
		}
		if conf.Check {
			if err := t.check(graph, conf.Verbose); err != nil {
				return nil, err
			}
		}

		itr := filepath.Join(conf.TmpDir, fmt.Sprintf("%s_iter_%d", n.Name, i))
		if err := writeGraphFasta(graph, itr+".fa"); err != nil {
			return nil, err
		}

		var more bool
		if graph, more, err = graph.Union(itr, itr, itr); err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	return graph, nil
}

// merge1 falls back one level: node holds a representation but its sibling
// sib does not, so try node against each of sib's own children instead.
// When both attempts succeed the one compressing better under the extensive
// metric wins; when neither does, the caller gets nothing.
func (t *Tree) merge1(n, node, sib *Node, backend seqgraph.Backend, conf *config.Config) (seqgraph.Graph, error) {
	var g1, g2 seqgraph.Graph
	var err error

	if len(sib.Children) == 2 {
		if g1, err = t.merge0(n, node, sib.Children[0], backend, conf); err != nil {
			return nil, err
		}
		if g2, err = t.merge0(n, node, sib.Children[1], backend, conf); err != nil {
			return nil, err
		}
	}

	switch {
	case g1 != nil && g2 != nil:
		if g1.CompressionRatio(true) > g2.CompressionRatio(true) {
			return g1, nil
		}
		return g2, nil
	case g1 != nil:
		return g1, nil
	default:
		return g2, nil
	}
}

// check verifies that every leaf sequence reachable from the graph is
// exactly reconstructible from it. A mismatch means the merge corrupted a
// member: corruption, not a quality problem, so it aborts the run.
func (t *Tree) check(g seqgraph.Graph, verbose bool) error {
	members := make(map[string]bool)
	for _, name := range g.Names() {
		members[name] = true
	}

	uncompressed := 0
	for _, n := range t.Leaves() {
		if !members[n.Name] {
			continue
		}

		if verbose {
			stderr.Printf("--> Checking %s", n.Name)
		}
		orig := strings.ToUpper(t.Seqs[n])
		rec, err := g.Extract(n.Name)
		if err != nil {
			return fmt.Errorf("extracting %s: %v", n.Name, err)
		}
		uncompressed += len(orig)

		if orig != rec {
			return fmt.Errorf(
				"bad sequence reconstruction for %s: first mismatch at %d (%d vs %d bp)",
				n.Name, firstDiff(orig, rec), len(orig), len(rec),
			)
		}
		if verbose {
			stderr.Printf("+++ Verified %s", n.Name)
		}
	}

	if verbose {
		stderr.Println("all sequences correctly reconstructed")
		stderr.Printf("--- total input sequence: %d", uncompressed)
	}
	return nil
}

// firstDiff is the first index where a and b disagree.
func firstDiff(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// writeGraphFasta materializes a graph's blocks as a FASTA file.
func writeGraphFasta(g seqgraph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return g.WriteFasta(f)
}
