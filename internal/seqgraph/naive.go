package seqgraph

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// NaiveBackend builds content-addressed block tables: the simplest structure
// satisfying the Graph contract. It stands in when no alignment-based
// implementation is wired in, so the only consolidation it ever finds is
// between members with byte-identical sequences.
type NaiveBackend struct{}

// NewNaive returns a backend producing naive block-table graphs.
func NewNaive() NaiveBackend {
	return NaiveBackend{}
}

// naive stores whole sequences as blocks keyed by content hash, and each
// member as an ordered walk over block ids.
type naive struct {
	// Blocks maps block id (content hash) to its sequence
	Blocks map[string]string `json:"blocks"`

	// Paths maps member name to its ordered block ids
	Paths map[string][]string `json:"paths"`
}

// blockID is the content address of a block
func blockID(seq string) string {
	sum := blake3.Sum256([]byte(seq))
	return hex.EncodeToString(sum[:8])
}

// FromSequence builds a graph with one member backed by one block.
func (NaiveBackend) FromSequence(name, seq string) Graph {
	id := blockID(seq)
	return &naive{
		Blocks: map[string]string{id: seq},
		Paths:  map[string][]string{name: {id}},
	}
}

// Fuse merges the block tables and member paths of a and b. Blocks are
// content addressed, so identical blocks collapse here without alignment.
func (NaiveBackend) Fuse(a, b Graph) Graph {
	ga, gb := a.(*naive), b.(*naive)

	out := &naive{
		Blocks: make(map[string]string, len(ga.Blocks)+len(gb.Blocks)),
		Paths:  make(map[string][]string, len(ga.Paths)+len(gb.Paths)),
	}
	for _, g := range []*naive{ga, gb} {
		for id, seq := range g.Blocks {
			out.Blocks[id] = seq
		}
		for name, path := range g.Paths {
			out.Paths[name] = append([]string(nil), path...)
		}
	}

	return out
}

// Decode rebuilds a naive graph serialized by Encode.
func (NaiveBackend) Decode(raw json.RawMessage) (Graph, error) {
	var g naive
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decoding block table: %v", err)
	}
	return &g, nil
}

// Union is where an aligning backend would consolidate homologous regions.
// Content addressing already collapsed identical blocks during Fuse, so a
// single pass finds nothing further to do.
func (g *naive) Union(pathA, pathB, outPrefix string) (Graph, bool, error) {
	return g, false, nil
}

// CompressionRatio is total member length over total block length. A naive
// table has no partially shared blocks to weigh, so the extensive metric
// coincides with the plain one.
func (g *naive) CompressionRatio(extensive bool) float64 {
	var blockLen, memberLen int
	for _, seq := range g.Blocks {
		blockLen += len(seq)
	}
	for _, path := range g.Paths {
		for _, id := range path {
			memberLen += len(g.Blocks[id])
		}
	}

	if blockLen == 0 {
		return 0
	}
	return float64(memberLen) / float64(blockLen)
}

// Extract rebuilds a member's sequence by walking its block path.
func (g *naive) Extract(name string) (string, error) {
	path, ok := g.Paths[name]
	if !ok {
		return "", fmt.Errorf("no member %q in the graph", name)
	}

	var seq strings.Builder
	for _, id := range path {
		seq.WriteString(g.Blocks[id])
	}
	return seq.String(), nil
}

// Names lists the graph's members, sorted for deterministic output.
func (g *naive) Names() []string {
	names := make([]string, 0, len(g.Paths))
	for name := range g.Paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumBlocks is the number of blocks in the table.
func (g *naive) NumBlocks() int {
	return len(g.Blocks)
}

// WriteFasta writes one record per block, in block id order.
func (g *naive) WriteFasta(w io.Writer) error {
	ids := make([]string, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := fmt.Fprintf(w, ">%s\n%s\n", id, g.Blocks[id]); err != nil {
			return err
		}
	}
	return nil
}

// Encode serializes the block table for embedding in a tree document.
func (g *naive) Encode() (json.RawMessage, error) {
	return json.Marshal(g)
}
