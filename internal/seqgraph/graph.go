// Package seqgraph is the boundary between the guide-tree walk and the
// structure that actually stores merged sequences. The walk only ever sees
// these two interfaces; the block storage, alignment and extraction machinery
// behind them is a separate concern.
package seqgraph

import (
	"encoding/json"
	"io"
)

// Graph is one consolidated representation of one or more member sequences.
type Graph interface {
	// Union runs one alignment-based consolidation pass over the graph,
	// reading the materialized FASTAs at pathA and pathB (sans .fa suffix)
	// and writing intermediates under outPrefix. It returns the updated
	// graph and whether another pass could still improve it.
	Union(pathA, pathB, outPrefix string) (Graph, bool, error)

	// CompressionRatio is total member sequence length over total graph
	// length. The extensive variant weighs per-member sharing and is only
	// used to break ties between competing fallback merges.
	CompressionRatio(extensive bool) float64

	// Extract rebuilds the complete sequence of one member by name.
	Extract(name string) (string, error)

	// Names lists the graph's member sequences.
	Names() []string

	// NumBlocks is the number of storage blocks backing the graph.
	NumBlocks() int

	// WriteFasta writes the graph's blocks as FASTA records.
	WriteFasta(w io.Writer) error

	// Encode serializes the graph for embedding in a tree document.
	Encode() (json.RawMessage, error)
}

// Backend builds graphs. The tree walk is generic over it: any structure
// that can seed a graph from a raw sequence, fuse two graphs without
// aligning them, and decode a persisted graph can drive the merge.
type Backend interface {
	// FromSequence builds a singleton graph holding one named sequence.
	FromSequence(name, seq string) Graph

	// Fuse is the structural union of two graphs: members and blocks of
	// both, no alignment performed.
	Fuse(a, b Graph) Graph

	// Decode rebuilds a graph serialized by Encode.
	Decode(raw json.RawMessage) (Graph, error)
}
