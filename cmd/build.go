package cmd

import (
	"os"

	"github.com/jemmacfen/pangraph/internal/pangraph"
	"github.com/spf13/cobra"
)

var (
	buildMatrix string
	buildSeqs   string
	buildOut    string
	buildNewick string
)

// buildCmd infers the guide tree from a pairwise distance table
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a guide tree from a pairwise distance matrix",
	Run:   runBuild,
	Long: `
Build a binary guide tree over the input taxa by neighbor joining their
pairwise distance matrix. The matrix file holds one header line with the row
count and one lower-triangular row of similarities per taxon, keyed by the
taxon's source path. Rows repeating an earlier taxon are dropped.

Pass --seqs to bind each taxon's sequence to its leaf, which the align
command needs. Writing to a .zst path compresses the tree document.`,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildMatrix, "matrix", "m", "", "path to the pairwise distance table")
	buildCmd.Flags().StringVarP(&buildSeqs, "seqs", "s", "", "path to a multi-FASTA with one record per taxon")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "tree.json", "path to write the tree document to")
	buildCmd.Flags().StringVarP(&buildNewick, "newick", "n", "", "path to also write the tree in Newick form")
	buildCmd.MarkFlagRequired("matrix")
}

// runBuild parses the matrix, joins the tree and persists it.
func runBuild(cmd *cobra.Command, args []string) {
	dist, names, err := pangraph.ParseMatrixFile(buildMatrix)
	if err != nil {
		stderr.Fatalln(err)
	}

	tree, err := pangraph.NJ(dist, names)
	if err != nil {
		stderr.Fatalln(err)
	}

	if buildSeqs != "" {
		seqs, err := pangraph.ReadFasta(buildSeqs)
		if err != nil {
			stderr.Fatalln(err)
		}
		if err := tree.Attach(seqs); err != nil {
			stderr.Fatalln(err)
		}
	}

	if err := tree.SaveJSON(buildOut); err != nil {
		stderr.Fatalln(err)
	}
	if buildNewick != "" {
		f, err := os.Create(buildNewick)
		if err != nil {
			stderr.Fatalln(err)
		}
		if err := tree.WriteNewick(f); err != nil {
			f.Close()
			stderr.Fatalln(err)
		}
		f.Close()
	}

	stderr.Printf("joined %d taxa -> %s", tree.NumLeaves(), buildOut)
}
