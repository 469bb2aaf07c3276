// Package pangraph builds a guide tree from pairwise sequence distances and
// progressively merges sequences, bottom-up over that tree, into a single
// compressed pangenome representation.
package pangraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ParseMatrix reads a pairwise distance table. The first line is the row
// count; each following row is a path-like identifier token and up to
// rowIndex+1 similarity values in [0,1] (lower triangular, diagonal
// included). Rows whose derived identifier repeats an earlier row are
// dropped outright, first occurrence kept.
//
// The similarities are converted to distances (1 - value), averaged with
// their transpose and zero-diagonaled, so the returned matrix is square,
// symmetric and positionally aligned with the returned name list.
func ParseMatrix(r io.Reader) (*mat.Dense, []string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return nil, nil, fmt.Errorf("empty distance matrix")
	}
	nrows, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || nrows < 1 {
		return nil, nil, fmt.Errorf("malformed row count %q: expected a positive integer", strings.TrimSpace(sc.Text()))
	}

	// raw similarities at their file positions; duplicate rows noted for
	// deletion so later rows keep their column alignment
	raw := mat.NewDense(nrows, nrows, nil)
	var names []string
	var dropped []int
	seen := make(map[string]bool, nrows)

	row := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if row >= nrows {
			return nil, nil, fmt.Errorf("more than the declared %d rows", nrows)
		}

		fields := strings.Fields(line)
		name := trimExt(path.Base(fields[0]))
		if seen[name] {
			dropped = append(dropped, row)
			row++
			continue
		}
		seen[name] = true
		names = append(names, name)

		vals := fields[1:]
		if len(vals) > row+1 {
			return nil, nil, fmt.Errorf("row %d: %d values for %d columns", row, len(vals), row+1)
		}
		for col, field := range vals {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: non-numeric value %q", row, field)
			}
			raw.Set(row, col, v)
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if row != nrows {
		return nil, nil, fmt.Errorf("expected %d rows, found %d", nrows, row)
	}

	if len(dropped) > 0 {
		raw = dropRowsCols(raw, dropped)
	}

	// similarity -> distance, symmetrized against the transpose
	n := nrows - len(dropped)
	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			dist.Set(i, j, ((1-raw.At(i, j))+(1-raw.At(j, i)))/2)
		}
	}

	return dist, names, nil
}

// ParseMatrixFile is ParseMatrix against a file on the local filesystem.
func ParseMatrixFile(path string) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	dist, names, err := ParseMatrix(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", path, err)
	}
	return dist, names, nil
}

// trimExt drops the filename extension from a row identifier. eg
// "data/plasmids/NZ_CP010574.fa" keys the row "NZ_CP010574"
func trimExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// dropRowsCols removes the rows and columns at the passed indexes. idxs
// must be ascending.
func dropRowsCols(m *mat.Dense, idxs []int) *mat.Dense {
	n, _ := m.Dims()
	drop := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		drop[i] = true
	}

	out := mat.NewDense(n-len(idxs), n-len(idxs), nil)
	r := 0
	for i := 0; i < n; i++ {
		if drop[i] {
			continue
		}
		c := 0
		for j := 0; j < n; j++ {
			if drop[j] {
				continue
			}
			out.Set(r, c, m.At(i, j))
			c++
		}
		r++
	}
	return out
}
