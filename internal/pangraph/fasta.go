package pangraph

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadFasta reads a multi-FASTA file into a map from record name to
// uppercased sequence. Record names are the first whitespace-separated
// token after ">". Duplicate names are rejected: taxa must be unique.
func ReadFasta(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seqs := map[string]string{}
	var name string
	var seq strings.Builder

	flush := func() error {
		if name == "" {
			return nil
		}
		if _, ok := seqs[name]; ok {
			return fmt.Errorf("%s: duplicate record %q", path, name)
		}
		seqs[name] = seq.String()
		seq.Reset()
		return nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return nil, err
			}
			fields := strings.Fields(line[1:])
			if len(fields) == 0 {
				return nil, fmt.Errorf("%s: header with no name", path)
			}
			name = fields[0]
			continue
		}

		if name == "" {
			return nil, fmt.Errorf("%s: sequence before the first header", path)
		}
		seq.WriteString(strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return seqs, nil
}
