package pangraph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseNewick reads a tree in the Newick dialect written by WriteNewick:
// parenthesized children before each node's label, a branch length after
// every colon, a semicolon at the end.
func ParseNewick(r io.Reader) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	p := &newickParser{buf: strings.TrimSpace(string(data))}
	root, err := p.node(nil)
	if err != nil {
		return nil, err
	}
	if p.peek() != ';' {
		return nil, fmt.Errorf("newick: expected ';' at offset %d", p.pos)
	}

	return &Tree{Root: root}, nil
}

type newickParser struct {
	buf string
	pos int
}

func (p *newickParser) peek() byte {
	if p.pos >= len(p.buf) {
		return 0
	}
	return p.buf[p.pos]
}

// node parses one subtree: an optional parenthesized child list, a label,
// and an optional branch length.
func (p *newickParser) node(parent *Node) (*Node, error) {
	n := &Node{Parent: parent}

	if p.peek() == '(' {
		p.pos++
		for {
			child, err := p.node(n)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)

			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("newick: expected ')' at offset %d", p.pos)
		}
		p.pos++
	}

	n.Name = p.until("(),:;")

	if p.peek() == ':' {
		p.pos++
		field := p.until("(),;")
		dist, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("newick: bad branch length %q at offset %d", field, p.pos)
		}
		n.Dist = &dist
	}

	return n, nil
}

// until consumes and returns characters up to (not including) any of stop.
func (p *newickParser) until(stop string) string {
	start := p.pos
	for p.pos < len(p.buf) && !strings.ContainsRune(stop, rune(p.buf[p.pos])) {
		p.pos++
	}
	return p.buf[start:p.pos]
}
