// Package plan reads and writes plan files: one parenthesized operator
// name per line, optionally followed by a "; cost = N (kind)" comment.
package plan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	UnitCost    = "unit cost"
	GeneralCost = "general cost"
)

var costLine = regexp.MustCompile(`^;\s*cost\s*=\s*(\d+)\s*(?:\((.*)\))?\s*$`)

// Plan is an ordered list of operator names plus the cost recorded in
// the file, if any.
type Plan struct {
	Steps    []string
	Cost     int
	CostKind string
	HasCost  bool
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Unique returns the step names in order of first occurrence, without
// repeats.
func (p *Plan) Unique() []string {
	seen := make(map[string]struct{}, len(p.Steps))
	var out []string
	for _, s := range p.Steps {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Read parses a plan file. Blank lines and comments other than the cost
// comment are ignored.
func Read(r io.Reader) (*Plan, error) {
	reader := bufio.NewReader(r)
	p := &Plan{}
	lineNo := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading plan: %w", err)
		}
		lineNo++
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, ";"):
			if m := costLine.FindStringSubmatch(line); m != nil {
				p.Cost, _ = strconv.Atoi(m[1])
				p.CostKind = m[2]
				p.HasCost = true
			}
		case strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")"):
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				return nil, fmt.Errorf("invalid plan step on line %d: empty operator name", lineNo)
			}
			p.Steps = append(p.Steps, name)
		default:
			return nil, fmt.Errorf("invalid plan step on line %d: %q is not parenthesized", lineNo, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return p, nil
}

// Write emits the plan in the same format Read accepts. The cost comment
// is written only if the plan has a cost.
func Write(w io.Writer, p *Plan) error {
	bw := bufio.NewWriter(w)
	for _, s := range p.Steps {
		fmt.Fprintf(bw, "(%s)\n", s)
	}
	if p.HasCost {
		kind := p.CostKind
		if kind == "" {
			kind = GeneralCost
		}
		fmt.Fprintf(bw, "; cost = %d (%s)\n", p.Cost, kind)
	}
	return bw.Flush()
}
