package sas

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const maxLineLength = 16 * 1024 * 1024

type parser struct {
	scanner *bufio.Scanner
	line    int
	section string
}

// Parse reads a task in SAS+ format version 3 and validates it.
//
// Blank lines and surrounding whitespace are ignored. Any unexpected
// keyword, count or number yields a *FormatError naming the section and
// line; a parsed task that violates a structural invariant yields a
// *ValidationError.
func Parse(r io.Reader) (*Task, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	p := &parser{scanner: scanner}

	task, err := p.parseTask()
	if err != nil {
		return nil, err
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

func (p *parser) parseTask() (*Task, error) {
	var err error
	task := &Task{}

	p.section = "version"
	if err = p.expect("begin_version"); err != nil {
		return nil, err
	}
	version, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, p.errorf("unsupported version %d, only version %d is supported", version, Version)
	}
	if err = p.expect("end_version"); err != nil {
		return nil, err
	}

	p.section = "metric"
	if err = p.expect("begin_metric"); err != nil {
		return nil, err
	}
	metric, err := p.nextInt()
	if err != nil {
		return nil, err
	}
	if metric != 0 && metric != 1 {
		return nil, p.errorf("metric must be 0 or 1, got %d", metric)
	}
	task.Metric = metric == 1
	if err = p.expect("end_metric"); err != nil {
		return nil, err
	}

	p.section = "variables"
	numVars, err := p.nextCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numVars; i++ {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		task.Variables = append(task.Variables, v)
	}

	p.section = "mutex groups"
	numMutexes, err := p.nextCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numMutexes; i++ {
		m, err := p.parseMutexGroup()
		if err != nil {
			return nil, err
		}
		task.Mutexes = append(task.Mutexes, m)
	}

	p.section = "state"
	if err = p.expect("begin_state"); err != nil {
		return nil, err
	}
	for i := 0; i < numVars; i++ {
		val, err := p.nextInt()
		if err != nil {
			return nil, err
		}
		task.Init = append(task.Init, val)
	}
	if err = p.expect("end_state"); err != nil {
		return nil, err
	}

	p.section = "goal"
	if err = p.expect("begin_goal"); err != nil {
		return nil, err
	}
	if task.Goal, err = p.parseFacts(); err != nil {
		return nil, err
	}
	if err = p.expect("end_goal"); err != nil {
		return nil, err
	}

	p.section = "operators"
	numOps, err := p.nextCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numOps; i++ {
		op, err := p.parseOperator()
		if err != nil {
			return nil, err
		}
		task.Operators = append(task.Operators, op)
	}

	p.section = "axioms"
	numAxioms, err := p.nextCount()
	if err != nil {
		return nil, err
	}
	for i := 0; i < numAxioms; i++ {
		ax, err := p.parseAxiom()
		if err != nil {
			return nil, err
		}
		task.Axioms = append(task.Axioms, ax)
	}

	p.section = "end of file"
	if line, ok, err := p.next(); err != nil {
		return nil, err
	} else if ok {
		return nil, p.errorf("unexpected trailing content %q", line)
	}
	return task, nil
}

func (p *parser) parseVariable() (Variable, error) {
	if err := p.expect("begin_variable"); err != nil {
		return Variable{}, err
	}
	name, err := p.nextLine()
	if err != nil {
		return Variable{}, err
	}
	layer, err := p.nextInt()
	if err != nil {
		return Variable{}, err
	}
	size, err := p.nextCount()
	if err != nil {
		return Variable{}, err
	}
	v := Variable{Name: name, AxiomLayer: layer, Values: make([]string, 0, size)}
	for i := 0; i < size; i++ {
		value, err := p.nextLine()
		if err != nil {
			return Variable{}, err
		}
		v.Values = append(v.Values, value)
	}
	if err := p.expect("end_variable"); err != nil {
		return Variable{}, err
	}
	return v, nil
}

func (p *parser) parseMutexGroup() (MutexGroup, error) {
	if err := p.expect("begin_mutex_group"); err != nil {
		return MutexGroup{}, err
	}
	facts, err := p.parseFacts()
	if err != nil {
		return MutexGroup{}, err
	}
	if err := p.expect("end_mutex_group"); err != nil {
		return MutexGroup{}, err
	}
	return MutexGroup{Facts: facts}, nil
}

func (p *parser) parseOperator() (Operator, error) {
	if err := p.expect("begin_operator"); err != nil {
		return Operator{}, err
	}
	name, err := p.nextLine()
	if err != nil {
		return Operator{}, err
	}
	op := Operator{Name: name}
	if op.Prevail, err = p.parseFacts(); err != nil {
		return Operator{}, err
	}
	numEffects, err := p.nextCount()
	if err != nil {
		return Operator{}, err
	}
	for i := 0; i < numEffects; i++ {
		eff, err := p.parseEffect()
		if err != nil {
			return Operator{}, err
		}
		op.PrePost = append(op.PrePost, eff)
	}
	if op.Cost, err = p.nextInt(); err != nil {
		return Operator{}, err
	}
	if err := p.expect("end_operator"); err != nil {
		return Operator{}, err
	}
	return op, nil
}

// parseEffect reads "<n> [<cvar> <cval>]*n <var> <pre> <post>".
func (p *parser) parseEffect() (Effect, error) {
	fields, err := p.nextInts()
	if err != nil {
		return Effect{}, err
	}
	if len(fields) < 4 || fields[0] < 0 || len(fields) != 4+2*fields[0] {
		return Effect{}, p.errorf("malformed effect line with %d numbers", len(fields))
	}
	eff := Effect{}
	for i := 0; i < fields[0]; i++ {
		eff.Cond = append(eff.Cond, Fact{Var: fields[1+2*i], Value: fields[2+2*i]})
	}
	rest := fields[1+2*fields[0]:]
	eff.Var, eff.Pre, eff.Post = rest[0], rest[1], rest[2]
	return eff, nil
}

func (p *parser) parseAxiom() (Axiom, error) {
	if err := p.expect("begin_rule"); err != nil {
		return Axiom{}, err
	}
	cond, err := p.parseFacts()
	if err != nil {
		return Axiom{}, err
	}
	fields, err := p.nextInts()
	if err != nil {
		return Axiom{}, err
	}
	if len(fields) != 3 {
		return Axiom{}, p.errorf("axiom effect needs <var> <old> <new>, got %d numbers", len(fields))
	}
	if (fields[2] != 0 && fields[2] != 1) || fields[1] != 1-fields[2] {
		return Axiom{}, p.errorf("axiom effect %d -> %d is not a binary flip", fields[1], fields[2])
	}
	if err := p.expect("end_rule"); err != nil {
		return Axiom{}, err
	}
	return Axiom{Condition: cond, Effect: Fact{Var: fields[0], Value: fields[2]}}, nil
}

// parseFacts reads a count followed by that many "<var> <value>" lines.
func (p *parser) parseFacts() ([]Fact, error) {
	n, err := p.nextCount()
	if err != nil {
		return nil, err
	}
	var facts []Fact
	for i := 0; i < n; i++ {
		fields, err := p.nextInts()
		if err != nil {
			return nil, err
		}
		if len(fields) != 2 {
			return nil, p.errorf("expected <var> <value>, got %d numbers", len(fields))
		}
		facts = append(facts, Fact{Var: fields[0], Value: fields[1]})
	}
	return facts, nil
}

// next returns the next non-blank line, trimmed. ok is false at end of
// input.
func (p *parser) next() (string, bool, error) {
	for p.scanner.Scan() {
		p.line++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}
		return line, true, nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", false, &FormatError{Section: p.section, Line: p.line, Msg: err.Error()}
	}
	return "", false, nil
}

func (p *parser) nextLine() (string, error) {
	line, ok, err := p.next()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", p.errorf("unexpected end of input")
	}
	return line, nil
}

func (p *parser) expect(keyword string) error {
	line, err := p.nextLine()
	if err != nil {
		return err
	}
	if line != keyword {
		return p.errorf("expected %q, got %q", keyword, line)
	}
	return nil
}

func (p *parser) nextInt() (int, error) {
	line, err := p.nextLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, p.errorf("expected an integer, got %q", line)
	}
	return n, nil
}

func (p *parser) nextCount() (int, error) {
	n, err := p.nextInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, p.errorf("negative count %d", n)
	}
	return n, nil
}

func (p *parser) nextInts() ([]int, error) {
	line, err := p.nextLine()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(line)
	out := make([]int, len(fields))
	for i, f := range fields {
		if out[i], err = strconv.Atoi(f); err != nil {
			return nil, p.errorf("expected integers, got %q", line)
		}
	}
	return out, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &FormatError{Section: p.section, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}
