package sas

import (
	"fmt"
	"sort"
)

// Version is the only SAS+ file format version understood by Parse and
// produced by Write.
const Version = 3

// Fact fixes one variable to one value.
type Fact struct {
	Var   int
	Value int
}

func (f Fact) String() string {
	return fmt.Sprintf("v%d=%d", f.Var, f.Value)
}

// Less orders facts by variable, then value.
func (f Fact) Less(o Fact) bool {
	if f.Var != o.Var {
		return f.Var < o.Var
	}
	return f.Value < o.Value
}

// Variable is a finite-domain state variable. The domain size is the
// number of value names.
type Variable struct {
	Name       string
	AxiomLayer int
	Values     []string
}

// Size returns the domain size of the variable.
func (v Variable) Size() int {
	return len(v.Values)
}

// Derived reports whether the variable is set by axioms.
func (v Variable) Derived() bool {
	return v.AxiomLayer != -1
}

// MutexGroup is a set of pairwise mutually exclusive facts.
type MutexGroup struct {
	Facts []Fact
}

// Effect is a pre_post rule: if Cond holds, set Var from Pre (-1 for any
// value) to Post.
type Effect struct {
	Var  int
	Pre  int
	Post int
	Cond []Fact
}

// Operator is a grounded action of the task.
type Operator struct {
	Name    string
	Prevail []Fact
	PrePost []Effect
	Cost    int
}

// Axiom sets a derived variable to Effect.Value when Condition holds.
type Axiom struct {
	Condition []Fact
	Effect    Fact
}

// Task is a planning task in finite-domain representation.
type Task struct {
	Variables []Variable
	Mutexes   []MutexGroup
	Init      []int
	Goal      []Fact
	Operators []Operator
	Axioms    []Axiom
	Metric    bool
}

// HasConditionalEffects reports whether any effect of the operator is
// conditional.
func (op *Operator) HasConditionalEffects() bool {
	for _, eff := range op.PrePost {
		if len(eff.Cond) > 0 {
			return true
		}
	}
	return false
}

// Conditions returns the combined applicability conditions of the
// operator (prevail conditions and preconditions), sorted by variable.
func (op *Operator) Conditions() []Fact {
	conds := make([]Fact, 0, len(op.Prevail)+len(op.PrePost))
	conds = append(conds, op.Prevail...)
	seen := make(map[int]struct{}, len(op.PrePost))
	for _, eff := range op.PrePost {
		if eff.Pre == -1 {
			continue
		}
		if _, ok := seen[eff.Var]; ok {
			continue
		}
		seen[eff.Var] = struct{}{}
		conds = append(conds, Fact{Var: eff.Var, Value: eff.Pre})
	}
	SortFacts(conds)
	return conds
}

// Canonical returns a copy of the operator with sorted prevail conditions
// and a sorted, deduplicated pre_post list. Canonical is idempotent.
func (op Operator) Canonical() Operator {
	prevail := append([]Fact(nil), op.Prevail...)
	SortFacts(prevail)
	return Operator{
		Name:    op.Name,
		Prevail: prevail,
		PrePost: CanonicalPrePost(op.PrePost),
		Cost:    op.Cost,
	}
}

// CanonicalPrePost sorts effects by (var, pre, post, cond) and removes
// duplicates, comparing cond as an ordered tuple.
func CanonicalPrePost(effects []Effect) []Effect {
	if len(effects) == 0 {
		return nil
	}
	out := make([]Effect, 0, len(effects))
	for _, eff := range effects {
		out = append(out, Effect{Var: eff.Var, Pre: eff.Pre, Post: eff.Post, Cond: append([]Fact(nil), eff.Cond...)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareEffects(out[i], out[j]) < 0
	})
	uniq := out[:0]
	for i, eff := range out {
		if i > 0 && compareEffects(uniq[len(uniq)-1], eff) == 0 {
			continue
		}
		uniq = append(uniq, eff)
	}
	return uniq
}

func compareEffects(a, b Effect) int {
	switch {
	case a.Var != b.Var:
		return cmpInt(a.Var, b.Var)
	case a.Pre != b.Pre:
		return cmpInt(a.Pre, b.Pre)
	case a.Post != b.Post:
		return cmpInt(a.Post, b.Post)
	}
	return compareFacts(a.Cond, b.Cond)
}

func compareFacts(a, b []Fact) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i].Less(b[i]) {
				return -1
			}
			return 1
		}
	}
	return cmpInt(len(a), len(b))
}

// CompareOperators orders operators by name, prevail and pre_post.
func CompareOperators(a, b *Operator) int {
	if a.Name != b.Name {
		if a.Name < b.Name {
			return -1
		}
		return 1
	}
	if c := compareFacts(a.Prevail, b.Prevail); c != 0 {
		return c
	}
	for i := 0; i < len(a.PrePost) && i < len(b.PrePost); i++ {
		if c := compareEffects(a.PrePost[i], b.PrePost[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a.PrePost), len(b.PrePost))
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortFacts sorts facts in place by variable, then value.
func SortFacts(facts []Fact) {
	sort.Slice(facts, func(i, j int) bool { return facts[i].Less(facts[j]) })
}

// OperatorIndex maps operator names to their position in the task.
type OperatorIndex struct {
	index     map[string]int
	ambiguous map[string]struct{}
}

// OperatorIndex builds a name lookup over the task's operators.
func (t *Task) OperatorIndex() *OperatorIndex {
	idx := &OperatorIndex{
		index:     make(map[string]int, len(t.Operators)),
		ambiguous: map[string]struct{}{},
	}
	for i := range t.Operators {
		name := t.Operators[i].Name
		if _, ok := idx.index[name]; ok {
			idx.ambiguous[name] = struct{}{}
			continue
		}
		idx.index[name] = i
	}
	return idx
}

// Lookup returns the index of the operator with the given name.
func (idx *OperatorIndex) Lookup(name string) (int, error) {
	if _, ok := idx.ambiguous[name]; ok {
		return -1, &LookupError{Name: name, Ambiguous: true}
	}
	i, ok := idx.index[name]
	if !ok {
		return -1, &LookupError{Name: name}
	}
	return i, nil
}

// Clone returns a deep copy of the task. Empty lists stay nil.
func (t *Task) Clone() *Task {
	out := &Task{
		Init:   append([]int(nil), t.Init...),
		Goal:   append([]Fact(nil), t.Goal...),
		Metric: t.Metric,
	}
	for _, v := range t.Variables {
		out.Variables = append(out.Variables, Variable{Name: v.Name, AxiomLayer: v.AxiomLayer, Values: append([]string(nil), v.Values...)})
	}
	for _, m := range t.Mutexes {
		out.Mutexes = append(out.Mutexes, MutexGroup{Facts: append([]Fact(nil), m.Facts...)})
	}
	for i := range t.Operators {
		out.Operators = append(out.Operators, t.Operators[i].clone())
	}
	for _, ax := range t.Axioms {
		out.Axioms = append(out.Axioms, Axiom{Condition: append([]Fact(nil), ax.Condition...), Effect: ax.Effect})
	}
	return out
}

func (op *Operator) clone() Operator {
	var effects []Effect
	for _, eff := range op.PrePost {
		effects = append(effects, Effect{Var: eff.Var, Pre: eff.Pre, Post: eff.Post, Cond: append([]Fact(nil), eff.Cond...)})
	}
	return Operator{
		Name:    op.Name,
		Prevail: append([]Fact(nil), op.Prevail...),
		PrePost: effects,
		Cost:    op.Cost,
	}
}
