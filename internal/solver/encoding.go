package solver

import (
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// encoding translates an ordered plan into a circuit over one keep
// literal per step. The root literal holds iff the kept steps, applied in
// plan order, are applicable and reach the goal.
type encoding struct {
	c    *logic.C
	keep []z.Lit
	root z.Lit
}

func newEncoding(task *sas.Task, ops []*sas.Operator) *encoding {
	e := &encoding{c: logic.NewC(), keep: make([]z.Lit, len(ops))}
	for i := range ops {
		e.keep[i] = e.c.Lit()
	}

	// writers[v] lists the steps writing v, in plan order
	writers := make([][]int, len(task.Variables))
	for i, op := range ops {
		for _, eff := range op.PrePost {
			writers[eff.Var] = append(writers[eff.Var], i)
		}
	}
	post := func(step, v int) int {
		for _, eff := range ops[step].PrePost {
			if eff.Var == v {
				return eff.Post
			}
		}
		return -1
	}

	// holds returns a literal that is true iff f holds before step j
	holds := func(f sas.Fact, j int) z.Lit {
		h := e.c.F
		if task.Init[f.Var] == f.Value {
			h = e.c.T
		}
		for _, w := range writers[f.Var] {
			if w >= j {
				break
			}
			t := e.c.F
			if post(w, f.Var) == f.Value {
				t = e.c.T
			}
			h = e.c.Choice(e.keep[w], t, h)
		}
		return h
	}

	var parts []z.Lit
	for j, op := range ops {
		var conds []z.Lit
		for _, f := range op.Conditions() {
			conds = append(conds, holds(f, j))
		}
		if len(conds) > 0 {
			parts = append(parts, e.c.Implies(e.keep[j], e.c.Ands(conds...)))
		}
	}
	for _, g := range task.Goal {
		parts = append(parts, holds(g, len(ops)))
	}
	e.root = e.c.Ands(parts...)
	return e
}

// addTo teaches the circuit to g.
func (e *encoding) addTo(g inter.Adder) {
	e.c.ToCnf(g)
}

// cardinality constructs a sorting network over ms and teaches every
// bound to g. ms may repeat literals to weigh them.
func (e *encoding) cardinality(g inter.Adder, ms []z.Lit) *logic.CardSort {
	clen := e.c.Len()
	cs := e.c.CardSort(ms)
	marks := make([]int8, clen, e.c.Len())
	for i := range marks {
		marks[i] = 1
	}
	for w := 0; w <= cs.N(); w++ {
		marks, _ = e.c.CnfSince(g, marks, cs.Leq(w))
	}
	return cs
}

// kept returns the steps whose keep literal is true in the model.
func (e *encoding) kept(g inter.S) []int {
	var out []int
	for i, m := range e.keep {
		if g.Value(m) {
			out = append(out, i)
		}
	}
	return out
}
