package simplify

import (
	"fmt"
	"sort"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

const removed = -1

// renaming maps old variables and values to new ones. A removed variable
// keeps the same value throughout every plan, so conditions on it are
// dropped along with effects on it.
type renaming struct {
	order  []int
	newVar []int
	newVal [][]int
	rename bool
}

func newRenaming(numVars int) *renaming {
	r := &renaming{newVar: make([]int, numVars), newVal: make([][]int, numVars)}
	for v := range r.newVar {
		r.newVar[v] = removed
	}
	return r
}

func (r *renaming) keep(v, size int, values []int) {
	r.newVar[v] = len(r.order)
	r.order = append(r.order, v)
	r.newVal[v] = make([]int, size)
	for val := range r.newVal[v] {
		r.newVal[v][val] = removed
	}
	for i, val := range values {
		r.newVal[v][val] = i
	}
}

func (r *renaming) keepAll(v, size int) {
	values := make([]int, size)
	for val := range values {
		values[val] = val
	}
	r.keep(v, size, values)
}

func (r *renaming) remove(v int) {
	r.newVar[v] = removed
}

// fact maps f. ok is false if its variable or value was removed.
func (r *renaming) fact(f sas.Fact) (sas.Fact, bool) {
	nv := r.newVar[f.Var]
	if nv == removed {
		return sas.Fact{}, false
	}
	val := r.newVal[f.Var][f.Value]
	if val == removed {
		return sas.Fact{}, false
	}
	return sas.Fact{Var: nv, Value: val}, true
}

// condition maps a condition. Facts on removed variables hold trivially
// and are dropped; ok is false if a fact has a removed value, so the
// condition can never hold.
func (r *renaming) condition(facts []sas.Fact) ([]sas.Fact, bool) {
	var out []sas.Fact
	for _, f := range facts {
		if r.newVar[f.Var] == removed {
			continue
		}
		nf, ok := r.fact(f)
		if !ok {
			return nil, false
		}
		out = append(out, nf)
	}
	sas.SortFacts(out)
	return out, true
}

func (r *renaming) operator(op *sas.Operator) (sas.Operator, bool) {
	prevail, ok := r.condition(op.Prevail)
	if !ok {
		return sas.Operator{}, false
	}
	out := sas.Operator{Name: op.Name, Prevail: prevail, Cost: op.Cost}
	for _, eff := range op.PrePost {
		if r.newVar[eff.Var] == removed {
			continue
		}
		cond, ok := r.condition(eff.Cond)
		if !ok {
			continue
		}
		post, ok := r.fact(sas.Fact{Var: eff.Var, Value: eff.Post})
		if !ok {
			continue
		}
		pre := -1
		if eff.Pre != -1 {
			p, ok := r.fact(sas.Fact{Var: eff.Var, Value: eff.Pre})
			if !ok {
				return sas.Operator{}, false
			}
			pre = p.Value
		}
		out.PrePost = append(out.PrePost, sas.Effect{Var: post.Var, Pre: pre, Post: post.Value, Cond: cond})
	}
	if len(out.PrePost) == 0 {
		return sas.Operator{}, false
	}
	return out.Canonical(), true
}

func (r *renaming) apply(task *sas.Task, ops []sas.Operator) *sas.Task {
	out := &sas.Task{Metric: task.Metric}
	for i, v := range r.order {
		old := task.Variables[v]
		variable := sas.Variable{Name: old.Name, AxiomLayer: old.AxiomLayer}
		if r.rename {
			variable.Name = fmt.Sprintf("var%d", i)
		}
		for val, name := range old.Values {
			if r.newVal[v][val] != removed {
				variable.Values = append(variable.Values, name)
			}
		}
		out.Variables = append(out.Variables, variable)
		out.Init = append(out.Init, r.newVal[v][task.Init[v]])
	}

	for _, f := range task.Goal {
		if nf, ok := r.fact(f); ok {
			out.Goal = append(out.Goal, nf)
		}
	}
	sas.SortFacts(out.Goal)

	for _, m := range task.Mutexes {
		var facts []sas.Fact
		for _, f := range m.Facts {
			if nf, ok := r.fact(f); ok {
				facts = append(facts, nf)
			}
		}
		if len(facts) < 2 {
			continue
		}
		sas.SortFacts(facts)
		out.Mutexes = append(out.Mutexes, sas.MutexGroup{Facts: facts})
	}

	for i := range ops {
		if op, ok := r.operator(&ops[i]); ok {
			out.Operators = append(out.Operators, op)
		}
	}
	sort.SliceStable(out.Operators, func(i, j int) bool {
		return sas.CompareOperators(&out.Operators[i], &out.Operators[j]) < 0
	})

	for _, ax := range task.Axioms {
		cond, ok := r.condition(ax.Condition)
		if !ok {
			continue
		}
		eff, ok := r.fact(ax.Effect)
		if !ok {
			continue
		}
		out.Axioms = append(out.Axioms, sas.Axiom{Condition: cond, Effect: eff})
	}
	return out
}
