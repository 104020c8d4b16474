package simplify

import (
	"sort"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// VariableOrder renumbers the variables of the task into a canonical
// order and removes variables that cannot influence the goal.
//
// The causal graph has an arc from every condition variable of an
// operator to each of its effect variables, and between effect variables
// of the same operator. A variable is important if the goal mentions it
// or it has a path to an important variable. Important variables are
// ordered by the strongly connected components of the graph in
// topological order, ties broken by the smallest old index, and by old
// index inside a component. Variables are renamed var0, var1, ...
func VariableOrder(task *sas.Task) *sas.Task {
	g := causalGraph(task)

	important := make([]bool, len(task.Variables))
	var stack []int
	for _, f := range task.Goal {
		if !important[f.Var] {
			important[f.Var] = true
			stack = append(stack, f.Var)
		}
	}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, u := range g.pred[v] {
			if !important[u] {
				important[u] = true
				stack = append(stack, u)
			}
		}
	}

	r := newRenaming(len(task.Variables))
	r.rename = true
	for _, v := range g.order(important) {
		r.keepAll(v, task.Variables[v].Size())
	}
	return r.apply(task, task.Operators)
}

type graph struct {
	succ [][]int
	pred [][]int
}

func causalGraph(task *sas.Task) *graph {
	n := len(task.Variables)
	arcs := make([]map[int]struct{}, n)
	for v := range arcs {
		arcs[v] = map[int]struct{}{}
	}
	add := func(from, to int) {
		if from != to {
			arcs[from][to] = struct{}{}
		}
	}
	for i := range task.Operators {
		op := &task.Operators[i]
		conds := op.Conditions()
		for _, eff := range op.PrePost {
			for _, c := range conds {
				add(c.Var, eff.Var)
			}
			for _, c := range eff.Cond {
				add(c.Var, eff.Var)
			}
			for _, other := range op.PrePost {
				add(eff.Var, other.Var)
			}
		}
	}
	for _, ax := range task.Axioms {
		for _, c := range ax.Condition {
			add(c.Var, ax.Effect.Var)
		}
	}

	g := &graph{succ: make([][]int, n), pred: make([][]int, n)}
	for from, tos := range arcs {
		for to := range tos {
			g.succ[from] = append(g.succ[from], to)
			g.pred[to] = append(g.pred[to], from)
		}
	}
	for v := 0; v < n; v++ {
		sort.Ints(g.succ[v])
		sort.Ints(g.pred[v])
	}
	return g
}

// order returns the selected vertices component by component. Components
// are released in topological order; among released components the one
// with the smallest member goes first.
func (g *graph) order(selected []bool) []int {
	comps := g.components(selected)
	compOf := make([]int, len(g.succ))
	for c, members := range comps {
		for _, v := range members {
			compOf[v] = c
		}
	}

	indegree := make([]int, len(comps))
	next := make([]map[int]struct{}, len(comps))
	for c, members := range comps {
		next[c] = map[int]struct{}{}
		for _, v := range members {
			for _, u := range g.succ[v] {
				if !selected[u] || compOf[u] == c {
					continue
				}
				if _, ok := next[c][compOf[u]]; !ok {
					next[c][compOf[u]] = struct{}{}
					indegree[compOf[u]]++
				}
			}
		}
	}

	// comps are sorted by smallest member, so the smallest released
	// component index is the tie break
	var ready []int
	for c := range comps {
		if indegree[c] == 0 {
			ready = append(ready, c)
		}
	}
	var out []int
	for len(ready) > 0 {
		sort.Ints(ready)
		c := ready[0]
		ready = ready[1:]
		out = append(out, comps[c]...)
		for d := range next[c] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return out
}

// components returns the strongly connected components among the selected
// vertices, each sorted, ordered by smallest member.
func (g *graph) components(selected []bool) [][]int {
	n := len(g.succ)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for v := range index {
		index[v] = -1
	}
	var (
		stack   []int
		comps   [][]int
		counter int
		visit   func(v int)
	)
	visit = func(v int) {
		index[v], low[v] = counter, counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, u := range g.succ[v] {
			if !selected[u] {
				continue
			}
			if index[u] == -1 {
				visit(u)
				if low[u] < low[v] {
					low[v] = low[u]
				}
			} else if onStack[u] && index[u] < low[v] {
				low[v] = index[u]
			}
		}
		if low[v] != index[v] {
			return
		}
		var comp []int
		for {
			u := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[u] = false
			comp = append(comp, u)
			if u == v {
				break
			}
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	for v := 0; v < n; v++ {
		if selected[v] && index[v] == -1 {
			visit(v)
		}
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}
