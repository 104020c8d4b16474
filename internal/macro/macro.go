// Package macro merges runs of necessary plan steps into single
// operators.
package macro

import (
	"strings"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

const prefix = "macro "

// Result is the merged plan. Operators[g] replaces the old steps
// Groups[g]; groups are consecutive and cover the whole plan in order.
type Result struct {
	Operators []sas.Operator
	Groups    []Group
}

// Group lists the old step indices merged into one new step.
type Group []int

// Merged reports whether the group became a macro.
func (g Group) Merged() bool {
	return len(g) > 1
}

// Indices returns the groups as plain index lists.
func (r Result) Indices() [][]int {
	out := make([][]int, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g
	}
	return out
}

// NumMacros counts the merged groups.
func (r Result) NumMacros() int {
	n := 0
	for _, g := range r.Groups {
		if g.Merged() {
			n++
		}
	}
	return n
}

// Merge replaces every maximal run of two or more consecutive steps that
// are necessary and not unnecessary by one macro operator. Other steps
// keep their operator. The flags are indexed by step; extra entries, such
// as a trailing virtual goal step, are ignored.
func Merge(task *sas.Task, steps []int, necessary, unnecessary []bool) Result {
	var res Result
	mergeable := func(j int) bool {
		return necessary[j] && !unnecessary[j]
	}
	for j := 0; j < len(steps); {
		end := j + 1
		if mergeable(j) {
			for end < len(steps) && mergeable(end) {
				end++
			}
		}
		if end-j < 2 {
			res.Operators = append(res.Operators, task.Operators[steps[j]])
			res.Groups = append(res.Groups, Group{j})
			j++
			continue
		}
		group := make(Group, 0, end-j)
		members := make([]*sas.Operator, 0, end-j)
		for k := j; k < end; k++ {
			group = append(group, k)
			members = append(members, &task.Operators[steps[k]])
		}
		res.Operators = append(res.Operators, Compose(members))
		res.Groups = append(res.Groups, group)
		j = end
	}
	return res
}

// Compose chains the operators left to right. For every variable the
// macro requires the first value read before the run writes it and sets
// the last value written. Reads after a write inside the run are
// satisfied internally and dropped. The cost is the sum of the members.
//
// Members must not have conditional effects.
func Compose(members []*sas.Operator) sas.Operator {
	pre := map[int]int{}
	post := map[int]int{}
	var names strings.Builder
	names.WriteString(prefix)
	cost := 0
	for _, op := range members {
		names.WriteString("(" + op.Name + ")")
		cost += op.Cost
		for _, f := range op.Conditions() {
			if _, written := post[f.Var]; written {
				continue
			}
			if _, ok := pre[f.Var]; !ok {
				pre[f.Var] = f.Value
			}
		}
		for _, eff := range op.PrePost {
			post[eff.Var] = eff.Post
		}
	}

	macro := sas.Operator{Name: names.String(), Cost: cost}
	for v, val := range pre {
		if _, written := post[v]; !written {
			macro.Prevail = append(macro.Prevail, sas.Fact{Var: v, Value: val})
		}
	}
	for v, val := range post {
		p, ok := pre[v]
		if !ok {
			p = -1
		}
		macro.PrePost = append(macro.PrePost, sas.Effect{Var: v, Pre: p, Post: val})
	}
	return macro.Canonical()
}

// Expand returns the member names of a macro operator name, or false if
// the name is not a macro.
func Expand(name string) ([]string, bool) {
	if !strings.HasPrefix(name, prefix+"(") || !strings.HasSuffix(name, ")") {
		return nil, false
	}
	body := strings.TrimPrefix(name, prefix+"(")
	body = strings.TrimSuffix(body, ")")
	return strings.Split(body, ")("), true
}
