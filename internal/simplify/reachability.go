// Package simplify prunes and renumbers assembled tasks without changing
// which fact sequences their plans produce.
package simplify

import (
	"fmt"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Reachability explores the delete relaxation of the task from its
// initial state. Operators whose conditions are never reached are
// dropped. Unreached values are dropped when at least two values of the
// variable remain, and variables with a single reached value are removed
// unless the goal mentions them. Axioms are not explored.
func Reachability(task *sas.Task) (*sas.Task, error) {
	offsets := make([]int, len(task.Variables)+1)
	for v, variable := range task.Variables {
		offsets[v+1] = offsets[v] + variable.Size()
	}
	index := func(f sas.Fact) int { return offsets[f.Var] + f.Value }

	reached := make([]bool, offsets[len(task.Variables)])
	for v, val := range task.Init {
		reached[index(sas.Fact{Var: v, Value: val})] = true
	}
	// axioms are not explored, so every derived value counts as reached
	for v, variable := range task.Variables {
		if variable.Derived() {
			for val := 0; val < variable.Size(); val++ {
				reached[index(sas.Fact{Var: v, Value: val})] = true
			}
		}
	}
	holds := func(facts []sas.Fact) bool {
		for _, f := range facts {
			if !reached[index(f)] {
				return false
			}
		}
		return true
	}

	applied := make([]bool, len(task.Operators))
	for changed := true; changed; {
		changed = false
		for i := range task.Operators {
			op := &task.Operators[i]
			if !applied[i] {
				if !holds(op.Conditions()) {
					continue
				}
				applied[i] = true
				changed = true
			}
			for _, eff := range op.PrePost {
				f := index(sas.Fact{Var: eff.Var, Value: eff.Post})
				if !reached[f] && holds(eff.Cond) {
					reached[f] = true
					changed = true
				}
			}
		}
	}

	for _, f := range task.Goal {
		if !reached[index(f)] {
			return nil, &sas.ValidationError{Context: "goal", Msg: fmt.Sprintf("goal fact %s is unreachable", f)}
		}
	}

	inGoal := make(map[int]bool, len(task.Goal))
	for _, f := range task.Goal {
		inGoal[f.Var] = true
	}
	r := newRenaming(len(task.Variables))
	for v, variable := range task.Variables {
		var kept []int
		for val := 0; val < variable.Size(); val++ {
			if reached[index(sas.Fact{Var: v, Value: val})] {
				kept = append(kept, val)
			}
		}
		switch {
		case len(kept) >= 2:
			r.keep(v, variable.Size(), kept)
		case inGoal[v]:
			r.keepAll(v, variable.Size())
		default:
			r.remove(v)
		}
	}

	var ops []sas.Operator
	for i := range task.Operators {
		if applied[i] {
			ops = append(ops, task.Operators[i])
		}
	}
	return r.apply(task, ops), nil
}
