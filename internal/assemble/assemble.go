// Package assemble builds the compiled task from the analysed plan: facts
// are remapped through the compressed domains, the order variable and the
// skip operators are added, and the result is pruned and renumbered.
package assemble

import (
	"fmt"
	"sort"

	"github.com/ipc2023-classical/planner1/internal/relevance"
	"github.com/ipc2023-classical/planner1/internal/simplify"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

const skipName = "skip-action plan-pos-%d"

// SkipName returns the name of the operator that skips step i.
func SkipName(i int) string {
	return fmt.Sprintf(skipName, i)
}

// PositionName returns the value name of the order variable before step i.
func PositionName(i int) string {
	return fmt.Sprintf("Atom plan-pos-%d()", i)
}

// Config selects the shape of the compiled task.
type Config struct {
	// Ordered adds the order variable, so plans of the compiled task are
	// subsequences of the plan.
	Ordered bool
	// UnitCost gives every kept step cost 1 per plan step it stands for.
	// Otherwise operator costs are kept.
	UnitCost bool
	// PositionInGoal requires the order variable to reach the end.
	PositionInGoal bool
}

// Input is the analysed plan. In ordered mode Sequence holds one operator
// per (possibly merged) step, Members the number of plan steps each
// stands for, and the flags the markings of each step. In unordered mode
// Sequence holds each distinct plan operator once and the other fields
// may be empty.
type Input struct {
	Task        *sas.Task
	Domains     *relevance.Domains
	Sequence    []sas.Operator
	Members     []int
	Necessary   []bool
	Unnecessary []bool
}

// Build assembles the compiled task without the simplification passes.
func Build(in Input, cfg Config) (*sas.Task, error) {
	task, d := in.Task, in.Domains
	out := &sas.Task{Metric: cfg.Ordered || (!cfg.UnitCost && task.Metric)}

	newVar := make([]int, len(task.Variables))
	for v, variable := range task.Variables {
		if d.Trivial(v) {
			newVar[v] = -1
			continue
		}
		newVar[v] = len(out.Variables)
		out.Variables = append(out.Variables, sas.Variable{
			Name:       variable.Name,
			AxiomLayer: -1,
			Values:     append([]string(nil), d.Names(v)...),
		})
		out.Init = append(out.Init, d.Map(sas.Fact{Var: v, Value: task.Init[v]}))
	}
	mapFact := func(f sas.Fact) (sas.Fact, bool) {
		if newVar[f.Var] == -1 {
			return sas.Fact{}, false
		}
		return sas.Fact{Var: newVar[f.Var], Value: d.Map(f)}, true
	}

	for _, f := range task.Goal {
		nf, _ := mapFact(f)
		out.Goal = append(out.Goal, nf)
	}

	for _, m := range task.Mutexes {
		var facts []sas.Fact
		for _, f := range m.Facts {
			if !d.Relevant(f) {
				continue
			}
			if nf, ok := mapFact(f); ok {
				facts = append(facts, nf)
			}
		}
		if len(facts) > 1 {
			out.Mutexes = append(out.Mutexes, sas.MutexGroup{Facts: facts})
		}
	}

	remap := func(op *sas.Operator) sas.Operator {
		nop := sas.Operator{Name: op.Name, Cost: op.Cost}
		for _, f := range op.Prevail {
			if nf, ok := mapFact(f); ok {
				nop.Prevail = append(nop.Prevail, nf)
			}
		}
		for _, eff := range op.PrePost {
			post, ok := mapFact(sas.Fact{Var: eff.Var, Value: eff.Post})
			if !ok {
				continue
			}
			pre := -1
			if eff.Pre != -1 {
				pre = d.Map(sas.Fact{Var: eff.Var, Value: eff.Pre})
			}
			nop.PrePost = append(nop.PrePost, sas.Effect{Var: post.Var, Pre: pre, Post: post.Value})
		}
		return nop
	}

	if cfg.Ordered {
		n := len(in.Sequence)
		order := len(out.Variables)
		positions := sas.Variable{Name: fmt.Sprintf("var%d", len(task.Variables)), AxiomLayer: -1}
		for i := 0; i <= n; i++ {
			positions.Values = append(positions.Values, PositionName(i))
		}
		out.Variables = append(out.Variables, positions)
		out.Init = append(out.Init, 0)
		if cfg.PositionInGoal {
			out.Goal = append(out.Goal, sas.Fact{Var: order, Value: n})
		}

		for i := range in.Sequence {
			step := sas.Effect{Var: order, Pre: i, Post: i + 1}
			if flag(in.Necessary, i) || !flag(in.Unnecessary, i) {
				op := remap(&in.Sequence[i])
				op.PrePost = append(op.PrePost, step)
				if cfg.UnitCost {
					op.Cost = members(in.Members, i)
				}
				out.Operators = append(out.Operators, op.Canonical())
			}
			if !flag(in.Necessary, i) {
				out.Operators = append(out.Operators, sas.Operator{Name: SkipName(i), PrePost: []sas.Effect{step}})
			}
		}
	} else {
		for i := range in.Sequence {
			op := remap(&in.Sequence[i])
			if len(op.PrePost) == 0 {
				continue
			}
			if cfg.UnitCost {
				op.Cost = 1
			}
			out.Operators = append(out.Operators, op.Canonical())
		}
	}

	sas.SortFacts(out.Goal)
	sort.SliceStable(out.Operators, func(i, j int) bool {
		return sas.CompareOperators(&out.Operators[i], &out.Operators[j]) < 0
	})
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("assembled task: %w", err)
	}
	return out, nil
}

// Assemble builds the compiled task and runs the reachability and
// variable order passes on it.
func Assemble(in Input, cfg Config) (*sas.Task, error) {
	task, err := Build(in, cfg)
	if err != nil {
		return nil, err
	}
	if task, err = simplify.Reachability(task); err != nil {
		return nil, fmt.Errorf("reachability: %w", err)
	}
	task = simplify.VariableOrder(task)
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("simplified task: %w", err)
	}
	return task, nil
}

func flag(flags []bool, i int) bool {
	return i < len(flags) && flags[i]
}

func members(counts []int, i int) int {
	if i < len(counts) {
		return counts[i]
	}
	return 1
}
