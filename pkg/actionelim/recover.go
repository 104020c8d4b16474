package actionelim

import (
	"fmt"
	"strings"

	"github.com/ipc2023-classical/planner1/internal/assemble"
	"github.com/ipc2023-classical/planner1/internal/macro"
	"github.com/ipc2023-classical/planner1/pkg/plan"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Recover maps the operator names of a plan for the compiled task back to
// names of the input task: skip operators are dropped and macros are
// expanded into their members.
func Recover(names []string) []string {
	skip := strings.TrimSuffix(assemble.SkipName(0), "0")
	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, skip) {
			continue
		}
		if members, ok := macro.Expand(name); ok {
			out = append(out, members...)
			continue
		}
		out = append(out, name)
	}
	return out
}

// RecoverPlan turns a plan of the compiled task into a plan of the input
// task and checks that it solves the task. The cost is recomputed.
func RecoverPlan(task *sas.Task, compiled *plan.Plan) (*plan.Plan, error) {
	names := Recover(compiled.Steps)
	idx := task.OperatorIndex()
	steps := make([]int, len(names))
	for i, name := range names {
		op, err := idx.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("recovered step %d: %w", i, err)
		}
		steps[i] = op
	}
	if len(task.Axioms) == 0 {
		failed, state := task.Replay(steps)
		if failed >= 0 {
			return nil, &sas.ValidationError{
				Context: fmt.Sprintf("recovered step %d (%s)", failed, names[failed]),
				Msg:     "operator is not applicable",
			}
		}
		if !task.GoalReached(state) {
			return nil, &sas.ValidationError{Context: "recovered plan", Msg: "plan does not reach the goal"}
		}
	}
	out := &plan.Plan{Steps: names, Cost: Cost(task, steps), HasCost: true, CostKind: plan.UnitCost}
	if task.Metric {
		out.CostKind = plan.GeneralCost
	}
	return out, nil
}
