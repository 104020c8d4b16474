// Package actionelim compiles a task and one of its plans into a smaller
// task whose plans are cheaper or shorter reductions of the plan.
package actionelim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ipc2023-classical/planner1/internal/assemble"
	"github.com/ipc2023-classical/planner1/internal/macro"
	"github.com/ipc2023-classical/planner1/internal/necessity"
	"github.com/ipc2023-classical/planner1/internal/relevance"
	"github.com/ipc2023-classical/planner1/pkg/plan"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Result is a compiled task together with what the analysis found.
type Result struct {
	Task *sas.Task
	// Steps are the operator indices of the plan in the input task.
	Steps []int
	// Necessary and Unnecessary are indexed by plan step. They are all
	// false unless the analysis ran.
	Necessary   []bool
	Unnecessary []bool
	Stats       Stats
}

type compiler struct {
	logger *logrus.Entry
}

type CompileOption func(c *compiler) error

func WithLogger(l *logrus.Entry) CompileOption {
	return func(c *compiler) error {
		c.logger = l
		return nil
	}
}

var defaults = []CompileOption{
	func(c *compiler) error {
		if c.logger == nil {
			c.logger = logrus.NewEntry(logrus.New())
		}
		return nil
	},
}

// Compile checks the plan against the task and builds the compiled task.
//
// Every failure is fatal and returns no task: unknown or ambiguous
// operator names yield a *sas.LookupError, plan operators with
// conditional effects a *sas.UnsupportedFeatureError, and a plan that is
// empty, not applicable or not reaching the goal a *sas.ValidationError.
// Axioms are dropped with a warning unless opts.RejectAxioms is set; the
// plan of a task with axioms is not replayed.
func Compile(ctx context.Context, task *sas.Task, p *plan.Plan, opts Options, options ...CompileOption) (*Result, error) {
	c := &compiler{}
	for _, option := range append(options, defaults...) {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return c.compile(ctx, task, p, opts)
}

func (c *compiler) compile(ctx context.Context, task *sas.Task, p *plan.Plan, opts Options) (*Result, error) {
	steps, err := c.resolve(task, p)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Steps:       steps,
		Necessary:   make([]bool, len(steps)),
		Unnecessary: make([]bool, len(steps)),
	}
	res.Stats.PlanLength = len(steps)
	res.Stats.UniqueOperators = len(p.Unique())
	res.Stats.PlanCost = Cost(task, steps)

	if len(task.Axioms) > 0 {
		if opts.RejectAxioms {
			return nil, &sas.UnsupportedFeatureError{Feature: fmt.Sprintf("%d axioms", len(task.Axioms)), Where: "task"}
		}
		c.logger.Warnf("dropping %d axioms, reductions may be invalid", len(task.Axioms))
		res.Stats.DroppedAxioms = len(task.Axioms)
	}
	c.logger.WithFields(logrus.Fields{
		"length": res.Stats.PlanLength,
		"unique": res.Stats.UniqueOperators,
		"cost":   res.Stats.PlanCost,
	}).Info("plan")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domains := relevance.Compute(task, steps)
	res.Stats.Facts = domains.NumFacts()
	res.Stats.RelevantFacts = domains.NumRelevant()

	in := assemble.Input{Task: task, Domains: domains}
	if opts.Ordered {
		for _, s := range steps {
			in.Sequence = append(in.Sequence, task.Operators[s])
			in.Members = append(in.Members, 1)
		}
		if opts.Enhanced {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			nopts := necessity.Options{
				FixPoint:    opts.FixPoint,
				Unnecessary: opts.Unnecessary,
				Tracer:      logTracer{logger: c.logger},
			}
			analysis := necessity.Analyze(task, steps, nopts)
			copy(res.Necessary, analysis.Necessary)
			copy(res.Unnecessary, analysis.Unnecessary)
			res.Stats.Necessary = analysis.NumNecessary()
			res.Stats.Unnecessary = analysis.NumUnnecessary()
			c.logger.WithFields(logrus.Fields{
				"necessary":   res.Stats.Necessary,
				"unnecessary": res.Stats.Unnecessary,
			}).Info("analysis")

			if opts.Macros {
				merged := macro.Merge(task, steps, analysis.Necessary, analysis.Unnecessary)
				analysis = analysis.Renumber(task, merged.Operators, merged.Indices(), nopts)
				in.Sequence = merged.Operators
				in.Members = in.Members[:0]
				for _, g := range merged.Groups {
					in.Members = append(in.Members, len(g))
				}
				res.Stats.Macros = merged.NumMacros()
				c.logger.Infof("merged %d runs into macros, %d steps left", res.Stats.Macros, len(merged.Groups))
			}
			in.Necessary = analysis.Necessary
			in.Unnecessary = analysis.Unnecessary
		}
	} else {
		idx := task.OperatorIndex()
		for _, name := range p.Unique() {
			i, _ := idx.Lookup(name)
			in.Sequence = append(in.Sequence, task.Operators[i])
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := assemble.Config{
		Ordered:        opts.Ordered,
		UnitCost:       opts.Reduction == MLR,
		PositionInGoal: opts.PositionInGoal,
	}
	compiled, err := assemble.Assemble(in, cfg)
	if err != nil {
		return nil, err
	}
	res.Task = compiled
	res.Stats.Variables = len(compiled.Variables)
	res.Stats.Operators = len(compiled.Operators)
	c.logger.WithFields(logrus.Fields{
		"variables": res.Stats.Variables,
		"operators": res.Stats.Operators,
	}).Info("compiled task")
	return res, nil
}

// resolve maps plan names to operators and replays the plan.
func (c *compiler) resolve(task *sas.Task, p *plan.Plan) ([]int, error) {
	if len(task.Axioms) > 0 {
		c.logger.Warn("not replaying the plan, derived variables are not evaluated")
	}
	return Resolve(task, p)
}

// Resolve maps the plan's operator names to operator indices of the task
// and checks by simulation that the plan solves the task. Plans of tasks
// with axioms are not simulated. Plan operators with conditional effects
// are rejected.
func Resolve(task *sas.Task, p *plan.Plan) ([]int, error) {
	if p.Len() == 0 {
		return nil, &sas.ValidationError{Context: "plan", Msg: "plan is empty"}
	}
	idx := task.OperatorIndex()
	steps := make([]int, p.Len())
	for i, name := range p.Steps {
		op, err := idx.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i, err)
		}
		if task.Operators[op].HasConditionalEffects() {
			return nil, &sas.UnsupportedFeatureError{Feature: "conditional effects", Where: fmt.Sprintf("plan operator (%s)", name)}
		}
		steps[i] = op
	}
	if len(task.Axioms) > 0 {
		return steps, nil
	}
	failed, state := task.Replay(steps)
	if failed >= 0 {
		return nil, &sas.ValidationError{
			Context: fmt.Sprintf("plan step %d (%s)", failed, p.Steps[failed]),
			Msg:     "operator is not applicable",
		}
	}
	if !task.GoalReached(state) {
		return nil, &sas.ValidationError{Context: "plan", Msg: "plan does not reach the goal"}
	}
	return steps, nil
}

// Cost returns the cost of the steps: the sum of operator costs for
// metric tasks and the number of steps otherwise.
func Cost(task *sas.Task, steps []int) int {
	if !task.Metric {
		return len(steps)
	}
	cost := 0
	for _, s := range steps {
		cost += task.Operators[s].Cost
	}
	return cost
}

type logTracer struct {
	logger *logrus.Entry
}

func (t logTracer) Trace(r necessity.Round) {
	t.logger.WithField("pass", r.Pass()).Debugf("marked %d steps necessary", len(r.Marked()))
}
