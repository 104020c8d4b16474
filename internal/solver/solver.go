// Package solver finds optimal ordered reductions of a plan directly with
// a SAT solver. It does not use the compiled task and serves as a cross
// check of the compilation.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

var (
	ErrIncomplete    = errors.New("cancelled before a reduction could be found")
	ErrUnsatisfiable = errors.New("no reduction satisfies the constraints")
)

const (
	satisfiable   = 1
	unsatisfiable = -1
)

// Objective selects what Reduce minimises.
type Objective string

const (
	Length Objective = "length"
	Cost   Objective = "cost"
)

// Reduction is an optimal subsequence of the plan.
type Reduction struct {
	// Kept lists the plan positions of the kept steps.
	Kept   []int
	Length int
	Cost   int
}

type Reducer struct {
	task       *sas.Task
	ops        []*sas.Operator
	objective  Objective
	anchors    []bool
	prohibited []bool
	tracer     Tracer
	enc        *encoding
}

type Option func(r *Reducer) error

// WithObjective selects the objective. Cost uses operator costs, or unit
// costs when the task has no metric.
func WithObjective(o Objective) Option {
	return func(r *Reducer) error {
		if o != Length && o != Cost {
			return fmt.Errorf("unknown objective %q", o)
		}
		r.objective = o
		return nil
	}
}

// WithAnchors forces the flagged plan steps to be kept.
func WithAnchors(flags []bool) Option {
	return func(r *Reducer) error {
		r.anchors = flags
		return nil
	}
}

// WithProhibited forces the flagged plan steps to be dropped.
func WithProhibited(flags []bool) Option {
	return func(r *Reducer) error {
		r.prohibited = flags
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(r *Reducer) error {
		r.tracer = t
		return nil
	}
}

var defaults = []Option{
	func(r *Reducer) error {
		if r.objective == "" {
			r.objective = Cost
		}
		return nil
	},
	func(r *Reducer) error {
		if r.tracer == nil {
			r.tracer = DefaultTracer{}
		}
		return nil
	},
}

// NewReducer encodes the plan given by operator indices of task. Plan
// operators must not have conditional effects.
func NewReducer(task *sas.Task, steps []int, options ...Option) (*Reducer, error) {
	r := &Reducer{task: task}
	for _, option := range append(options, defaults...) {
		if err := option(r); err != nil {
			return nil, err
		}
	}
	for i, s := range steps {
		op := &task.Operators[s]
		if op.HasConditionalEffects() {
			return nil, &sas.UnsupportedFeatureError{Feature: "conditional effects", Where: fmt.Sprintf("plan step %d (%s)", i, op.Name)}
		}
		r.ops = append(r.ops, op)
	}
	r.enc = newEncoding(task, r.ops)
	return r, nil
}

func (r *Reducer) weight(i int) int {
	if r.objective == Length || !r.task.Metric {
		return 1
	}
	return r.ops[i].Cost
}

func (r *Reducer) assumptions() []z.Lit {
	ms := []z.Lit{r.enc.root}
	for i, m := range r.enc.keep {
		if flag(r.anchors, i) {
			ms = append(ms, m)
		}
		if flag(r.prohibited, i) {
			ms = append(ms, m.Not())
		}
	}
	return ms
}

// Reduce returns a reduction minimising the objective. Bounds are tried
// in increasing order, so the first satisfiable bound is optimal.
func (r *Reducer) Reduce(ctx context.Context) (*Reduction, error) {
	g := gini.New()
	r.enc.addTo(g)

	g.Assume(r.assumptions()...)
	if g.Solve() != satisfiable {
		return nil, ErrUnsatisfiable
	}

	// weights are expanded as repeated literals
	var weighted []z.Lit
	for i, m := range r.enc.keep {
		for w := 0; w < r.weight(i); w++ {
			weighted = append(weighted, m)
		}
	}
	if len(weighted) == 0 {
		return r.reduction(g), nil
	}
	cs := r.enc.cardinality(g, weighted)
	for w := 0; w <= cs.N(); w++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
		}
		g.Assume(r.assumptions()...)
		g.Assume(cs.Leq(w))
		outcome := g.Solve()
		r.tracer.Trace(position{bound: w, sat: outcome == satisfiable})
		if outcome == satisfiable {
			return r.reduction(g), nil
		}
	}
	// the unbounded formula was satisfiable
	return nil, fmt.Errorf("unexpected internal error")
}

func (r *Reducer) reduction(g inter.S) *Reduction {
	red := &Reduction{Kept: r.enc.kept(g)}
	red.Length = len(red.Kept)
	for _, i := range red.Kept {
		if r.task.Metric {
			red.Cost += r.ops[i].Cost
		} else {
			red.Cost++
		}
	}
	return red
}

func flag(flags []bool, i int) bool {
	return i < len(flags) && flags[i]
}
