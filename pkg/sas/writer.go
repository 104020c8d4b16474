package sas

import (
	"bufio"
	"fmt"
	"io"
)

// Write serializes the task in SAS+ format version 3. For every valid
// task, Parse(Write(t)) yields a task equal to t.
func Write(w io.Writer, t *Task) error {
	bw := bufio.NewWriter(w)
	out := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	out("begin_version\n%d\nend_version\n", Version)
	metric := 0
	if t.Metric {
		metric = 1
	}
	out("begin_metric\n%d\nend_metric\n", metric)

	out("%d\n", len(t.Variables))
	for _, v := range t.Variables {
		out("begin_variable\n%s\n%d\n%d\n", v.Name, v.AxiomLayer, v.Size())
		for _, value := range v.Values {
			out("%s\n", value)
		}
		out("end_variable\n")
	}

	out("%d\n", len(t.Mutexes))
	for _, m := range t.Mutexes {
		out("begin_mutex_group\n%d\n", len(m.Facts))
		for _, f := range m.Facts {
			out("%d %d\n", f.Var, f.Value)
		}
		out("end_mutex_group\n")
	}

	out("begin_state\n")
	for _, val := range t.Init {
		out("%d\n", val)
	}
	out("end_state\n")

	out("begin_goal\n%d\n", len(t.Goal))
	for _, f := range t.Goal {
		out("%d %d\n", f.Var, f.Value)
	}
	out("end_goal\n")

	out("%d\n", len(t.Operators))
	for i := range t.Operators {
		op := &t.Operators[i]
		out("begin_operator\n%s\n%d\n", op.Name, len(op.Prevail))
		for _, f := range op.Prevail {
			out("%d %d\n", f.Var, f.Value)
		}
		out("%d\n", len(op.PrePost))
		for _, eff := range op.PrePost {
			out("%d ", len(eff.Cond))
			for _, c := range eff.Cond {
				out("%d %d ", c.Var, c.Value)
			}
			out("%d %d %d\n", eff.Var, eff.Pre, eff.Post)
		}
		out("%d\nend_operator\n", op.Cost)
	}

	out("%d\n", len(t.Axioms))
	for _, ax := range t.Axioms {
		out("begin_rule\n%d\n", len(ax.Condition))
		for _, f := range ax.Condition {
			out("%d %d\n", f.Var, f.Value)
		}
		out("%d %d %d\nend_rule\n", ax.Effect.Var, 1-ax.Effect.Value, ax.Effect.Value)
	}

	return bw.Flush()
}
