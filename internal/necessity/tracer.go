package necessity

import (
	"fmt"
	"io"
)

// Round describes one backward pass over the plan.
type Round interface {
	// Pass is the 1-based number of the pass.
	Pass() int
	// Marked lists the steps first marked necessary in this pass.
	Marked() []int
	// Necessary returns a copy of the flags after the pass, the virtual
	// goal action last.
	Necessary() []bool
}

type Tracer interface {
	Trace(r Round)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Round) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(r Round) {
	fmt.Fprintf(t.Writer, "---\nPass %d:\n", r.Pass())
	for _, step := range r.Marked() {
		fmt.Fprintf(t.Writer, "- %d\n", step)
	}
}

type round struct {
	pass      int
	marked    []int
	necessary []bool
}

func (r *round) Pass() int {
	return r.pass
}

func (r *round) Marked() []int {
	return r.marked
}

func (r *round) Necessary() []bool {
	return append([]bool(nil), r.necessary...)
}
