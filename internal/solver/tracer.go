package solver

import (
	"fmt"
	"io"
)

// SearchPosition is one bound tried while minimising.
type SearchPosition interface {
	Bound() int
	Satisfiable() bool
}

type Tracer interface {
	Trace(p SearchPosition)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ SearchPosition) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(p SearchPosition) {
	fmt.Fprintf(t.Writer, "---\nBound %d: ", p.Bound())
	if p.Satisfiable() {
		fmt.Fprintf(t.Writer, "satisfiable\n")
		return
	}
	fmt.Fprintf(t.Writer, "unsatisfiable\n")
}

type position struct {
	bound int
	sat   bool
}

func (p position) Bound() int {
	return p.bound
}

func (p position) Satisfiable() bool {
	return p.sat
}
