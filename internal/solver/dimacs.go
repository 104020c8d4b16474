package solver

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-air/gini/z"
)

// clauses collects the clauses of a circuit in memory.
type clauses struct {
	all    [][]z.Lit
	cur    []z.Lit
	maxVar int
}

func (c *clauses) Add(m z.Lit) {
	if m == z.LitNull {
		c.all = append(c.all, c.cur)
		c.cur = nil
		return
	}
	if v := int(m.Var()); v > c.maxVar {
		c.maxVar = v
	}
	c.cur = append(c.cur, m)
}

func (r *Reducer) hard() *clauses {
	cs := &clauses{}
	r.enc.addTo(cs)
	for _, m := range r.assumptions() {
		cs.Add(m)
		cs.Add(z.LitNull)
	}
	for _, m := range r.enc.keep {
		if v := int(m.Var()); v > cs.maxVar {
			cs.maxVar = v
		}
	}
	return cs
}

func writeClause(w *bufio.Writer, weight int, clause []z.Lit) {
	if weight > 0 {
		fmt.Fprintf(w, "%d ", weight)
	}
	for _, m := range clause {
		fmt.Fprintf(w, "%d ", m.Dimacs())
	}
	fmt.Fprintln(w, "0")
}

// WriteDIMACS writes the hard constraints, anchors and prohibited steps
// included, as a DIMACS CNF formula.
func (r *Reducer) WriteDIMACS(out io.Writer) error {
	cs := r.hard()
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "p cnf %d %d\n", cs.maxVar, len(cs.all))
	for _, clause := range cs.all {
		writeClause(w, 0, clause)
	}
	return w.Flush()
}

// WriteWCNF writes a weighted MaxSAT instance: the hard constraints with
// the top weight and one soft clause per step preferring to drop it,
// weighted by the objective. Steps of weight zero get no soft clause.
func (r *Reducer) WriteWCNF(out io.Writer) error {
	cs := r.hard()
	var soft [][]z.Lit
	var weights []int
	top := 1
	for i, m := range r.enc.keep {
		if wt := r.weight(i); wt > 0 {
			soft = append(soft, []z.Lit{m.Not()})
			weights = append(weights, wt)
			top += wt
		}
	}
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "p wcnf %d %d %d\n", cs.maxVar, len(cs.all)+len(soft), top)
	for _, clause := range cs.all {
		writeClause(w, top, clause)
	}
	for i, clause := range soft {
		writeClause(w, weights[i], clause)
	}
	return w.Flush()
}
