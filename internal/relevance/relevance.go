// Package relevance finds the facts a plan and a goal can observe and
// compresses variable domains to them.
package relevance

import (
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Irrelevant names the value that stands for every fact no operator of
// the plan and no goal reads.
const Irrelevant = "Atom irrelevant-fact()"

// Domains holds, per variable, the compressed value mapping. All tables
// are flat arrays addressed through offsets: the facts of variable v are
// offsets[v] .. offsets[v+1]-1.
type Domains struct {
	offsets  []int
	relevant []bool
	mapping  []int
	sizes    []int
	names    [][]string
}

// Compute marks goal facts and every prevail and precondition fact of the
// given operators as relevant. Each variable keeps its relevant values in
// their original order followed by one sentinel value.
func Compute(task *sas.Task, steps []int) *Domains {
	d := &Domains{offsets: make([]int, len(task.Variables)+1)}
	for v, variable := range task.Variables {
		d.offsets[v+1] = d.offsets[v] + variable.Size()
	}
	d.relevant = make([]bool, d.offsets[len(task.Variables)])
	d.mapping = make([]int, len(d.relevant))

	for _, f := range task.Goal {
		d.relevant[d.index(f)] = true
	}
	for _, i := range steps {
		op := &task.Operators[i]
		for _, f := range op.Prevail {
			d.relevant[d.index(f)] = true
		}
		for _, eff := range op.PrePost {
			if eff.Pre != -1 {
				d.relevant[d.index(sas.Fact{Var: eff.Var, Value: eff.Pre})] = true
			}
		}
	}

	d.sizes = make([]int, len(task.Variables))
	d.names = make([][]string, len(task.Variables))
	for v, variable := range task.Variables {
		next := 0
		var names []string
		for val, name := range variable.Values {
			i := d.offsets[v] + val
			if !d.relevant[i] {
				continue
			}
			d.mapping[i] = next
			names = append(names, name)
			next++
		}
		names = append(names, Irrelevant)
		for val := range variable.Values {
			if i := d.offsets[v] + val; !d.relevant[i] {
				d.mapping[i] = next
			}
		}
		d.sizes[v] = next + 1
		d.names[v] = names
	}
	return d
}

func (d *Domains) index(f sas.Fact) int {
	return d.offsets[f.Var] + f.Value
}

// Relevant reports whether the fact is read by the goal or the plan.
func (d *Domains) Relevant(f sas.Fact) bool {
	return d.relevant[d.index(f)]
}

// Map returns the compressed value of the fact: its rank among the
// relevant values of its variable, or the sentinel.
func (d *Domains) Map(f sas.Fact) int {
	return d.mapping[d.index(f)]
}

// Sentinel returns the compressed value standing for irrelevant facts of v.
func (d *Domains) Sentinel(v int) int {
	return d.sizes[v] - 1
}

// Size returns the compressed domain size of v, sentinel included.
func (d *Domains) Size(v int) int {
	return d.sizes[v]
}

// Names returns the value names of the compressed domain of v.
func (d *Domains) Names(v int) []string {
	return d.names[v]
}

// Trivial reports whether no fact of v is relevant, so the compressed
// domain is the sentinel alone.
func (d *Domains) Trivial(v int) bool {
	return d.sizes[v] == 1
}

// NumFacts returns the number of original facts across all variables.
func (d *Domains) NumFacts() int {
	return len(d.relevant)
}

// NumRelevant returns how many original facts are relevant.
func (d *Domains) NumRelevant() int {
	n := 0
	for _, r := range d.relevant {
		if r {
			n++
		}
	}
	return n
}
