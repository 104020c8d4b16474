// Package necessity marks plan steps that every valid subsequence of the
// plan must keep, and steps that any valid subsequence may drop.
//
// Steps are numbered 0..n-1 and the goal is read by a virtual step n. The
// initial state is an achiever at step -1. Every table is a flat array
// addressed by fact index; there are no pointers between entries.
package necessity

import (
	"sort"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

const initStep = -1

type achiever struct {
	step       int
	validUntil int
}

type Options struct {
	// FixPoint shrinks the validity of achievers overwritten by a
	// necessary step and repeats passes until nothing changes.
	FixPoint bool
	// Unnecessary runs the second pass that finds droppable steps.
	Unnecessary bool
	Tracer      Tracer
}

// Analysis holds the achiever tables of a plan and its markings.
type Analysis struct {
	// Necessary has one flag per step plus the virtual goal step, which
	// is always necessary.
	Necessary []bool
	// Unnecessary has the same shape as Necessary. It is all false
	// unless the second pass ran.
	Unnecessary []bool

	n       int
	offsets []int

	// achievers of fact f are achievers[achStart[f]:achStart[f+1]],
	// ordered by step.
	achStart  []int
	achievers []achiever

	// readers of fact f are readers[readStart[f]:readStart[f+1]],
	// ascending. The virtual goal step n reads the goal facts.
	readStart []int
	readers   []int

	// writers of variable v are writers[writeStart[v]:writeStart[v+1]],
	// ascending.
	writeStart []int
	writers    []int

	reads  [][]sas.Fact
	writes [][]sas.Fact
}

// Analyze builds the achiever tables for the plan given as operator
// indices into task and runs the necessity marking, seeded with the
// virtual goal step.
func Analyze(task *sas.Task, steps []int, opts Options) *Analysis {
	return analyze(task, steps, opts, false)
}

func analyze(task *sas.Task, steps []int, opts Options, forward bool) *Analysis {
	if opts.Tracer == nil {
		opts.Tracer = DefaultTracer{}
	}
	seq := make([]*sas.Operator, len(steps))
	for j, opIndex := range steps {
		seq[j] = &task.Operators[opIndex]
	}
	a := newAnalysis(task, seq)
	a.markNecessary(opts, forward)
	if opts.Unnecessary {
		a.markUnnecessary()
	}
	return a
}

// Renumber carries the markings over to a shorter sequence in which each
// group of consecutive old steps became one operator of seq. A group is
// necessary or unnecessary if all of its members are. Achiever tables are
// rebuilt for seq and, with FixPoint, tightened by every necessary step.
func (a *Analysis) Renumber(task *sas.Task, seq []sas.Operator, groups [][]int, opts Options) *Analysis {
	ops := make([]*sas.Operator, len(seq))
	for j := range seq {
		ops[j] = &seq[j]
	}
	out := newAnalysis(task, ops)
	for g, members := range groups {
		out.Necessary[g], out.Unnecessary[g] = true, true
		for _, old := range members {
			out.Necessary[g] = out.Necessary[g] && a.Necessary[old]
			out.Unnecessary[g] = out.Unnecessary[g] && a.Unnecessary[old]
		}
	}
	if opts.FixPoint {
		for g := range groups {
			if out.Necessary[g] {
				out.tighten(g)
			}
		}
	}
	return out
}

func newAnalysis(task *sas.Task, seq []*sas.Operator) *Analysis {
	n := len(seq)
	a := &Analysis{n: n, offsets: make([]int, len(task.Variables)+1)}
	for v, variable := range task.Variables {
		a.offsets[v+1] = a.offsets[v] + variable.Size()
	}

	a.reads = make([][]sas.Fact, n+1)
	a.writes = make([][]sas.Fact, n)
	for j, op := range seq {
		a.reads[j] = op.Conditions()
		for _, eff := range op.PrePost {
			a.writes[j] = append(a.writes[j], sas.Fact{Var: eff.Var, Value: eff.Post})
		}
	}
	a.reads[n] = task.Goal

	numFacts := a.offsets[len(task.Variables)]
	a.achStart, a.achievers = buildAchievers(a, task.Init, numFacts)
	a.readStart, a.readers = buildIndex(numFacts, n+1, func(j int) []int {
		return a.factIndices(a.reads[j])
	})
	a.writeStart, a.writers = buildIndex(len(task.Variables), n, func(j int) []int {
		var vars []int
		for _, f := range a.writes[j] {
			if len(vars) == 0 || vars[len(vars)-1] != f.Var {
				vars = append(vars, f.Var)
			}
		}
		return vars
	})

	a.Necessary = make([]bool, n+1)
	a.Necessary[n] = true
	a.Unnecessary = make([]bool, n+1)
	return a
}

func buildAchievers(a *Analysis, init []int, numFacts int) ([]int, []achiever) {
	start, steps := buildIndex(numFacts, a.n+1, func(j int) []int {
		if j == 0 {
			facts := make([]int, 0, len(init))
			for v, val := range init {
				facts = append(facts, a.offsets[v]+val)
			}
			return facts
		}
		return a.factIndices(a.writes[j-1])
	})
	achievers := make([]achiever, len(steps))
	for i, s := range steps {
		achievers[i] = achiever{step: s - 1, validUntil: a.n + 2}
	}
	return start, achievers
}

// buildIndex lays out, for each key, the ascending list of items that
// produce it. Each item must list a key at most once.
func buildIndex(numKeys, numItems int, keys func(item int) []int) ([]int, []int) {
	start := make([]int, numKeys+1)
	for item := 0; item < numItems; item++ {
		for _, k := range keys(item) {
			start[k+1]++
		}
	}
	for k := 0; k < numKeys; k++ {
		start[k+1] += start[k]
	}
	fill := append([]int(nil), start[:numKeys]...)
	out := make([]int, start[numKeys])
	for item := 0; item < numItems; item++ {
		for _, k := range keys(item) {
			out[fill[k]] = item
			fill[k]++
		}
	}
	return start, out
}

func (a *Analysis) factIndex(f sas.Fact) int {
	return a.offsets[f.Var] + f.Value
}

func (a *Analysis) factIndices(facts []sas.Fact) []int {
	out := make([]int, 0, len(facts))
	for _, f := range facts {
		i := a.factIndex(f)
		if len(out) > 0 && out[len(out)-1] == i {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (a *Analysis) markNecessary(opts Options, forward bool) {
	for pass := 1; ; pass++ {
		r := &round{pass: pass}
		for i := 0; i <= a.n; i++ {
			j := a.n - i
			if forward {
				j = i
			}
			if !a.Necessary[j] {
				continue
			}
			for _, f := range a.reads[j] {
				k, ok := a.soleAchiever(a.factIndex(f), j)
				if !ok || k == initStep || a.Necessary[k] {
					continue
				}
				a.Necessary[k] = true
				r.marked = append(r.marked, k)
				if opts.FixPoint {
					a.tighten(k)
				}
			}
		}
		r.necessary = append([]bool(nil), a.Necessary...)
		opts.Tracer.Trace(r)
		if !opts.FixPoint || len(r.marked) == 0 {
			return
		}
	}
}

// soleAchiever returns the only achiever of fact f live at step j, if
// there is exactly one.
func (a *Analysis) soleAchiever(f, j int) (int, bool) {
	found, count := 0, 0
	for _, ach := range a.achievers[a.achStart[f]:a.achStart[f+1]] {
		if ach.step >= j {
			break
		}
		if j < ach.validUntil {
			found = ach.step
			count++
		}
	}
	return found, count == 1
}

// tighten ends the validity of every achiever, before step k, of a value
// of a variable k writes. Reads at k itself still see them.
func (a *Analysis) tighten(k int) {
	for _, f := range a.writes[k] {
		for fact := a.offsets[f.Var]; fact < a.offsets[f.Var+1]; fact++ {
			for i := a.achStart[fact]; i < a.achStart[fact+1]; i++ {
				ach := &a.achievers[i]
				if ach.step >= k {
					break
				}
				if ach.validUntil > k+1 {
					ach.validUntil = k + 1
				}
			}
		}
	}
}

// markUnnecessary runs one backward sweep. A step that is not necessary
// is unnecessary if each later read of a fact it produces belongs to an
// unnecessary step or comes after a necessary step that overwrites the
// variable.
func (a *Analysis) markUnnecessary() {
	for p := a.n - 1; p >= 0; p-- {
		a.Unnecessary[p] = !a.Necessary[p] && a.deadEffects(p)
	}
}

func (a *Analysis) deadEffects(p int) bool {
	for _, f := range a.writes[p] {
		shadow := a.nextNecessaryWriter(f.Var, p)
		fact := a.factIndex(f)
		for _, j := range a.readers[a.readStart[fact]:a.readStart[fact+1]] {
			if j <= p {
				continue
			}
			if j > shadow {
				break
			}
			if !a.Unnecessary[j] {
				return false
			}
		}
	}
	return true
}

// nextNecessaryWriter returns the first necessary step after p writing v,
// or n+1 if there is none.
func (a *Analysis) nextNecessaryWriter(v, p int) int {
	writers := a.writers[a.writeStart[v]:a.writeStart[v+1]]
	for i := sort.SearchInts(writers, p+1); i < len(writers); i++ {
		if a.Necessary[writers[i]] {
			return writers[i]
		}
	}
	return a.n + 1
}

// Len returns the number of plan steps, not counting the goal step.
func (a *Analysis) Len() int {
	return a.n
}

// NumNecessary counts necessary plan steps, not counting the goal step.
func (a *Analysis) NumNecessary() int {
	return count(a.Necessary[:a.n])
}

// NumUnnecessary counts unnecessary plan steps.
func (a *Analysis) NumUnnecessary() int {
	return count(a.Unnecessary[:a.n])
}

func count(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// Achievers returns the steps achieving f, -1 for the initial state.
func (a *Analysis) Achievers(f sas.Fact) []int {
	fact := a.factIndex(f)
	var out []int
	for _, ach := range a.achievers[a.achStart[fact]:a.achStart[fact+1]] {
		out = append(out, ach.step)
	}
	return out
}

// LiveAchievers returns the achievers of f that a read at step j sees.
func (a *Analysis) LiveAchievers(f sas.Fact, j int) []int {
	fact := a.factIndex(f)
	var out []int
	for _, ach := range a.achievers[a.achStart[fact]:a.achStart[fact+1]] {
		if ach.step < j && j < ach.validUntil {
			out = append(out, ach.step)
		}
	}
	return out
}
