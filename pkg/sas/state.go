package sas

// State is a full assignment, one value per variable.
type State []int

// InitialState returns a copy of the task's initial state.
func (t *Task) InitialState() State {
	return append(State(nil), t.Init...)
}

// Holds reports whether every fact is true in s.
func (s State) Holds(facts []Fact) bool {
	for _, f := range facts {
		if s[f.Var] != f.Value {
			return false
		}
	}
	return true
}

// Applicable reports whether op's prevail conditions and preconditions
// hold in s.
func (s State) Applicable(op *Operator) bool {
	if !s.Holds(op.Prevail) {
		return false
	}
	for _, eff := range op.PrePost {
		if eff.Pre != -1 && s[eff.Var] != eff.Pre {
			return false
		}
	}
	return true
}

// Apply returns the successor of s under op. Effect conditions are
// evaluated in s. Applicability is not checked.
func (s State) Apply(op *Operator) State {
	next := append(State(nil), s...)
	for _, eff := range op.PrePost {
		if s.Holds(eff.Cond) {
			next[eff.Var] = eff.Post
		}
	}
	return next
}

// GoalReached reports whether s satisfies the task's goal.
func (t *Task) GoalReached(s State) bool {
	return s.Holds(t.Goal)
}

// Replay applies the operators with the given indices in order starting
// from the initial state. It returns the position of the first
// inapplicable step, or -1 and the final state if all steps applied.
func (t *Task) Replay(steps []int) (int, State) {
	s := t.InitialState()
	for i, opIndex := range steps {
		op := &t.Operators[opIndex]
		if !s.Applicable(op) {
			return i, s
		}
		s = s.Apply(op)
	}
	return -1, s
}
