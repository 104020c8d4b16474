package sas

import (
	"fmt"
)

// Validate checks every structural invariant of the task and returns a
// *ValidationError describing the first violation found.
//
// Operators and axioms may appear in any order. Derived variables must be
// binary. Conflicting effects are only rejected when both are
// unconditional; what happens when a conditional effect and another effect
// on the same variable both trigger is not defined by this package.
func (t *Task) Validate() error {
	if err := t.validateVariables(); err != nil {
		return err
	}
	for i, m := range t.Mutexes {
		if err := t.validateMutex(m); err != nil {
			return fmt.Errorf("mutex group %d: %w", i, err)
		}
	}
	if err := t.validateInit(); err != nil {
		return err
	}
	if len(t.Goal) == 0 {
		return invalidf("goal", "goal is empty")
	}
	if err := t.validateCondition("goal", t.Goal); err != nil {
		return err
	}
	for i := range t.Operators {
		if err := t.ValidateOperator(&t.Operators[i]); err != nil {
			return err
		}
	}
	for i := range t.Axioms {
		if err := t.validateAxiom(i, &t.Axioms[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) validateVariables() error {
	for i, v := range t.Variables {
		ctx := fmt.Sprintf("variable %d (%s)", i, v.Name)
		if v.Size() < 2 {
			return invalidf(ctx, "domain size %d is smaller than 2", v.Size())
		}
		if v.AxiomLayer < -1 {
			return invalidf(ctx, "axiom layer %d is neither -1 nor >= 0", v.AxiomLayer)
		}
		if v.Derived() && v.Size() != 2 {
			return invalidf(ctx, "derived variable has domain size %d, want 2", v.Size())
		}
	}
	return nil
}

// ValidateFact checks that f names an existing variable and a value
// inside its domain.
func (t *Task) ValidateFact(ctx string, f Fact) error {
	if f.Var < 0 || f.Var >= len(t.Variables) {
		return invalidf(ctx, "fact %s: variable out of range [0, %d)", f, len(t.Variables))
	}
	if f.Value < 0 || f.Value >= t.Variables[f.Var].Size() {
		return invalidf(ctx, "fact %s: value out of range [0, %d)", f, t.Variables[f.Var].Size())
	}
	return nil
}

// validateCondition requires valid facts sorted by strictly increasing
// variable.
func (t *Task) validateCondition(ctx string, cond []Fact) error {
	last := -1
	for _, f := range cond {
		if err := t.ValidateFact(ctx, f); err != nil {
			return err
		}
		if f.Var <= last {
			return invalidf(ctx, "condition is not sorted or mentions v%d twice", f.Var)
		}
		last = f.Var
	}
	return nil
}

func (t *Task) validateMutex(m MutexGroup) error {
	for i, f := range m.Facts {
		if err := t.ValidateFact("mutex group", f); err != nil {
			return err
		}
		if i > 0 && !m.Facts[i-1].Less(f) {
			return invalidf("mutex group", "facts are not sorted and unique at %s", f)
		}
	}
	return nil
}

func (t *Task) validateInit() error {
	if len(t.Init) != len(t.Variables) {
		return invalidf("initial state", "has %d values for %d variables", len(t.Init), len(t.Variables))
	}
	for v, val := range t.Init {
		if err := t.ValidateFact("initial state", Fact{Var: v, Value: val}); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOperator checks the operator against the task's variables:
//  1. prevail conditions form a valid condition
//  2. pre_post is canonical (sorted by quadruple, no repeats)
//  3. effect conditions are valid and avoid prevail and precondition variables
//  4. pre_post variables have no prevail condition
//  5. preconditions are -1 or valid facts, posts are valid facts
//  6. effect variables are not derived
//  7. all pre_post rules of a variable share the same precondition
//  8. no two unconditional effects set a variable to different values
//  9. there is at least one effect and the cost is non-negative
func (t *Task) ValidateOperator(op *Operator) error {
	ctx := fmt.Sprintf("operator (%s)", op.Name)
	if err := t.validateCondition(ctx, op.Prevail); err != nil {
		return err
	}
	if !equalEffects(op.PrePost, CanonicalPrePost(op.PrePost)) {
		return invalidf(ctx, "pre_post is not sorted and unique")
	}
	prevailVars := make(map[int]struct{}, len(op.Prevail))
	for _, f := range op.Prevail {
		prevailVars[f.Var] = struct{}{}
	}
	preValues := make(map[int]int, len(op.PrePost))
	unconditional := make(map[int]int, len(op.PrePost))
	for _, eff := range op.PrePost {
		if err := t.validateCondition(ctx, eff.Cond); err != nil {
			return err
		}
		if _, ok := prevailVars[eff.Var]; ok {
			return invalidf(ctx, "v%d has both a prevail condition and an effect", eff.Var)
		}
		if eff.Pre != -1 {
			if err := t.ValidateFact(ctx, Fact{Var: eff.Var, Value: eff.Pre}); err != nil {
				return err
			}
		}
		if err := t.ValidateFact(ctx, Fact{Var: eff.Var, Value: eff.Post}); err != nil {
			return err
		}
		if t.Variables[eff.Var].Derived() {
			return invalidf(ctx, "effect on derived variable v%d", eff.Var)
		}
		if pre, ok := preValues[eff.Var]; ok && pre != eff.Pre {
			return invalidf(ctx, "v%d has preconditions %d and %d", eff.Var, pre, eff.Pre)
		}
		preValues[eff.Var] = eff.Pre
		if len(eff.Cond) == 0 {
			if post, ok := unconditional[eff.Var]; ok && post != eff.Post {
				return invalidf(ctx, "conflicting effects v%d:=%d and v%d:=%d", eff.Var, post, eff.Var, eff.Post)
			}
			unconditional[eff.Var] = eff.Post
		}
	}
	for _, eff := range op.PrePost {
		for _, c := range eff.Cond {
			if pre, ok := preValues[c.Var]; ok && pre != -1 {
				return invalidf(ctx, "effect condition on v%d which has a precondition", c.Var)
			}
			if _, ok := prevailVars[c.Var]; ok {
				return invalidf(ctx, "effect condition on v%d which has a prevail condition", c.Var)
			}
		}
	}
	if len(op.PrePost) == 0 {
		return invalidf(ctx, "operator has no effects")
	}
	if op.Cost < 0 {
		return invalidf(ctx, "negative cost %d", op.Cost)
	}
	return nil
}

// validateAxiom checks the layering rules: condition variables have a
// layer at most the effect's, and equal-layer conditions use the value
// that differs from the initial one exactly when the effect does.
func (t *Task) validateAxiom(i int, ax *Axiom) error {
	ctx := fmt.Sprintf("axiom %d", i)
	if err := t.validateCondition(ctx, ax.Condition); err != nil {
		return err
	}
	if err := t.ValidateFact(ctx, ax.Effect); err != nil {
		return err
	}
	effLayer := t.Variables[ax.Effect.Var].AxiomLayer
	if effLayer < 0 {
		return invalidf(ctx, "effect variable v%d is not derived", ax.Effect.Var)
	}
	effIsInit := ax.Effect.Value == t.Init[ax.Effect.Var]
	for _, c := range ax.Condition {
		layer := t.Variables[c.Var].AxiomLayer
		if layer == -1 {
			continue
		}
		if layer > effLayer {
			return invalidf(ctx, "condition v%d has layer %d above effect layer %d", c.Var, layer, effLayer)
		}
		if layer == effLayer && effIsInit != (c.Value == t.Init[c.Var]) {
			return invalidf(ctx, "equal-layer condition %s does not match the effect's default value", c)
		}
	}
	return nil
}

func equalEffects(a, b []Effect) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if compareEffects(a[i], b[i]) != 0 {
			return false
		}
	}
	return true
}
