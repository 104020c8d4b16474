// Package sastest provides small tasks and plans for tests.
package sastest

import (
	"fmt"

	"github.com/ipc2023-classical/planner1/pkg/sas"
)

// Binary returns a non-derived variable with values "Atom <name>-<i>()".
func Binary(name string) sas.Variable {
	return Domain(name, 2)
}

// Domain returns a non-derived variable with size values.
func Domain(name string, size int) sas.Variable {
	v := sas.Variable{Name: name, AxiomLayer: -1}
	for i := 0; i < size; i++ {
		v.Values = append(v.Values, fmt.Sprintf("Atom %s-%d()", name, i))
	}
	return v
}

// Op returns an operator setting var from pre to post for every (var, pre,
// post) triple in effects.
func Op(name string, cost int, prevail []sas.Fact, effects ...[3]int) sas.Operator {
	op := sas.Operator{Name: name, Prevail: prevail, Cost: cost}
	for _, e := range effects {
		op.PrePost = append(op.PrePost, sas.Effect{Var: e[0], Pre: e[1], Post: e[2]})
	}
	return op.Canonical()
}

// Worked returns the task x, y in {0,1}, init x=0 y=0, goal x=1, with
// op1 (x 0->1), op2 (y 0->1) and op3 (y 1->0), all of cost 1.
func Worked() *sas.Task {
	return &sas.Task{
		Variables: []sas.Variable{Binary("x"), Binary("y")},
		Init:      []int{0, 0},
		Goal:      []sas.Fact{{Var: 0, Value: 1}},
		Operators: []sas.Operator{
			Op("op1", 1, nil, [3]int{0, 0, 1}),
			Op("op2", 1, nil, [3]int{1, 0, 1}),
			Op("op3", 1, nil, [3]int{1, 1, 0}),
		},
		Metric: true,
	}
}

// WorkedPlan is the plan of Worked in order.
var WorkedPlan = []string{"op1", "op2", "op3"}

// Chain returns a task with variables v0..v(n-1) and a pointer variable p in
// {0..n}. Step i requires p=i, sets p to i+1 and sets v_i to 1. The goal is
// every v_i=1. Every step is necessary.
func Chain(n int) *sas.Task {
	t := &sas.Task{Metric: true}
	for i := 0; i < n; i++ {
		t.Variables = append(t.Variables, Binary(fmt.Sprintf("v%d", i)))
		t.Init = append(t.Init, 0)
		t.Goal = append(t.Goal, sas.Fact{Var: i, Value: 1})
	}
	t.Variables = append(t.Variables, Domain("p", n+1))
	t.Init = append(t.Init, 0)
	for i := 0; i < n; i++ {
		t.Operators = append(t.Operators, Op(fmt.Sprintf("step%d", i), i+1, nil, [3]int{i, 0, 1}, [3]int{n, i, i + 1}))
	}
	return t
}

// ChainPlan is the plan of Chain(n).
func ChainPlan(n int) []string {
	var steps []string
	for i := 0; i < n; i++ {
		steps = append(steps, fmt.Sprintf("step%d", i))
	}
	return steps
}

// Detour returns a task where the goal g=1 needs key k=1. The plan picks
// the key, drops it, picks it again and opens; the first pick and the drop
// are a redundant round trip.
func Detour() *sas.Task {
	return &sas.Task{
		Variables: []sas.Variable{Binary("k"), Binary("g")},
		Init:      []int{0, 0},
		Goal:      []sas.Fact{{Var: 1, Value: 1}},
		Operators: []sas.Operator{
			Op("pick", 2, nil, [3]int{0, 0, 1}),
			Op("drop", 3, nil, [3]int{0, 1, 0}),
			Op("open", 1, []sas.Fact{{Var: 0, Value: 1}}, [3]int{1, 0, 1}),
		},
		Metric: true,
	}
}

// DetourPlan is the plan of Detour.
var DetourPlan = []string{"pick", "drop", "pick", "open"}

// Relay returns a task over v, w, a and b, all binary and initially 0,
// with goal a=1 b=1. Its plan RelayPlan sets v twice; the first set is
// overwritten by reset-v before anything reads it. Marking reset-v
// necessary only helps the read of use-v in a second pass.
func Relay() *sas.Task {
	return &sas.Task{
		Variables: []sas.Variable{Binary("v"), Binary("w"), Binary("a"), Binary("b")},
		Init:      []int{0, 0, 0, 0},
		Goal:      []sas.Fact{{Var: 2, Value: 1}, {Var: 3, Value: 1}},
		Operators: []sas.Operator{
			Op("set-v", 1, nil, [3]int{0, -1, 1}),
			Op("reset-v", 2, nil, [3]int{0, -1, 0}, [3]int{1, -1, 1}),
			Op("use-w", 1, []sas.Fact{{Var: 1, Value: 1}}, [3]int{2, 0, 1}),
			Op("use-v", 1, []sas.Fact{{Var: 0, Value: 1}}, [3]int{3, 0, 1}),
		},
		Metric: true,
	}
}

// RelayPlan is the plan of Relay.
var RelayPlan = []string{"set-v", "reset-v", "use-w", "set-v", "use-v"}

// Text is a task exercising every section of the format, including a
// conditional effect, a mutex group and an axiom.
const Text = `begin_version
3
end_version
begin_metric
1
end_metric
4
begin_variable
var0
-1
2
Atom at-a()
Atom at-b()
end_variable
begin_variable
var1
-1
3
Atom fuel-0()
Atom fuel-1()
Atom fuel-2()
end_variable
begin_variable
var2
-1
2
Atom lit()
NegatedAtom lit()
end_variable
begin_variable
var3
0
2
Atom new-axiom@0()
NegatedAtom new-axiom@0()
end_variable
1
begin_mutex_group
2
0 0
0 1
end_mutex_group
begin_state
0
2
1
1
end_state
begin_goal
2
0 1
3 0
end_goal
3
begin_operator
drive a b
0
2
0 0 0 1
0 1 2 1
2
end_operator
begin_operator
refuel
1
0 1
1
0 1 -1 2
1
end_operator
begin_operator
switch
0
2
0 1 0 1
1 0 1 2 -1 0
0
end_operator
1
begin_rule
1
2 0
3 1 0
end_rule
`

// Steps resolves plan names to operator indices and panics on unknown
// names.
func Steps(task *sas.Task, names []string) []int {
	idx := task.OperatorIndex()
	out := make([]int, len(names))
	for i, name := range names {
		op, err := idx.Lookup(name)
		if err != nil {
			panic(err)
		}
		out[i] = op
	}
	return out
}
