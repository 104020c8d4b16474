package simplify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipc2023-classical/planner1/pkg/sas"
	"github.com/ipc2023-classical/planner1/pkg/sas/sastest"
)

func TestReachability(t *testing.T) {
	task := &sas.Task{
		Variables: []sas.Variable{sastest.Domain("a", 3), sastest.Binary("b"), sastest.Binary("c"), sastest.Binary("d")},
		Mutexes: []sas.MutexGroup{
			{Facts: []sas.Fact{{Var: 0, Value: 1}, {Var: 0, Value: 2}, {Var: 1, Value: 1}}},
			{Facts: []sas.Fact{{Var: 2, Value: 0}, {Var: 3, Value: 0}}},
		},
		Init: []int{0, 0, 0, 0},
		Goal: []sas.Fact{{Var: 1, Value: 1}},
		Operators: []sas.Operator{
			sastest.Op("o1", 1, nil, [3]int{0, 0, 1}),
			sastest.Op("o2", 1, []sas.Fact{{Var: 0, Value: 1}}, [3]int{1, 0, 1}),
			sastest.Op("o3", 1, []sas.Fact{{Var: 2, Value: 1}}, [3]int{0, 1, 2}),
		},
		Metric: true,
	}
	require.NoError(t, task.Validate())

	out, err := Reachability(task)
	require.NoError(t, err)
	require.NoError(t, out.Validate())

	assert.Equal(t, []sas.Variable{
		{Name: "a", AxiomLayer: -1, Values: []string{"Atom a-0()", "Atom a-1()"}},
		{Name: "b", AxiomLayer: -1, Values: []string{"Atom b-0()", "Atom b-1()"}},
	}, out.Variables)
	assert.Equal(t, []int{0, 0}, out.Init)
	assert.Equal(t, []sas.Fact{{Var: 1, Value: 1}}, out.Goal)
	assert.Equal(t, []sas.MutexGroup{{Facts: []sas.Fact{{Var: 0, Value: 1}, {Var: 1, Value: 1}}}}, out.Mutexes)
	assert.Equal(t, []sas.Operator{
		sastest.Op("o1", 1, nil, [3]int{0, 0, 1}),
		sastest.Op("o2", 1, []sas.Fact{{Var: 0, Value: 1}}, [3]int{1, 0, 1}),
	}, out.Operators)
	assert.True(t, out.Metric)
}

func TestReachabilityKeepsConstantGoalVariables(t *testing.T) {
	task := sastest.Worked()
	task.Goal = []sas.Fact{{Var: 0, Value: 1}, {Var: 1, Value: 0}}
	task.Operators = task.Operators[:1]

	out, err := Reachability(task)
	require.NoError(t, err)
	require.Len(t, out.Variables, 2)
	assert.Equal(t, 2, out.Variables[1].Size())
}

func TestReachabilityUnreachableGoal(t *testing.T) {
	task := sastest.Worked()
	task.Operators = task.Operators[1:]
	_, err := Reachability(task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sas.ErrValidation))
}

func TestVariableOrder(t *testing.T) {
	task := &sas.Task{
		Variables: []sas.Variable{sastest.Binary("p"), sastest.Binary("q"), sastest.Binary("r"), sastest.Binary("s"), sastest.Binary("t")},
		Init:      []int{0, 0, 0, 0, 1},
		Goal:      []sas.Fact{{Var: 2, Value: 1}, {Var: 4, Value: 1}},
		Operators: []sas.Operator{
			sastest.Op("use-q", 2, []sas.Fact{{Var: 1, Value: 1}}, [3]int{2, 0, 1}),
			sastest.Op("set-q", 1, nil, [3]int{1, 0, 1}),
			sastest.Op("set-s", 1, nil, [3]int{3, 0, 1}),
			sastest.Op("use-r", 1, []sas.Fact{{Var: 2, Value: 1}}, [3]int{0, 0, 1}),
		},
	}
	require.NoError(t, task.Validate())

	out := VariableOrder(task)
	require.NoError(t, out.Validate())

	var names []string
	for _, v := range out.Variables {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"var0", "var1", "var2"}, names)
	assert.Equal(t, []string{"Atom q-0()", "Atom q-1()"}, out.Variables[0].Values)
	assert.Equal(t, []string{"Atom r-0()", "Atom r-1()"}, out.Variables[1].Values)
	assert.Equal(t, []string{"Atom t-0()", "Atom t-1()"}, out.Variables[2].Values)
	assert.Equal(t, []int{0, 0, 1}, out.Init)
	assert.Equal(t, []sas.Fact{{Var: 1, Value: 1}, {Var: 2, Value: 1}}, out.Goal)
	assert.Equal(t, []sas.Operator{
		sastest.Op("set-q", 1, nil, [3]int{0, 0, 1}),
		sastest.Op("use-q", 2, []sas.Fact{{Var: 0, Value: 1}}, [3]int{1, 0, 1}),
	}, out.Operators)
}

func TestVariableOrderCycles(t *testing.T) {
	task := &sas.Task{
		Variables: []sas.Variable{sastest.Binary("a"), sastest.Binary("b"), sastest.Binary("c")},
		Init:      []int{0, 0, 0},
		Goal:      []sas.Fact{{Var: 0, Value: 1}},
		Operators: []sas.Operator{
			sastest.Op("ab", 1, []sas.Fact{{Var: 1, Value: 1}}, [3]int{0, 0, 1}),
			sastest.Op("ba", 1, []sas.Fact{{Var: 0, Value: 0}}, [3]int{1, 0, 1}),
			sastest.Op("cb", 1, []sas.Fact{{Var: 2, Value: 1}}, [3]int{1, -1, 0}),
		},
	}
	g := causalGraph(task)
	assert.Equal(t, [][]int{{0, 1}, {2}}, g.components([]bool{true, true, true}))
	assert.Equal(t, []int{2, 0, 1}, g.order([]bool{true, true, true}))

	out := VariableOrder(task)
	require.NoError(t, out.Validate())
	assert.Equal(t, []string{"Atom c-0()", "Atom c-1()"}, out.Variables[0].Values)
}
