package actionelim_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	"github.com/sirupsen/logrus"

	"github.com/ipc2023-classical/planner1/pkg/actionelim"
	"github.com/ipc2023-classical/planner1/pkg/plan"
	"github.com/ipc2023-classical/planner1/pkg/sas"
	"github.com/ipc2023-classical/planner1/pkg/sas/sastest"
)

func quiet() actionelim.CompileOption {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return actionelim.WithLogger(logrus.NewEntry(logger))
}

// allOptions enumerates every valid option combination.
func allOptions() []actionelim.Options {
	var out []actionelim.Options
	for mask := 0; mask < 1<<6; mask++ {
		for _, r := range []actionelim.Reduction{actionelim.MR, actionelim.MLR} {
			opts := actionelim.Options{
				Ordered:        mask&1 != 0,
				Enhanced:       mask&2 != 0,
				FixPoint:       mask&4 != 0,
				Unnecessary:    mask&8 != 0,
				Macros:         mask&16 != 0,
				PositionInGoal: mask&32 != 0,
				Reduction:      r,
			}
			if opts.Validate() == nil {
				out = append(out, opts)
			}
		}
	}
	return out
}

type fixture struct {
	name string
	task func() *sas.Task
	plan []string
	// best reduction cost and length
	cost, length int
}

var fixtures = []fixture{
	{"worked", sastest.Worked, sastest.WorkedPlan, 1, 1},
	{"detour", sastest.Detour, sastest.DetourPlan, 3, 2},
	{"relay", sastest.Relay, sastest.RelayPlan, 5, 4},
	{"chain", func() *sas.Task { return sastest.Chain(4) }, sastest.ChainPlan(4), 10, 4},
}

var _ = Describe("Compile", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reduces the worked example to its necessary step", func() {
		opts := actionelim.Options{Ordered: true, Enhanced: true, Unnecessary: true, Reduction: actionelim.MR}
		res, err := actionelim.Compile(ctx, sastest.Worked(), &plan.Plan{Steps: sastest.WorkedPlan}, opts, quiet())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Task.Validate()).To(Succeed())

		Expect(res.Steps).To(Equal([]int{0, 1, 2}))
		Expect(res.Necessary).To(Equal([]bool{true, false, false}))
		Expect(res.Unnecessary).To(Equal([]bool{false, true, true}))

		var names []string
		for _, op := range res.Task.Operators {
			names = append(names, op.Name)
		}
		Expect(names).To(ConsistOf("op1", "skip-action plan-pos-1", "skip-action plan-pos-2"))
		Expect(res.Task.Variables).To(HaveLen(2))
		Expect(res.Task.Metric).To(BeTrue())

		Expect(res.Stats).To(MatchAllFields(Fields{
			"PlanLength":      Equal(3),
			"UniqueOperators": Equal(3),
			"PlanCost":        Equal(3),
			"Facts":           Equal(4),
			"RelevantFacts":   Equal(4),
			"Necessary":       Equal(1),
			"Unnecessary":     Equal(2),
			"Macros":          Equal(0),
			"DroppedAxioms":   Equal(0),
			"Variables":       Equal(2),
			"Operators":       Equal(3),
		}))

		best, ok := solve(res.Task)
		Expect(ok).To(BeTrue())
		recovered, err := actionelim.RecoverPlan(sastest.Worked(), &plan.Plan{Steps: best})
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered.Steps).To(Equal([]string{"op1"}))
		Expect(recovered.Cost).To(Equal(1))
		Expect(recovered.CostKind).To(Equal(plan.GeneralCost))
	})

	It("keeps every step skippable without the analysis", func() {
		opts := actionelim.Options{Ordered: true, Reduction: actionelim.MR}
		res, err := actionelim.Compile(ctx, sastest.Worked(), &plan.Plan{Steps: sastest.WorkedPlan}, opts, quiet())
		Expect(err).NotTo(HaveOccurred())
		skips := 0
		for _, op := range res.Task.Operators {
			if strings.HasPrefix(op.Name, "skip-action") {
				skips++
				Expect(op.Cost).To(BeZero())
			}
		}
		Expect(skips).To(Equal(3))
		Expect(res.Necessary).To(Equal([]bool{false, false, false}))
	})

	It("requires the end position when asked to", func() {
		opts := actionelim.Options{Ordered: true, PositionInGoal: true, Reduction: actionelim.MR}
		res, err := actionelim.Compile(ctx, sastest.Detour(), &plan.Plan{Steps: sastest.DetourPlan}, opts, quiet())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Task.Goal).To(HaveLen(2))
		best, ok := solve(res.Task)
		Expect(ok).To(BeTrue())
		Expect(best).To(HaveLen(4))
	})

	It("merges runs of necessary steps into macros", func() {
		opts := actionelim.Options{Ordered: true, Enhanced: true, Macros: true, Reduction: actionelim.MLR}
		task := sastest.Chain(4)
		res, err := actionelim.Compile(ctx, task, &plan.Plan{Steps: sastest.ChainPlan(4)}, opts, quiet())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Macros).To(Equal(1))
		Expect(res.Task.Operators).To(HaveLen(1))
		op := res.Task.Operators[0]
		Expect(op.Name).To(Equal("macro (step0)(step1)(step2)(step3)"))
		Expect(op.Cost).To(Equal(4))

		recovered, err := actionelim.RecoverPlan(task, &plan.Plan{Steps: []string{op.Name}})
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered.Steps).To(Equal(sastest.ChainPlan(4)))
		Expect(recovered.Cost).To(Equal(10))
	})

	It("shrinks the unordered MLR task to the distinct plan operators", func() {
		opts := actionelim.Options{Reduction: actionelim.MLR}
		res, err := actionelim.Compile(ctx, sastest.Detour(), &plan.Plan{Steps: sastest.DetourPlan}, opts, quiet())
		Expect(err).NotTo(HaveOccurred())
		Expect(len(res.Task.Operators)).To(BeNumerically("<=", 3))
		Expect(res.Task.Metric).To(BeFalse())
		for _, op := range res.Task.Operators {
			Expect(op.Cost).To(Equal(1))
		}
	})

	Context("for every option combination", func() {
		for _, f := range fixtures {
			f := f
			It("keeps the plan and finds the best reduction of "+f.name, func() {
				for _, opts := range allOptions() {
					task := f.task()
					res, err := actionelim.Compile(ctx, task, &plan.Plan{Steps: f.plan}, opts, quiet())
					Expect(err).NotTo(HaveOccurred(), "%+v", opts)
					Expect(res.Task.Validate()).To(Succeed(), "%+v", opts)

					best, ok := solve(res.Task)
					Expect(ok).To(BeTrue(), "%+v", opts)
					recovered, err := actionelim.RecoverPlan(task, &plan.Plan{Steps: best})
					Expect(err).NotTo(HaveOccurred(), "%+v", opts)
					if opts.Ordered {
						Expect(isSubsequence(recovered.Steps, f.plan)).To(BeTrue(), "%+v", opts)
					}
					if opts.Reduction == actionelim.MR {
						Expect(recovered.Cost).To(Equal(f.cost), "%+v", opts)
					} else {
						Expect(recovered.Steps).To(HaveLen(f.length), "%+v", opts)
					}
				}
			})
		}
	})

	Context("replaying the plan in the compiled task", func() {
		for _, f := range fixtures {
			f := f
			It("reaches the goal for "+f.name, func() {
				for _, opts := range allOptions() {
					if !opts.Ordered || opts.Macros {
						continue
					}
					res, err := actionelim.Compile(ctx, f.task(), &plan.Plan{Steps: f.plan}, opts, quiet())
					Expect(err).NotTo(HaveOccurred(), "%+v", opts)
					Expect(replay(res, f.plan)).To(Succeed(), "%+v", opts)
				}
			})
		}
	})

	Context("with axioms", func() {
		var task *sas.Task

		BeforeEach(func() {
			var err error
			task, err = sas.Parse(strings.NewReader(sastest.Text))
			Expect(err).NotTo(HaveOccurred())
			task.Goal = []sas.Fact{{Var: 0, Value: 1}}
		})

		It("drops them by default", func() {
			res, err := actionelim.Compile(ctx, task, &plan.Plan{Steps: []string{"drive a b"}}, actionelim.Options{Ordered: true, Reduction: actionelim.MR}, quiet())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stats.DroppedAxioms).To(Equal(1))
			Expect(res.Task.Axioms).To(BeEmpty())
		})

		It("rejects them when asked to", func() {
			opts := actionelim.Options{Ordered: true, Reduction: actionelim.MR, RejectAxioms: true}
			_, err := actionelim.Compile(ctx, task, &plan.Plan{Steps: []string{"drive a b"}}, opts, quiet())
			Expect(errors.Is(err, sas.ErrUnsupported)).To(BeTrue())
		})

		It("rejects plan operators with conditional effects", func() {
			_, err := actionelim.Compile(ctx, task, &plan.Plan{Steps: []string{"switch"}}, actionelim.DefaultOptions(), quiet())
			var unsupported *sas.UnsupportedFeatureError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
			Expect(unsupported.Where).To(ContainSubstring("switch"))
		})
	})

	DescribeTable("rejects bad plans",
		func(steps []string, target error) {
			_, err := actionelim.Compile(ctx, sastest.Worked(), &plan.Plan{Steps: steps}, actionelim.DefaultOptions(), quiet())
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, target)).To(BeTrue(), err.Error())
		},
		Entry("empty", nil, sas.ErrValidation),
		Entry("unknown operator", []string{"op1", "op4"}, sas.ErrLookup),
		Entry("inapplicable step", []string{"op3", "op1"}, sas.ErrValidation),
		Entry("goal not reached", []string{"op2", "op3"}, sas.ErrValidation),
	)

	It("names the failing step", func() {
		_, err := actionelim.Compile(ctx, sastest.Worked(), &plan.Plan{Steps: []string{"op1", "op3"}}, actionelim.DefaultOptions(), quiet())
		var invalid *sas.ValidationError
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(invalid.Context).To(Equal("plan step 1 (op3)"))
	})

	It("rejects invalid options", func() {
		_, err := actionelim.Compile(ctx, sastest.Worked(), &plan.Plan{Steps: sastest.WorkedPlan}, actionelim.Options{Macros: true, Reduction: actionelim.MR}, quiet())
		Expect(errors.Is(err, actionelim.ErrInvalidOptions)).To(BeTrue())
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := actionelim.Compile(cctx, sastest.Worked(), &plan.Plan{Steps: sastest.WorkedPlan}, actionelim.DefaultOptions(), quiet())
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})

	It("logs the analysis passes at debug level", func() {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)
		logger.SetLevel(logrus.DebugLevel)
		opts := actionelim.Options{Ordered: true, Enhanced: true, FixPoint: true, Reduction: actionelim.MR}
		_, err := actionelim.Compile(ctx, sastest.Relay(), &plan.Plan{Steps: sastest.RelayPlan}, opts, actionelim.WithLogger(logrus.NewEntry(logger)))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("pass=2"))
		Expect(buf.String()).To(ContainSubstring("necessary=4"))
	})
})

var _ = Describe("Options", func() {
	DescribeTable("Validate",
		func(opts actionelim.Options, valid bool) {
			if valid {
				Expect(opts.Validate()).To(Succeed())
			} else {
				Expect(errors.Is(opts.Validate(), actionelim.ErrInvalidOptions)).To(BeTrue())
			}
		},
		Entry("defaults", actionelim.DefaultOptions(), true),
		Entry("unknown reduction", actionelim.Options{Reduction: "LR"}, false),
		Entry("enhanced alone", actionelim.Options{Enhanced: true, Reduction: actionelim.MR}, true),
		Entry("fix point without enhanced", actionelim.Options{Ordered: true, FixPoint: true, Reduction: actionelim.MR}, false),
		Entry("unnecessary without subsequence", actionelim.Options{Enhanced: true, Unnecessary: true, Reduction: actionelim.MR}, false),
		Entry("macros", actionelim.Options{Ordered: true, Enhanced: true, Macros: true, Reduction: actionelim.MLR}, true),
		Entry("position without subsequence", actionelim.Options{PositionInGoal: true, Reduction: actionelim.MR}, false),
	)

	It("loads YAML files over the defaults", func() {
		path := filepath.Join(GinkgoT().TempDir(), "options.yaml")
		Expect(os.WriteFile(path, []byte("subsequence: true\nenhanced: true\nfix-point: true\n"), 0o600)).To(Succeed())
		opts, err := actionelim.LoadOptions(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(opts).To(Equal(actionelim.Options{Ordered: true, Enhanced: true, FixPoint: true, Reduction: actionelim.MR}))
	})

	It("rejects unknown keys", func() {
		path := filepath.Join(GinkgoT().TempDir(), "options.yaml")
		Expect(os.WriteFile(path, []byte("subsequence: true\nordered: true\n"), 0o600)).To(Succeed())
		_, err := actionelim.LoadOptions(path)
		Expect(errors.Is(err, actionelim.ErrInvalidOptions)).To(BeTrue())
	})
})

var _ = Describe("Recover", func() {
	It("drops skips and expands macros", func() {
		names := []string{"skip-action plan-pos-0", "macro (a b)(c)", "d", "skip-action plan-pos-4"}
		Expect(actionelim.Recover(names)).To(Equal([]string{"a b", "c", "d"}))
	})

	It("rejects recovered plans that do not solve the task", func() {
		_, err := actionelim.RecoverPlan(sastest.Worked(), &plan.Plan{Steps: []string{"op2"}})
		Expect(errors.Is(err, sas.ErrValidation)).To(BeTrue())
	})
})

var _ = Describe("Stats", func() {
	It("writes a YAML report", func() {
		var buf bytes.Buffer
		Expect(actionelim.Stats{PlanLength: 3, Necessary: 1}.WriteReport(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("plan-length: 3\n"))
		Expect(buf.String()).To(ContainSubstring("necessary: 1\n"))
	})
})

// replay applies the plan to the compiled task, taking the skip action
// exactly for the steps the analysis removed.
func replay(res *actionelim.Result, names []string) error {
	task := res.Task
	order, pos := -1, map[string]int{}
	for v, variable := range task.Variables {
		if strings.HasPrefix(variable.Values[0], "Atom plan-pos-") {
			order = v
			for i, name := range variable.Values {
				pos[name] = i
			}
		}
	}
	if order == -1 {
		return fmt.Errorf("no order variable")
	}
	step := func(name string, i int) *sas.Operator {
		at := pos[fmt.Sprintf("Atom plan-pos-%d()", i)]
		for j := range task.Operators {
			op := &task.Operators[j]
			if op.Name != name {
				continue
			}
			for _, eff := range op.PrePost {
				if eff.Var == order && eff.Pre == at {
					return op
				}
			}
		}
		return nil
	}

	state := task.InitialState()
	for i, name := range names {
		if res.Unnecessary[i] && !res.Necessary[i] {
			name = fmt.Sprintf("skip-action plan-pos-%d", i)
		}
		op := step(name, i)
		if op == nil {
			return fmt.Errorf("no operator %s at step %d", name, i)
		}
		if !state.Applicable(op) {
			return fmt.Errorf("%s is not applicable at step %d", name, i)
		}
		state = state.Apply(op)
	}
	if !task.GoalReached(state) {
		return fmt.Errorf("goal not reached")
	}
	return nil
}
