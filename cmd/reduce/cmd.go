package reduce

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ipc2023-classical/planner1/internal/lib/util"
	"github.com/ipc2023-classical/planner1/internal/necessity"
	"github.com/ipc2023-classical/planner1/internal/solver"
	"github.com/ipc2023-classical/planner1/pkg/actionelim"
	"github.com/ipc2023-classical/planner1/pkg/plan"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

func NewReduceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Finds an optimal subsequence of a plan with a SAT solver",
		Long: `Finds a cheapest (or shortest) subsequence of the plan that still solves
the task, without building the compiled task. The formula can be exported
as DIMACS CNF, or as weighted MaxSAT in WCNF format.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetOutput(cmd.ErrOrStderr())
			logrus.SetLevel(logrus.InfoLevel)
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd)
		},
	}
	cmd.Flags().StringP("task", "t", "", "SAS+ task file")
	cmd.Flags().StringP("plan", "p", "", "plan file of the task")
	cmd.Flags().String("objective", string(solver.Cost), "cost or length")
	cmd.Flags().BoolP("enhanced", "e", false, "fix the steps the necessity analysis decides")
	cmd.Flags().String("cnf", "", "write the formula in DIMACS CNF format to this file")
	cmd.Flags().String("wcnf", "", "write the MaxSAT instance in WCNF format to this file")
	cmd.Flags().StringP("output", "o", "-", "file for the reduced plan, - for stdout")
	cmd.Flags().Bool("debug", false, "log every bound tried")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

type logTracer struct {
	logger *logrus.Entry
}

func (t logTracer) Trace(p solver.SearchPosition) {
	t.logger.WithField("bound", p.Bound()).Debugf("satisfiable: %t", p.Satisfiable())
}

func run(cmd *cobra.Command) error {
	flags := cmd.Flags()
	taskPath, _ := flags.GetString("task")
	planPath, _ := flags.GetString("plan")
	task, err := util.ReadTask(taskPath)
	if err != nil {
		return err
	}
	p, err := util.ReadPlan(planPath)
	if err != nil {
		return err
	}
	steps, err := actionelim.Resolve(task, p)
	if err != nil {
		return err
	}

	logger := logrus.NewEntry(logrus.StandardLogger())
	objective, _ := flags.GetString("objective")
	options := []solver.Option{
		solver.WithObjective(solver.Objective(objective)),
		solver.WithTracer(logTracer{logger: logger}),
	}
	if enhanced, _ := flags.GetBool("enhanced"); enhanced {
		a := necessity.Analyze(task, steps, necessity.Options{FixPoint: true, Unnecessary: true})
		options = append(options, solver.WithAnchors(a.Necessary), solver.WithProhibited(a.Unnecessary))
		logger.WithFields(logrus.Fields{
			"necessary":   a.NumNecessary(),
			"unnecessary": a.NumUnnecessary(),
		}).Info("analysis")
	}
	r, err := solver.NewReducer(task, steps, options...)
	if err != nil {
		return err
	}

	for _, export := range []struct {
		flag  string
		write func(*bytes.Buffer) error
	}{
		{"cnf", func(b *bytes.Buffer) error { return r.WriteDIMACS(b) }},
		{"wcnf", func(b *bytes.Buffer) error { return r.WriteWCNF(b) }},
	} {
		path, _ := flags.GetString(export.flag)
		if path == "" {
			continue
		}
		var buf bytes.Buffer
		if err := export.write(&buf); err != nil {
			return err
		}
		if err := util.WriteFile(path, buf.Bytes()); err != nil {
			return err
		}
	}

	red, err := r.Reduce(cmd.Context())
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"kept":   red.Length,
		"steps":  len(steps),
		"cost":   red.Cost,
		"before": actionelim.Cost(task, steps),
	}).Info("reduction")

	out := &plan.Plan{Cost: red.Cost, HasCost: true, CostKind: costKind(task)}
	for _, i := range red.Kept {
		out.Steps = append(out.Steps, p.Steps[i])
	}
	var buf bytes.Buffer
	if err := plan.Write(&buf, out); err != nil {
		return fmt.Errorf("error writing plan: %w", err)
	}
	if path, _ := flags.GetString("output"); path != "-" {
		return util.WriteFile(path, buf.Bytes())
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func costKind(task *sas.Task) string {
	if task.Metric {
		return plan.GeneralCost
	}
	return plan.UnitCost
}
