package compile

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ipc2023-classical/planner1/internal/lib/util"
	"github.com/ipc2023-classical/planner1/pkg/actionelim"
	"github.com/ipc2023-classical/planner1/pkg/sas"
)

func NewCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compiles a task and a plan into the reduction task",
		Long: `Compiles a SAS+ task and one of its plans into a task whose plans are
reductions of the plan. The compiled task is written only if every stage
succeeded. For instance:

  action-elim compile -t output.sas -p sas_plan -s -e --fix-point -r MLR
`,
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
	cmd.Flags().BoolP("subsequence", "s", false, "keep the plan order, reductions are subsequences")
	cmd.Flags().BoolP("enhanced", "e", false, "drop skip actions of necessary steps (needs --subsequence)")
	cmd.Flags().Bool("fix-point", false, "iterate the necessity analysis to a fix point")
	cmd.Flags().Bool("unnecessary", false, "remove steps proven unnecessary")
	cmd.Flags().Bool("macros", false, "merge runs of necessary steps into macro actions")
	cmd.Flags().StringP("reduction", "r", string(actionelim.MR), "MR for cheapest or MLR for shortest reductions")
	cmd.Flags().Bool("position-in-goal", false, "require the plan position to reach the end")
	cmd.Flags().StringP("directory", "d", ".", "output directory")
	cmd.Flags().StringP("file", "f", "minimal-reduction.sas", "output file name")
	cmd.Flags().String("config", "", "YAML options file, flags take precedence")
	cmd.Flags().String("report", "", "write compilation statistics as YAML to this file, - for stdout")
	cmd.Flags().Bool("debug", false, "log the analysis passes")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

// options returns the options file, if any, overridden by the flags set
// on the command line.
func options(flags *pflag.FlagSet) (actionelim.Options, error) {
	opts := actionelim.DefaultOptions()
	if path, _ := flags.GetString("config"); path != "" {
		var err error
		if opts, err = actionelim.LoadOptions(path); err != nil {
			return opts, err
		}
	}
	for name, field := range map[string]*bool{
		"subsequence":      &opts.Ordered,
		"enhanced":         &opts.Enhanced,
		"fix-point":        &opts.FixPoint,
		"unnecessary":      &opts.Unnecessary,
		"macros":           &opts.Macros,
		"position-in-goal": &opts.PositionInGoal,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return opts, err
		}
		*field = v
	}
	if flags.Changed("reduction") {
		r, _ := flags.GetString("reduction")
		opts.Reduction = actionelim.Reduction(strings.ToUpper(r))
	}
	return opts, opts.Validate()
}

func run(cmd *cobra.Command) error {
	flags := cmd.Flags()
	opts, err := options(flags)
	if err != nil {
		return err
	}
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

	logger := logrus.NewEntry(logrus.StandardLogger())
	res, err := actionelim.Compile(cmd.Context(), task, p, opts, actionelim.WithLogger(logger))
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := sas.Write(&out, res.Task); err != nil {
		return err
	}
	dir, _ := flags.GetString("directory")
	file, _ := flags.GetString("file")
	path := filepath.Join(dir, file)
	if err := util.WriteFile(path, out.Bytes()); err != nil {
		return err
	}
	logger.Infof("wrote %s", path)

	if report, _ := flags.GetString("report"); report != "" {
		var buf bytes.Buffer
		if err := res.Stats.WriteReport(&buf); err != nil {
			return fmt.Errorf("error writing report: %w", err)
		}
		if report == "-" {
			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		return util.WriteFile(report, buf.Bytes())
	}
	return nil
}
