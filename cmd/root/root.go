package root

import (
	"github.com/spf13/cobra"

	"github.com/ipc2023-classical/planner1/cmd/check"
	"github.com/ipc2023-classical/planner1/cmd/compile"
	"github.com/ipc2023-classical/planner1/cmd/reduce"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "action-elim",
		Short: "Compiles a planning task and a plan into a task over the plan's reductions",
		Long: `Compiles a SAS+ task and one of its plans into a smaller task whose
plans are the cheapest (MR) or shortest (MLR) reductions of the plan.`,
		SilenceErrors: true,
	}

	// add sub-commands
	rootCmd.AddCommand(compile.NewCompileCommand())
	rootCmd.AddCommand(reduce.NewReduceCommand())
	rootCmd.AddCommand(check.NewCheckCommand())

	return rootCmd
}
