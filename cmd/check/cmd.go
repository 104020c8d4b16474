package check

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipc2023-classical/planner1/internal/roundtrip"
)

var ErrRoundTrip = errors.New("task does not survive a round trip")

func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Checks that a task file is written back unchanged",
		Long: `Parses a SAS+ task file, writes it back and compares both. Trailing
whitespace and blank lines are ignored; other differences are printed as a
line diff.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading task file (%s): %w", args[0], err)
			}
			report, err := roundtrip.Check(string(data))
			if err != nil {
				return err
			}
			if !report.Equal {
				fmt.Fprint(cmd.OutOrStdout(), report.Diff)
				return ErrRoundTrip
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}
