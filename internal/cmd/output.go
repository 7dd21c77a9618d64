package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshOutputCmd = &cobra.Command{
	Use:   "refresh-output <run-id>",
	Short: "Re-derive a run's final output view",
	Long: `Re-derive final_output.md from the run's state document: the question,
the current best answer, and the final report when one exists.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefreshOutput,
}

func init() {
	rootCmd.AddCommand(refreshOutputCmd)
}

func runRefreshOutput(cmd *cobra.Command, args []string) error {
	runID := args[0]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.engine.RefreshFinalOutput(runID); err != nil {
		return err
	}
	fmt.Printf("Refreshed %s\n", d.layout.FinalOutputPath(runID))
	return nil
}
