package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtian8/physics-agent/internal/orchestrator"
)

var stepCmd = &cobra.Command{
	Use:   "step <run-id>",
	Short: "Execute one scheduling cycle",
	Long: `Execute a single scheduling cycle for the run: dispatch the current
stage's runnable tasks, reconcile their results into the state document, and
run the stage verifier when the stage completes.`,
	Args: cobra.ExactArgs(1),
	RunE: runStepCmd,
}

var runCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Execute cycles until the run stops",
	Long: `Execute scheduling cycles until the run completes, stalls, or exhausts
the configured cycle budget (run.max_cycles). On completion the final
verifier judges the assembled answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runRunCmd,
}

func init() {
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(runCmd)
}

func runStepCmd(cmd *cobra.Command, args []string) error {
	runID := args[0]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	out, err := d.engine.Step(cmd.Context(), runID)
	if err != nil {
		return err
	}
	printOutcome(out)
	return nil
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	runID := args[0]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	out, err := d.engine.Run(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if out != nil {
		printOutcome(out)
	}
	fmt.Printf("Final output: %s\n", d.layout.FinalOutputPath(runID))
	return nil
}

func printOutcome(out *orchestrator.StepOutcome) {
	if out.StageID != 0 {
		fmt.Printf("Stage: %d\n", out.StageID)
	}
	if len(out.TasksRun) > 0 {
		fmt.Printf("Tasks run: %s\n", strings.Join(out.TasksRun, ", "))
	}
	if out.VerifierVerdict != "" {
		fmt.Printf("Stage verifier: %s\n", out.VerifierVerdict)
	}
	if out.StopReason != orchestrator.StopNone {
		fmt.Printf("Stopped: %s\n", out.StopReason)
	}
}
