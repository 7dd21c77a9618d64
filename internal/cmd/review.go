package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtian8/physics-agent/internal/review"
)

var (
	modifySummary   string
	modifyArtifacts []string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review tasks held for human approval",
}

var reviewQueueCmd = &cobra.Command{
	Use:   "queue <run-id>",
	Short: "List tasks awaiting human review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewQueue,
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <run-id> <task-id>",
	Short: "Accept a held task's recorded output unchanged",
	Args:  cobra.ExactArgs(2),
	RunE:  runReviewApprove,
}

var reviewModifyCmd = &cobra.Command{
	Use:   "modify <run-id> <task-id>",
	Short: "Accept a held task with corrections",
	Long: `Accept a held task with reviewer corrections merged over the recorded
output. Corrections are supplied as flags; omitted fields keep the recorded
values.`,
	Args: cobra.ExactArgs(2),
	RunE: runReviewModify,
}

func init() {
	reviewModifyCmd.Flags().StringVar(&modifySummary, "summary", "", "replacement summary")
	reviewModifyCmd.Flags().StringArrayVar(&modifyArtifacts, "artifact", nil, "artifact correction as name=file (repeatable)")

	reviewCmd.AddCommand(reviewQueueCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewModifyCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewQueue(cmd *cobra.Command, args []string) error {
	runID := args[0]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	items, err := review.NewManager(d.layout, d.log).Queue(runID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No tasks awaiting review")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%s  %s (%s)\n", item.TaskID, item.Title, item.Worker)
	}
	return nil
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	runID, taskID := args[0], args[1]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	if err := review.NewManager(d.layout, d.log).Approve(runID, taskID); err != nil {
		return err
	}
	fmt.Printf("Approved %s\n", taskID)
	return nil
}

func runReviewModify(cmd *cobra.Command, args []string) error {
	runID, taskID := args[0], args[1]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	override := review.Override{Summary: modifySummary}
	for _, spec := range modifyArtifacts {
		name, path, found := strings.Cut(spec, "=")
		if !found || name == "" || path == "" {
			return fmt.Errorf("invalid --artifact %q, want name=file", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read artifact %s: %w", name, err)
		}
		if override.Artifacts == nil {
			override.Artifacts = make(map[string]string)
		}
		override.Artifacts[name] = string(data)
	}

	if err := review.NewManager(d.layout, d.log).Modify(runID, taskID, override); err != nil {
		return err
	}
	fmt.Printf("Modified and approved %s\n", taskID)
	return nil
}
