package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	initSpecFile string
	initDocs     []string
)

var initCmd = &cobra.Command{
	Use:   "init <question>",
	Short: "Start a new research run",
	Long: `Start a new research run for the given question.

Creates the run directory, seeds the state document with the default
three-stage task graph, and optionally ingests source documents.`,
	Args: cobra.ExactArgs(1),
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().StringVar(&initSpecFile, "spec", "", "file holding the problem spec (defaults to the question)")
	initCmd.Flags().StringArrayVar(&initDocs, "doc", nil, "source document to ingest (repeatable)")
	rootCmd.AddCommand(initCmd)
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	d, err := buildDeps("")
	if err != nil {
		return err
	}
	defer d.close()

	question := args[0]
	problemSpec := ""
	if initSpecFile != "" {
		data, err := os.ReadFile(initSpecFile)
		if err != nil {
			return fmt.Errorf("read spec file: %w", err)
		}
		problemSpec = string(data)
	}

	runID, err := d.engine.InitRun(cmd.Context(), question, problemSpec, initDocs)
	if err != nil {
		return err
	}

	fmt.Printf("Initialized run %s\n", runID)
	fmt.Printf("State document: %s\n", d.layout.StateDocPath(runID))
	return nil
}
