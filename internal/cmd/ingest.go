package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtian8/physics-agent/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <run-id> <file>...",
	Short: "Register source documents for a run",
	Long: `Register source documents for a run: each file is content-hashed, copied
under the data directory's sources root, and recorded in the provenance
database.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngestCmd,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngestCmd(cmd *cobra.Command, args []string) error {
	runID := args[0]
	d, err := buildDeps(runID)
	if err != nil {
		return err
	}
	defer d.close()

	if _, err := d.store.GetRun(runID); err != nil {
		return err
	}

	ing := ingest.New(d.layout, d.store, nil, d.cfg.VectorStoreID)
	records, err := ing.IngestDocs(cmd.Context(), runID, args[1:])
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%s  %s\n", rec.ID, rec.StoredPath)
	}
	fmt.Printf("Ingested %d document(s)\n", len(records))
	return nil
}
