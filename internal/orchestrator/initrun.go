package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/ingest"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
)

// newRunID mints a unique, sortable run identifier.
func newRunID(now time.Time) string {
	return fmt.Sprintf("run_%s_%s", now.UTC().Format("20060102_150405"), uuid.NewString()[:8])
}

// InitRun creates a fresh run: the directory tree, the initial state document
// seeded with the default graph, a provenance record, and optional source
// ingestion. Returns the new run id.
func (e *Engine) InitRun(ctx context.Context, question, problemSpec string, docPaths []string) (string, error) {
	runID := newRunID(time.Now())
	if err := e.layout.EnsureRunDirs(runID); err != nil {
		return "", errors.NewPersistenceError("write", e.layout.RunDir(runID), err)
	}

	if strings.TrimSpace(problemSpec) == "" {
		problemSpec = question
	}
	snapshot, err := yaml.Marshal(e.cfg)
	if err != nil {
		return "", errors.Wrap(err, "encode config snapshot")
	}

	g := taskgraph.DefaultGraph()
	doc, err := statedoc.New(runID, question, problemSpec, strings.TrimSpace(string(snapshot)), g)
	if err != nil {
		return "", err
	}
	if err := statedoc.Write(e.layout.StateDocPath(runID), doc); err != nil {
		return "", err
	}

	if err := e.store.RecordRun(runID, question, time.Now()); err != nil {
		return "", err
	}

	if len(docPaths) > 0 {
		ing := ingest.New(e.layout, e.store, e.registrar, e.cfg.VectorStoreID)
		records, err := ing.IngestDocs(ctx, runID, docPaths)
		if err != nil {
			return "", err
		}
		if err := doc.AppendHistory(fmt.Sprintf("ingested %d docs", len(records))); err != nil {
			return "", err
		}
		if err := statedoc.Write(e.layout.StateDocPath(runID), doc); err != nil {
			return "", err
		}
	}

	if err := e.RefreshFinalOutput(runID); err != nil {
		return "", err
	}
	e.log.WithRun(runID).Info("run initialized")
	return runID, nil
}
