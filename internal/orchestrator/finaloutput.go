package orchestrator

import (
	"os"
	"path/filepath"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// RefreshFinalOutput re-derives a run's final_output.md view from the state
// document: the question, the current best answer, and the final report when
// one has been produced. The view is derived, never authoritative; it can be
// regenerated at any time. The review flow reuses it after approvals.
func RefreshFinalOutput(layout *workspace.Layout, runID string) error {
	doc, err := statedoc.Load(layout.StateDocPath(runID))
	if err != nil {
		return err
	}

	question, ok, err := doc.HeaderField("question")
	if err != nil {
		return err
	}
	if !ok || question == "" {
		question = "_unknown_"
	}
	summary, err := doc.Section(statedoc.SectionBestAnswer)
	if err != nil {
		return err
	}

	finalReport := summary
	if data, err := os.ReadFile(filepath.Join(layout.RunDir(runID), finalReportArtifact)); err == nil {
		finalReport = string(data)
	}

	path := layout.FinalOutputPath(runID)
	rendered := statedoc.RenderFinalOutput(question, summary, finalReport)
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return errors.NewPersistenceError("write", path, err)
	}
	return nil
}

// RefreshFinalOutput re-derives the final output view for one of this
// engine's runs.
func (e *Engine) RefreshFinalOutput(runID string) error {
	return RefreshFinalOutput(e.layout, runID)
}
