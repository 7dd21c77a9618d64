package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mtian8/physics-agent/internal/config"
	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// finalReportArtifact is the artifact name that, when produced, becomes the
// run's current best answer.
const finalReportArtifact = "final_report.md"

// reconcileTask folds one dispatched task's outcome back into the graph and
// the state document: status transition, ledgers, artifacts, follow-ups, and
// the per-task verification and review gates. A worker failure is recorded
// against the task; only document errors propagate. The returned flag reports
// whether the task's verifier withheld a PASS; the task itself still settles,
// the cycle is what gets flagged.
func (e *Engine) reconcileTask(ctx context.Context, runID string, doc *statedoc.Document, g *taskgraph.Graph, stage *taskgraph.Stage, task *taskgraph.Task, dr dispatchResult, pack string) (bool, error) {
	log := e.log.WithRun(runID).WithStage(stage.ID).WithTask(task.ID)

	if dr.err != nil {
		log.Warn("task failed", "error", dr.err.Error())
		if err := g.SetStatus(task.ID, taskgraph.StatusBlocked, &taskgraph.StatusUpdate{BlockedReason: dr.err.Error()}); err != nil {
			return false, err
		}
		if err := doc.UpdateResultsLedger(statedoc.ResultBlock{
			TaskID:  task.ID,
			Title:   task.Title,
			Status:  taskgraph.StatusBlocked.String(),
			Summary: "_error_: " + dr.err.Error(),
			Issues:  []string{dr.err.Error()},
		}); err != nil {
			return false, err
		}
		if err := doc.UpdateEvidenceLedger(task.ID, nil); err != nil {
			return false, err
		}
		return false, doc.AppendHistory(fmt.Sprintf("%s blocked: %v", task.ID, dr.err))
	}

	res := dr.result
	if err := e.writeTaskSnapshot(runID, task.ID, res); err != nil {
		return false, err
	}
	written, patches, err := WriteArtifacts(e.layout, runID, task, res)
	if err != nil {
		return false, err
	}
	if report, ok := res.Artifacts[finalReportArtifact]; ok {
		if err := doc.UpdateBestAnswer(report); err != nil {
			return false, err
		}
	}
	if err := e.addFollowups(doc, stage, res.FollowUps); err != nil {
		return false, err
	}

	var verifierBlocked bool
	var issues []string
	if e.cfg.Verification.Resolve(task.ID, task.Worker) == config.VerifyChecked {
		vres := e.verifyTask(ctx, runID, stage, task, res, pack)
		if err := e.writePromptPatch(runID, task.ID+"_verifier_prompt_patch.md", vres.PromptPatch); err != nil {
			return false, err
		}
		if !vres.Verdict.Passed() {
			log.Warn("task verification did not pass", "verdict", vres.Verdict.String())
			verifierBlocked = true
			fallback := fmt.Sprintf("Resolve task verifier verdict %s for task %s: %s", vres.Verdict, task.ID, vres.Summary)
			if err := e.addFollowups(doc, stage, followupSuggestions(vres, fallback)); err != nil {
				return false, err
			}
			issues = append([]string{"task_verifier: " + vres.Verdict.String()}, vres.Issues...)
			if err := doc.AppendHistory(fmt.Sprintf("%s task verifier: %s", task.ID, vres.Verdict)); err != nil {
				return false, err
			}
		}
	}

	// A failed verdict flags the cycle and leaves issues on the record, but
	// the produced work stands: the task settles and its follow-ups carry
	// the rework.
	status := taskgraph.StatusDone
	update := &taskgraph.StatusUpdate{}
	if e.cfg.Review.Resolve(task.ID, task.Worker) == config.ReviewHuman {
		log.Info("holding task for human review")
		status = taskgraph.StatusBlocked
		update.BlockedReason = taskgraph.BlockedReasonHumanReview
	}
	if err := g.SetStatus(task.ID, status, update); err != nil {
		return false, err
	}
	if err := doc.UpdateResultsLedger(statedoc.ResultBlock{
		TaskID:    task.ID,
		Title:     task.Title,
		Status:    status.String(),
		Summary:   res.Summary,
		Artifacts: written,
		Evidence:  res.EvidenceLines(),
		Issues:    issues,
	}); err != nil {
		return false, err
	}
	if err := doc.UpdateEvidenceLedger(task.ID, res.EvidenceLines()); err != nil {
		return false, err
	}
	if len(patches) > 0 {
		if err := doc.AppendHistory(task.ID + " prompt patches: " + strings.Join(patches, ", ")); err != nil {
			return false, err
		}
	}
	if status == taskgraph.StatusBlocked {
		return verifierBlocked, doc.AppendHistory("awaiting human review: " + task.ID)
	}
	log.Info("task done")
	return verifierBlocked, doc.AppendHistory(task.ID + " done")
}

// writeTaskSnapshot persists the raw worker result for post-hoc inspection
// and the human review flow.
func (e *Engine) writeTaskSnapshot(runID, taskID string, res *worker.TaskResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode result for task %s", taskID)
	}
	path := e.layout.TaskOutputPath(runID, taskID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewPersistenceError("write", path, err)
	}
	return nil
}

// promptPatchPrefix marks artifacts that are prompt-improvement suggestions
// rather than stage outputs; they land under prompt_patches/ regardless of
// the task's declared outputs.
const promptPatchPrefix = "prompt_patch"

// WriteArtifacts persists the artifacts the task declared in its outputs,
// skipping anything undeclared, and returns the written names in sorted
// order. Prompt patch artifacts are filed under prompt_patches/ keyed by task
// id and reported separately so they never pose as stage outputs. The review
// flow reuses this when a human accepts recorded work.
func WriteArtifacts(layout *workspace.Layout, runID string, task *taskgraph.Task, res *worker.TaskResult) (written, patches []string, err error) {
	names := sortedArtifactNames(res.Artifacts)
	runDir := layout.RunDir(runID)
	for _, name := range names {
		if strings.HasPrefix(name, promptPatchPrefix) {
			dest := task.ID + "_" + filepath.Base(name)
			path := filepath.Join(layout.PatchesDir(runID), dest)
			if err := os.WriteFile(path, []byte(res.Artifacts[name]), 0o644); err != nil {
				return nil, nil, errors.NewPersistenceError("write", path, err)
			}
			patches = append(patches, dest)
			continue
		}
		if !task.DeclaresArtifact(name) {
			continue
		}
		path := filepath.Join(runDir, filepath.Base(name))
		if err := os.WriteFile(path, []byte(res.Artifacts[name]), 0o644); err != nil {
			return nil, nil, errors.NewPersistenceError("write", path, err)
		}
		written = append(written, name)
	}
	return written, patches, nil
}

// sortedArtifactNames returns the artifact names in deterministic order.
func sortedArtifactNames(artifacts map[string]string) []string {
	names := make([]string, 0, len(artifacts))
	for name := range artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// writePromptPatch records a verifier's prompt-improvement suggestion under
// the run's prompt_patches directory. Empty patches are not recorded.
func (e *Engine) writePromptPatch(runID, name, patch string) error {
	if strings.TrimSpace(patch) == "" {
		return nil
	}
	path := filepath.Join(e.layout.PatchesDir(runID), name)
	if err := os.WriteFile(path, []byte(patch), 0o644); err != nil {
		return errors.NewPersistenceError("write", path, err)
	}
	return nil
}

// addFollowups appends follow-up tasks synthesized from suggestions to the
// stage and logs the created ids in the history.
func (e *Engine) addFollowups(doc *statedoc.Document, stage *taskgraph.Stage, suggestions []string) error {
	if len(suggestions) == 0 {
		return nil
	}
	created := taskgraph.AddFollowupTasks(stage, suggestions, defaultWorkerForStage(stage.ID))
	if len(created) == 0 {
		return nil
	}
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	return doc.AppendHistory("added follow-ups: " + strings.Join(ids, ", "))
}

// defaultWorkerForStage picks the worker that executes follow-up tasks in a
// stage: the reader during literature work, the coder during derivation, and
// the orchestrator during synthesis.
func defaultWorkerForStage(stageID int) string {
	switch stageID {
	case 1:
		return "paper_reader"
	case 2:
		return "derivation_coder"
	default:
		return "orchestrator"
	}
}
