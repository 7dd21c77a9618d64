// Package orchestrator drives a research run cycle by cycle: reload the state
// document, pick the current stage, fan the runnable tasks out to their
// workers, reconcile every result back into the document, and gate stage
// advancement on the stage verifier. The document on disk is the only state
// carried between cycles, so a crashed or interrupted cycle resumes from the
// last successful write.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/mtian8/physics-agent/internal/config"
	"github.com/mtian8/physics-agent/internal/contextpack"
	"github.com/mtian8/physics-agent/internal/ingest"
	"github.com/mtian8/physics-agent/internal/logging"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/store"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// Engine schedules one run. It owns no mutable state of its own; everything
// a cycle needs is reloaded from the run's state document.
type Engine struct {
	cfg      *config.Config
	layout   *workspace.Layout
	registry *worker.Registry
	store    *store.Store
	// registrar may be nil; ingestion is then local-only.
	registrar ingest.Registrar
	log       *logging.Logger
}

// New creates an Engine. registrar may be nil to disable remote source
// registration during ingestion.
func New(cfg *config.Config, layout *workspace.Layout, registry *worker.Registry, st *store.Store, registrar ingest.Registrar, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Engine{
		cfg:       cfg,
		layout:    layout,
		registry:  registry,
		store:     st,
		registrar: registrar,
		log:       log,
	}
}

// Step executes one scheduling cycle for the run and persists the updated
// state document. Worker failures are recorded against their tasks; only
// document and graph corruption abort the cycle.
func (e *Engine) Step(ctx context.Context, runID string) (*StepOutcome, error) {
	log := e.log.WithRun(runID)

	doc, err := statedoc.Load(e.layout.StateDocPath(runID))
	if err != nil {
		return nil, err
	}
	g, err := doc.TaskGraph()
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	// Tasks still marked running were interrupted mid-cycle; give them back
	// to the scheduler rather than leaving the stage wedged.
	if err := e.recoverStaleRunning(doc, g); err != nil {
		return nil, err
	}

	stage := g.CurrentStage()
	if stage == nil {
		if err := e.persist(runID, doc, g); err != nil {
			return nil, err
		}
		log.Info("run complete")
		return &StepOutcome{RunID: runID, StopReason: StopComplete}, nil
	}
	log = log.WithStage(stage.ID)

	if stageAwaitingReview(stage) {
		if err := e.persist(runID, doc, g); err != nil {
			return nil, err
		}
		log.Info("stage gated on human review")
		return &StepOutcome{RunID: runID, StageID: stage.ID, StopReason: StopAwaitingHumanReview}, nil
	}

	runnable := g.RunnableTasks(stage)
	if len(runnable) == 0 {
		if err := e.persist(runID, doc, g); err != nil {
			return nil, err
		}
		log.Info("no runnable tasks in current stage")
		return &StepOutcome{RunID: runID, StageID: stage.ID, StopReason: StopNoRunnableTasks}, nil
	}

	pack, err := contextpack.Build(e.layout, runID, doc, stage)
	if err != nil {
		return nil, err
	}
	if _, err := contextpack.WritePack(e.layout, runID, pack); err != nil {
		return nil, err
	}

	// Persist the running marks before dispatch so an interrupted cycle is
	// visible in the document and recoverable on the next one.
	outcome := &StepOutcome{RunID: runID, StageID: stage.ID}
	for _, task := range runnable {
		if err := g.SetStatus(task.ID, taskgraph.StatusRunning, nil); err != nil {
			return nil, err
		}
		outcome.TasksRun = append(outcome.TasksRun, task.ID)
	}
	if err := e.persist(runID, doc, g); err != nil {
		return nil, err
	}
	log.Info("dispatching tasks", "count", len(runnable))

	results := e.dispatch(ctx, runID, runnable, pack)

	// Reconcile against a fresh read of the document; the dispatch marks
	// above are the last write this cycle made, and the disk copy is the
	// source of truth between phases.
	doc, err = statedoc.Load(e.layout.StateDocPath(runID))
	if err != nil {
		return nil, err
	}

	verifierBlocked := false
	for i, task := range runnable {
		blocked, err := e.reconcileTask(ctx, runID, doc, g, stage, task, results[i], pack)
		if err != nil {
			return nil, err
		}
		verifierBlocked = verifierBlocked || blocked
	}
	if err := e.persist(runID, doc, g); err != nil {
		return nil, err
	}

	if stageAwaitingReview(stage) {
		outcome.StopReason = StopAwaitingHumanReview
	} else if verifierBlocked {
		outcome.StopReason = StopVerifierBlocked
	}

	if taskgraph.StageComplete(stage) {
		verdict, err := e.runStageVerifier(ctx, runID, doc, g, stage)
		if err != nil {
			return nil, err
		}
		outcome.VerifierVerdict = verdict
		if err := e.persist(runID, doc, g); err != nil {
			return nil, err
		}
		if !verdict.Passed() {
			outcome.StopReason = StopVerifierBlocked
		} else if g.CurrentStage() == nil {
			outcome.StopReason = StopComplete
		}
	}

	if err := e.RefreshFinalOutput(runID); err != nil {
		return nil, err
	}
	return outcome, nil
}

// stageAwaitingReview reports whether any task in the stage is held for a
// human decision.
func stageAwaitingReview(stage *taskgraph.Stage) bool {
	for _, task := range stage.Tasks {
		if task.Status == taskgraph.StatusBlocked && task.BlockedReason == taskgraph.BlockedReasonHumanReview {
			return true
		}
	}
	return false
}

// recoverStaleRunning resets tasks left in running from an interrupted cycle
// back to todo, recording the reset in the history log.
func (e *Engine) recoverStaleRunning(doc *statedoc.Document, g *taskgraph.Graph) error {
	for _, task := range g.AllTasks() {
		if task.Status != taskgraph.StatusRunning {
			continue
		}
		if err := g.SetStatus(task.ID, taskgraph.StatusTodo, nil); err != nil {
			return err
		}
		if err := doc.AppendHistory(fmt.Sprintf("reset stale running task %s to todo", task.ID)); err != nil {
			return err
		}
	}
	return nil
}

// persist writes the graph back into the document and the document to disk.
func (e *Engine) persist(runID string, doc *statedoc.Document, g *taskgraph.Graph) error {
	if err := doc.UpdateTaskGraph(g); err != nil {
		return err
	}
	if err := doc.TouchLastUpdated(); err != nil {
		return err
	}
	return statedoc.Write(e.layout.StateDocPath(runID), doc)
}
