// Package review implements the human review boundary: listing tasks held
// for review, approving a task's recorded output as-is, and approving it with
// reviewer corrections. Both acceptance paths replay the recorded worker
// output through the same artifact and ledger bookkeeping the scheduler uses,
// so a reviewed task is indistinguishable from an auto-accepted one.
package review

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/logging"
	"github.com/mtian8/physics-agent/internal/orchestrator"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// Manager drives review actions against a run's state document.
type Manager struct {
	layout *workspace.Layout
	log    *logging.Logger
}

// NewManager creates a Manager.
func NewManager(layout *workspace.Layout, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{layout: layout, log: log}
}

// QueueItem is one task awaiting human review.
type QueueItem struct {
	TaskID string
	Title  string
	Worker string
	Reason string
}

// Override carries the reviewer's corrections applied during Modify. Zero
// fields keep the recorded value; artifacts merge key by key.
type Override struct {
	Summary   string
	Artifacts map[string]string
	Evidence  []worker.Evidence
}

// Queue lists the tasks held for human review, in graph-declared order.
func (m *Manager) Queue(runID string) ([]QueueItem, error) {
	doc, err := statedoc.Load(m.layout.StateDocPath(runID))
	if err != nil {
		return nil, err
	}
	g, err := doc.TaskGraph()
	if err != nil {
		return nil, err
	}

	var items []QueueItem
	for _, task := range g.AllTasks() {
		if task.Status == taskgraph.StatusBlocked && task.BlockedReason == taskgraph.BlockedReasonHumanReview {
			items = append(items, QueueItem{
				TaskID: task.ID,
				Title:  task.Title,
				Worker: task.Worker,
				Reason: task.BlockedReason,
			})
		}
	}
	return items, nil
}

// Approve accepts a held task's recorded output unchanged and marks it done.
func (m *Manager) Approve(runID, taskID string) error {
	return m.accept(runID, taskID, nil, "approved")
}

// Modify accepts a held task with reviewer corrections merged over the
// recorded output, then marks it done.
func (m *Manager) Modify(runID, taskID string, o Override) error {
	return m.accept(runID, taskID, &o, "modified")
}

func (m *Manager) accept(runID, taskID string, o *Override, action string) error {
	doc, err := statedoc.Load(m.layout.StateDocPath(runID))
	if err != nil {
		return err
	}
	g, err := doc.TaskGraph()
	if err != nil {
		return err
	}
	task := g.FindTask(taskID)
	if task == nil {
		return errors.NewNotFoundError("task", taskID)
	}
	if task.Status != taskgraph.StatusBlocked || task.BlockedReason != taskgraph.BlockedReasonHumanReview {
		return errors.NewValidationError("task is not awaiting human review").
			WithField("status").WithValue(string(task.Status)).WithTaskID(taskID)
	}

	res, err := m.loadSnapshot(runID, taskID)
	if err != nil {
		return err
	}
	if o != nil {
		applyOverride(res, o)
		if err := m.writeSnapshot(runID, taskID, res); err != nil {
			return err
		}
	}

	written, _, err := orchestrator.WriteArtifacts(m.layout, runID, task, res)
	if err != nil {
		return err
	}
	if report, ok := res.Artifacts["final_report.md"]; ok {
		if err := doc.UpdateBestAnswer(report); err != nil {
			return err
		}
	}

	// Verifier issues recorded before the hold survive acceptance; the
	// reviewer saw them and accepted anyway.
	issues, err := ledgerIssues(doc, taskID)
	if err != nil {
		return err
	}

	if err := g.SetStatus(taskID, taskgraph.StatusDone, &taskgraph.StatusUpdate{}); err != nil {
		return err
	}
	if err := doc.UpdateResultsLedger(statedoc.ResultBlock{
		TaskID:    taskID,
		Title:     task.Title,
		Status:    taskgraph.StatusDone.String(),
		Summary:   res.Summary,
		Artifacts: written,
		Evidence:  res.EvidenceLines(),
		Issues:    issues,
	}); err != nil {
		return err
	}
	if len(res.Evidence) > 0 {
		if err := doc.UpdateEvidenceLedger(taskID, res.EvidenceLines()); err != nil {
			return err
		}
	}
	if err := doc.AppendHistory(taskID + " " + action); err != nil {
		return err
	}

	if err := doc.UpdateTaskGraph(g); err != nil {
		return err
	}
	if err := doc.TouchLastUpdated(); err != nil {
		return err
	}
	if err := statedoc.Write(m.layout.StateDocPath(runID), doc); err != nil {
		return err
	}

	m.log.WithRun(runID).WithTask(taskID).Info("task " + action)
	return orchestrator.RefreshFinalOutput(m.layout, runID)
}

// applyOverride merges the reviewer's corrections over the recorded result.
func applyOverride(res *worker.TaskResult, o *Override) {
	if o.Summary != "" {
		res.Summary = o.Summary
	}
	if len(o.Artifacts) > 0 {
		if res.Artifacts == nil {
			res.Artifacts = make(map[string]string, len(o.Artifacts))
		}
		for name, content := range o.Artifacts {
			res.Artifacts[name] = content
		}
	}
	if len(o.Evidence) > 0 {
		res.Evidence = o.Evidence
	}
}

// loadSnapshot reads the task's recorded worker output.
func (m *Manager) loadSnapshot(runID, taskID string) (*worker.TaskResult, error) {
	path := m.layout.TaskOutputPath(runID, taskID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("task output", taskID).WithCause(err)
		}
		return nil, errors.NewPersistenceError("read", path, err)
	}
	var res worker.TaskResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.NewPersistenceError("read", path, err)
	}
	return &res, nil
}

func (m *Manager) writeSnapshot(runID, taskID string, res *worker.TaskResult) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode result for task %s", taskID)
	}
	path := m.layout.TaskOutputPath(runID, taskID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewPersistenceError("write", path, err)
	}
	return nil
}

// ledgerIssues extracts the issues recorded under a task's results ledger
// block, if any.
func ledgerIssues(doc *statedoc.Document, taskID string) ([]string, error) {
	ledger, err := doc.Section(statedoc.SectionResults)
	if err != nil {
		return nil, err
	}

	marker := "### " + taskID
	lines := strings.Split(ledger, "\n")
	inBlock := false
	inIssues := false
	var issues []string
	for _, line := range lines {
		switch {
		case line == marker || strings.HasPrefix(line, marker+" "):
			inBlock = true
		case inBlock && strings.HasPrefix(line, "### "):
			return issues, nil
		case inBlock && line == "- issues:":
			inIssues = true
		case inBlock && inIssues:
			if item, ok := strings.CutPrefix(line, "  - "); ok {
				if item != "_none_" {
					issues = append(issues, item)
				}
			} else {
				inIssues = false
			}
		}
	}
	return issues, nil
}
