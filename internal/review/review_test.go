package review

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// setupHeldRun builds a run whose named task is blocked awaiting human
// review, with a recorded worker output snapshot and a ledger block carrying
// one verifier issue.
func setupHeldRun(t *testing.T, taskID string, res *worker.TaskResult) (*Manager, *workspace.Layout, string) {
	t.Helper()

	layout := workspace.NewLayout(t.TempDir())
	runID := "run_20250601_120000_rev"
	if err := layout.EnsureRunDirs(runID); err != nil {
		t.Fatalf("EnsureRunDirs: %v", err)
	}

	g := taskgraph.DefaultGraph()
	if err := g.SetStatus(taskID, taskgraph.StatusBlocked, &taskgraph.StatusUpdate{
		BlockedReason: taskgraph.BlockedReasonHumanReview,
	}); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	doc, err := statedoc.New(runID, "What is the plasma frequency?", "Derive it.", "cfg: 1", g)
	if err != nil {
		t.Fatalf("statedoc.New: %v", err)
	}
	task := g.FindTask(taskID)
	if err := doc.UpdateResultsLedger(statedoc.ResultBlock{
		TaskID:  taskID,
		Title:   task.Title,
		Status:  taskgraph.StatusBlocked.String(),
		Summary: res.Summary,
		Issues:  []string{"needs newer citations"},
	}); err != nil {
		t.Fatalf("UpdateResultsLedger: %v", err)
	}
	if err := doc.AppendHistory("awaiting human review: " + taskID); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if err := statedoc.Write(layout.StateDocPath(runID), doc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if err := os.WriteFile(layout.TaskOutputPath(runID, taskID), data, 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	return NewManager(layout, nil), layout, runID
}

func heldResult() *worker.TaskResult {
	return &worker.TaskResult{
		Summary:   "ranked 12 candidate papers",
		Artifacts: map[string]string{"paper_candidates.json": `{"papers": []}`},
		Evidence:  []worker.Evidence{{SourceID: "arxiv:1234.5678", Location: "sec 2"}},
	}
}

func loadRun(t *testing.T, layout *workspace.Layout, runID string) (*statedoc.Document, *taskgraph.Graph) {
	t.Helper()
	doc, err := statedoc.Load(layout.StateDocPath(runID))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g, err := doc.TaskGraph()
	if err != nil {
		t.Fatalf("TaskGraph: %v", err)
	}
	return doc, g
}

func TestQueueListsHeldTasks(t *testing.T) {
	m, _, runID := setupHeldRun(t, "1.1", heldResult())

	items, err := m.Queue(runID)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue length = %d, want 1", len(items))
	}
	item := items[0]
	if item.TaskID != "1.1" || item.Worker != "literature_scout" || item.Reason != taskgraph.BlockedReasonHumanReview {
		t.Errorf("item = %+v", item)
	}
}

func TestApproveAcceptsRecordedOutput(t *testing.T) {
	m, layout, runID := setupHeldRun(t, "1.1", heldResult())

	if err := m.Approve(runID, "1.1"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	doc, g := loadRun(t, layout, runID)
	task := g.FindTask("1.1")
	if task.Status != taskgraph.StatusDone || task.BlockedReason != "" {
		t.Errorf("task = (%s, %q), want done with cleared reason", task.Status, task.BlockedReason)
	}

	ledger, _ := doc.Section(statedoc.SectionResults)
	if !strings.Contains(ledger, "- status: done") {
		t.Errorf("ledger not updated:\n%s", ledger)
	}
	if !strings.Contains(ledger, "needs newer citations") {
		t.Errorf("recorded issue dropped on approval:\n%s", ledger)
	}
	history, _ := doc.Section(statedoc.SectionHistory)
	if !strings.Contains(history, "1.1 approved") {
		t.Errorf("history missing approval line:\n%s", history)
	}

	if _, err := os.Stat(layout.CandidatesPath(runID)); err != nil {
		t.Errorf("declared artifact not written: %v", err)
	}
	if _, err := os.Stat(layout.FinalOutputPath(runID)); err != nil {
		t.Errorf("final output not refreshed: %v", err)
	}

	items, err := m.Queue(runID)
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("queue should be empty after approval, got %v", items)
	}
}

func TestApproveRejectsTaskNotHeld(t *testing.T) {
	m, _, runID := setupHeldRun(t, "1.1", heldResult())

	err := m.Approve(runID, "1.2")
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("got %v, want ValidationError for todo task", err)
	}

	if err := m.Approve(runID, "9.9"); !errors.Is(err, errors.ErrTaskNotFound) {
		t.Errorf("got %v, want ErrTaskNotFound", err)
	}
}

func TestApproveRequiresRecordedSnapshot(t *testing.T) {
	m, layout, runID := setupHeldRun(t, "1.1", heldResult())
	if err := os.Remove(layout.TaskOutputPath(runID, "1.1")); err != nil {
		t.Fatalf("remove snapshot: %v", err)
	}

	err := m.Approve(runID, "1.1")
	var nfErr *errors.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestModifyMergesCorrections(t *testing.T) {
	m, layout, runID := setupHeldRun(t, "1.1", heldResult())

	err := m.Modify(runID, "1.1", Override{
		Summary:   "ranked 8 papers after pruning preprints",
		Artifacts: map[string]string{"paper_candidates.json": `{"papers": [{"title": "Plasma Waves"}]}`},
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}

	doc, g := loadRun(t, layout, runID)
	if got := g.FindTask("1.1").Status; got != taskgraph.StatusDone {
		t.Errorf("status = %s, want done", got)
	}
	ledger, _ := doc.Section(statedoc.SectionResults)
	if !strings.Contains(ledger, "ranked 8 papers after pruning preprints") {
		t.Errorf("ledger missing corrected summary:\n%s", ledger)
	}
	history, _ := doc.Section(statedoc.SectionHistory)
	if !strings.Contains(history, "1.1 modified") {
		t.Errorf("history missing modify line:\n%s", history)
	}

	data, err := os.ReadFile(layout.CandidatesPath(runID))
	if err != nil || !strings.Contains(string(data), "Plasma Waves") {
		t.Errorf("artifact on disk = (%q, %v), want corrected content", data, err)
	}
	snapshot, err := os.ReadFile(layout.TaskOutputPath(runID, "1.1"))
	if err != nil || !strings.Contains(string(snapshot), "ranked 8 papers after pruning preprints") {
		t.Errorf("snapshot not rewritten: (%q, %v)", snapshot, err)
	}
	// Evidence untouched by a zero-field override.
	evidence, _ := doc.Section(statedoc.SectionEvidence)
	if !strings.Contains(evidence, "arxiv:1234.5678 | sec 2") {
		t.Errorf("recorded evidence lost:\n%s", evidence)
	}
}

func TestModifyFinalReportUpdatesBestAnswer(t *testing.T) {
	m, layout, runID := setupHeldRun(t, "3.1", &worker.TaskResult{Summary: "draft report"})

	err := m.Modify(runID, "3.1", Override{
		Artifacts: map[string]string{"final_report.md": "omega_p = sqrt(n e^2 / (eps0 m_e))"},
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}

	doc, _ := loadRun(t, layout, runID)
	answer, _ := doc.Section(statedoc.SectionBestAnswer)
	if answer != "omega_p = sqrt(n e^2 / (eps0 m_e))" {
		t.Errorf("best answer = %q", answer)
	}
	out, err := os.ReadFile(layout.FinalOutputPath(runID))
	if err != nil || !strings.Contains(string(out), "omega_p = sqrt(n e^2 / (eps0 m_e))") {
		t.Errorf("final output = (%q, %v)", out, err)
	}
}
