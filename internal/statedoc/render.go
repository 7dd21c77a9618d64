package statedoc

import (
	"fmt"
	"strings"

	"github.com/mtian8/physics-agent/internal/taskgraph"
)

// chooseFence returns a fence delimiter that does not collide with any marker
// sequence already present in the payload: at least three repeated characters,
// widened until the payload no longer contains it. Arbitrary content round-trips
// safely, including content containing the default delimiter.
func chooseFence(text string, char string, minLen int) string {
	length := max(3, minLen)
	for strings.Contains(text, strings.Repeat(char, length)) {
		length++
	}
	return strings.Repeat(char, length)
}

// renderTaskBoard derives the human-readable checklist from the graph: one
// line per task, checked iff the task is done or skipped.
func renderTaskBoard(g *taskgraph.Graph) string {
	var lines []string
	for _, stage := range g.Stages {
		lines = append(lines, fmt.Sprintf("### Stage %d: %s", stage.ID, stage.Name))
		for _, task := range stage.Tasks {
			box := " "
			if task.Status.IsSettled() {
				box = "x"
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s %s (%s)", box, task.ID, task.Title, task.Status))
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ResultBlock is one task's entry in the results ledger.
type ResultBlock struct {
	TaskID    string
	Title     string
	Status    string
	Summary   string
	Artifacts []string
	Evidence  []string
	Issues    []string
}

func renderResultBlock(b ResultBlock) string {
	lines := []string{
		fmt.Sprintf("### %s %s", b.TaskID, b.Title),
		fmt.Sprintf("- status: %s", b.Status),
		fmt.Sprintf("- summary: %s", b.Summary),
		"- artifacts:",
	}
	lines = append(lines, renderItems(b.Artifacts)...)
	lines = append(lines, "- evidence:")
	lines = append(lines, renderItems(b.Evidence)...)
	if len(b.Issues) > 0 {
		lines = append(lines, "- issues:")
		for _, issue := range b.Issues {
			lines = append(lines, "  - "+issue)
		}
	}
	return strings.Join(lines, "\n")
}

func renderItems(items []string) []string {
	if len(items) == 0 {
		return []string{"  - _none_"}
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "  - " + item
	}
	return out
}

func renderEvidenceBlock(taskID string, entries []string) string {
	lines := []string{fmt.Sprintf("### %s", taskID), "- evidence:"}
	lines = append(lines, renderItems(entries)...)
	return strings.Join(lines, "\n")
}

func renderResultsLedger(g *taskgraph.Graph) string {
	var blocks []string
	for _, task := range g.AllTasks() {
		blocks = append(blocks, renderResultBlock(ResultBlock{
			TaskID:  task.ID,
			Title:   task.Title,
			Status:  task.Status.String(),
			Summary: "_pending_",
		}))
	}
	return strings.Join(blocks, "\n\n")
}

func renderEvidenceLedger(g *taskgraph.Graph) string {
	var blocks []string
	for _, task := range g.AllTasks() {
		blocks = append(blocks, renderEvidenceBlock(task.ID, nil))
	}
	return strings.Join(blocks, "\n\n")
}

// New builds the initial nine-section document for a fresh run.
func New(runID, question, problemSpec, configSnapshot string, g *taskgraph.Graph) (*Document, error) {
	created := nowISO()

	graphYAML, err := taskgraph.MarshalGraph(g)
	if err != nil {
		return nil, err
	}

	questionText := strings.TrimRight(question, "\n")
	if questionText == "" {
		questionText = "_TBD_"
	}
	questionFence := chooseFence(questionText, "`", 3)

	headerLines := []string{
		"- run_id: " + runID,
		"- created_at: " + created,
		"- last_updated: " + created,
		"- question:",
		"  " + questionFence + "md",
	}
	for _, line := range strings.Split(questionText, "\n") {
		headerLines = append(headerLines, "  "+line)
	}
	headerLines = append(headerLines,
		"  "+questionFence,
		"- config_snapshot:",
		"```yaml",
		configSnapshot,
		"```",
	)

	doc := &Document{
		preamble: Preamble,
		sections: []section{
			{SectionHeader, strings.Join(headerLines, "\n")},
			{SectionProblem, strings.TrimSpace(problemSpec)},
			{SectionBestAnswer, "_TBD_"},
			{SectionTaskGraph, "```yaml\n" + graphYAML + "\n```"},
			{SectionTaskBoard, renderTaskBoard(g)},
			{SectionResults, renderResultsLedger(g)},
			{SectionEvidence, renderEvidenceLedger(g)},
			{SectionVerifier, "- stage_verifier: not_run\n- final_verifier: not_run"},
			{SectionHistory, "- " + created + ": init run"},
		},
	}
	return doc, nil
}

// RenderFinalOutput assembles the derived final-output view from the run's
// question, the current best answer, and the final report when one exists.
func RenderFinalOutput(question, summary, finalReport string) string {
	return "# Final Output\n\n" +
		"## Question\n" + strings.TrimSpace(question) + "\n\n" +
		"## Summary\n" + strings.TrimSpace(summary) + "\n\n" +
		"## Final Result\n" + strings.TrimSpace(finalReport) + "\n"
}
