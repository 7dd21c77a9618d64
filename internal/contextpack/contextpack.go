// Package contextpack assembles the bounded-size briefing handed to workers
// for a stage: the goal and constraints, the stage's tasks, the current best
// answer, excerpts of key artifacts, verifier status, and a summary of the
// candidate paper pool.
package contextpack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/statedoc"
	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/workspace"
)

// Excerpt bounds, in lines.
const (
	specLines     = 120
	answerLines   = 120
	verifierLines = 40
	artifactLines = 10
	maxPapers     = 5
)

// truncate caps text at maxLines, marking the cut.
func truncate(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.Join(lines[:maxLines], "\n")) + "\n... (truncated)"
}

// readTopLines returns up to maxLines non-blank lines of a file, or "_none_"
// when the file is absent or empty.
func readTopLines(path string, maxLines int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "_none_"
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
		if len(lines) == maxLines {
			break
		}
	}
	if len(lines) == 0 {
		return "_none_"
	}
	return strings.Join(lines, "\n")
}

// paperPoolSummary condenses paper_candidates.json into a short list of
// titles. Invalid JSON is reported rather than failing the pack build.
func paperPoolSummary(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "_none_"
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return "_invalid_json_"
	}

	var papers []any
	switch v := raw.(type) {
	case map[string]any:
		papers, _ = v["papers"].([]any)
	case []any:
		papers = v
	}

	var lines []string
	for _, item := range papers {
		if len(lines) == maxPapers {
			break
		}
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := entry["title"].(string)
		if title == "" {
			title = "untitled"
		}
		year := fmt.Sprintf("%v", entry["year"])
		if entry["year"] == nil || year == "" {
			year = "unknown year"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", title, year))
	}
	if len(lines) == 0 {
		return "_none_"
	}
	return strings.Join(lines, "\n")
}

// Build assembles the context pack for a stage from the state document and
// the run's named artifacts.
func Build(layout *workspace.Layout, runID string, doc *statedoc.Document, stage *taskgraph.Stage) (string, error) {
	problemSpec, err := doc.Section(statedoc.SectionProblem)
	if err != nil {
		return "", err
	}
	bestAnswer, err := doc.Section(statedoc.SectionBestAnswer)
	if err != nil {
		return "", err
	}
	verifier, err := doc.Section(statedoc.SectionVerifier)
	if err != nil {
		return "", err
	}

	runDir := layout.RunDir(runID)
	lines := []string{
		"# Context Pack",
		"## Goal + constraints",
		truncate(problemSpec, specLines),
		"## Current stage",
		fmt.Sprintf("Stage %d: %s", stage.ID, stage.Name),
	}
	for _, task := range stage.Tasks {
		lines = append(lines, fmt.Sprintf("- %s %s (%s)", task.ID, task.Title, task.Status))
	}
	lines = append(lines,
		"",
		"## Current best answer",
		truncate(bestAnswer, answerLines),
		"## Key equations",
		readTopLines(filepath.Join(runDir, "equation_bank.md"), artifactLines),
		"## Key assumptions",
		readTopLines(filepath.Join(runDir, "assumptions.md"), artifactLines),
		"## Verifier status",
		truncate(verifier, verifierLines),
		"## Paper pool summary",
		paperPoolSummary(layout.CandidatesPath(runID)),
	)
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n", nil
}

// WritePack persists the pack as the run's context_pack.md side artifact.
func WritePack(layout *workspace.Layout, runID, content string) (string, error) {
	path := layout.ContextPackPath(runID)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.NewPersistenceError("write", path, err)
	}
	return path, nil
}
