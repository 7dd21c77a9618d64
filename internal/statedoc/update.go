package statedoc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mtian8/physics-agent/internal/errors"
	"github.com/mtian8/physics-agent/internal/taskgraph"
)

var (
	fenceOpenRe   = regexp.MustCompile("^(`{3,})")
	yamlBlockRe   = regexp.MustCompile("(?s)```yaml\n(.*?)\n```")
	awaitReviewRe = regexp.MustCompile(`awaiting human review: (\S+)`)
)

const subsectionPrefix = "### "

// HeaderField returns the value of a "- key: value" header line. A value
// continued in a fenced block on the following lines is captured up to the
// matching fence, with the two-space indent stripped. Returns ErrSectionNotFound
// via Section when the header is missing and ("", false) when the field is.
func (d *Document) HeaderField(field string) (string, bool, error) {
	header, err := d.Section(SectionHeader)
	if err != nil {
		return "", false, err
	}

	lines := strings.Split(header, "\n")
	prefix := "- " + field + ":"
	for idx, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		value := strings.TrimSpace(line[len(prefix):])
		if value != "" {
			return value, true, nil
		}
		if idx+1 >= len(lines) {
			return "", true, nil
		}
		fenceMatch := fenceOpenRe.FindString(strings.TrimSpace(lines[idx+1]))
		if fenceMatch == "" {
			return "", true, nil
		}
		var captured []string
		for _, sub := range lines[idx+2:] {
			if strings.TrimSpace(sub) == fenceMatch {
				break
			}
			captured = append(captured, strings.TrimPrefix(sub, "  "))
		}
		return strings.TrimSpace(strings.Join(captured, "\n")), true, nil
	}
	return "", false, nil
}

// TouchLastUpdated refreshes the header's last_updated timestamp.
func (d *Document) TouchLastUpdated() error {
	header, err := d.Section(SectionHeader)
	if err != nil {
		return err
	}
	lines := strings.Split(header, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "- last_updated:") {
			lines[i] = "- last_updated: " + nowISO()
		}
	}
	return d.ReplaceSection(SectionHeader, strings.Join(lines, "\n"))
}

// TaskGraph extracts and parses the graph embedded in the Task Graph section.
func (d *Document) TaskGraph() (*taskgraph.Graph, error) {
	body, err := d.Section(SectionTaskGraph)
	if err != nil {
		return nil, err
	}
	match := yamlBlockRe.FindStringSubmatch(body)
	if match == nil {
		return nil, errors.ErrGraphBlockNotFound
	}
	return taskgraph.UnmarshalGraph(strings.TrimSpace(match[1]))
}

// UpdateTaskGraph re-serializes the graph into the Task Graph section and
// refreshes the derived Task Board checklist.
func (d *Document) UpdateTaskGraph(g *taskgraph.Graph) error {
	graphYAML, err := taskgraph.MarshalGraph(g)
	if err != nil {
		return err
	}
	if err := d.ReplaceSection(SectionTaskGraph, "```yaml\n"+graphYAML+"\n```"); err != nil {
		return err
	}
	return d.ReplaceSection(SectionTaskBoard, renderTaskBoard(g))
}

// UpdateBestAnswer replaces the Current best answer section.
func (d *Document) UpdateBestAnswer(answer string) error {
	return d.ReplaceSection(SectionBestAnswer, answer)
}

// replaceSubsection swaps the "### <header>" block inside a ledger body,
// appending the block when no entry for the header exists yet.
func replaceSubsection(body, header, newBlock string) string {
	marker := subsectionPrefix + header
	lines := strings.Split(body, "\n")

	start := -1
	for i, line := range lines {
		if line == marker || strings.HasPrefix(line, marker+" ") {
			start = i
			break
		}
	}
	if start == -1 {
		return strings.TrimRight(body, "\n") + "\n\n" + newBlock
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], subsectionPrefix) {
			end = i
			break
		}
	}

	before := strings.Join(lines[:start], "\n")
	after := strings.Join(lines[end:], "\n")
	out := newBlock
	if strings.TrimSpace(before) != "" {
		out = strings.TrimRight(before, "\n") + "\n\n" + out
	}
	if strings.TrimSpace(after) != "" {
		out = strings.TrimRight(out, "\n") + "\n\n" + strings.TrimLeft(after, "\n")
	}
	return out
}

// UpdateResultsLedger replaces (or appends) one task's block in the results
// ledger.
func (d *Document) UpdateResultsLedger(block ResultBlock) error {
	ledger, err := d.Section(SectionResults)
	if err != nil {
		return err
	}
	updated := replaceSubsection(ledger, block.TaskID, renderResultBlock(block))
	return d.ReplaceSection(SectionResults, updated)
}

// UpdateEvidenceLedger replaces (or appends) one task's block in the evidence
// ledger.
func (d *Document) UpdateEvidenceLedger(taskID string, entries []string) error {
	ledger, err := d.Section(SectionEvidence)
	if err != nil {
		return err
	}
	updated := replaceSubsection(ledger, taskID, renderEvidenceBlock(taskID, entries))
	return d.ReplaceSection(SectionEvidence, updated)
}

// UpdateVerifierStatus rewrites the Verifier status section with the latest
// stage verdict. A zero stageID records the stage verifier as not_run.
func (d *Document) UpdateVerifierStatus(stageID int, verdict string, issues []string, finalVerdict string) error {
	var lines []string
	if stageID != 0 {
		lines = append(lines, fmt.Sprintf("- stage_verifier: %s (stage %d)", verdict, stageID))
	} else {
		lines = append(lines, "- stage_verifier: not_run")
	}
	if finalVerdict != "" {
		lines = append(lines, "- final_verifier: "+finalVerdict)
	} else {
		lines = append(lines, "- final_verifier: not_run")
	}
	if len(issues) > 0 {
		lines = append(lines, "", "### Issues")
		for _, issue := range issues {
			lines = append(lines, "- "+issue)
		}
	}
	return d.ReplaceSection(SectionVerifier, strings.Join(lines, "\n"))
}

// UpdateFinalVerifier rewrites only the final_verifier line, preserving the
// recorded stage verdict and issues.
func (d *Document) UpdateFinalVerifier(finalVerdict string) error {
	body, err := d.Section(SectionVerifier)
	if err != nil {
		return err
	}
	lines := strings.Split(body, "\n")
	found := false
	for i, line := range lines {
		if strings.HasPrefix(line, "- final_verifier:") {
			lines[i] = "- final_verifier: " + finalVerdict
			found = true
		}
	}
	if !found {
		lines = append(lines, "- final_verifier: "+finalVerdict)
	}
	return d.ReplaceSection(SectionVerifier, strings.Join(lines, "\n"))
}

// AppendHistory appends one timestamped line to the history log. History is
// append-only; no line is ever removed or reordered.
func (d *Document) AppendHistory(entry string) error {
	history, err := d.Section(SectionHistory)
	if err != nil {
		return err
	}
	updated := strings.TrimRight(history, "\n") + "\n- " + nowISO() + ": " + entry
	return d.ReplaceSection(SectionHistory, updated)
}

// LatestHumanReviewAwaitable returns the task id of the most recent
// "awaiting human review: <id>" history line, or "" when none exists.
func (d *Document) LatestHumanReviewAwaitable() (string, error) {
	history, err := d.Section(SectionHistory)
	if err != nil {
		return "", err
	}
	last := ""
	for _, line := range strings.Split(history, "\n") {
		if m := awaitReviewRe.FindStringSubmatch(line); m != nil {
			last = m[1]
		}
	}
	return last, nil
}
