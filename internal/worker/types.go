// Package worker defines the contract between the scheduler and the external
// agents that execute and verify tasks, the capability registry resolved at
// startup, and a command-backed implementation speaking JSON over stdio.
package worker

import "strings"

// Verdict is a verifier's judgment of produced work
type Verdict string

// Verifier verdicts
const (
	VerdictPass        Verdict = "PASS"
	VerdictConditional Verdict = "CONDITIONAL"
	VerdictFail        Verdict = "FAIL"
)

// String returns the string representation of the verdict
func (v Verdict) String() string {
	return string(v)
}

// IsValid checks if the verdict is a recognized value
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPass, VerdictConditional, VerdictFail:
		return true
	}
	return false
}

// Passed reports whether the verdict allows the stage to advance.
func (v Verdict) Passed() bool {
	return v == VerdictPass
}

// Evidence is one citation record produced by a worker.
type Evidence struct {
	SourceID string `json:"source_id"`
	Location string `json:"location,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Line renders the evidence as a ledger line, dropping empty trailing fields.
func (e Evidence) Line() string {
	line := e.SourceID + " | " + e.Location + " | " + e.Note
	return strings.TrimRight(line, " |")
}

// TaskResult is what a worker returns for one executed task.
type TaskResult struct {
	Summary   string            `json:"summary"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
	Evidence  []Evidence        `json:"evidence,omitempty"`
	FollowUps []string          `json:"follow_ups,omitempty"`
	Metrics   map[string]any    `json:"metrics,omitempty"`
}

// EvidenceLines renders the result's evidence as ledger lines.
func (r *TaskResult) EvidenceLines() []string {
	lines := make([]string, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		lines = append(lines, e.Line())
	}
	return lines
}

// VerifierResult is what a verifier worker returns.
type VerifierResult struct {
	Verdict   Verdict  `json:"verdict"`
	Summary   string   `json:"summary"`
	Issues    []string `json:"issues,omitempty"`
	FollowUps []string `json:"follow_ups,omitempty"`
	// PromptPatch is an optional prompt-improvement suggestion recorded
	// under the run's prompt_patches directory.
	PromptPatch string `json:"prompt_patch,omitempty"`
}

// TaskRequest is the payload handed to a worker for one task.
type TaskRequest struct {
	RunID              string         `json:"run_id"`
	TaskID             string         `json:"task_id"`
	Title              string         `json:"title"`
	AcceptanceCriteria []string       `json:"acceptance_criteria,omitempty"`
	Inputs             map[string]any `json:"inputs,omitempty"`
	ContextPack        string         `json:"context_pack,omitempty"`
}

// VerifyRequest is the payload handed to a verifier worker.
type VerifyRequest struct {
	RunID string `json:"run_id"`
	// TaskID identifies a single-task verification; empty for stage or
	// final verification.
	TaskID string `json:"task_id,omitempty"`
	// StageID identifies a stage verification; zero for final verification.
	StageID     int      `json:"stage_id,omitempty"`
	StageName   string   `json:"stage_name,omitempty"`
	Criteria    []string `json:"criteria,omitempty"`
	Output      string   `json:"output"`
	ContextPack string   `json:"context_pack,omitempty"`
}
