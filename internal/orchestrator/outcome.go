package orchestrator

import "github.com/mtian8/physics-agent/internal/worker"

// StopReason explains why a step left the run unable to make further
// progress without outside intervention. An empty reason means the step
// made progress and the run loop may continue.
type StopReason string

// Stop reasons reported by Step.
const (
	// StopNone means the cycle made progress; more cycles may follow.
	StopNone StopReason = ""
	// StopComplete means every task in every stage is settled.
	StopComplete StopReason = "complete"
	// StopVerifierBlocked means a task or stage verifier withheld PASS this
	// cycle; follow-up tasks were synthesized for a later cycle.
	StopVerifierBlocked StopReason = "verifier_blocked"
	// StopNoRunnableTasks means the current stage has unsettled tasks but
	// none are dispatchable (all blocked or dependency-gated).
	StopNoRunnableTasks StopReason = "no_runnable_tasks"
	// StopAwaitingHumanReview means a task in the current stage is held for
	// an external approval action.
	StopAwaitingHumanReview StopReason = "awaiting_human_review"
)

// Terminal reports whether the run loop should stop cycling.
func (r StopReason) Terminal() bool {
	switch r {
	case StopComplete, StopNoRunnableTasks, StopAwaitingHumanReview:
		return true
	}
	return false
}

// StepOutcome summarizes one scheduling cycle.
type StepOutcome struct {
	RunID string
	// StageID is the stage the cycle operated on; zero when the run was
	// already complete.
	StageID  int
	TasksRun []string
	// VerifierVerdict is set when the stage verifier ran this cycle.
	VerifierVerdict worker.Verdict
	StopReason      StopReason
}
