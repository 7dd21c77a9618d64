package orchestrator

import "context"

// Run executes scheduling cycles until the run reaches a terminal state or
// the configured cycle budget is exhausted. A verifier-blocked cycle is not
// terminal: the synthesized follow-up tasks run in a later cycle. When the
// graph completes, the final verifier judges the assembled answer before the
// loop returns.
func (e *Engine) Run(ctx context.Context, runID string) (*StepOutcome, error) {
	log := e.log.WithRun(runID)

	var last *StepOutcome
	for cycle := 1; cycle <= e.cfg.Run.MaxCycles; cycle++ {
		out, err := e.Step(ctx, runID)
		if err != nil {
			return last, err
		}
		last = out
		log.Info("cycle finished",
			"cycle", cycle,
			"stage_id", out.StageID,
			"tasks_run", len(out.TasksRun),
			"stop_reason", string(out.StopReason),
		)

		if out.StopReason == StopComplete {
			if _, err := e.runFinalVerifier(ctx, runID); err != nil {
				return last, err
			}
			if err := e.RefreshFinalOutput(runID); err != nil {
				return last, err
			}
			return last, nil
		}
		if out.StopReason.Terminal() {
			return last, nil
		}
	}
	log.Info("cycle budget exhausted", "max_cycles", e.cfg.Run.MaxCycles)
	return last, nil
}
