package taskgraph

import (
	"github.com/mtian8/physics-agent/internal/errors"
)

// Validate checks the graph against its structural invariants. It must be
// called before any scheduling decision; a graph that fails validation is
// never scheduled.
//
// The checks, in order:
//   - version equals the supported schema version
//   - at least one stage, each with a non-zero id and a tasks list
//   - every task has a unique, non-empty id
//   - every status is a recognized value
//   - blocked tasks carry a blocked_reason, skipped tasks a skip_reason
//   - every depends_on entry resolves to an existing task id
func (g *Graph) Validate() error {
	if g.Version != Version {
		return errors.NewValidationError("task graph version must be 2").
			WithField("version").WithValue(g.Version)
	}
	if len(g.Stages) == 0 {
		return errors.NewValidationError("task graph must include stages").
			WithField("stages")
	}

	taskIDs := make(map[string]bool)
	for _, stage := range g.Stages {
		if stage.ID == 0 {
			return errors.NewValidationError("each stage must include id and tasks").
				WithField("id")
		}
		if stage.Tasks == nil {
			return errors.NewValidationError("each stage must include id and tasks").
				WithField("tasks").WithValue(stage.ID)
		}
		for _, task := range stage.Tasks {
			if task.ID == "" {
				return errors.NewValidationError("task missing id").WithField("id")
			}
			if taskIDs[task.ID] {
				return errors.NewValidationError("duplicate task id").
					WithField("id").WithTaskID(task.ID)
			}
			taskIDs[task.ID] = true

			if !task.Status.IsValid() {
				return errors.NewValidationError("invalid status").
					WithField("status").WithValue(string(task.Status)).WithTaskID(task.ID)
			}
			if task.Status == StatusBlocked && task.BlockedReason == "" {
				return errors.NewValidationError("blocked_reason is required for blocked task").
					WithField("blocked_reason").WithTaskID(task.ID)
			}
			if task.Status == StatusSkipped && task.SkipReason == "" {
				return errors.NewValidationError("skip_reason is required for skipped task").
					WithField("skip_reason").WithTaskID(task.ID)
			}
		}
	}

	for _, task := range g.AllTasks() {
		for _, dep := range task.DependsOn {
			if !taskIDs[dep] {
				return errors.NewValidationError("depends on unknown task").
					WithField("depends_on").WithValue(dep).WithTaskID(task.ID)
			}
		}
	}

	return nil
}
