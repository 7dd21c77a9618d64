package taskgraph

import (
	"github.com/mtian8/physics-agent/internal/errors"
)

// CurrentStage returns the first stage (by declared order) containing any
// task not yet settled. A nil result means every task in every stage is done
// or skipped, which is the run-complete signal.
func (g *Graph) CurrentStage() *Stage {
	for _, stage := range g.Stages {
		for _, task := range stage.Tasks {
			if !task.Status.IsSettled() {
				return stage
			}
		}
	}
	return nil
}

// DependenciesSatisfied reports whether every dependency of the task resolves
// to a settled task. An unresolvable dependency counts as unsatisfied; the
// validator rejects such graphs before scheduling.
func (g *Graph) DependenciesSatisfied(task *Task) bool {
	for _, dep := range task.DependsOn {
		depTask := g.FindTask(dep)
		if depTask == nil {
			return false
		}
		if !depTask.Status.IsSettled() {
			return false
		}
	}
	return true
}

// RunnableTasks returns the stage's todo tasks whose dependencies are all
// settled, in stage-declared order. This is the sole scheduling predicate;
// there is no priority or cost-based ordering.
func (g *Graph) RunnableTasks(stage *Stage) []*Task {
	var runnable []*Task
	for _, task := range stage.Tasks {
		if task.Status == StatusTodo && g.DependenciesSatisfied(task) {
			runnable = append(runnable, task)
		}
	}
	return runnable
}

// StatusUpdate carries the optional side fields of a status transition.
type StatusUpdate struct {
	BlockedReason string
	SkipReason    string
}

// SetStatus transitions a task to the given status, applying any side fields
// from update. It fails if the task id is absent or the status unrecognized.
func (g *Graph) SetStatus(taskID string, status Status, update *StatusUpdate) error {
	task := g.FindTask(taskID)
	if task == nil {
		return errors.NewNotFoundError("task", taskID)
	}
	if !status.IsValid() {
		return errors.Wrapf(errors.ErrUnknownStatus, "task %s", taskID)
	}

	task.Status = status
	if update != nil {
		task.BlockedReason = update.BlockedReason
		task.SkipReason = update.SkipReason
	}
	return nil
}

// StageComplete reports whether every task in the stage is done or skipped.
func StageComplete(stage *Stage) bool {
	for _, task := range stage.Tasks {
		if !task.Status.IsSettled() {
			return false
		}
	}
	return true
}
