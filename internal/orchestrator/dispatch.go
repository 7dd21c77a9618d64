package orchestrator

import (
	"context"

	"github.com/sourcegraph/conc"

	"github.com/mtian8/physics-agent/internal/taskgraph"
	"github.com/mtian8/physics-agent/internal/worker"
)

// dispatchResult pairs one task's worker result with its error. Exactly one
// of the two fields is set.
type dispatchResult struct {
	result *worker.TaskResult
	err    error
}

// dispatch fans the tasks out to their workers, at most MaxParallel in flight
// at once. Results come back indexed by submission position so reconciliation
// runs in the stage's declared order regardless of completion order.
func (e *Engine) dispatch(ctx context.Context, runID string, tasks []*taskgraph.Task, pack string) []dispatchResult {
	results := make([]dispatchResult, len(tasks))
	sem := newSemaphore(e.cfg.Dispatch.MaxParallel)

	var wg conc.WaitGroup
	for i, task := range tasks {
		i, task := i, task
		wg.Go(func() {
			if err := sem.Acquire(ctx); err != nil {
				results[i] = dispatchResult{err: err}
				return
			}
			defer sem.Release()

			results[i] = e.executeTask(ctx, runID, task, pack)
		})
	}
	wg.Wait()

	return results
}

// executeTask runs one task against its registered worker.
func (e *Engine) executeTask(ctx context.Context, runID string, task *taskgraph.Task, pack string) dispatchResult {
	w, err := e.registry.Worker(task.Worker)
	if err != nil {
		return dispatchResult{err: err}
	}

	req := worker.TaskRequest{
		RunID:              runID,
		TaskID:             task.ID,
		Title:              task.Title,
		AcceptanceCriteria: task.AcceptanceCriteria,
		Inputs:             task.Inputs,
		ContextPack:        pack,
	}
	res, err := w.Execute(ctx, req)
	if err != nil {
		return dispatchResult{err: err}
	}
	return dispatchResult{result: res}
}
