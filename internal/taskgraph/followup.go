package taskgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// followUpGroup is the parallel group assigned to synthesized follow-up tasks.
const followUpGroup = "follow_up"

// maxFollowupTitleLen bounds the suggestion text carried into a task title.
const maxFollowupTitleLen = 80

// NextSubtaskIndex returns the next unused numeric suffix for task ids in the
// stage. It scans fresh on every call so ids stay monotonically increasing
// and collision-free across follow-up batches.
func NextSubtaskIndex(stage *Stage) int {
	maxIdx := 0
	for _, task := range stage.Tasks {
		_, sub, found := strings.Cut(task.ID, ".")
		if !found {
			continue
		}
		n, err := strconv.Atoi(sub)
		if err != nil {
			continue
		}
		if n > maxIdx {
			maxIdx = n
		}
	}
	return maxIdx + 1
}

// AddFollowupTasks appends one todo task per suggestion to the stage,
// assigned to the given worker. Empty suggestions and suggestions textually
// identical to an existing task's recorded instruction are skipped, so
// repeated verifier feedback does not pile up duplicate work. Returns the
// newly created tasks.
func AddFollowupTasks(stage *Stage, suggestions []string, workerID string) []*Task {
	existing := make(map[string]bool)
	for _, task := range stage.Tasks {
		if instr := task.Instruction(); instr != "" {
			existing[instr] = true
		}
	}

	var created []*Task
	subIdx := NextSubtaskIndex(stage)
	for _, suggestion := range suggestions {
		if suggestion == "" || existing[suggestion] {
			continue
		}
		existing[suggestion] = true

		title := strings.TrimSpace(suggestion)
		if len(title) > maxFollowupTitleLen {
			title = title[:maxFollowupTitleLen-3] + "..."
		}

		task := &Task{
			ID:                 fmt.Sprintf("%d.%d", stage.ID, subIdx),
			Title:              "Follow-up: " + title,
			Worker:             workerID,
			Status:             StatusTodo,
			DependsOn:          []string{},
			ParallelGroup:      followUpGroup,
			AcceptanceCriteria: []string{"follow_up_resolved"},
			Inputs:             map[string]any{"instruction": suggestion},
			Outputs:            []Output{{Artifacts: []string{}}},
		}
		subIdx++

		stage.Tasks = append(stage.Tasks, task)
		created = append(created, task)
	}
	return created
}
