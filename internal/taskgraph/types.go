// Package taskgraph defines the staged task graph that drives a research run:
// the data model for stages, tasks, and statuses, plus the pure operations the
// scheduler is built on (validation, dependency resolution, runnable selection,
// status transitions, and follow-up synthesis).
//
// The graph is always re-derived from the state document's Task Graph section.
// The in-memory value is a working copy valid for the duration of one cycle;
// the document is the source of truth.
package taskgraph

// Version is the only supported task graph schema version.
const Version = 2

// Status represents a task's lifecycle state
type Status string

// Task statuses
const (
	// StatusTodo means the task has not been dispatched yet
	StatusTodo Status = "todo"
	// StatusRunning means the task has been dispatched to its worker
	StatusRunning Status = "running"
	// StatusDone means the task finished and was accepted
	StatusDone Status = "done"
	// StatusBlocked means the task failed or is held for review; requires BlockedReason
	StatusBlocked Status = "blocked"
	// StatusSkipped means the task was deliberately not run; requires SkipReason
	StatusSkipped Status = "skipped"
	// StatusSuperseded means the task was replaced by later work
	StatusSuperseded Status = "superseded"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusRunning, StatusDone, StatusBlocked, StatusSkipped, StatusSuperseded:
		return true
	}
	return false
}

// IsSettled reports whether the status counts toward stage completion.
// Done and skipped tasks are settled; everything else keeps its stage current.
func (s Status) IsSettled() bool {
	return s == StatusDone || s == StatusSkipped
}

// BlockedReasonHumanReview is the blocked reason that gates a stage on an
// external approval action.
const BlockedReasonHumanReview = "awaiting_human_review"

// VerifierSpec names the worker that verifies a stage and the acceptance
// criteria it checks.
type VerifierSpec struct {
	Worker   string   `yaml:"agent"`
	Criteria []string `yaml:"criteria"`
}

// Output declares one named group of artifacts a worker is expected to produce.
type Output struct {
	Artifacts []string `yaml:"artifacts"`
}

// Task is a single unit of work assigned to one worker, gated by dependencies.
type Task struct {
	ID                 string         `yaml:"id"`
	Title              string         `yaml:"title"`
	Worker             string         `yaml:"agent"`
	Status             Status         `yaml:"status"`
	DependsOn          []string       `yaml:"depends_on"`
	ParallelGroup      string         `yaml:"parallel_group"`
	AcceptanceCriteria []string       `yaml:"acceptance_criteria"`
	Inputs             map[string]any `yaml:"inputs"`
	Outputs            []Output       `yaml:"outputs"`
	BlockedReason      string         `yaml:"blocked_reason,omitempty"`
	SkipReason         string         `yaml:"skip_reason,omitempty"`
}

// Instruction returns the task's recorded instruction text, if any.
// Follow-up tasks carry the originating suggestion here; it is the
// deduplication key for follow-up synthesis.
func (t *Task) Instruction() string {
	if t.Inputs == nil {
		return ""
	}
	if v, ok := t.Inputs["instruction"].(string); ok {
		return v
	}
	return ""
}

// DeclaresArtifact reports whether any of the task's declared outputs
// includes the named artifact.
func (t *Task) DeclaresArtifact(name string) bool {
	for _, out := range t.Outputs {
		for _, a := range out.Artifacts {
			if a == name {
				return true
			}
		}
	}
	return false
}

// Stage is an ordered phase of the graph. It advances only when every task
// reaches done or skipped.
type Stage struct {
	ID       int          `yaml:"id"`
	Name     string       `yaml:"name"`
	Verifier VerifierSpec `yaml:"verifier"`
	Tasks    []*Task      `yaml:"tasks"`
}

// Graph is the versioned, staged task graph.
type Graph struct {
	Version int      `yaml:"version"`
	Stages  []*Stage `yaml:"stages"`
}

// AllTasks returns every task across all stages in declared order.
func (g *Graph) AllTasks() []*Task {
	var tasks []*Task
	for _, stage := range g.Stages {
		tasks = append(tasks, stage.Tasks...)
	}
	return tasks
}

// FindTask returns the task with the given id, or nil if absent.
func (g *Graph) FindTask(taskID string) *Task {
	for _, task := range g.AllTasks() {
		if task.ID == taskID {
			return task
		}
	}
	return nil
}

// StageForTask returns the stage containing the given task id, or nil.
func (g *Graph) StageForTask(taskID string) *Stage {
	for _, stage := range g.Stages {
		for _, task := range stage.Tasks {
			if task.ID == taskID {
				return stage
			}
		}
	}
	return nil
}

// FindStage returns the stage with the given id, or nil if absent.
func (g *Graph) FindStage(stageID int) *Stage {
	for _, stage := range g.Stages {
		if stage.ID == stageID {
			return stage
		}
	}
	return nil
}
