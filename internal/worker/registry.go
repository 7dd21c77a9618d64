package worker

import (
	"context"
	"fmt"
	"sort"

	"github.com/mtian8/physics-agent/internal/config"
	"github.com/mtian8/physics-agent/internal/errors"
)

// TaskWorker executes one task and returns a tagged result. A failed call
// returns a WorkerError; the scheduler isolates it to the task's record.
type TaskWorker interface {
	Execute(ctx context.Context, req TaskRequest) (*TaskResult, error)
}

// Verifier judges produced work against acceptance criteria.
type Verifier interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifierResult, error)
}

// Tool identifiers workers may be granted.
const (
	ToolWebSearch       = "web_search"
	ToolFileSearch      = "file_search"
	ToolCodeInterpreter = "code_interpreter"
)

// Capability describes one registered worker: who it is, what it may use,
// and the implementations behind it.
type Capability struct {
	ID     string
	Model  string
	Prompt string
	Tools  []string

	worker   TaskWorker
	verifier Verifier
}

// Registry maps worker identifiers to capabilities. It is resolved once at
// startup; unknown identifiers fail fast rather than silently producing no
// capability.
type Registry struct {
	capabilities map[string]*Capability
}

// validTool checks a tool identifier. "none" and "" are accepted no-ops.
func validTool(name string) bool {
	switch name {
	case ToolWebSearch, ToolFileSearch, ToolCodeInterpreter, "none", "":
		return true
	}
	return false
}

// NewRegistry builds a registry from worker configuration. Every configured
// worker is backed by a CommandWorker running its configured command. Unknown
// tool identifiers are a configuration error.
func NewRegistry(workers map[string]config.WorkerConfig) (*Registry, error) {
	r := &Registry{capabilities: make(map[string]*Capability, len(workers))}
	for id, wc := range workers {
		for _, tool := range wc.Tools {
			if !validTool(tool) {
				return nil, errors.NewValidationError(
					fmt.Sprintf("unknown tool %q for worker %q, supported: %s, %s, %s",
						tool, id, ToolWebSearch, ToolFileSearch, ToolCodeInterpreter)).
					WithField("tools").WithValue(tool)
			}
		}
		cmd := NewCommandWorker(id, wc)
		r.capabilities[id] = &Capability{
			ID:       id,
			Model:    wc.Model,
			Prompt:   wc.Prompt,
			Tools:    wc.Tools,
			worker:   cmd,
			verifier: cmd,
		}
	}
	return r, nil
}

// Register installs a capability directly. Tests and embedders use this to
// provide in-process workers.
func (r *Registry) Register(id string, w TaskWorker, v Verifier) {
	if r.capabilities == nil {
		r.capabilities = make(map[string]*Capability)
	}
	r.capabilities[id] = &Capability{ID: id, worker: w, verifier: v}
}

// Worker resolves a task worker by id.
func (r *Registry) Worker(id string) (TaskWorker, error) {
	c, ok := r.capabilities[id]
	if !ok || c.worker == nil {
		return nil, errors.Wrapf(errors.ErrWorkerNotRegistered, "worker %q", id)
	}
	return c.worker, nil
}

// Verifier resolves a verifier worker by id.
func (r *Registry) Verifier(id string) (Verifier, error) {
	c, ok := r.capabilities[id]
	if !ok || c.verifier == nil {
		return nil, errors.Wrapf(errors.ErrWorkerNotRegistered, "verifier %q", id)
	}
	return c.verifier, nil
}

// Capability returns the descriptor for a worker id.
func (r *Registry) Capability(id string) (*Capability, error) {
	c, ok := r.capabilities[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrWorkerNotRegistered, "worker %q", id)
	}
	return c, nil
}

// IDs returns the registered worker ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.capabilities))
	for id := range r.capabilities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnsureRegistered verifies every worker id the graph references resolves.
// Called before scheduling so misconfiguration surfaces at startup, never
// mid-cycle.
func (r *Registry) EnsureRegistered(ids []string) error {
	for _, id := range ids {
		if _, ok := r.capabilities[id]; !ok {
			return errors.Wrapf(errors.ErrWorkerNotRegistered, "worker %q", id)
		}
	}
	return nil
}
