package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/mtian8/physics-agent/internal/config"
	"github.com/mtian8/physics-agent/internal/errors"
)

// CommandWorker shells out to a configured executable. The request is written
// to stdin as a single JSON object and the result read from stdout as JSON.
// The worker's model, prompt path, and tool grants ride along in the request
// envelope so the external process needs no configuration of its own.
type CommandWorker struct {
	id  string
	cfg config.WorkerConfig
}

// NewCommandWorker creates a CommandWorker for the given worker id.
func NewCommandWorker(id string, cfg config.WorkerConfig) *CommandWorker {
	return &CommandWorker{id: id, cfg: cfg}
}

// envelope is the JSON object written to the worker process.
type envelope struct {
	Kind   string   `json:"kind"` // "task" or "verify"
	Worker string   `json:"worker"`
	Model  string   `json:"model,omitempty"`
	Prompt string   `json:"prompt,omitempty"`
	Tools  []string `json:"tools,omitempty"`

	Task   *TaskRequest   `json:"task,omitempty"`
	Verify *VerifyRequest `json:"verify,omitempty"`
}

// Execute implements TaskWorker.
func (w *CommandWorker) Execute(ctx context.Context, req TaskRequest) (*TaskResult, error) {
	env := w.envelope("task")
	env.Task = &req

	var result TaskResult
	if err := w.invoke(ctx, env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify implements Verifier.
func (w *CommandWorker) Verify(ctx context.Context, req VerifyRequest) (*VerifierResult, error) {
	env := w.envelope("verify")
	env.Verify = &req

	var result VerifierResult
	if err := w.invoke(ctx, env, &result); err != nil {
		return nil, err
	}
	if !result.Verdict.IsValid() {
		return nil, errors.NewWorkerError(w.id, nil).
			WithMessage("verifier returned unknown verdict " + string(result.Verdict))
	}
	return &result, nil
}

func (w *CommandWorker) envelope(kind string) envelope {
	return envelope{
		Kind:   kind,
		Worker: w.id,
		Model:  w.cfg.Model,
		Prompt: w.cfg.Prompt,
		Tools:  w.cfg.Tools,
	}
}

func (w *CommandWorker) invoke(ctx context.Context, env envelope, out any) error {
	if len(w.cfg.Command) == 0 {
		return errors.NewWorkerError(w.id, nil).WithMessage("no command configured")
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return errors.NewWorkerError(w.id, err).WithMessage("cannot encode request")
	}

	cmd := exec.CommandContext(ctx, w.cfg.Command[0], w.cfg.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "worker process failed"
		}
		return errors.NewWorkerError(w.id, err).WithMessage(msg)
	}

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return errors.NewWorkerError(w.id, err).WithMessage("cannot decode worker output")
	}
	return nil
}
