package errors

import (
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("duplicate task id").WithField("id").WithValue("1.2")

	want := "validation error [field=id, value=1.2]: duplicate task id"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !Is(err, ErrGraphInvalid) {
		t.Error("ValidationError should match ErrGraphInvalid")
	}

	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Error("As should find *ValidationError")
	}
}

func TestValidationErrorWithTaskID(t *testing.T) {
	err := NewValidationError("blocked_reason is required").WithTaskID("2.3").WithField("status")

	want := "validation error [task=2.3, field=status]: blocked_reason is required"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("task", "4.2")

	if err.Error() != "task '4.2' not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrTaskNotFound) {
		t.Error("task NotFoundError should match ErrTaskNotFound")
	}
	if Is(err, ErrRunNotFound) {
		t.Error("task NotFoundError should not match ErrRunNotFound")
	}
}

func TestSectionNotFoundError(t *testing.T) {
	err := NewSectionNotFoundError("Results ledger")

	if err.Error() != "section not found: Results ledger" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !Is(err, ErrSectionNotFound) {
		t.Error("SectionNotFoundError should match ErrSectionNotFound")
	}
}

func TestWorkerError(t *testing.T) {
	cause := New("connection refused")
	err := NewWorkerError("derivation_coder", cause).WithTaskID("2.1")

	want := "worker error [worker=derivation_coder, task=2.1]: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, cause) {
		t.Error("WorkerError should unwrap to its cause")
	}
}

func TestPersistenceError(t *testing.T) {
	cause := New("disk full")
	err := NewPersistenceError("write", "/runs/run_1/RESEARCH_STATE.md", cause)

	if !Is(err, cause) {
		t.Error("PersistenceError should unwrap to its cause")
	}

	var persistErr *PersistenceError
	if !As(err, &persistErr) {
		t.Fatal("As should find *PersistenceError")
	}
	if persistErr.Op != "write" {
		t.Errorf("Op = %q, want %q", persistErr.Op, "write")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("bad graph"), true},
		{"section", NewSectionNotFoundError("Header"), true},
		{"persistence", NewPersistenceError("read", "doc.md", New("eof")), true},
		{"worker", NewWorkerError("verifier", New("timeout")), false},
		{"plain", New("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestIsFatalWrappedWorkerError(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", NewWorkerError("scout", New("boom")))
	if IsFatal(err) {
		t.Error("wrapped WorkerError must not be fatal")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := New("base")
	err := Wrap(base, "context")
	if err.Error() != "context: base" {
		t.Errorf("Wrap() = %q", err.Error())
	}
	if !Is(err, base) {
		t.Error("wrapped error should match base")
	}
}

func TestWrapf(t *testing.T) {
	base := New("base")
	err := Wrapf(base, "task %s", "1.1")
	if err.Error() != "task 1.1: base" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
}
