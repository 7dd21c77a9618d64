package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("Default() config should be valid, got: %v", ValidationErrors(errs))
	}
}

func TestPolicyResolve(t *testing.T) {
	p := PolicyConfig{
		Default:   ReviewAuto,
		PerWorker: map[string]string{"derivation_coder": ReviewHuman},
		PerTask:   map[string]string{"2.1": ReviewAuto},
	}

	tests := []struct {
		name     string
		taskID   string
		workerID string
		want     string
	}{
		{"per-task wins over per-worker", "2.1", "derivation_coder", ReviewAuto},
		{"per-worker wins over default", "2.2", "derivation_coder", ReviewHuman},
		{"default when unconfigured", "3.1", "synthesizer", ReviewAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Resolve(tt.taskID, tt.workerID); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.taskID, tt.workerID, got, tt.want)
			}
		})
	}
}

func TestValidateRejectsBadPolicies(t *testing.T) {
	cfg := Default()
	cfg.Review.Default = "sometimes"
	cfg.Verification.PerTask = map[string]string{"1.1": "maybe"}

	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("Validate() returned %d errors, want 2: %v", len(errs), ValidationErrors(errs))
	}

	msg := ValidationErrors(errs).Error()
	if !strings.Contains(msg, "review.default") {
		t.Errorf("missing review.default error in: %s", msg)
	}
	if !strings.Contains(msg, "verification.per_task.1.1") {
		t.Errorf("missing verification.per_task error in: %s", msg)
	}
}

func TestVerifyPolicyAcceptsLegacyAlias(t *testing.T) {
	if !IsValidVerifyPolicy("llm") {
		t.Error("legacy alias 'llm' should be accepted")
	}
	if canonicalVerifyPolicy("llm") != VerifyChecked {
		t.Errorf("canonicalVerifyPolicy(llm) = %q, want %q", canonicalVerifyPolicy("llm"), VerifyChecked)
	}
	if canonicalVerifyPolicy(VerifyNone) != VerifyNone {
		t.Error("canonical values must pass through unchanged")
	}
}

func TestNormalizeCanonicalizesVerification(t *testing.T) {
	cfg := Default()
	cfg.Verification.Default = "llm"
	cfg.Verification.PerWorker = map[string]string{"checker": "llm"}
	cfg.normalize()

	if cfg.Verification.Default != VerifyChecked {
		t.Errorf("Default = %q, want %q", cfg.Verification.Default, VerifyChecked)
	}
	if cfg.Verification.PerWorker["checker"] != VerifyChecked {
		t.Errorf("PerWorker = %q, want %q", cfg.Verification.PerWorker["checker"], VerifyChecked)
	}
}

func TestValidateWorkers(t *testing.T) {
	cfg := Default()
	cfg.Workers = map[string]WorkerConfig{
		"scout": {Model: "m1", Command: []string{"scout-agent"}},
		"bare":  {Model: "m2"},
	}

	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), ValidationErrors(errs))
	}
	if errs[0].Field != "workers.bare.command" {
		t.Errorf("Field = %q, want %q", errs[0].Field, "workers.bare.command")
	}
}

func TestValidateDispatchBounds(t *testing.T) {
	tests := []struct {
		name        string
		maxParallel int
		wantErr     bool
	}{
		{"zero", 0, true},
		{"one", 1, false},
		{"twenty", 20, false},
		{"over", 21, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Dispatch.MaxParallel = tt.maxParallel
			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}
