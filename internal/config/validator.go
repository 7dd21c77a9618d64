package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "dispatch.max_parallel")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRun()...)
	errors = append(errors, c.validateDispatch()...)
	errors = append(errors, c.validatePolicies()...)
	errors = append(errors, c.validateWorkers()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validatePaths()...)

	return errors
}

// validateRun validates the RunConfig
func (c *Config) validateRun() []ValidationError {
	var errors []ValidationError

	const maxCycleBudget = 100
	if c.Run.MaxCycles < 1 {
		errors = append(errors, ValidationError{
			Field:   "run.max_cycles",
			Value:   c.Run.MaxCycles,
			Message: "must be at least 1",
		})
	}
	if c.Run.MaxCycles > maxCycleBudget {
		errors = append(errors, ValidationError{
			Field:   "run.max_cycles",
			Value:   c.Run.MaxCycles,
			Message: fmt.Sprintf("exceeds maximum of %d", maxCycleBudget),
		})
	}

	return errors
}

// validateDispatch validates the DispatchConfig
func (c *Config) validateDispatch() []ValidationError {
	var errors []ValidationError

	const minMaxParallel = 1
	const maxMaxParallel = 20

	if c.Dispatch.MaxParallel < minMaxParallel {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_parallel",
			Value:   c.Dispatch.MaxParallel,
			Message: fmt.Sprintf("must be at least %d", minMaxParallel),
		})
	}
	if c.Dispatch.MaxParallel > maxMaxParallel {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_parallel",
			Value:   c.Dispatch.MaxParallel,
			Message: fmt.Sprintf("exceeds maximum of %d", maxMaxParallel),
		})
	}

	return errors
}

// validatePolicies validates the review and verification PolicyConfigs
func (c *Config) validatePolicies() []ValidationError {
	var errors []ValidationError

	errors = append(errors, validatePolicy(&c.Review, "review", IsValidReviewPolicy, ValidReviewPolicies())...)
	errors = append(errors, validatePolicy(&c.Verification, "verification", IsValidVerifyPolicy, ValidVerifyPolicies())...)

	return errors
}

// validatePolicy validates one PolicyConfig against an allowed-value predicate
func validatePolicy(p *PolicyConfig, fieldPrefix string, isValid func(string) bool, allowed []string) []ValidationError {
	var errors []ValidationError

	hint := fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))

	if p.Default == "" || !isValid(p.Default) {
		errors = append(errors, ValidationError{
			Field:   fieldPrefix + ".default",
			Value:   p.Default,
			Message: hint,
		})
	}
	for worker, v := range p.PerWorker {
		if !isValid(v) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.per_worker.%s", fieldPrefix, worker),
				Value:   v,
				Message: hint,
			})
		}
	}
	for task, v := range p.PerTask {
		if !isValid(v) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.per_task.%s", fieldPrefix, task),
				Value:   v,
				Message: hint,
			})
		}
	}

	return errors
}

// validateWorkers validates the worker registry configuration
func (c *Config) validateWorkers() []ValidationError {
	var errors []ValidationError

	for id, w := range c.Workers {
		if strings.TrimSpace(id) == "" {
			errors = append(errors, ValidationError{
				Field:   "workers",
				Value:   id,
				Message: "worker id cannot be empty",
			})
			continue
		}
		if len(w.Command) == 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("workers.%s.command", id),
				Value:   w.Command,
				Message: "command cannot be empty",
			})
		}
		for i, tool := range w.Tools {
			if strings.TrimSpace(tool) == "" {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("workers.%s.tools[%d]", id, i),
					Value:   tool,
					Message: "tool id cannot be empty",
				})
			}
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validatePaths validates the PathsConfig
func (c *Config) validatePaths() []ValidationError {
	var errors []ValidationError

	if c.Paths.DataDir != "" {
		path := c.Paths.DataDir

		if strings.ContainsRune(path, '\x00') {
			errors = append(errors, ValidationError{
				Field:   "paths.data_dir",
				Value:   path,
				Message: "path contains invalid null character",
			})
		}

		const maxPathLength = 4096
		if len(path) > maxPathLength {
			errors = append(errors, ValidationError{
				Field:   "paths.data_dir",
				Value:   path,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}

	return errors
}
