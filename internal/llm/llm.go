// Package llm is the generation backend boundary: one prompt in, one response text out.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// GenerateConfig is passed with every generation request.
type GenerateConfig struct {
	Model           string
	MaxOutputTokens int
	Temperature     float64
}

// Backend is a hosted language model. Generate must honour ctx cancellation.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, prompt string, cfg GenerateConfig) (string, error)

func (f BackendFunc) Name() string { return "func" }

func (f BackendFunc) Generate(ctx context.Context, prompt string, cfg GenerateConfig) (string, error) {
	return f(ctx, prompt, cfg)
}

// ErrBackend marks transport, auth and rate-limit failures of a generation backend.
var ErrBackend = errors.New("generation backend error")

// BackendError carries the provider status of a failed generation call.
type BackendError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s backend error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s backend error: %s", e.Provider, e.Message)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// Timeout reports whether the call failed because its deadline expired.
func (e *BackendError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Retryable reports whether the same request may succeed later.
func (e *BackendError) Retryable() bool {
	return e.Timeout() || e.Status == 429 || e.Status >= 500
}

// wrapError turns a provider error into a BackendError, keeping context errors reachable.
func wrapError(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Status: status, Message: err.Error(), Err: err}
}
