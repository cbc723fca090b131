package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
)

// Failure taxonomy of a scoring run.
var (
	ErrInvalidTheme        = errors.New("invalid theme")
	ErrInvalidEssay        = errors.New("invalid essay")
	ErrEmptyContext        = errors.New("empty context: no reference passage found")
	ErrStoreUnavailable    = passage.ErrStoreUnavailable
	ErrBackend             = llm.ErrBackend
	ErrEvaluationFailed    = errors.New("evaluation failed")
	ErrValidationFailed    = errors.New("validation failed")
	ErrIncompleteReport    = errors.New("incomplete report")
	ErrDuplicateCompetency = errors.New("duplicate competency")
)

// Stage names the part of the pipeline where a failure happened.
type Stage string

const (
	StageInput       Stage = "input"
	StageContext     Stage = "context"
	StageAdherence   Stage = "adherence"
	StageEvaluation  Stage = "evaluation"
	StageValidation  Stage = "validation"
	StageAggregation Stage = "aggregation"
)

// StageError tags a failure with its stage and, when relevant, the competency id.
type StageError struct {
	Stage      Stage
	Competency int
	Err        error
}

func (e *StageError) Error() string {
	if e.Competency > 0 {
		return fmt.Sprintf("%s (competency %d): %v", e.Stage, e.Competency, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// EvaluationFailedError means the backend never produced a parseable answer within the attempt budget.
type EvaluationFailedError struct {
	Competency int
	Attempts   int
	Err        error
}

func (e *EvaluationFailedError) Error() string {
	return fmt.Sprintf("evaluation of competency %d failed after %d attempts: %v", e.Competency, e.Attempts, e.Err)
}

func (e *EvaluationFailedError) Unwrap() error { return e.Err }

func (e *EvaluationFailedError) Is(target error) bool { return target == ErrEvaluationFailed }

// ValidationFailedError means a parsed score broke a validation rule.
type ValidationFailedError struct {
	Competency int
	Check      Check
	Reason     string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("validation of competency %d failed (%s): %s", e.Competency, e.Check, e.Reason)
}

func (e *ValidationFailedError) Is(target error) bool { return target == ErrValidationFailed }

// ParseError is returned when a backend answer does not have the required shape.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "unparseable response: " + e.Reason }

// FailureKind tells the user whether the essay or the system is at fault.
type FailureKind string

const (
	KindInput     FailureKind = "input"
	KindGrounding FailureKind = "grounding"
	KindScoring   FailureKind = "scoring"
	KindCanceled  FailureKind = "canceled"
	KindInternal  FailureKind = "internal"
)

// FailureKindOf classifies any error returned by the pipeline.
func FailureKindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTheme), errors.Is(err, ErrInvalidEssay):
		return KindInput
	case errors.Is(err, ErrEmptyContext), errors.Is(err, ErrStoreUnavailable):
		return KindGrounding
	case errors.Is(err, ErrEvaluationFailed), errors.Is(err, ErrValidationFailed), errors.Is(err, ErrBackend):
		return KindScoring
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// StageOf returns the stage and competency a failure is tagged with.
func StageOf(err error) (Stage, int) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, se.Competency
	}
	return "", 0
}
