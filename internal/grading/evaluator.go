package grading

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/metrics"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// Evaluator scores one competency at a time against a generation backend.
// It is safe for concurrent use; each call owns its candidate score.
type Evaluator struct {
	Backend     llm.Backend
	Generation  llm.GenerateConfig
	Rubric      Rubric
	MaxAttempts int
	CallTimeout time.Duration

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Evaluate asks the backend for competency id and returns a clamped candidate.
// Parse failures and per-call timeouts consume attempts; other backend errors are returned at once.
func (e *Evaluator) Evaluate(ctx context.Context, id int, sub Submission, extra string) (models.CompetencyScore, error) {
	c, ok := e.Rubric.Criterion(id)
	if !ok {
		return models.CompetencyScore{}, &StageError{Stage: StageEvaluation, Competency: id, Err: ErrIncompleteReport}
	}
	ctx, span := e.tracer().Start(ctx, "grading.Evaluate", trace.WithAttributes(attribute.Int("competency", id)))
	defer span.End()

	prompt := CompetencyPrompt(e.Rubric, c, sub, extra)
	var score models.CompetencyScore
	err := e.generate(ctx, StageEvaluation, id, prompt, func(raw string) error {
		s, err := ParseCompetency(raw, id)
		if err != nil {
			return err
		}
		score = s
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return models.CompetencyScore{}, err
	}

	score.Name = c.Name
	if e.Rubric.ApplyClamp(&score) {
		e.Metrics.IncrementClamp(strconv.Itoa(id))
		e.logger().Info("score clamped", zap.Int("competency", id), zap.Int("points", score.Points))
	}
	return score, nil
}

// CheckAdherence runs the dedicated theme adherence check.
func (e *Evaluator) CheckAdherence(ctx context.Context, sub Submission) (models.ThemeAdherence, error) {
	ctx, span := e.tracer().Start(ctx, "grading.CheckAdherence")
	defer span.End()

	var adherence models.ThemeAdherence
	err := e.generate(ctx, StageAdherence, 0, AdherencePrompt(sub), func(raw string) error {
		a, err := ParseAdherence(raw)
		if err != nil {
			return err
		}
		adherence = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return adherence, err
}

// generate runs the bounded attempt loop. competency is 0 for requests not tied to one competency.
func (e *Evaluator) generate(ctx context.Context, stage Stage, competency int, prompt string, parse func(string) error) error {
	label := strconv.Itoa(competency)
	maxAttempts := e.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: stage, Competency: competency, Err: err}
		}

		raw, err := e.call(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return &StageError{Stage: stage, Competency: competency, Err: ctx.Err()}
			}
			var be *llm.BackendError
			if errors.As(err, &be) && be.Timeout() {
				e.Metrics.IncrementAttempt(label, "timeout")
				e.logger().Warn("backend call timed out",
					zap.Int("competency", competency), zap.Int("attempt", attempt))
				lastErr = err
				continue
			}
			e.Metrics.IncrementAttempt(label, "backend_error")
			return &StageError{Stage: stage, Competency: competency, Err: err}
		}

		if err := parse(raw); err != nil {
			e.Metrics.IncrementAttempt(label, "parse_error")
			e.logger().Warn("unparseable backend response",
				zap.Int("competency", competency), zap.Int("attempt", attempt), zap.Error(err))
			lastErr = err
			continue
		}
		e.Metrics.IncrementAttempt(label, "ok")
		return nil
	}
	return &StageError{Stage: stage, Competency: competency, Err: &EvaluationFailedError{
		Competency: competency,
		Attempts:   maxAttempts,
		Err:        lastErr,
	}}
}

// call performs one backend request bounded by the per-call timeout.
func (e *Evaluator) call(ctx context.Context, prompt string) (string, error) {
	timeout := e.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err := e.Backend.Generate(callCtx, prompt, e.Generation)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			outcome = "timeout"
			err = &llm.BackendError{Provider: e.Backend.Name(), Message: "call timed out after " + timeout.String(), Err: context.DeadlineExceeded}
		} else if !errors.Is(err, llm.ErrBackend) && ctx.Err() == nil {
			err = &llm.BackendError{Provider: e.Backend.Name(), Message: err.Error(), Err: err}
		}
	}
	e.Metrics.ObserveBackendCall(e.Backend.Name(), outcome, time.Since(start))
	return raw, err
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Evaluator) tracer() trace.Tracer {
	if e.Tracer == nil {
		return defaultTracer
	}
	return e.Tracer
}
