// Package grading scores ENEM essays: it grounds five competency evaluations in retrieved
// reference passages, validates the untrusted model output and aggregates a bounded report.
package grading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/metrics"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/utils"
)

var defaultTracer = otel.Tracer("github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading")

// AdherenceMode selects how theme adherence is computed.
type AdherenceMode string

const (
	AdherenceDedicated   AdherenceMode = "dedicated"
	AdherenceCompetency2 AdherenceMode = "competency2"
)

// Options configures a pipeline. Zero values are replaced by DefaultOptions.
type Options struct {
	K                 int
	Budget            int
	AllowEmptyContext bool
	MaxAttempts       int
	Step              int
	CallTimeout       time.Duration
	Concurrency       int // 0 runs all five evaluators at once
	AdherenceMode     AdherenceMode
	MinThemeChars     int
	MinEssayChars     int
	Generation        llm.GenerateConfig
}

func DefaultOptions() Options {
	return Options{
		K:             2,
		Budget:        6000,
		MaxAttempts:   2,
		Step:          20,
		CallTimeout:   30 * time.Second,
		AdherenceMode: AdherenceDedicated,
		MinThemeChars: 10,
		MinEssayChars: 100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K <= 0 {
		o.K = d.K
	}
	if o.Budget <= 0 {
		o.Budget = d.Budget
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.AdherenceMode == "" {
		o.AdherenceMode = d.AdherenceMode
	}
	return o
}

// Pipeline is the retrieval-augmented scoring pipeline. It is safe for concurrent runs.
type Pipeline struct {
	opts       Options
	rubric     Rubric
	store      passage.Store
	backend    llm.Backend
	assembler  *Assembler
	evaluator  *Evaluator
	validator  Validator
	aggregator Aggregator

	logger  *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewPipeline wires the pipeline components. logger and m may be nil.
func NewPipeline(store passage.Store, backend llm.Backend, opts Options, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	rubric := DefaultRubric(opts.Step)
	return &Pipeline{
		opts:    opts,
		rubric:  rubric,
		store:   store,
		backend: backend,
		assembler: &Assembler{
			Store:      store,
			K:          opts.K,
			Budget:     opts.Budget,
			AllowEmpty: opts.AllowEmptyContext,
			Rubric:     rubric,
		},
		evaluator: &Evaluator{
			Backend:     backend,
			Generation:  opts.Generation,
			Rubric:      rubric,
			MaxAttempts: opts.MaxAttempts,
			CallTimeout: opts.CallTimeout,
			Logger:      logger,
			Metrics:     m,
			Tracer:      defaultTracer,
		},
		validator:  Validator{Rubric: rubric},
		aggregator: Aggregator{Rubric: rubric},
		logger:     logger,
		metrics:    m,
		tracer:     defaultTracer,
	}
}

func (p *Pipeline) Rubric() Rubric { return p.rubric }

func (p *Pipeline) Backend() llm.Backend { return p.backend }

// Options returns the effective options, defaults applied.
func (p *Pipeline) Options() Options { return p.opts }

// Grade scores one essay under a fresh run id.
func (p *Pipeline) Grade(ctx context.Context, theme, essay string, observe Observer) (models.EssayReport, error) {
	return p.GradeRun(ctx, uuid.NewString(), theme, essay, observe)
}

// GradeRun scores one essay. On failure no report is returned, only a typed error
// tagged with the stage and competency that failed.
func (p *Pipeline) GradeRun(ctx context.Context, runID, theme, essay string, observe Observer) (models.EssayReport, error) {
	start := time.Now()
	logger := p.logger.With(zap.String("run_id", runID))
	r := newRun(runID, observe, logger)

	ctx, span := p.tracer.Start(ctx, "grading.Run", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	report, err := p.run(ctx, r, theme, essay)
	if err != nil {
		r.fail(err)
		span.RecordError(err)
		p.metrics.ObserveRun(string(FailureKindOf(err)), time.Since(start))
		stage, competency := StageOf(err)
		logger.Warn("scoring run failed",
			zap.String("stage", string(stage)),
			zap.Int("competency", competency),
			zap.String("kind", string(FailureKindOf(err))),
			zap.Error(err))
		return models.EssayReport{}, err
	}
	p.metrics.ObserveRun("reported", time.Since(start))
	logger.Info("scoring run reported", zap.Int("total", report.Total), zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, r *run, theme, essay string) (models.EssayReport, error) {
	if err := r.advance(StateSubmitted, 0); err != nil {
		return models.EssayReport{}, err
	}
	if err := p.validateInput(theme, essay); err != nil {
		return models.EssayReport{}, &StageError{Stage: StageInput, Err: err}
	}
	theme = strings.TrimSpace(theme)
	sub := Submission{Theme: theme, Essay: essay, Analysis: utils.AnalyzeEssay(essay)}

	actx, span := p.tracer.Start(ctx, "grading.AssembleContext")
	assembled, err := p.assembler.Assemble(actx, theme, essay)
	span.End()
	if err != nil {
		return models.EssayReport{}, &StageError{Stage: StageContext, Err: err}
	}
	sub.Context = assembled
	r.logger.Debug("context assembled",
		zap.Int("passages", len(assembled.Passages)), zap.Int("size", assembled.Size))
	if err := r.advance(StateContextAssembled, 0); err != nil {
		return models.EssayReport{}, err
	}
	if err := r.advance(StateEvaluating, 0); err != nil {
		return models.EssayReport{}, err
	}

	var adherence models.ThemeAdherence
	var scores []models.CompetencyScore
	if p.opts.AdherenceMode == AdherenceDedicated {
		adherence, err = p.evaluator.CheckAdherence(ctx, sub)
		if err != nil {
			return models.EssayReport{}, err
		}
		if adherence.Verdict == models.VerdictOffTopic {
			r.logger.Info("essay escapes the theme; skipping competency evaluation")
			scores = offTopicScores(p.rubric, adherence)
		}
	}
	if scores == nil {
		scores, err = p.evaluateAll(ctx, r, sub)
		if err != nil {
			return models.EssayReport{}, err
		}
		if p.opts.AdherenceMode == AdherenceCompetency2 {
			adherence = adherenceFromCompetency2(scores[1])
		}
	}
	if err := r.advance(StateValidated, 0); err != nil {
		return models.EssayReport{}, err
	}

	_, span = p.tracer.Start(ctx, "grading.Aggregate")
	report, err := p.aggregator.Aggregate(scores, adherence)
	span.End()
	if err != nil {
		return models.EssayReport{}, err
	}
	report.ID = uuid.NewString()
	report.RunID = r.id
	report.Theme = theme
	report.Essay = essay
	report.Stats = sub.Analysis.Stats
	report.Grounded = !assembled.Empty()
	report.Provider = p.backend.Name()
	report.Model = p.opts.Generation.Model
	report.CreatedAt = time.Now().UTC()

	if err := r.advance(StateReported, 0); err != nil {
		return models.EssayReport{}, err
	}
	return report, nil
}

func (p *Pipeline) validateInput(theme, essay string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return fmt.Errorf("%w: theme is empty", ErrInvalidTheme)
	}
	if n := utf8.RuneCountInString(theme); n < p.opts.MinThemeChars {
		return fmt.Errorf("%w: theme has %d characters, minimum is %d", ErrInvalidTheme, n, p.opts.MinThemeChars)
	}
	essay = strings.TrimSpace(essay)
	if essay == "" {
		return fmt.Errorf("%w: essay is empty", ErrInvalidEssay)
	}
	if n := utf8.RuneCountInString(essay); n < p.opts.MinEssayChars {
		return fmt.Errorf("%w: essay has %d characters, minimum is %d", ErrInvalidEssay, n, p.opts.MinEssayChars)
	}
	return nil
}

// evaluateAll fans the five competencies out and joins them by id.
// The first failure cancels the remaining evaluations; their partial results are dropped.
func (p *Pipeline) evaluateAll(ctx context.Context, r *run, sub Submission) ([]models.CompetencyScore, error) {
	var slots [models.CompetencyCount]models.CompetencyScore
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for _, c := range p.rubric.Criteria {
		id := c.ID
		g.Go(func() error {
			if err := r.advance(StateEvaluating, id); err != nil {
				return err
			}
			score, err := p.scoreCompetency(gctx, r, id, sub)
			if err != nil {
				return err
			}
			slots[id-1] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots[:], nil
}

// scoreCompetency evaluates and validates one competency, regenerating once when suggestions are missing.
func (p *Pipeline) scoreCompetency(ctx context.Context, r *run, id int, sub Submission) (models.CompetencyScore, error) {
	score, err := p.evaluator.Evaluate(ctx, id, sub, "")
	if err != nil {
		return models.CompetencyScore{}, err
	}
	err = p.validator.Validate(score)
	if err == nil {
		return score, nil
	}
	if !needsSuggestions(err) {
		return models.CompetencyScore{}, &StageError{Stage: StageValidation, Competency: id, Err: err}
	}

	r.logger.Info("regenerating competency without suggestions", zap.Int("competency", id))
	score, err = p.evaluator.Evaluate(ctx, id, sub, suggestionsInstruction)
	if err != nil {
		return models.CompetencyScore{}, err
	}
	if err := p.validator.Validate(score); err != nil {
		return models.CompetencyScore{}, &StageError{Stage: StageValidation, Competency: id, Err: err}
	}
	return score, nil
}

// State is a step of the per-run state machine.
type State string

const (
	StateSubmitted        State = "submitted"
	StateContextAssembled State = "context_assembled"
	StateEvaluating       State = "evaluating"
	StateValidated        State = "validated"
	StateReported         State = "reported"
	StateFailed           State = "failed"
)

// Terminal reports whether no transition may leave s.
func (s State) Terminal() bool {
	return s == StateReported || s == StateFailed
}

var transitions = map[State][]State{
	"":                    {StateSubmitted},
	StateSubmitted:        {StateContextAssembled, StateFailed},
	StateContextAssembled: {StateEvaluating, StateFailed},
	StateEvaluating:       {StateEvaluating, StateValidated, StateFailed},
	StateValidated:        {StateReported, StateFailed},
}

// Transition is published to the observer on every state change.
// Evaluating is published once for the stage and once per competency started.
type Transition struct {
	RunID      string      `json:"runId"`
	State      State       `json:"state"`
	Competency int         `json:"competency,omitempty"`
	Error      string      `json:"error,omitempty"`
	Kind       FailureKind `json:"kind,omitempty"`
	At         time.Time   `json:"at"`
}

// Observer receives transitions in order. Calls are serialized per run.
type Observer func(Transition)

type run struct {
	id      string
	observe Observer
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

func newRun(id string, observe Observer, logger *zap.Logger) *run {
	return &run{id: id, observe: observe, logger: logger}
}

func (r *run) advance(next State, competency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !allowed(r.state, next) {
		return &StageError{Stage: StageAggregation, Competency: competency,
			Err: fmt.Errorf("illegal state transition %q -> %q", r.state, next)}
	}
	r.state = next
	r.logger.Debug("state transition", zap.String("state", string(next)), zap.Int("competency", competency))
	if r.observe != nil {
		r.observe(Transition{RunID: r.id, State: next, Competency: competency, At: time.Now().UTC()})
	}
	return nil
}

func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = StateFailed
	_, competency := StageOf(err)
	if r.observe != nil {
		r.observe(Transition{
			RunID:      r.id,
			State:      StateFailed,
			Competency: competency,
			Error:      err.Error(),
			Kind:       FailureKindOf(err),
			At:         time.Now().UTC(),
		})
	}
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
