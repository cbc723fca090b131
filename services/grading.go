package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/db"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/cache"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/progress"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// ErrRunNotFound is returned for run ids this instance never started.
var ErrRunNotFound = errors.New("run not found")

// maxTrackedRuns bounds the async run registry; the oldest finished runs are dropped first.
const maxTrackedRuns = 1000

// PipelineOptions maps the configuration onto pipeline options.
func PipelineOptions(cfg *config.Config) grading.Options {
	return grading.Options{
		K:                 cfg.Retrieval.K,
		Budget:            cfg.Retrieval.Budget,
		AllowEmptyContext: cfg.Retrieval.EmptyContextPolicy == config.EmptyContextProceed,
		MaxAttempts:       cfg.Evaluation.MaxAttempts,
		Step:              cfg.Evaluation.Step,
		CallTimeout:       cfg.Generation.CallTimeout,
		Concurrency:       cfg.Evaluation.Concurrency,
		AdherenceMode:     grading.AdherenceMode(cfg.Evaluation.AdherenceMode),
		MinThemeChars:     cfg.Evaluation.MinThemeChars,
		MinEssayChars:     cfg.Evaluation.MinEssayChars,
		Generation:        llm.ConfigFrom(cfg.Generation),
	}
}

// RunStatus is the last known state of an asynchronous run.
type RunStatus struct {
	RunID      string              `json:"runId"`
	State      grading.State       `json:"state"`
	Competency int                 `json:"competency,omitempty"`
	ReportID   string              `json:"reportId,omitempty"`
	Error      string              `json:"error,omitempty"`
	Kind       grading.FailureKind `json:"kind,omitempty"`
	Stage      grading.Stage       `json:"stage,omitempty"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// ReportCache stores finished reports by content key; *cache.ReportCache implements it.
type ReportCache interface {
	Get(ctx context.Context, key string) (models.EssayReport, bool)
	Set(ctx context.Context, key string, report models.EssayReport) error
}

// GradingService runs the pipeline for the HTTP and CLI surfaces: it caches and persists
// reports and tracks asynchronous runs.
type GradingService struct {
	pipeline *grading.Pipeline
	reports  db.ReportRepository
	cache    ReportCache
	broker   progress.Broker
	logger   *zap.Logger

	// baseCtx bounds background runs; it is canceled on shutdown.
	baseCtx context.Context
	wg      sync.WaitGroup

	mu   sync.Mutex
	runs map[string]*RunStatus
}

func NewGradingService(ctx context.Context, p *grading.Pipeline, reports db.ReportRepository, c ReportCache, broker progress.Broker, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reports == nil {
		reports = db.NewMemoryReports()
	}
	if broker == nil {
		broker = progress.NewMemoryBroker(time.Hour)
	}
	if c == nil {
		// a nil *cache.ReportCache is a disabled cache
		c = (*cache.ReportCache)(nil)
	}
	return &GradingService{
		pipeline: p,
		reports:  reports,
		cache:    c,
		broker:   broker,
		logger:   logger,
		baseCtx:  ctx,
		runs:     map[string]*RunStatus{},
	}
}

func (s *GradingService) Pipeline() *grading.Pipeline { return s.pipeline }

// Grade scores an essay synchronously and stores the report.
func (s *GradingService) Grade(ctx context.Context, theme, essay string) (models.EssayReport, error) {
	return s.grade(ctx, uuid.NewString(), theme, essay, nil)
}

func (s *GradingService) grade(ctx context.Context, runID, theme, essay string, observe grading.Observer) (models.EssayReport, error) {
	key := cache.Key(theme, essay, s.pipeline.Backend().Name(), s.pipeline.Options().Generation.Model)
	if report, ok := s.cache.Get(ctx, key); ok {
		s.logger.Info("report served from cache", zap.String("run_id", runID), zap.String("report_id", report.ID))
		// the cache may outlive or be shared beyond this repository
		if err := s.ensureStored(ctx, report); err != nil {
			return models.EssayReport{}, err
		}
		return report, nil
	}

	report, err := s.pipeline.GradeRun(ctx, runID, theme, essay, observe)
	if err != nil {
		return models.EssayReport{}, err
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		return models.EssayReport{}, fmt.Errorf("persist report: %w", err)
	}
	if err := s.cache.Set(ctx, key, report); err != nil {
		s.logger.Warn("failed to cache report", zap.String("report_id", report.ID), zap.Error(err))
	}
	return report, nil
}

func (s *GradingService) ensureStored(ctx context.Context, report models.EssayReport) error {
	_, err := s.reports.GetReport(ctx, report.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrReportNotFound) {
		return fmt.Errorf("look up cached report: %w", err)
	}
	s.logger.Info("restoring cached report", zap.String("report_id", report.ID))
	if err := s.reports.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	return nil
}

// GradeAsync starts a background run and returns its id.
// Progress is published to the broker; the final event carries the report id.
func (s *GradingService) GradeAsync(theme, essay string) string {
	runID := uuid.NewString()
	s.track(RunStatus{RunID: runID, State: grading.StateSubmitted, UpdatedAt: time.Now().UTC()})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		failurePublished := false
		observe := func(tr grading.Transition) {
			// the reported event is published once the report is stored
			if tr.State == grading.StateReported {
				return
			}
			failurePublished = tr.State == grading.StateFailed
			s.track(RunStatus{RunID: runID, State: tr.State, Competency: tr.Competency, Error: tr.Error, Kind: tr.Kind, UpdatedAt: tr.At})
			s.publish(progress.FromTransition(tr))
		}

		report, err := s.grade(s.baseCtx, runID, theme, essay, observe)
		now := time.Now().UTC()
		if err != nil {
			stage, competency := grading.StageOf(err)
			kind := grading.FailureKindOf(err)
			s.track(RunStatus{RunID: runID, State: grading.StateFailed, Competency: competency,
				Error: err.Error(), Kind: kind, Stage: stage, UpdatedAt: now})
			if !failurePublished {
				s.publish(progress.Event{Type: progress.TypeState, RunID: runID, State: grading.StateFailed,
					Competency: competency, Error: err.Error(), Kind: kind, Timestamp: now.UnixMilli()})
			}
			return
		}
		s.track(RunStatus{RunID: runID, State: grading.StateReported, ReportID: report.ID, UpdatedAt: now})
		s.publish(progress.Event{Type: progress.TypeState, RunID: runID, State: grading.StateReported,
			ReportID: report.ID, Timestamp: now.UnixMilli()})
	}()
	return runID
}

func (s *GradingService) publish(e progress.Event) {
	// publishing must outlive a canceled run so subscribers see the final event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.baseCtx), 5*time.Second)
	defer cancel()
	if err := s.broker.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish run progress", zap.String("run_id", e.RunID), zap.Error(err))
	}
}

func (s *GradingService) track(st RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[st.RunID]; !ok && len(s.runs) >= maxTrackedRuns {
		s.evictLocked()
	}
	s.runs[st.RunID] = &st
}

// evictLocked drops the oldest finished run, or the oldest run when none has finished.
func (s *GradingService) evictLocked() {
	all := make([]*RunStatus, 0, len(s.runs))
	for _, st := range s.runs {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].State.Terminal() != all[j].State.Terminal() {
			return all[i].State.Terminal()
		}
		return all[i].UpdatedAt.Before(all[j].UpdatedAt)
	})
	delete(s.runs, all[0].RunID)
}

// Run returns the status of an asynchronous run.
func (s *GradingService) Run(runID string) (RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[runID]
	if !ok {
		return RunStatus{}, ErrRunNotFound
	}
	return *st, nil
}

// Progress subscribes to the events of a run started by this instance.
// A finished run replays what the broker still holds and always ends with its final event,
// even after the broker has dropped the run's history.
func (s *GradingService) Progress(ctx context.Context, runID string) (<-chan progress.Event, error) {
	st, err := s.Run(runID)
	if err != nil {
		return nil, err
	}
	if !st.State.Terminal() {
		return s.broker.Subscribe(ctx, runID)
	}

	history, err := s.broker.History(ctx, runID)
	if err != nil {
		s.logger.Warn("failed to read run history", zap.String("run_id", runID), zap.Error(err))
		history = nil
	}
	if len(history) == 0 || !history[len(history)-1].Final() {
		history = append(history, finalEvent(st))
	}
	out := make(chan progress.Event, len(history))
	for _, e := range history {
		out <- e
	}
	close(out)
	return out, nil
}

func finalEvent(st RunStatus) progress.Event {
	return progress.Event{
		Type:       progress.TypeState,
		RunID:      st.RunID,
		State:      st.State,
		Competency: st.Competency,
		ReportID:   st.ReportID,
		Error:      st.Error,
		Kind:       st.Kind,
		Timestamp:  st.UpdatedAt.UnixMilli(),
	}
}

func (s *GradingService) Report(ctx context.Context, id string) (models.EssayReport, error) {
	return s.reports.GetReport(ctx, id)
}

func (s *GradingService) ListReports(ctx context.Context, limit int) ([]models.EssayReport, error) {
	return s.reports.ListReports(ctx, limit)
}

func (s *GradingService) SuggestStructure(ctx context.Context, theme string) (models.StructureSuggestion, error) {
	return s.pipeline.SuggestStructure(ctx, theme)
}

func (s *GradingService) AnalyzeRepertoire(ctx context.Context, essay string) (models.RepertoireAnalysis, error) {
	return s.pipeline.AnalyzeRepertoire(ctx, essay)
}

// Wait blocks until every background run has finished.
func (s *GradingService) Wait() {
	s.wg.Wait()
}
