package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/db"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/cache"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/llm"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/metrics"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/passage"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/progress"
)

// progressRetention is how long finished run events stay available to late subscribers.
const progressRetention = time.Hour

// App holds every long-lived dependency built from the configuration.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Store   passage.IndexStore
	Backend llm.Backend
	Grading *GradingService
	Limiter *cache.RateLimiter

	mongoClient *mongo.Client
	redis       *redis.Client
}

// NewApp connects the optional MongoDB and Redis backends, opens the passage store and
// builds the grading service. ctx bounds background runs for the lifetime of the app.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}
	if reg != nil {
		app.Metrics = metrics.New(reg)
	}

	var database *mongo.Database
	if cfg.Database.URI != "" {
		client, d, err := db.ConnectMongoDB(ctx, cfg.Database.URI, cfg.Database.Name)
		if err != nil {
			return nil, err
		}
		app.mongoClient, database = client, d
		logger.Info("connected to MongoDB", zap.String("database", d.Name()))
	} else if cfg.Retrieval.Store == config.StoreMongo {
		return nil, fmt.Errorf("%w: mongo passage store configured without database.uri", passage.ErrStoreUnavailable)
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.redis = rdb
	if rdb != nil {
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	store, err := passage.Open(ctx, cfg, database)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open passage store: %w", err)
	}
	app.Store = store
	if dir := cfg.Retrieval.CorpusDir; dir != "" {
		stats, err := app.Indexer().IngestDir(ctx, dir)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("ingest corpus %s: %w", dir, err)
		}
		logger.Info("corpus ingested", zap.String("dir", dir), zap.Int("files", stats.Files), zap.Int("chunks", stats.Chunks))
	}

	backend, err := llm.New(ctx, cfg.Generation)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("build generation backend: %w", err)
	}
	app.Backend = backend

	pipeline := grading.NewPipeline(store, backend, PipelineOptions(cfg), logger.Named("grading"), app.Metrics)

	var reports db.ReportRepository = db.NewMemoryReports()
	if database != nil {
		mr := db.NewMongoReports(database)
		if err := mr.EnsureIndexes(ctx); err != nil {
			logger.Warn("failed to create report indexes", zap.Error(err))
		}
		reports = mr
	}

	var broker progress.Broker = progress.NewMemoryBroker(progressRetention)
	if rdb != nil {
		broker = progress.NewRedisBroker(rdb, progressRetention, logger.Named("progress"))
	}

	reportCache := cache.NewReportCache(rdb, cfg.Redis.CacheTTL, logger.Named("cache"), app.Metrics)
	app.Grading = NewGradingService(ctx, pipeline, reports, reportCache, broker, logger.Named("service"))
	app.Limiter = cache.NewRateLimiter(rdb, cfg.RateLimit.Max, cfg.RateLimit.Window, logger.Named("ratelimit"))

	logger.Info("grading pipeline ready",
		zap.String("provider", backend.Name()),
		zap.String("model", cfg.Generation.Model),
		zap.String("store", string(cfg.Retrieval.Store)))
	return app, nil
}

// Indexer returns an ingestion pipeline writing into the app's passage store.
func (a *App) Indexer() *passage.Indexer {
	return &passage.Indexer{
		Store:        a.Store,
		ChunkSize:    a.Config.Retrieval.ChunkSize,
		ChunkOverlap: a.Config.Retrieval.ChunkOverlap,
		Logger:       a.Logger.Named("ingest"),
	}
}

// Close waits for background runs and releases every connection.
func (a *App) Close() {
	if a.Grading != nil {
		a.Grading.Wait()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close passage store", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.mongoClient.Disconnect(ctx)
	}
}
