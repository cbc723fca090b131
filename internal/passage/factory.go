package passage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/config"
)

// NewEmbedder builds the embedder selected by the retrieval configuration.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	e := cfg.Retrieval.Embedding
	switch e.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.Generation.OpenAIKey, cfg.Generation.BaseURL, e.Model, e.Dimensions)
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, cfg.Generation.GeminiKey, e.Model, e.Dimensions)
	case "hash":
		return HashEmbedder{Dims: e.Dimensions}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}
}

// Open builds the configured passage store. database may be nil unless the store is mongo.
func Open(ctx context.Context, cfg *config.Config, database *mongo.Database) (IndexStore, error) {
	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Retrieval.Store {
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.Retrieval.SQLitePath, embedder)
	case config.StoreMongo:
		if database == nil {
			return nil, fmt.Errorf("%w: mongo passage store requires a database connection", ErrStoreUnavailable)
		}
		return NewMongoStore(database.Collection(cfg.Retrieval.MongoCollection), cfg.Retrieval.MongoIndex, embedder), nil
	case config.StoreMemory:
		return NewMemoryStore(embedder), nil
	default:
		return nil, fmt.Errorf("unknown passage store %q", cfg.Retrieval.Store)
	}
}
