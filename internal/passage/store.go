// Package passage holds the embedded reference corpus and answers similarity queries over it.
package passage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// ErrStoreUnavailable is returned when the passage store or its embedder cannot be reached.
var ErrStoreUnavailable = errors.New("passage store unavailable")

// Store answers similarity queries. Results are ordered by descending relevance in [0,1].
// When categories are given only passages of those categories are returned.
type Store interface {
	Search(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error)
}

// IndexStore is a Store that can also be written to by the ingestion pipeline.
type IndexStore interface {
	Store
	Add(ctx context.Context, chunks []Chunk) error
	Close() error
}

// Chunk is one unit of the corpus before embedding.
type Chunk struct {
	ID       string `bson:"_id"`
	Text     string `bson:"text"`
	Source   string `bson:"source"`
	Category string `bson:"category"`
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error)

func (f StoreFunc) Search(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error) {
	return f(ctx, query, k, categories...)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// clampRelevance maps a similarity score into [0,1].
func clampRelevance(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortByRelevance(ps []models.RetrievedPassage) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Relevance > ps[j].Relevance
	})
}

func inCategories(category string, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
