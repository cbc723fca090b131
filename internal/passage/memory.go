package passage

import (
	"context"
	"sync"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

type memoryEntry struct {
	chunk Chunk
	vec   []float32
}

// MemoryStore keeps the corpus in process and searches it by brute-force cosine similarity.
type MemoryStore struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []memoryEntry
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (m *MemoryStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return unavailable("embed", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		m.entries = append(m.entries, memoryEntry{chunk: c, vec: vecs[i]})
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error) {
	if k <= 0 {
		return nil, nil
	}
	vecs, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, unavailable("embed query", err)
	}
	q := vecs[0]

	m.mu.RLock()
	results := make([]models.RetrievedPassage, 0, len(m.entries))
	for _, e := range m.entries {
		if !inCategories(e.chunk.Category, categories) {
			continue
		}
		results = append(results, models.RetrievedPassage{
			Text:      e.chunk.Text,
			Source:    e.chunk.Source,
			Category:  e.chunk.Category,
			Relevance: clampRelevance(CosineSimilarity(q, e.vec)),
		})
	}
	m.mu.RUnlock()

	sortByRelevance(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored chunks.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error { return nil }
