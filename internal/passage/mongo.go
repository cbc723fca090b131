package passage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

// MongoStore uses an Atlas vector search index over a passages collection.
// The index must map "embedding" as a vector field and "category" as a filter field.
type MongoStore struct {
	coll     *mongo.Collection
	index    string
	embedder Embedder
}

type mongoPassage struct {
	Chunk     `bson:",inline"`
	Embedding []float32 `bson:"embedding"`
}

func NewMongoStore(coll *mongo.Collection, index string, embedder Embedder) *MongoStore {
	return &MongoStore{coll: coll, index: index, embedder: embedder}
}

func (s *MongoStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return unavailable("embed", err)
	}

	writes := make([]mongo.WriteModel, len(chunks))
	for i, c := range chunks {
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": c.ID}).
			SetReplacement(mongoPassage{Chunk: c, Embedding: vecs[i]}).
			SetUpsert(true)
	}
	if _, err := s.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return unavailable("bulk write", err)
	}
	return nil
}

func (s *MongoStore) Search(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error) {
	if k <= 0 {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, unavailable("embed query", err)
	}

	search := bson.M{
		"index":         s.index,
		"path":          "embedding",
		"queryVector":   vecs[0],
		"numCandidates": k * 20,
		"limit":         k,
	}
	if len(categories) > 0 {
		search["filter"] = bson.M{"category": bson.M{"$in": categories}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$project", Value: bson.M{
			"text":      1,
			"source":    1,
			"category":  1,
			"relevance": bson.M{"$meta": "vectorSearchScore"},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable("vector search", err)
	}
	defer cursor.Close(ctx)

	var out []models.RetrievedPassage
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode passages: %w", err)
	}
	for i := range out {
		out[i].Relevance = clampRelevance(out[i].Relevance)
	}
	sortByRelevance(out)
	return out, nil
}

// Close is a no-op; the mongo client is owned by the db package.
func (s *MongoStore) Close() error { return nil }
