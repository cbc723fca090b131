package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

const reportsCollection = "essay_reports"

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// ReportRepository persists finished essay reports.
type ReportRepository interface {
	SaveReport(ctx context.Context, report models.EssayReport) error
	GetReport(ctx context.Context, id string) (models.EssayReport, error)
	// ListReports returns the most recent reports first, without the essay text.
	ListReports(ctx context.Context, limit int) ([]models.EssayReport, error)
}

// extractDBName parses the database name from the URI, falling back to def
func extractDBName(uri, def string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return def
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:] // Trim leading '/'
	}
	return def
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI.
// The database named in the URI path wins over name.
func ConnectMongoDB(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection with a ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, client.Database(extractDBName(uri, name)), nil
}

// MongoReports stores reports in the essay_reports collection.
type MongoReports struct {
	coll *mongo.Collection
}

func NewMongoReports(database *mongo.Database) *MongoReports {
	return &MongoReports{coll: database.Collection(reportsCollection)}
}

// EnsureIndexes creates the index used by ListReports.
func (r *MongoReports) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

// SaveReport inserts or replaces a report by id.
func (r *MongoReports) SaveReport(ctx context.Context, report models.EssayReport) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": report.ID}, report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

func (r *MongoReports) GetReport(ctx context.Context, id string) (models.EssayReport, error) {
	var report models.EssayReport
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.EssayReport{}, ErrReportNotFound
	}
	if err != nil {
		return models.EssayReport{}, fmt.Errorf("get report %s: %w", id, err)
	}
	return report, nil
}

func (r *MongoReports) ListReports(ctx context.Context, limit int) ([]models.EssayReport, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"essay": 0})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := []models.EssayReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return reports, nil
}

// MemoryReports keeps reports in process memory, for runs without MongoDB.
type MemoryReports struct {
	mu      sync.RWMutex
	reports map[string]models.EssayReport
}

func NewMemoryReports() *MemoryReports {
	return &MemoryReports{reports: map[string]models.EssayReport{}}
}

func (m *MemoryReports) SaveReport(_ context.Context, report models.EssayReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ID] = report
	return nil
}

func (m *MemoryReports) GetReport(_ context.Context, id string) (models.EssayReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.reports[id]
	if !ok {
		return models.EssayReport{}, ErrReportNotFound
	}
	return report, nil
}

func (m *MemoryReports) ListReports(_ context.Context, limit int) ([]models.EssayReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reports := make([]models.EssayReport, 0, len(m.reports))
	for _, r := range m.reports {
		r.Essay = ""
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if !reports[i].CreatedAt.Equal(reports[j].CreatedAt) {
			return reports[i].CreatedAt.After(reports[j].CreatedAt)
		}
		return reports[i].ID < reports[j].ID
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}
