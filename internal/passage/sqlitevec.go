package passage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
)

func init() {
	// Registers vec_distance_cosine and friends with the mattn/go-sqlite3 driver.
	vec.Auto()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS passages (
	id        TEXT PRIMARY KEY,
	text      TEXT NOT NULL,
	source    TEXT NOT NULL,
	category  TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passages_category ON passages(category);
`

// SQLiteStore keeps passages in a local SQLite file and ranks them with sqlite-vec.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create passage db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open passage db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create passage schema: %w", err)
	}
	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec extension not available: %w", err)
	}
	return &SQLiteStore{db: db, embedder: embedder}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, chunks []Chunk) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO passages (id, text, source, category, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		blob, err := vec.SerializeFloat32(vecs[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.Source, c.Category, blob); err != nil {
			return fmt.Errorf("failed to insert passage %s: %w", c.Source, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, query string, k int, categories ...string) ([]models.RetrievedPassage, error) {
	if k <= 0 {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, unavailable("embed query", err)
	}
	blob, err := vec.SerializeFloat32(vecs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query embedding: %w", err)
	}

	args := []any{blob}
	where := ""
	if len(categories) > 0 {
		where = "WHERE category IN (?" + strings.Repeat(",?", len(categories)-1) + ")"
		for _, c := range categories {
			args = append(args, c)
		}
	}
	args = append(args, k)

	q := fmt.Sprintf(`
		SELECT text, source, category, vec_distance_cosine(embedding, ?) AS distance
		FROM passages
		%s
		ORDER BY distance ASC
		LIMIT ?`, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("query", err)
	}
	defer rows.Close()

	var out []models.RetrievedPassage
	for rows.Next() {
		var p models.RetrievedPassage
		var distance float64
		if err := rows.Scan(&p.Text, &p.Source, &p.Category, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		p.Relevance = clampRelevance(1 - distance)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query", err)
	}
	sortByRelevance(out)
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
