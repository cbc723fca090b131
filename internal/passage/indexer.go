package passage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const indexBatchSize = 32

// IngestStats summarises one ingestion run.
type IngestStats struct {
	Files  int            `json:"files"`
	Chunks int            `json:"chunks"`
	ByCat  map[string]int `json:"byCategory"`
}

// Indexer reads a corpus directory, chunks it and writes the chunks to a store.
type Indexer struct {
	Store        IndexStore
	ChunkSize    int
	ChunkOverlap int
	Logger       *zap.Logger
}

// ChunkDocument converts one document into chunks with stable ids.
func (ix *Indexer) ChunkDocument(name string, content []byte) []Chunk {
	body := string(content)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		body = MarkdownToText(content)
	}
	size, overlap := ix.ChunkSize, ix.ChunkOverlap
	if size == 0 {
		size, overlap = DefaultChunkSize, DefaultChunkOverlap
	}

	category := CategoryFromFilename(name)
	base := filepath.Base(name)
	parts := SplitText(body, size, overlap)
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		source := fmt.Sprintf("%s#%d", base, i)
		chunks[i] = Chunk{
			ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String(),
			Text:     p,
			Source:   source,
			Category: category,
		}
	}
	return chunks
}

// IngestDir indexes every markdown and text file under dir.
func (ix *Indexer) IngestDir(ctx context.Context, dir string) (IngestStats, error) {
	logger := ix.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := IngestStats{ByCat: map[string]int{}}

	var batch []Chunk
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.Store.Add(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
		default:
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		chunks := ix.ChunkDocument(path, content)
		logger.Debug("chunked document",
			zap.String("file", path),
			zap.Int("chunks", len(chunks)),
			zap.String("category", CategoryFromFilename(path)))

		stats.Files++
		for _, c := range chunks {
			stats.Chunks++
			stats.ByCat[c.Category]++
			batch = append(batch, c)
			if len(batch) >= indexBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	if err := flush(); err != nil {
		return stats, err
	}
	logger.Info("corpus ingested", zap.Int("files", stats.Files), zap.Int("chunks", stats.Chunks))
	return stats, nil
}
