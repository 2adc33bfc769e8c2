package chromemdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-chatbot/internal/models"
)

const (
	BackendName = "chromem"

	metaSource = "source"
	metaPage   = "page"
	metaSeq    = "seq"
)

// VectorDBManager encapsulates the chromem-go database operations. The database
// lives in memory and is persisted as a single export file per index.
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	compress       bool
	encryptionKey  string
}

// NewVectorDBManager initializes a new in-memory vector database manager
func NewVectorDBManager(collectionName string, compress bool, encryptionKey string) *VectorDBManager {
	return &VectorDBManager{
		db:             chromem.NewDB(),
		collectionName: collectionName,
		compress:       compress,
		encryptionKey:  encryptionKey,
	}
}

func (m *VectorDBManager) Backend() string { return BackendName }

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// Reset drops the collection and starts an empty one
func (m *VectorDBManager) Reset(ctx context.Context) error {
	if m.db.GetCollection(m.collectionName, nil) != nil {
		if err := m.db.DeleteCollection(m.collectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	_, err := m.GetOrCreateCollection()
	return err
}

// Replace resets the collection and adds records
func (m *VectorDBManager) Replace(ctx context.Context, records []models.ChunkEmbedding) error {
	if err := m.Reset(ctx); err != nil {
		return err
	}
	return m.Add(ctx, records)
}

// Add stores the chunks with their precomputed embeddings
func (m *VectorDBManager) Add(ctx context.Context, records []models.ChunkEmbedding) error {
	if m.collection == nil {
		if _, err := m.GetOrCreateCollection(); err != nil {
			return err
		}
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:      r.Chunk.ID,
			Content: r.Chunk.Text,
			Metadata: map[string]string{
				metaSource: r.Chunk.Source,
				metaPage:   strconv.Itoa(r.Chunk.PageNumber),
				metaSeq:    strconv.Itoa(r.Chunk.Seq),
			},
			Embedding: r.Embedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns up to k matches, most similar first, equal similarities in
// insertion order. The whole collection is scored so the tie order does not
// depend on chromem's internal heap.
func (m *VectorDBManager) Query(ctx context.Context, vector []float32, k int) ([]models.Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	n := m.size()
	if n == 0 || k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]models.Match, 0, len(results))
	for _, r := range results {
		seq, err := strconv.Atoi(r.Metadata[metaSeq])
		if err != nil {
			return nil, fmt.Errorf("document %s has invalid seq %q", r.ID, r.Metadata[metaSeq])
		}
		matches = append(matches, models.Match{Seq: seq, Similarity: r.Similarity})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Seq < matches[j].Seq
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *VectorDBManager) Count(ctx context.Context) (int, error) {
	return m.size(), nil
}

func (m *VectorDBManager) size() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// FilePath is the export file of the named index inside dir
func (m *VectorDBManager) FilePath(dir, name string) string {
	path := filepath.Join(dir, name+".chromem")
	if m.compress {
		path += ".gz"
	}
	return path
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context, dir, name string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	filePath := m.FilePath(dir, name)

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file into a fresh database
func (m *VectorDBManager) Import(ctx context.Context, dir, name string) error {
	filePath := m.FilePath(dir, name)
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("vector file: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := db.GetCollection(m.collectionName, nil)
	if c == nil {
		return fmt.Errorf("collection %s not found in %s", m.collectionName, filePath)
	}

	m.db = db
	m.collection = c
	return nil
}

// Close releases the in-memory database
func (m *VectorDBManager) Close() error {
	m.collection = nil
	m.db = chromem.NewDB()
	return nil
}
