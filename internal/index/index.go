package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"gopkg.in/yaml.v3"

	"pdf-chatbot/internal/embedding"
	"pdf-chatbot/internal/helper"
	"pdf-chatbot/internal/models"
)

// Store is the vector index backend. Chunks are identified by their Seq.
type Store interface {
	Backend() string
	// Replace drops the current content and stores records in its place
	Replace(ctx context.Context, records []models.ChunkEmbedding) error
	Query(ctx context.Context, vector []float32, k int) ([]models.Match, error)
	Count(ctx context.Context) (int, error)
	Export(ctx context.Context, dir, name string) error
	Import(ctx context.Context, dir, name string) error
	Close() error
}

// Hit is a retrieved chunk with its similarity to the query
type Hit struct {
	Chunk models.Chunk
	Score float32
}

// Index maps the vectors held by a Store back to the chunks they were built from
type Index struct {
	name      string
	dimension int
	chunks    []models.Chunk
	store     Store
}

type metadataFile struct {
	Name      string         `yaml:"name"`
	Backend   string         `yaml:"backend"`
	Dimension int            `yaml:"dimension"`
	CreatedAt time.Time      `yaml:"created_at"`
	Chunks    []models.Chunk `yaml:"chunks"`
}

// MetadataPath is the side-file holding the chunk table of the named index
func MetadataPath(dir, name string) string {
	return filepath.Join(dir, name+".meta.yaml")
}

// Exists reports whether a saved index with this name is present in dir
func Exists(dir, name string) bool {
	_, err := os.Stat(MetadataPath(dir, name))
	return err == nil
}

// Build embeds every chunk and loads the vectors into store, replacing its content.
// Chunks must be numbered 0..n-1 by Seq, as produced by the chunker.
func Build(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk, store Store, name string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: empty corpus", models.ErrIndexBuild)
	}
	for i, c := range chunks {
		if c.Seq != i {
			return nil, fmt.Errorf("%w: chunk %d has seq %d", models.ErrIndexBuild, i, c.Seq)
		}
	}

	vectors, err := embedding.GenerateEmbedding(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	records := make([]models.ChunkEmbedding, len(chunks))
	for i := range chunks {
		records[i] = models.ChunkEmbedding{Chunk: chunks[i], Embedding: vectors[i]}
	}
	if err := store.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexBuild, err)
	}

	log.Info().Str("index", name).Str("backend", store.Backend()).Int("chunks", len(chunks)).Msg("Built index")
	return &Index{
		name:      name,
		dimension: len(vectors[0]),
		chunks:    append([]models.Chunk(nil), chunks...),
		store:     store,
	}, nil
}

// Save writes the store's vector file and the metadata side-file into dir.
// The side-file is written last, so its presence marks a complete save.
func (idx *Index) Save(ctx context.Context, dir string) error {
	if err := helper.CreateFolder(dir); err != nil {
		return fmt.Errorf("failed to create index folder: %w", err)
	}
	if err := idx.store.Export(ctx, dir, idx.name); err != nil {
		return err
	}

	data, err := yaml.Marshal(metadataFile{
		Name:      idx.name,
		Backend:   idx.store.Backend(),
		Dimension: idx.dimension,
		CreatedAt: time.Now().UTC(),
		Chunks:    idx.chunks,
	})
	if err != nil {
		return fmt.Errorf("failed to encode index metadata: %w", err)
	}

	path := MetadataPath(dir, idx.name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write index metadata: %w", err)
	}

	log.Info().Str("dir", dir).Str("index", idx.name).Msg("Saved index")
	return nil
}

// Load restores an index saved by Save. Any missing or inconsistent artifact is
// reported as models.ErrIndexLoad.
func Load(ctx context.Context, dir, name string, store Store) (*Index, error) {
	data, err := os.ReadFile(MetadataPath(dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexLoad, err)
	}
	var meta metadataFile
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: corrupt metadata: %w", models.ErrIndexLoad, err)
	}
	if meta.Backend != store.Backend() {
		return nil, fmt.Errorf("%w: index was built with backend %q, configured %q", models.ErrIndexLoad, meta.Backend, store.Backend())
	}
	if len(meta.Chunks) == 0 || meta.Dimension <= 0 {
		return nil, fmt.Errorf("%w: metadata holds no chunks", models.ErrIndexLoad)
	}
	for i, c := range meta.Chunks {
		if c.Seq != i {
			return nil, fmt.Errorf("%w: chunk %d has seq %d", models.ErrIndexLoad, i, c.Seq)
		}
	}

	if err := store.Import(ctx, dir, name); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexLoad, err)
	}
	n, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexLoad, err)
	}
	if n != len(meta.Chunks) {
		return nil, fmt.Errorf("%w: store holds %d vectors, metadata %d chunks", models.ErrIndexLoad, n, len(meta.Chunks))
	}

	log.Info().Str("dir", dir).Str("index", name).Int("chunks", n).Msg("Loaded index")
	return &Index{name: name, dimension: meta.Dimension, chunks: meta.Chunks, store: store}, nil
}

// Search returns up to k chunks by descending similarity to vector. Equal scores
// keep chunk insertion order.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index has %d", len(vector), idx.dimension)
	}
	k = min(k, len(idx.chunks))
	if k <= 0 {
		return nil, nil
	}

	matches, err := idx.store.Query(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		if m.Seq < 0 || m.Seq >= len(idx.chunks) {
			return nil, errors.New("vector store returned a chunk missing from the index metadata")
		}
		hits = append(hits, Hit{Chunk: idx.chunks[m.Seq], Score: m.Similarity})
	}
	return hits, nil
}

// Retrieve embeds the query text and searches for its k nearest chunks
func (idx *Index) Retrieve(ctx context.Context, embedder embeddings.Embedder, query string, k int) ([]Hit, error) {
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return idx.Search(ctx, vector, k)
}

func (idx *Index) Name() string { return idx.name }

func (idx *Index) Dimension() int { return idx.dimension }

func (idx *Index) Len() int { return len(idx.chunks) }

// Close releases the store
func (idx *Index) Close() error {
	return idx.store.Close()
}
