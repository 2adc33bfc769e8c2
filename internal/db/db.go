package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
)

const BackendName = "postgres"

// Document is one chunk row of a pgvector backed index
type Document struct {
	bun.BaseModel  `bun:"table:documents,alias:d"`
	ID             int64   `bun:"id,pk,autoincrement"`
	IndexName      string  `bun:"index_name,notnull"`
	Seq            int     `bun:"seq,notnull"`
	ChunkID        string  `bun:"chunk_id,notnull"`
	Content        string  `bun:"content,notnull"`
	SourceFilename string  `bun:"source_filename,notnull"`
	PageNumber     int     `bun:"page_number,notnull"`
	Embedding      string  `bun:"embedding,notnull,type:vector"`
	Similarity     float32 `bun:"similarity,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with either bun's pgdriver or lib/pq
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "pq", "postgres":
		return sql.Open("postgres", cfg.DSN)
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateIndex().
		Model((*Document)(nil)).
		Index("documents_index_name_seq_idx").
		Column("index_name", "seq").
		IfNotExists().
		Exec(ctx)
	return err
}

// Store keeps the vectors of one named index in the documents table
type Store struct {
	db        *bun.DB
	indexName string
}

func NewStore(db *bun.DB, indexName string) *Store {
	return &Store{db: db, indexName: indexName}
}

func (s *Store) Backend() string { return BackendName }

// Replace swaps the rows of this index for records in a single transaction, so a
// failed insert leaves the previous rows in place
func (s *Store) Replace(ctx context.Context, records []models.ChunkEmbedding) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.reset(ctx, tx); err != nil {
			return err
		}
		return s.add(ctx, tx, records)
	})
}

// reset deletes every row of this index
func (s *Store) reset(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDelete().
		Model((*Document)(nil)).
		Where("index_name = ?", s.indexName).
		Exec(ctx)
	return err
}

func (s *Store) add(ctx context.Context, db bun.IDB, records []models.ChunkEmbedding) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = Document{
			IndexName:      s.indexName,
			Seq:            r.Chunk.Seq,
			ChunkID:        r.Chunk.ID,
			Content:        r.Chunk.Text,
			SourceFilename: r.Chunk.Source,
			PageNumber:     r.Chunk.PageNumber,
			Embedding:      VectorLiteral(r.Embedding),
		}
	}
	_, err := db.NewInsert().Model(&docs).Exec(ctx)
	return err
}

// Query orders by cosine distance, then by seq, so ties keep insertion order
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]models.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	var docs []Document
	if err := s.similarityQuery(&docs, vector, k).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]models.Match, len(docs))
	for i, d := range docs {
		matches[i] = models.Match{Seq: d.Seq, Similarity: d.Similarity}
	}
	return matches, nil
}

func (s *Store) similarityQuery(docs *[]Document, vector []float32, k int) *bun.SelectQuery {
	vec := VectorLiteral(vector)
	return s.db.NewSelect().
		Model(docs).
		Column("seq").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", vec).
		Where("index_name = ?", s.indexName).
		OrderExpr("embedding <=> ?::vector", vec).
		OrderExpr("seq ASC").
		Limit(k)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().
		Model((*Document)(nil)).
		Where("index_name = ?", s.indexName).
		Count(ctx)
}

// Export has nothing to write: rows are durable once inserted
func (s *Store) Export(ctx context.Context, dir, name string) error {
	return nil
}

// Import checks that the table is reachable; the row count is verified by the caller
func (s *Store) Import(ctx context.Context, dir, name string) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	log.Debug().Str("index", s.indexName).Msg("Using postgres index")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// VectorLiteral formats v in pgvector's text representation
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
