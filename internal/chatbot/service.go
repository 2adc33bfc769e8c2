package chatbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"pdf-chatbot/internal/chromemdb"
	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/db"
	"pdf-chatbot/internal/embedding"
	"pdf-chatbot/internal/index"
	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/memory"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/parser"
	"pdf-chatbot/internal/rag"
)

var ErrNotReady = errors.New("chatbot is not ready: index not prepared")

type Option func(*Service)

// WithEmbedder replaces the configured embedding collaborator
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithModel replaces the configured completion collaborator
func WithModel(m llms.Model) Option {
	return func(s *Service) { s.model = m }
}

// WithStore replaces the configured vector store backend
func WithStore(st index.Store) Option {
	return func(s *Service) { s.store = st }
}

// Service owns the model, the index and the conversation memory of one chat
// session. It is ready once Prepare has returned without error.
type Service struct {
	cfg      *config.Config
	embedder embeddings.Embedder
	model    llms.Model
	store    index.Store
	index    *index.Index
	memory   *memory.Memory
	pipeline *rag.Pipeline
}

func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, memory: memory.New(cfg.RAG.MemoryTurns)}
	for _, opt := range opts {
		opt(s)
	}

	if s.embedder == nil {
		e, err := embedding.NewEmbedder(&cfg.EmbedLLM, cfg.RAG.EmbedBatch)
		if err != nil {
			return nil, err
		}
		s.embedder = e
	}
	if s.model == nil {
		m, err := llmservice.NewModel(&cfg.InferLLM)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize llm: %w", err)
		}
		s.model = m
	}
	return s, nil
}

// Prepare makes the index ready for serving. A saved index is loaded unless
// rebuild is set or none exists; otherwise the documents folder is ingested,
// chunked, embedded and the result saved.
func (s *Service) Prepare(ctx context.Context, rebuild bool) error {
	if s.store == nil {
		st, err := s.newStore(ctx)
		if err != nil {
			return err
		}
		s.store = st
	}

	var (
		idx *index.Index
		err error
	)
	if !rebuild && index.Exists(s.cfg.Index.Dir, s.cfg.Index.Name) {
		idx, err = index.Load(ctx, s.cfg.Index.Dir, s.cfg.Index.Name, s.store)
	} else {
		idx, err = s.build(ctx)
	}
	if err != nil {
		return err
	}

	s.index = idx
	s.pipeline = rag.NewPipeline(s.model, s.embedder, idx, s.memory, rag.OptionsFromConfig(s.cfg))
	metrics.IndexedChunks.Set(float64(idx.Len()))
	return nil
}

func (s *Service) build(ctx context.Context) (*index.Index, error) {
	pages, err := parser.LoadDirectory(s.cfg.DocsDir, s.cfg.Ingest.Extensions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexBuild, err)
	}
	chunks := parser.ChunkPages(pages, s.cfg.RAG.ChunkSize, s.cfg.RAG.ChunkOverlap)
	log.Info().Str("dir", s.cfg.DocsDir).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Ingested documents")

	idx, err := index.Build(ctx, s.embedder, chunks, s.store, s.cfg.Index.Name)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(ctx, s.cfg.Index.Dir); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrIndexBuild, err)
	}
	return idx, nil
}

func (s *Service) newStore(ctx context.Context) (index.Store, error) {
	switch s.cfg.Index.Backend {
	case config.BackendPostgres:
		sqldb, err := db.ConnectDB(&s.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		bunDB := db.NewDB(sqldb, s.cfg.Database.Debug)
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return db.NewStore(bunDB, s.cfg.Index.Name), nil
	default:
		return chromemdb.NewVectorDBManager(s.cfg.Index.Name, s.cfg.Index.Compress, s.cfg.Index.EncryptionKey), nil
	}
}

// Ask answers one question through the pipeline
func (s *Service) Ask(ctx context.Context, question string) (models.Answer, error) {
	if s.pipeline == nil {
		return models.Answer{}, ErrNotReady
	}
	return s.pipeline.Answer(ctx, question)
}

// RunBatch answers the questions in order. A failed question is recorded with its
// error and the run continues with the next one.
func (s *Service) RunBatch(ctx context.Context, questions []string) []models.BatchResult {
	results := make([]models.BatchResult, 0, len(questions))
	for i, q := range questions {
		log.Info().Int("question", i+1).Int("total", len(questions)).Msg("Processing question")
		answer, err := s.Ask(ctx, q)
		if err != nil {
			log.Error().Err(err).Str("question", q).Msg("Error answering question")
			results = append(results, models.BatchResult{
				Question:        q,
				SourceDocuments: []models.Source{},
				Error:           err.Error(),
			})
			continue
		}
		results = append(results, models.BatchResult{
			Question:        q,
			Answer:          answer.Text,
			SourceDocuments: answer.Sources,
		})
	}
	return results
}

func (s *Service) Memory() *memory.Memory { return s.memory }

// Index is nil until Prepare succeeds
func (s *Service) Index() *index.Index { return s.index }

// Close releases the index; memory is in process only and is simply dropped
func (s *Service) Close() error {
	s.memory.Reset()
	s.pipeline = nil
	if s.index != nil {
		err := s.index.Close()
		s.index = nil
		return err
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
