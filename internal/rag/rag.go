package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/index"
	"pdf-chatbot/internal/llmservice"
	"pdf-chatbot/internal/memory"
	"pdf-chatbot/internal/metrics"
	"pdf-chatbot/internal/models"
)

// Retriever finds the chunks most relevant to a query
type Retriever interface {
	Retrieve(ctx context.Context, embedder embeddings.Embedder, query string, k int) ([]index.Hit, error)
}

type Options struct {
	TopK          int
	RoleStatement string
	Temperature   float64
	Timeout       time.Duration
	// Now anchors the current year in the prompt
	Now func() time.Time
}

// OptionsFromConfig maps the rag and inference settings onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:          cfg.RAG.TopK,
		RoleStatement: cfg.RAG.RoleStatement,
		Temperature:   cfg.InferLLM.Temperature,
		Timeout:       time.Duration(cfg.InferLLM.TimeoutSeconds) * time.Second,
	}
}

// Pipeline answers questions from retrieved chunks and the recent conversation
type Pipeline struct {
	model     llms.Model
	embedder  embeddings.Embedder
	retriever Retriever
	memory    *memory.Memory
	opts      Options

	qaPrompt       prompts.PromptTemplate
	condensePrompt prompts.PromptTemplate
}

func NewPipeline(model llms.Model, embedder embeddings.Embedder, retriever Retriever, mem *memory.Memory, opts Options) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.RoleStatement == "" {
		opts.RoleStatement = models.DefaultRoleStatement
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		model:     model,
		embedder:  embedder,
		retriever: retriever,
		memory:    mem,
		opts:      opts,
		qaPrompt: prompts.NewPromptTemplate(models.QAPromptTemplate,
			[]string{"role", "year_anchor", "context", "question"}),
		condensePrompt: prompts.NewPromptTemplate(models.CondensePromptTemplate,
			[]string{"chat_history", "question"}),
	}
}

// Answer runs condensation, retrieval and generation for one question. The turn is
// recorded in memory only when an answer was produced.
func (p *Pipeline) Answer(ctx context.Context, question string) (models.Answer, error) {
	start := time.Now()
	answer, err := p.answer(ctx, question)
	if err != nil {
		metrics.ObserveAnswer(metrics.StatusError, time.Since(start))
		return models.Answer{}, fmt.Errorf("%w: %w", models.ErrAnswerGeneration, err)
	}
	p.memory.Append(models.Turn{Question: question, Answer: answer.Text})
	metrics.ObserveAnswer(metrics.StatusOK, time.Since(start))
	return answer, nil
}

func (p *Pipeline) answer(ctx context.Context, question string) (models.Answer, error) {
	standalone, err := p.condense(ctx, question)
	if err != nil {
		return models.Answer{}, fmt.Errorf("condense question: %w", err)
	}

	hits, err := p.retriever.Retrieve(ctx, p.embedder, standalone, p.opts.TopK)
	if err != nil {
		return models.Answer{}, fmt.Errorf("retrieve: %w", err)
	}

	prompt, err := p.qaPrompt.Format(map[string]any{
		"role":        p.opts.RoleStatement,
		"year_anchor": fmt.Sprintf(models.YearAnchorFormat, p.opts.Now().Year()),
		"context":     joinContext(hits),
		"question":    standalone,
	})
	if err != nil {
		return models.Answer{}, fmt.Errorf("format prompt: %w", err)
	}

	raw, err := llmservice.GenerateContent(ctx, p.model, prompt, p.opts.Timeout, llms.WithTemperature(p.opts.Temperature))
	if err != nil {
		return models.Answer{}, fmt.Errorf("generate: %w", err)
	}

	log.Debug().Str("question", standalone).Int("chunks", len(hits)).Msg("Generated answer")
	return models.Answer{Text: PostProcess(raw), Sources: ReduceSources(hits)}, nil
}

// condense rewrites a follow up into a standalone question; without history the
// question is used as is
func (p *Pipeline) condense(ctx context.Context, question string) (string, error) {
	history := p.memory.AsContext()
	if len(history) == 0 {
		return question, nil
	}

	prompt, err := p.condensePrompt.Format(map[string]any{
		"chat_history": formatHistory(history),
		"question":     question,
	})
	if err != nil {
		return "", err
	}
	standalone, err := llmservice.GenerateContent(ctx, p.model, prompt, p.opts.Timeout, llms.WithTemperature(0))
	if err != nil {
		return "", err
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		return question, nil
	}
	log.Debug().Str("question", question).Str("standalone", standalone).Msg("Condensed question")
	return standalone, nil
}

func formatHistory(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString("Human: " + t.Question + "\n")
		b.WriteString("Assistant: " + t.Answer + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinContext(hits []index.Hit) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	return strings.Join(texts, models.ContextSeparator)
}

// PostProcess trims the completion and collapses every whitespace run, newlines
// included, to a single space
func PostProcess(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ReduceSources keeps only source and page of each hit, in rank order and without
// deduplication
func ReduceSources(hits []index.Hit) []models.Source {
	sources := make([]models.Source, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, models.Source{Source: h.Chunk.Source, Page: h.Chunk.PageNumber})
	}
	return sources
}
