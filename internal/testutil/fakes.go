// Package testutil holds deterministic stand-ins for the embedding and
// completion services.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// Vocabulary is the default set of words FakeEmbedder counts
var Vocabulary = []string{"alpha", "beta", "gamma", "delta"}

// FakeEmbedder maps text to the number of occurrences of each vocabulary word,
// plus a constant component so no vector is zero.
type FakeEmbedder struct {
	Words []string
	Err   error

	mu      sync.Mutex
	Queries []string
}

func (e *FakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.vector(t)
	}
	return vectors, nil
}

func (e *FakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	e.mu.Lock()
	e.Queries = append(e.Queries, text)
	e.mu.Unlock()
	return e.vector(text), nil
}

func (e *FakeEmbedder) vector(text string) []float32 {
	words := e.Words
	if len(words) == 0 {
		words = Vocabulary
	}
	text = strings.ToLower(text)
	v := make([]float32, len(words)+1)
	for i, w := range words {
		v[i] = float32(strings.Count(text, w))
	}
	v[len(words)] = 0.1
	return v
}

// FakeModel answers every prompt through Respond and records the prompts it saw
type FakeModel struct {
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	Prompts []string
}

func (m *FakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var b strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				b.WriteString(text.Text)
			}
		}
	}
	prompt := b.String()

	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	out := "ok"
	if m.Respond != nil {
		var err error
		if out, err = m.Respond(prompt); err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *FakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// Calls returns a copy of the recorded prompts
func (m *FakeModel) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Prompts...)
}
