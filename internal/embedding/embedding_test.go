package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
	"pdf-chatbot/internal/testutil"
)

type staticEmbedder struct {
	vectors [][]float32
}

func (e staticEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.vectors, nil
}

func (e staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vectors[0], nil
}

func chunks(texts ...string) []models.Chunk {
	out := make([]models.Chunk, len(texts))
	for i, t := range texts {
		out[i] = models.Chunk{Text: t, Seq: i}
	}
	return out
}

func TestGenerateEmbedding(t *testing.T) {
	vectors, err := GenerateEmbedding(context.Background(), &testutil.FakeEmbedder{}, chunks("alpha", "beta beta"))
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0, 0, 0.1}, vectors[0])
	assert.Equal(t, []float32{0, 2, 0, 0, 0.1}, vectors[1])
}

func TestGenerateEmbeddingErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		embedder staticEmbedder
		chunks   []models.Chunk
	}{
		{"no chunks", staticEmbedder{}, nil},
		{"count mismatch", staticEmbedder{vectors: [][]float32{{1}}}, chunks("a", "b")},
		{"empty vectors", staticEmbedder{vectors: [][]float32{{}, {}}}, chunks("a", "b")},
		{"dimension mismatch", staticEmbedder{vectors: [][]float32{{1, 2}, {1}}}, chunks("a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateEmbedding(ctx, tt.embedder, tt.chunks)
			assert.ErrorIs(t, err, models.ErrIndexBuild)
		})
	}

	_, err := GenerateEmbedding(ctx, &testutil.FakeEmbedder{Err: errors.New("quota")}, chunks("a"))
	assert.ErrorIs(t, err, models.ErrIndexBuild)
	assert.Contains(t, err.Error(), "quota")
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	_, err := NewEmbedder(&config.LLMConfig{Provider: "acme"}, 8)
	assert.Error(t, err)
}

func TestNewEmbedderOllama(t *testing.T) {
	e, err := NewEmbedder(&config.LLMConfig{Provider: config.ProviderOllama, Model: "nomic-embed-text", BaseURL: "http://localhost:11434"}, 8)
	require.NoError(t, err)
	assert.NotNil(t, e)
}
