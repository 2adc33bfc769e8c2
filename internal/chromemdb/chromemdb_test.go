package chromemdb

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot/internal/models"
)

func records(vectors ...[]float32) []models.ChunkEmbedding {
	out := make([]models.ChunkEmbedding, len(vectors))
	for i, v := range vectors {
		out[i] = models.ChunkEmbedding{
			Chunk: models.Chunk{
				ID:         fmt.Sprintf("chunk-%d", i),
				Text:       fmt.Sprintf("text %d", i),
				Source:     "a.pdf",
				PageNumber: i + 1,
				Seq:        i,
			},
			Embedding: v,
		}
	}
	return out
}

func TestQueryOrdersBySimilarityThenSeq(t *testing.T) {
	ctx := context.Background()
	m := NewVectorDBManager("test", false, "")
	require.NoError(t, m.Reset(ctx))
	require.NoError(t, m.Add(ctx, records(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 1},
	)))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	matches, err := m.Query(ctx, []float32{0, 1}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 0, matches[0].Seq)
	assert.Equal(t, 2, matches[1].Seq)
	assert.Equal(t, 3, matches[2].Seq)
	assert.Equal(t, matches[0].Similarity, matches[1].Similarity)
	assert.Greater(t, matches[1].Similarity, matches[2].Similarity)
}

func TestQueryEmptyCollection(t *testing.T) {
	m := NewVectorDBManager("test", false, "")
	matches, err := m.Query(context.Background(), []float32{1}, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = m.Query(context.Background(), nil, 4)
	assert.Error(t, err)
}

func TestResetDropsDocuments(t *testing.T) {
	ctx := context.Background()
	m := NewVectorDBManager("test", false, "")
	require.NoError(t, m.Add(ctx, records([]float32{1, 0})))
	require.NoError(t, m.Reset(ctx))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExportImport(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		key      string
	}{
		{"plain", false, ""},
		{"compressed", true, ""},
		{"encrypted", true, strings.Repeat("k", 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			m := NewVectorDBManager("test", tt.compress, tt.key)
			require.NoError(t, m.Add(ctx, records([]float32{1, 0}, []float32{0, 1})))
			require.NoError(t, m.Export(ctx, dir, "idx"))
			assert.FileExists(t, m.FilePath(dir, "idx"))

			restored := NewVectorDBManager("test", tt.compress, tt.key)
			require.NoError(t, restored.Import(ctx, dir, "idx"))
			n, err := restored.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			matches, err := restored.Query(ctx, []float32{0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, 1, matches[0].Seq)
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	m := NewVectorDBManager("test", false, "")
	assert.Error(t, m.Import(context.Background(), t.TempDir(), "idx"))
}

func TestFilePath(t *testing.T) {
	assert.Equal(t, "dir/idx.chromem", NewVectorDBManager("c", false, "").FilePath("dir", "idx"))
	assert.Equal(t, "dir/idx.chromem.gz", NewVectorDBManager("c", true, "").FilePath("dir", "idx"))
}
