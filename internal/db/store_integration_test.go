package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"pdf-chatbot/internal/config"
	"pdf-chatbot/internal/models"
)

func startPgvector(t *testing.T) *bun.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "chatbot",
				"POSTGRES_PASSWORD": "chatbot",
				"POSTGRES_DB":       "chatbot",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("pgvector container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432")
	require.NoError(t, err)

	sqldb, err := ConnectDB(&config.DatabaseConfig{
		Driver: "pgdriver",
		DSN:    fmt.Sprintf("postgres://chatbot:chatbot@%s:%s/chatbot?sslmode=disable", host, port.Port()),
	})
	require.NoError(t, err)
	bunDB := NewDB(sqldb, false)
	t.Cleanup(func() { bunDB.Close() })

	require.NoError(t, InitDB(ctx, bunDB))
	return bunDB
}

func records(vectors ...[]float32) []models.ChunkEmbedding {
	out := make([]models.ChunkEmbedding, len(vectors))
	for i, v := range vectors {
		out[i] = models.ChunkEmbedding{
			Chunk: models.Chunk{
				ID:         fmt.Sprintf("chunk-%d", i),
				Text:       fmt.Sprintf("text %d", i),
				Source:     "cv.pdf",
				PageNumber: i + 1,
				Seq:        i,
			},
			Embedding: v,
		}
	}
	return out
}

func TestStoreWithPgvector(t *testing.T) {
	bunDB := startPgvector(t)
	ctx := context.Background()

	t.Run("query orders by distance then seq", func(t *testing.T) {
		store := NewStore(bunDB, "ordering")
		require.NoError(t, store.Replace(ctx, records(
			[]float32{0, 1},
			[]float32{1, 0},
			[]float32{0, 1},
			[]float32{1, 1},
		)))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		matches, err := store.Query(ctx, []float32{0, 1}, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, []int{0, 2, 3}, []int{matches[0].Seq, matches[1].Seq, matches[2].Seq})
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
		assert.Equal(t, matches[0].Similarity, matches[1].Similarity)
		assert.Greater(t, matches[1].Similarity, matches[2].Similarity)
	})

	t.Run("failed replace keeps previous rows", func(t *testing.T) {
		store := NewStore(bunDB, "rollback")
		require.NoError(t, store.Replace(ctx, records([]float32{1, 0}, []float32{0, 1})))

		// pgvector rejects a vector without dimensions
		bad := records([]float32{1, 1}, nil)
		assert.Error(t, store.Replace(ctx, bad))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("indexes are isolated by name", func(t *testing.T) {
		a := NewStore(bunDB, "isolated-a")
		b := NewStore(bunDB, "isolated-b")
		require.NoError(t, a.Replace(ctx, records([]float32{1, 0})))
		require.NoError(t, b.Replace(ctx, records([]float32{1, 0}, []float32{0, 1})))
		require.NoError(t, a.Replace(ctx, records([]float32{0, 1})))

		n, err := b.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
