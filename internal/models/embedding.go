package models

// ChunkEmbedding binds a chunk to its embedding vector
type ChunkEmbedding struct {
	Chunk     Chunk
	Embedding []float32
}

// Match is a vector store hit, identified by the chunk's sequence number
type Match struct {
	Seq        int
	Similarity float32
}
