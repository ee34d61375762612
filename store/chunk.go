package store

// KnowledgeChunk is one retrievable text chunk of a document, stored with its
// embedding inside a named knowledge-base partition.
type KnowledgeChunk struct {
	Partition  string
	Text       string
	Filename   string
	Embedding  []float32
	ID         int64
	DocumentID int32
	CreatedTs  int64
}

// KnowledgeChunkWithScore bundles a chunk with a search relevance score.
type KnowledgeChunkWithScore struct {
	Chunk *KnowledgeChunk
	Score float32
}

// FindKnowledgeChunk specifies the conditions for listing chunks.
// RestrictIDs, when non-empty, limits results to the given chunk ids; this is
// the access-scoping set resolved from document ownership.
type FindKnowledgeChunk struct {
	Partition      *string
	DocumentID     *int32
	RestrictIDs    []int64
	WithEmbeddings bool
	Limit          int
}

// ChunkVectorSearchOptions are parameters for approximate nearest-neighbor
// search over one partition's embedding index.
type ChunkVectorSearchOptions struct {
	Partition   string
	Vector      []float32
	RestrictIDs []int64
	Limit       int
}

// ChunkTextSearchOptions are parameters for case-insensitive full-text search
// over one partition.
type ChunkTextSearchOptions struct {
	Partition   string
	Query       string
	RestrictIDs []int64
	Limit       int
}
