package retrieval

import (
	"context"
	"errors"
	"sort"

	"github.com/mentora/mentora/store"
)

// ChunkStore is the slice of the store the retrieval engine needs.
type ChunkStore interface {
	ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error)
	ListUserLinks(ctx context.Context, find *store.FindUserLink) ([]*store.UserLink, error)
	ChunkVectorSearch(ctx context.Context, opts *store.ChunkVectorSearchOptions) ([]*store.KnowledgeChunkWithScore, error)
	ChunkTextSearch(ctx context.Context, opts *store.ChunkTextSearchOptions) ([]*store.KnowledgeChunk, error)
	ListKnowledgeChunks(ctx context.Context, find *store.FindKnowledgeChunk) ([]*store.KnowledgeChunk, error)
}

// textTierRelevance is the flat relevance assigned to text-search hits, which
// carry no similarity score of their own.
const textTierRelevance = 0.5

// tierQuery is one partition's search input.
type tierQuery struct {
	Text        string
	Embedding   []float32
	Partition   string
	RestrictIDs []int64
	TopK        int
	Overfetch   int
}

// tier is one retrieval strategy. Tiers are tried in a fixed fallback order
// until one returns non-empty results.
type tier interface {
	name() string
	search(ctx context.Context, q *tierQuery) ([]*store.KnowledgeChunkWithScore, error)
}

type vectorTier struct {
	store ChunkStore
}

func (t *vectorTier) name() string { return "vector" }

func (t *vectorTier) search(ctx context.Context, q *tierQuery) ([]*store.KnowledgeChunkWithScore, error) {
	if len(q.Embedding) == 0 {
		return nil, errors.New("no query embedding available")
	}
	return t.store.ChunkVectorSearch(ctx, &store.ChunkVectorSearchOptions{
		Partition:   q.Partition,
		Vector:      q.Embedding,
		RestrictIDs: q.RestrictIDs,
		Limit:       q.TopK * q.Overfetch,
	})
}

type textTier struct {
	store ChunkStore
}

func (t *textTier) name() string { return "text" }

func (t *textTier) search(ctx context.Context, q *tierQuery) ([]*store.KnowledgeChunkWithScore, error) {
	chunks, err := t.store.ChunkTextSearch(ctx, &store.ChunkTextSearchOptions{
		Partition:   q.Partition,
		Query:       q.Text,
		RestrictIDs: q.RestrictIDs,
		Limit:       q.TopK * 2,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*store.KnowledgeChunkWithScore, len(chunks))
	for i, chunk := range chunks {
		results[i] = &store.KnowledgeChunkWithScore{Chunk: chunk, Score: textTierRelevance}
	}
	return results, nil
}

// localTier is the last resort when no indexed search surface is available:
// fetch the restricted candidates with their stored embeddings and rank them
// in-process.
type localTier struct {
	store ChunkStore
}

func (t *localTier) name() string { return "local" }

func (t *localTier) search(ctx context.Context, q *tierQuery) ([]*store.KnowledgeChunkWithScore, error) {
	if len(q.Embedding) == 0 {
		return nil, errors.New("no query embedding available")
	}

	chunks, err := t.store.ListKnowledgeChunks(ctx, &store.FindKnowledgeChunk{
		Partition:      &q.Partition,
		RestrictIDs:    q.RestrictIDs,
		WithEmbeddings: true,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*store.KnowledgeChunkWithScore, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		results = append(results, &store.KnowledgeChunkWithScore{
			Chunk: chunk,
			Score: Cosine(q.Embedding, chunk.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit := q.TopK * 2; len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
