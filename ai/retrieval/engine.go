// Package retrieval implements multi-tier fallback search across knowledge
// base partitions. Partitions are searched concurrently; within one partition
// the tiers (vector, text, local) run in order until one yields results.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/ai/metrics"
	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// DefaultPartitions are the knowledge base partitions searched when the
// caller does not name any.
var DefaultPartitions = []string{"student", "coaching", "general"}

const defaultTopK = 5

// Request describes one retrieval pass.
type Request struct {
	Query         string
	UserID        int32
	CounterpartID *int32 // linked tutor/student whose documents are also searched
	TopK          int
	Partitions    []string
}

// Chunk is one unit of retrieved evidence. It is a view over a stored chunk,
// held only for the duration of one pipeline execution.
type Chunk struct {
	Text        string
	Partition   string
	Filename    string
	DocumentUID string
	OwnerID     int32
	ChunkID     int64
	Relevance   float32
	Score       float64
	CreatedTs   int64
}

// Result is the merged, ranked output of one retrieval pass.
type Result struct {
	Chunks         []*Chunk
	OwnedDocuments []*store.Document
}

// Engine runs the tiered search.
type Engine struct {
	store            ChunkStore
	embedder         ai.EmbeddingService
	tiers            []tier
	scorer           Scorer
	overfetch        int
	partitionTimeout time.Duration
}

func NewEngine(st ChunkStore, embedder ai.EmbeddingService, profile *profile.Profile) *Engine {
	timeout := profile.RetrievalTimeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Engine{
		store:    st,
		embedder: embedder,
		tiers: []tier{
			&vectorTier{store: st},
			&textTier{store: st},
			&localTier{store: st},
		},
		scorer: Scorer{
			RelevanceWeight: profile.RelevanceWeight,
			RecencyWeight:   profile.RecencyWeight,
		},
		overfetch:        profile.ANNOverfetch,
		partitionTimeout: time.Duration(timeout) * time.Second,
	}
}

// Retrieve resolves the documents owned by the requesting identities, searches
// every partition restricted to those documents' chunks, and merges the
// results by composite score. A partition failure degrades that partition to
// an empty contribution; the call itself fails only on malformed input or
// when the ownership index cannot be read at all.
func (e *Engine) Retrieve(ctx context.Context, req *Request) (*Result, error) {
	if req.Query == "" {
		return nil, errors.New("empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	partitions := req.Partitions
	if len(partitions) == 0 {
		partitions = DefaultPartitions
	}

	userIDs := e.resolveIdentities(ctx, req)

	docs, err := e.store.ListDocuments(ctx, &store.FindDocument{UserIDs: userIDs})
	if err != nil {
		return nil, err
	}

	// Access scoping: only chunks traceable to an owned document are
	// eligible. No owned documents means nothing to search.
	restrictIDs, owners := chunkOwnership(docs)
	if len(restrictIDs) == 0 {
		return &Result{OwnedDocuments: docs}, nil
	}

	embedding, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		// The text tier can still serve without an embedding.
		slog.Warn("retrieval: query embedding failed, vector and local tiers disabled", "error", err)
		embedding = nil
	}

	partitionResults := make([][]*store.KnowledgeChunkWithScore, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, partition := range partitions {
		i, partition := i, partition
		g.Go(func() error {
			searchCtx, cancel := context.WithTimeout(gctx, e.partitionTimeout)
			defer cancel()

			partitionResults[i] = e.searchPartition(searchCtx, &tierQuery{
				Text:        req.Query,
				Embedding:   embedding,
				Partition:   partition,
				RestrictIDs: restrictIDs,
				TopK:        topK,
				Overfetch:   e.overfetch,
			})
			return nil
		})
	}
	// Partition failures are soft; the group never carries an error.
	_ = g.Wait()

	now := time.Now()
	chunks := []*Chunk{}
	for i, results := range partitionResults {
		for _, result := range results {
			owner, ok := owners[result.Chunk.ID]
			if !ok {
				continue
			}
			chunks = append(chunks, &Chunk{
				Text:        result.Chunk.Text,
				Partition:   partitions[i],
				Filename:    result.Chunk.Filename,
				DocumentUID: owner.documentUID,
				OwnerID:     owner.userID,
				ChunkID:     result.Chunk.ID,
				Relevance:   result.Score,
				Score:       e.scorer.Composite(float64(result.Score), result.Chunk.CreatedTs, now),
				CreatedTs:   result.Chunk.CreatedTs,
			})
		}
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	return &Result{Chunks: chunks, OwnedDocuments: docs}, nil
}

// resolveIdentities collects the user ids whose documents are searchable for
// this request: the requester, an explicitly named counterpart, and any linked
// counterparts on record. A link lookup failure narrows the scope to what is
// already known instead of failing the search.
func (e *Engine) resolveIdentities(ctx context.Context, req *Request) []int32 {
	seen := map[int32]bool{req.UserID: true}
	userIDs := []int32{req.UserID}

	if req.CounterpartID != nil && !seen[*req.CounterpartID] {
		seen[*req.CounterpartID] = true
		userIDs = append(userIDs, *req.CounterpartID)
	}

	links, err := e.store.ListUserLinks(ctx, &store.FindUserLink{UserID: &req.UserID})
	if err != nil {
		slog.Warn("retrieval: user link lookup failed", "user_id", req.UserID, "error", err)
		return userIDs
	}
	for _, link := range links {
		if seen[link.CounterpartID] {
			continue
		}
		seen[link.CounterpartID] = true
		userIDs = append(userIDs, link.CounterpartID)
	}
	return userIDs
}

// searchPartition walks the tier chain. The first tier to return non-empty
// results wins; errors and empty results both fall through.
func (e *Engine) searchPartition(ctx context.Context, q *tierQuery) []*store.KnowledgeChunkWithScore {
	var lastErr error
	for i, t := range e.tiers {
		results, err := t.search(ctx, q)
		if err != nil {
			slog.Debug("retrieval: tier failed", "partition", q.Partition, "tier", t.name(), "error", err)
			lastErr = err
			continue
		}
		if len(results) == 0 {
			continue
		}
		if i > 0 {
			metrics.TierFallbacks.WithLabelValues(q.Partition, t.name()).Inc()
		}
		return results
	}

	if lastErr != nil {
		slog.Warn("retrieval: partition degraded to empty", "partition", q.Partition, "error", lastErr)
		metrics.PartitionFailures.WithLabelValues(q.Partition).Inc()
	}
	return nil
}

type chunkOwner struct {
	userID      int32
	documentUID string
}

func chunkOwnership(docs []*store.Document) ([]int64, map[int64]chunkOwner) {
	owners := map[int64]chunkOwner{}
	ids := []int64{}
	for _, doc := range docs {
		for _, chunkID := range doc.ChunkIDs {
			if _, ok := owners[chunkID]; ok {
				continue
			}
			owners[chunkID] = chunkOwner{userID: doc.UserID, documentUID: doc.UID}
			ids = append(ids, chunkID)
		}
	}
	return ids, owners
}
