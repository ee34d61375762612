// Package memory implements semantic search over a user's own past
// exchanges, with a continuity guarantee for the current chat thread.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/ai/retrieval"
	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

const defaultTopK = 3

// continuityCount is how many of the current thread's most recent turns are
// always carried regardless of semantic rank.
const continuityCount = 2

// ConversationStore is the slice of the store the retriever needs.
type ConversationStore interface {
	ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error)
}

// Request describes one memory lookup.
type Request struct {
	Query   string
	UserID  int32
	Domain  string // optional filter
	ChatUID string // current thread, for the continuity guarantee
	TopK    int
}

// Entry is one remembered exchange, rendered as a transcript line.
type Entry struct {
	Text      string
	UID       string
	Score     float32
	CreatedTs int64
}

// Retriever ranks recent conversations by similarity to the query.
type Retriever struct {
	store    ConversationStore
	embedder ai.EmbeddingService
	window   int
}

func NewRetriever(st ConversationStore, embedder ai.EmbeddingService, profile *profile.Profile) *Retriever {
	window := profile.MemoryWindow
	if window <= 0 {
		window = 200
	}
	return &Retriever{store: st, embedder: embedder, window: window}
}

// Retrieve fetches a bounded window of the user's answered conversations,
// ranks them by cosine similarity, and prepends the current thread's two most
// recent turns with a neutral score if ranking dropped them.
func (r *Retriever) Retrieve(ctx context.Context, req *Request) ([]*Entry, error) {
	if req.Query == "" {
		return nil, errors.New("empty query")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	find := &store.FindConversation{
		UserID:         &req.UserID,
		AnsweredOnly:   true,
		WithEmbeddings: true,
		Limit:          r.window,
	}
	if req.Domain != "" {
		find.Domain = &req.Domain
	}
	recent, err := r.store.ListConversations(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(recent) == 0 {
		return r.withContinuity(ctx, req, nil)
	}

	queryEmbedding, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	entries := make([]*Entry, 0, len(recent))
	for _, conversation := range recent {
		embedding := conversation.Embedding
		if len(embedding) == 0 {
			// Legacy rows predate stored embeddings; compute one on the fly.
			embedding, err = r.embedder.Embed(ctx, transcript(conversation))
			if err != nil {
				slog.Warn("memory: on-the-fly embedding failed, skipping record",
					"conversation", conversation.UID, "error", err)
				continue
			}
		}
		entries = append(entries, &Entry{
			Text:      transcript(conversation),
			UID:       conversation.UID,
			Score:     retrieval.Cosine(queryEmbedding, embedding),
			CreatedTs: conversation.CreatedTs,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > topK {
		entries = entries[:topK]
	}

	return r.withContinuity(ctx, req, entries)
}

// withContinuity guarantees the two most recent turns of the current chat
// thread appear even when semantic similarity alone would drop them.
func (r *Retriever) withContinuity(ctx context.Context, req *Request, ranked []*Entry) ([]*Entry, error) {
	if req.ChatUID == "" {
		return ranked, nil
	}

	threadTurns, err := r.store.ListConversations(ctx, &store.FindConversation{
		UserID:       &req.UserID,
		ChatUID:      &req.ChatUID,
		AnsweredOnly: true,
		Limit:        continuityCount,
	})
	if err != nil {
		slog.Warn("memory: continuity lookup failed", "chat", req.ChatUID, "error", err)
		return ranked, nil
	}

	present := make(map[string]bool, len(ranked))
	for _, entry := range ranked {
		present[entry.UID] = true
	}

	prepend := []*Entry{}
	for _, conversation := range threadTurns {
		if present[conversation.UID] {
			continue
		}
		prepend = append(prepend, &Entry{
			Text:      transcript(conversation),
			UID:       conversation.UID,
			Score:     0,
			CreatedTs: conversation.CreatedTs,
		})
	}
	return append(prepend, ranked...), nil
}

func transcript(conversation *store.Conversation) string {
	return "Q: " + conversation.Query + "\nA: " + conversation.Answer
}
