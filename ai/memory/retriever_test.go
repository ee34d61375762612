package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

type mockConversationStore struct {
	recent []*store.Conversation
	thread []*store.Conversation
	err    error
}

func (m *mockConversationStore) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if find.ChatUID != nil {
		return m.thread, nil
	}
	return m.recent, nil
}

type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = m.Embed(ctx, text)
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int { return 2 }

func conversation(uid, query, answer string, embedding []float32) *store.Conversation {
	return &store.Conversation{
		UID:       uid,
		Query:     query,
		Answer:    answer,
		Embedding: embedding,
		CreatedTs: time.Now().Unix(),
	}
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	st := &mockConversationStore{
		recent: []*store.Conversation{
			conversation("far", "q1", "a1", []float32{0, 1}),
			conversation("near", "q2", "a2", []float32{1, 0}),
		},
	}
	retriever := NewRetriever(st, &mockEmbedder{fallback: []float32{1, 0}}, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{Query: "pressure", UserID: 1, TopK: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "near", entries[0].UID)
	assert.Equal(t, "Q: q2\nA: a2", entries[0].Text)
}

func TestRetrieveTopK(t *testing.T) {
	st := &mockConversationStore{
		recent: []*store.Conversation{
			conversation("a", "q", "a", []float32{1, 0}),
			conversation("b", "q", "a", []float32{0.9, 0.1}),
			conversation("c", "q", "a", []float32{0, 1}),
		},
	}
	retriever := NewRetriever(st, &mockEmbedder{fallback: []float32{1, 0}}, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{Query: "pressure", UserID: 1, TopK: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRetrieveLegacyRowsEmbeddedOnTheFly(t *testing.T) {
	legacy := conversation("legacy", "what is heat", "transfer of energy", nil)
	embedder := &mockEmbedder{
		vectors: map[string][]float32{
			"pressure":                               {1, 0},
			"Q: what is heat\nA: transfer of energy": {1, 0},
		},
		fallback: []float32{0, 1},
	}
	st := &mockConversationStore{recent: []*store.Conversation{legacy}}
	retriever := NewRetriever(st, embedder, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{Query: "pressure", UserID: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 1.0, float64(entries[0].Score), 0.001)
}

func TestRetrieveContinuityGuarantee(t *testing.T) {
	st := &mockConversationStore{
		recent: []*store.Conversation{
			conversation("similar", "q", "a", []float32{1, 0}),
		},
		thread: []*store.Conversation{
			conversation("turn-2", "q2", "a2", []float32{0, 1}),
			conversation("turn-1", "q1", "a1", []float32{0, 1}),
		},
	}
	retriever := NewRetriever(st, &mockEmbedder{fallback: []float32{1, 0}}, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{
		Query:   "pressure",
		UserID:  1,
		ChatUID: "chat-1",
		TopK:    1,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "turn-2", entries[0].UID)
	assert.Zero(t, entries[0].Score)
	assert.Zero(t, entries[1].Score)
	assert.Equal(t, "similar", entries[2].UID)
}

func TestRetrieveContinuitySkipsAlreadyRanked(t *testing.T) {
	shared := conversation("shared", "q", "a", []float32{1, 0})
	st := &mockConversationStore{
		recent: []*store.Conversation{shared},
		thread: []*store.Conversation{shared},
	}
	retriever := NewRetriever(st, &mockEmbedder{fallback: []float32{1, 0}}, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{
		Query:   "pressure",
		UserID:  1,
		ChatUID: "chat-1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotZero(t, entries[0].Score)
}

func TestRetrieveEmptyHistory(t *testing.T) {
	retriever := NewRetriever(&mockConversationStore{}, &mockEmbedder{fallback: []float32{1, 0}}, &profile.Profile{MemoryWindow: 200})

	entries, err := retriever.Retrieve(context.Background(), &Request{Query: "pressure", UserID: 1})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
