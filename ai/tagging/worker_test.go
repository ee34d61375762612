package tagging

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/store"
)

type mockTagStore struct {
	mu   sync.Mutex
	tags []*store.ConceptTag
	err  error
}

func (m *mockTagStore) CreateConceptTag(_ context.Context, create *store.ConceptTag) (*store.ConceptTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.tags = append(m.tags, create)
	return create, nil
}

func (m *mockTagStore) stored() []*store.ConceptTag {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags
}

type mockLLM struct {
	response string
	err      error
}

func (m *mockLLM) Complete(_ context.Context, _ string, _ string) (string, error) {
	return m.response, m.err
}

func TestWorkerTagsExchange(t *testing.T) {
	st := &mockTagStore{}
	llm := &mockLLM{response: "```json\n" + `{"subject":"Physics","chapter":"Mechanics","topic":"Pressure","micro_concept":"","interaction_type":"Conceptual Doubt"}` + "\n```"}

	worker := NewWorker(st, llm, 4)
	worker.Start()
	require.True(t, worker.Enqueue(Task{ConversationUID: "conv-1", UserID: 1, Query: "What is pressure?", Answer: "Force per unit area."}))
	worker.Shutdown()

	tags := st.stored()
	require.Len(t, tags, 1)
	assert.Equal(t, "conv-1", tags[0].ConversationUID)
	assert.Equal(t, "Physics", tags[0].Subject)
	assert.Equal(t, "Conceptual Doubt", tags[0].InteractionType)
}

func TestWorkerDefaultsForSparseClassification(t *testing.T) {
	st := &mockTagStore{}
	llm := &mockLLM{response: `{"subject":"","chapter":"","topic":"","micro_concept":"","interaction_type":""}`}

	worker := NewWorker(st, llm, 4)
	worker.Start()
	worker.Enqueue(Task{ConversationUID: "conv-1", UserID: 1, Query: "hi", Answer: "hello"})
	worker.Shutdown()

	tags := st.stored()
	require.Len(t, tags, 1)
	assert.Equal(t, "Unknown", tags[0].Subject)
	assert.Equal(t, "Casual", tags[0].InteractionType)
}

func TestWorkerFailureNeverPropagates(t *testing.T) {
	tests := []struct {
		name string
		st   *mockTagStore
		llm  *mockLLM
	}{
		{"llm error", &mockTagStore{}, &mockLLM{err: errors.New("provider down")}},
		{"malformed json", &mockTagStore{}, &mockLLM{response: "not json"}},
		{"store error", &mockTagStore{err: errors.New("insert failed")}, &mockLLM{response: `{"subject":"Physics"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := NewWorker(tt.st, tt.llm, 4)
			worker.Start()
			worker.Enqueue(Task{ConversationUID: "conv-1", UserID: 1, Query: "q", Answer: "a"})
			worker.Shutdown()
		})
	}
}

func TestWorkerQueueFullDropsWithoutBlocking(t *testing.T) {
	// Worker not started: the queue fills and further enqueues must return
	// immediately instead of blocking the response path.
	worker := NewWorker(&mockTagStore{}, &mockLLM{}, 1)

	assert.True(t, worker.Enqueue(Task{ConversationUID: "conv-1"}))
	assert.False(t, worker.Enqueue(Task{ConversationUID: "conv-2"}))
}
