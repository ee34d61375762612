package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentora/mentora/ai/pipeline"
	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// fakeDriver backs the real store facade so handlers are exercised against
// the same call paths production uses.
type fakeDriver struct {
	chats         map[string]*store.Chat
	conversations map[string]*store.Conversation
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		chats:         map[string]*store.Chat{},
		conversations: map[string]*store.Conversation{},
	}
}

func (d *fakeDriver) Close() error                    { return nil }
func (d *fakeDriver) Migrate(_ context.Context) error { return nil }

func (d *fakeDriver) CreateDocument(_ context.Context, create *store.Document) (*store.Document, error) {
	return create, nil
}

func (d *fakeDriver) ListDocuments(_ context.Context, _ *store.FindDocument) ([]*store.Document, error) {
	return nil, nil
}

func (d *fakeDriver) CreateKnowledgeChunk(_ context.Context, create *store.KnowledgeChunk) (*store.KnowledgeChunk, error) {
	return create, nil
}

func (d *fakeDriver) ListKnowledgeChunks(_ context.Context, _ *store.FindKnowledgeChunk) ([]*store.KnowledgeChunk, error) {
	return nil, nil
}

func (d *fakeDriver) ChunkVectorSearch(_ context.Context, _ *store.ChunkVectorSearchOptions) ([]*store.KnowledgeChunkWithScore, error) {
	return nil, store.ErrNotSupported
}

func (d *fakeDriver) ChunkTextSearch(_ context.Context, _ *store.ChunkTextSearchOptions) ([]*store.KnowledgeChunk, error) {
	return nil, store.ErrNotSupported
}

func (d *fakeDriver) CreateConversation(_ context.Context, create *store.Conversation) (*store.Conversation, error) {
	d.conversations[create.UID] = create
	return create, nil
}

func (d *fakeDriver) ListConversations(_ context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	if find.UID != nil {
		if conversation, ok := d.conversations[*find.UID]; ok {
			return []*store.Conversation{conversation}, nil
		}
		return nil, nil
	}
	return nil, nil
}

func (d *fakeDriver) UpdateConversation(_ context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	conversation := d.conversations[update.UID]
	if update.FeedbackScore != nil {
		conversation.FeedbackScore = update.FeedbackScore
	}
	if update.AddComment != nil {
		conversation.Comments = append(conversation.Comments, *update.AddComment)
	}
	if update.UpdatedTs != nil {
		conversation.UpdatedTs = *update.UpdatedTs
	}
	return conversation, nil
}

func (d *fakeDriver) CreateChat(_ context.Context, create *store.Chat) (*store.Chat, error) {
	d.chats[create.UID] = create
	return create, nil
}

func (d *fakeDriver) GetChat(_ context.Context, find *store.FindChat) (*store.Chat, error) {
	if find.UID != nil {
		return d.chats[*find.UID], nil
	}
	return nil, nil
}

func (d *fakeDriver) AppendChatConversation(_ context.Context, chatUID string, ref store.ChatConversationRef) (bool, error) {
	chat := d.chats[chatUID]
	chat.Conversations = append(chat.Conversations, ref)
	return true, nil
}

func (d *fakeDriver) CreateConceptTag(_ context.Context, create *store.ConceptTag) (*store.ConceptTag, error) {
	return create, nil
}

func (d *fakeDriver) ListConceptTags(_ context.Context, _ *store.FindConceptTag) ([]*store.ConceptTag, error) {
	return nil, nil
}

func (d *fakeDriver) CreateUserLink(_ context.Context, create *store.UserLink) (*store.UserLink, error) {
	return create, nil
}

func (d *fakeDriver) ListUserLinks(_ context.Context, _ *store.FindUserLink) ([]*store.UserLink, error) {
	return nil, nil
}

type mockPipeline struct {
	received *pipeline.Request
	response *pipeline.Response
}

func (m *mockPipeline) Answer(_ context.Context, req *pipeline.Request) *pipeline.Response {
	m.received = req
	return m.response
}

func newTestService(driver *fakeDriver, pl QueryAnswerer) *APIV1Service {
	return NewAPIV1Service(&profile.Profile{Mode: "dev"}, store.New(driver, &profile.Profile{Mode: "dev"}), pl)
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, path, body string, params map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	return rec, handler(c)
}

func TestHandleQuery(t *testing.T) {
	chatUID := "chat-1"
	pl := &mockPipeline{response: &pipeline.Response{
		Answer:    "Force per unit area.",
		Directive: "NORMAL",
		Evidence:  []pipeline.EvidenceRef{},
		ChatUID:   &chatUID,
	}}
	s := newTestService(newFakeDriver(), pl)

	rec, err := doJSON(t, s.handleQuery, http.MethodPost, "/api/v1/query",
		`{"query":"What is pressure?","user_id":7,"domain":"physics","top_k":3}`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, pl.received)
	assert.Equal(t, "What is pressure?", pl.received.Query)
	assert.Equal(t, int32(7), pl.received.UserID)
	assert.Equal(t, "physics", pl.received.Domain)
	assert.Equal(t, 3, pl.received.TopK)

	var response pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Force per unit area.", response.Answer)
	require.NotNil(t, response.ChatUID)
	assert.Equal(t, "chat-1", *response.ChatUID)
}

func TestHandleQueryMalformedBody(t *testing.T) {
	pl := &mockPipeline{response: &pipeline.Response{}}
	s := newTestService(newFakeDriver(), pl)

	rec, err := doJSON(t, s.handleQuery, http.MethodPost, "/api/v1/query", `{"query":`, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code, "the query surface never errors at the HTTP level")

	var response pipeline.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotNil(t, response.Error)
	assert.Nil(t, pl.received, "a request that cannot be parsed never reaches the pipeline")
}

func TestHandleGetChat(t *testing.T) {
	driver := newFakeDriver()
	driver.chats["chat-1"] = &store.Chat{
		UID:   "chat-1",
		Title: "What is pressure?",
		Conversations: []store.ChatConversationRef{
			{ConversationUID: "conv-1"},
			{ConversationUID: "conv-gone"},
		},
	}
	driver.conversations["conv-1"] = &store.Conversation{
		UID:    "conv-1",
		Query:  "What is pressure?",
		Answer: "Force per unit area.",
	}
	s := newTestService(driver, &mockPipeline{})

	rec, err := doJSON(t, s.handleGetChat, http.MethodGet, "/api/v1/chats/chat-1", "", map[string]string{"uid": "chat-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var response chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "What is pressure?", response.Title)
	require.Len(t, response.Conversations, 1, "dangling references are skipped")
	assert.Equal(t, "conv-1", response.Conversations[0].UID)
}

func TestHandleGetChatNotFound(t *testing.T) {
	s := newTestService(newFakeDriver(), &mockPipeline{})

	_, err := doJSON(t, s.handleGetChat, http.MethodGet, "/api/v1/chats/missing", "", map[string]string{"uid": "missing"})
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestHandleFeedback(t *testing.T) {
	driver := newFakeDriver()
	driver.conversations["conv-1"] = &store.Conversation{UID: "conv-1", Query: "q", Answer: "a"}
	s := newTestService(driver, &mockPipeline{})

	rec, err := doJSON(t, s.handleFeedback, http.MethodPost, "/api/v1/conversations/conv-1/feedback",
		`{"score":1,"comment":"very clear","author":"tutor"}`, map[string]string{"uid": "conv-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	saved := driver.conversations["conv-1"]
	require.NotNil(t, saved.FeedbackScore)
	assert.Equal(t, int32(1), *saved.FeedbackScore)
	require.Len(t, saved.Comments, 1)
	assert.Equal(t, "tutor", saved.Comments[0].Author)
	assert.Equal(t, "very clear", saved.Comments[0].Text)
}

func TestHandleFeedbackValidation(t *testing.T) {
	driver := newFakeDriver()
	driver.conversations["conv-1"] = &store.Conversation{UID: "conv-1"}
	s := newTestService(driver, &mockPipeline{})

	t.Run("empty payload", func(t *testing.T) {
		_, err := doJSON(t, s.handleFeedback, http.MethodPost, "/api/v1/conversations/conv-1/feedback",
			`{}`, map[string]string{"uid": "conv-1"})
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := doJSON(t, s.handleFeedback, http.MethodPost, "/api/v1/conversations/missing/feedback",
			`{"comment":"hello"}`, map[string]string{"uid": "missing"})
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}
