// Package pipeline orchestrates one query from classification to persisted
// exchange. Stages run in a fixed order over a typed context; stage errors
// are recorded in the context rather than thrown, so a degraded stage never
// costs the caller the parts that did work.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"golang.org/x/sync/errgroup"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/ai/ambiguity"
	"github.com/mentora/mentora/ai/assembler"
	"github.com/mentora/mentora/ai/memory"
	"github.com/mentora/mentora/ai/metrics"
	"github.com/mentora/mentora/ai/retrieval"
	"github.com/mentora/mentora/ai/tagging"
	"github.com/mentora/mentora/store"
)

// failureAnswer is substituted when generation fails or returns nothing. The
// answer field is never left empty.
const failureAnswer = "I'm sorry, I couldn't put an answer together right now. Please try again in a moment."

const persistTimeout = 30 * time.Second

// maxChatTitleLen bounds the chat title derived from the first query.
const maxChatTitleLen = 100

// Request is one caller query.
type Request struct {
	Query               string
	UserID              int32
	CounterpartID       *int32
	Domain              string
	ChatUID             string
	ThreadKey           string
	PrevConversationUID string
	TopK                int
}

// EvidenceRef points at one piece of evidence that grounded the answer.
type EvidenceRef struct {
	Source      string  `json:"source"`
	Filename    string  `json:"filename,omitempty"`
	DocumentUID string  `json:"document_uid,omitempty"`
	Score       float64 `json:"score"`
}

// Response is the caller-facing envelope. It is always complete: errors are
// carried in the Error field, never thrown across this boundary.
type Response struct {
	Answer          string        `json:"answer"`
	AnswerHTML      string        `json:"answer_html"`
	Directive       string        `json:"directive"`
	Evidence        []EvidenceRef `json:"evidence"`
	ChatUID         *string       `json:"chat_uid"`
	ConversationUID *string       `json:"conversation_uid"`
	Error           *string       `json:"error"`
}

// KnowledgeRetriever searches the knowledge base partitions.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, req *retrieval.Request) (*retrieval.Result, error)
}

// MemoryRetriever searches the user's past exchanges.
type MemoryRetriever interface {
	Retrieve(ctx context.Context, req *memory.Request) ([]*memory.Entry, error)
}

// Tagger accepts best-effort classification tasks.
type Tagger interface {
	Enqueue(task tagging.Task) bool
}

// Store is the slice of the store the pipeline needs for persistence.
type Store interface {
	GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error)
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	GetChat(ctx context.Context, find *store.FindChat) (*store.Chat, error)
	CreateChat(ctx context.Context, create *store.Chat) (*store.Chat, error)
	AppendChatConversation(ctx context.Context, chatUID string, ref store.ChatConversationRef) (bool, error)
}

// Pipeline wires the stages together.
type Pipeline struct {
	store     Store
	knowledge KnowledgeRetriever
	memory    MemoryRetriever
	llm       ai.LLMService
	embedder  ai.EmbeddingService
	tagger    Tagger
	markdown  goldmark.Markdown
}

func New(st Store, knowledge KnowledgeRetriever, mem MemoryRetriever, llm ai.LLMService, embedder ai.EmbeddingService, tagger Tagger) *Pipeline {
	return &Pipeline{
		store:     st,
		knowledge: knowledge,
		memory:    mem,
		llm:       llm,
		embedder:  embedder,
		tagger:    tagger,
		markdown:  goldmark.New(),
	}
}

// pipelineContext is the typed per-request state threaded through the stages.
// The pipeline owns it exclusively for the request's lifetime.
type pipelineContext struct {
	req        *Request
	assessment ambiguity.Assessment
	kb         *retrieval.Result
	memory     []*memory.Entry
	lastTurn   *assembler.LastTurn
	prompt     *assembler.PromptContext
	answer     string
	chatUID    string
	convUID    string
	errs       []string
}

func (c *pipelineContext) recordError(stage string, err error) {
	slog.Warn("pipeline: stage degraded", "stage", stage, "error", err)
	metrics.StageErrors.WithLabelValues(stage).Inc()
	c.errs = append(c.errs, err.Error())
}

// Answer runs the full stage sequence for one query and always returns a
// complete envelope.
func (p *Pipeline) Answer(ctx context.Context, req *Request) *Response {
	if err := validate(req); err != nil {
		msg := err.Error()
		return &Response{
			Answer:    "I need a question to work with. Could you type one in?",
			Directive: string(ambiguity.DirectiveNormal),
			Evidence:  []EvidenceRef{},
			Error:     &msg,
		}
	}

	c := &pipelineContext{req: req}

	p.stageAmbiguity(c)
	p.stageRetrieve(ctx, c)
	p.stageAssemble(c)
	p.stageGenerate(ctx, c)
	p.stagePersist(ctx, c)
	p.stageTag(c)

	return p.envelope(c)
}

func validate(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return errors.New("query must not be empty")
	}
	if req.UserID <= 0 {
		return errors.New("user id must be a positive identifier")
	}
	return nil
}

func (p *Pipeline) stageAmbiguity(c *pipelineContext) {
	c.assessment = ambiguity.Classify(c.req.Query)
	slog.Debug("pipeline: query classified",
		"directive", c.assessment.Directive,
		"score", c.assessment.Score,
		"reasons", c.assessment.Reasons,
	)
}

// stageRetrieve forks knowledge base and memory search and joins both before
// the pipeline proceeds. Retrieval runs regardless of the directive; even a
// followup benefits from fresh context. Either branch failing degrades that
// branch to empty.
func (p *Pipeline) stageRetrieve(ctx context.Context, c *pipelineContext) {
	g, gctx := errgroup.WithContext(ctx)

	var kbErr, memErr, lastTurnErr error

	g.Go(func() error {
		result, err := p.knowledge.Retrieve(gctx, &retrieval.Request{
			Query:         c.req.Query,
			UserID:        c.req.UserID,
			CounterpartID: c.req.CounterpartID,
			TopK:          c.req.TopK,
		})
		if err != nil {
			kbErr = err
			return nil
		}
		c.kb = result
		return nil
	})

	g.Go(func() error {
		entries, err := p.memory.Retrieve(gctx, &memory.Request{
			Query:   c.req.Query,
			UserID:  c.req.UserID,
			Domain:  c.req.Domain,
			ChatUID: c.req.ChatUID,
		})
		if err != nil {
			memErr = err
		} else {
			c.memory = entries
		}

		if c.req.PrevConversationUID == "" {
			return nil
		}
		prev, err := p.store.GetConversation(gctx, &store.FindConversation{UID: &c.req.PrevConversationUID})
		if err != nil {
			lastTurnErr = err
			return nil
		}
		if prev != nil {
			c.lastTurn = &assembler.LastTurn{Query: prev.Query, Answer: prev.Answer}
		}
		return nil
	})

	// Branch failures are recorded after the join, never returned.
	_ = g.Wait()
	if kbErr != nil {
		c.recordError("retrieval", kbErr)
	}
	if memErr != nil {
		c.recordError("memory", memErr)
	}
	if lastTurnErr != nil {
		c.recordError("memory", lastTurnErr)
	}
}

func (p *Pipeline) stageAssemble(c *pipelineContext) {
	input := &assembler.Input{
		Query:       c.req.Query,
		Domain:      c.req.Domain,
		RequesterID: c.req.UserID,
		Memory:      c.memory,
		LastTurn:    c.lastTurn,
	}
	if c.kb != nil {
		input.KBChunks = c.kb.Chunks
	}
	c.prompt = assembler.Assemble(input)
}

// stageGenerate calls the LLM only for NORMAL queries. Followups get a
// synthesized continuation, ambiguous queries a clarification question keyed
// by the trigger reasons.
func (p *Pipeline) stageGenerate(ctx context.Context, c *pipelineContext) {
	switch c.assessment.Directive {
	case ambiguity.DirectiveFollowup:
		c.answer = assembler.Continuation(c.lastTurn)
		return
	case ambiguity.DirectiveAmbiguous:
		c.answer = assembler.Clarification(c.assessment.Reasons, c.req.Query)
		return
	}

	answer, err := p.llm.Complete(ctx, c.prompt.Prompt, c.req.Domain)
	if err != nil {
		c.recordError("generate", err)
		c.answer = failureAnswer
		return
	}
	if strings.TrimSpace(answer) == "" {
		c.recordError("generate", errors.New("empty answer from LLM"))
		c.answer = failureAnswer
		return
	}
	c.answer = answer
}

// stagePersist writes the exchange. It runs detached from the request
// context: once persistence starts it must finish even if the caller has
// gone away, so the conversation never lands without its chat linkage.
func (p *Pipeline) stagePersist(ctx context.Context, c *pipelineContext) {
	if c.answer == "" {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	now := time.Now().Unix()

	chatUID, err := p.resolveChat(persistCtx, c, now)
	if err != nil {
		c.recordError("persist", err)
		return
	}

	// The query+answer embedding is what makes memory self-bootstrapping.
	// Losing it degrades future recall, not this exchange.
	embedding, err := p.embedder.Embed(persistCtx, c.req.Query+" "+c.answer)
	if err != nil {
		slog.Warn("pipeline: conversation embedding failed", "error", err)
		embedding = nil
	}

	conversation, err := p.store.CreateConversation(persistCtx, &store.Conversation{
		UID:                 uuid.NewString(),
		UserID:              c.req.UserID,
		ChatUID:             chatUID,
		PrevConversationUID: c.req.PrevConversationUID,
		Query:               c.req.Query,
		Answer:              c.answer,
		Domain:              c.req.Domain,
		SourcesUsed:         c.sourceUIDs(),
		Embedding:           embedding,
		CreatedTs:           now,
		UpdatedTs:           now,
	})
	if err != nil {
		c.recordError("persist", err)
		return
	}

	if _, err := p.store.AppendChatConversation(persistCtx, chatUID, store.ChatConversationRef{
		ConversationUID:     conversation.UID,
		PrevConversationUID: c.req.PrevConversationUID,
		CreatedTs:           now,
	}); err != nil {
		c.recordError("persist", err)
		return
	}

	c.chatUID = chatUID
	c.convUID = conversation.UID
}

// resolveChat finds the thread to append to: by explicit UID, then by
// (user, thread_key), and finally by creating a new chat titled after the
// first query.
func (p *Pipeline) resolveChat(ctx context.Context, c *pipelineContext, now int64) (string, error) {
	if c.req.ChatUID != "" {
		chat, err := p.store.GetChat(ctx, &store.FindChat{UID: &c.req.ChatUID})
		if err != nil {
			return "", err
		}
		if chat == nil {
			return "", errors.New("chat not found: " + c.req.ChatUID)
		}
		return chat.UID, nil
	}

	if c.req.ThreadKey != "" {
		chat, err := p.store.GetChat(ctx, &store.FindChat{UserID: &c.req.UserID, ThreadKey: &c.req.ThreadKey})
		if err != nil {
			return "", err
		}
		if chat != nil {
			return chat.UID, nil
		}
	}

	chat, err := p.store.CreateChat(ctx, &store.Chat{
		UID:       uuid.NewString(),
		UserID:    c.req.UserID,
		StudentID: &c.req.UserID,
		TutorID:   c.req.CounterpartID,
		ThreadKey: c.req.ThreadKey,
		Title:     truncate(c.req.Query, maxChatTitleLen),
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return "", err
	}
	return chat.UID, nil
}

// stageTag hands the exchange to the tagging worker. Best-effort: it runs
// whenever an answer was produced, regardless of upstream degradation, and a
// full queue just drops the task.
func (p *Pipeline) stageTag(c *pipelineContext) {
	if p.tagger == nil || c.convUID == "" {
		return
	}
	p.tagger.Enqueue(tagging.Task{
		ConversationUID: c.convUID,
		UserID:          c.req.UserID,
		Query:           c.req.Query,
		Answer:          c.answer,
		Domain:          c.req.Domain,
	})
}

func (p *Pipeline) envelope(c *pipelineContext) *Response {
	resp := &Response{
		Answer:     c.answer,
		AnswerHTML: p.renderHTML(c.answer),
		Directive:  string(c.assessment.Directive),
		Evidence:   c.evidence(),
	}
	if c.chatUID != "" {
		resp.ChatUID = &c.chatUID
	}
	if c.convUID != "" {
		resp.ConversationUID = &c.convUID
	}
	if len(c.errs) > 0 {
		joined := strings.Join(c.errs, "; ")
		resp.Error = &joined
	}
	return resp
}

func (p *Pipeline) renderHTML(answer string) string {
	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(answer), &buf); err != nil {
		slog.Warn("pipeline: markdown rendering failed", "error", err)
		return ""
	}
	return buf.String()
}

func (c *pipelineContext) evidence() []EvidenceRef {
	refs := []EvidenceRef{}
	if c.kb != nil {
		for _, chunk := range c.kb.Chunks {
			refs = append(refs, EvidenceRef{
				Source:      chunk.Partition,
				Filename:    chunk.Filename,
				DocumentUID: chunk.DocumentUID,
				Score:       chunk.Score,
			})
		}
	}
	for _, entry := range c.memory {
		refs = append(refs, EvidenceRef{
			Source:      "conversation_memory",
			DocumentUID: entry.UID,
			Score:       float64(entry.Score),
		})
	}
	return refs
}

// sourceUIDs collects the distinct document uids behind the evidence chunks.
func (c *pipelineContext) sourceUIDs() []string {
	if c.kb == nil {
		return []string{}
	}
	seen := map[string]bool{}
	uids := []string{}
	for _, chunk := range c.kb.Chunks {
		if chunk.DocumentUID == "" || seen[chunk.DocumentUID] {
			continue
		}
		seen[chunk.DocumentUID] = true
		uids = append(uids, chunk.DocumentUID)
	}
	return uids
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
