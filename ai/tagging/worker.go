// Package tagging classifies completed exchanges against a subject/topic
// taxonomy, off the response path. Tasks go through a bounded queue so that
// failures, backlog, and shutdown draining stay observable.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mentora/mentora/ai"
	"github.com/mentora/mentora/ai/metrics"
	"github.com/mentora/mentora/store"
)

const taskTimeout = 60 * time.Second

// Task is one exchange to classify.
type Task struct {
	ConversationUID string
	Query           string
	Answer          string
	Domain          string
	UserID          int32
}

// ConceptTagStore is the slice of the store the worker needs.
type ConceptTagStore interface {
	CreateConceptTag(ctx context.Context, create *store.ConceptTag) (*store.ConceptTag, error)
}

// Worker consumes tagging tasks from a bounded queue. Enqueue never blocks;
// when the queue is full the task is dropped and counted.
type Worker struct {
	store ConceptTagStore
	llm   ai.LLMService
	tasks chan Task
	wg    sync.WaitGroup
}

func NewWorker(st ConceptTagStore, llm ai.LLMService, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Worker{
		store: st,
		llm:   llm,
		tasks: make(chan Task, queueSize),
	}
}

// Start launches the consumer goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for task := range w.tasks {
			w.process(task)
		}
	}()
}

// Enqueue hands a task to the worker without blocking the caller.
// It reports whether the task was accepted.
func (w *Worker) Enqueue(task Task) bool {
	select {
	case w.tasks <- task:
		metrics.TagsEnqueued.Inc()
		return true
	default:
		slog.Warn("tagging: queue full, dropping task", "conversation", task.ConversationUID)
		metrics.TagsDropped.Inc()
		return false
	}
}

// Shutdown stops accepting tasks and drains the queue.
func (w *Worker) Shutdown() {
	close(w.tasks)
	w.wg.Wait()
}

// classification mirrors the JSON shape the prompt requests.
type classification struct {
	Subject         string `json:"subject"`
	Chapter         string `json:"chapter"`
	Topic           string `json:"topic"`
	MicroConcept    string `json:"micro_concept"`
	InteractionType string `json:"interaction_type"`
}

const classifyPrompt = `You are an expert educational classifier.
Map the exchange below to a syllabus position.

Question: %q
Answer: %q

Classify into:
- Subject
- Chapter
- Topic
- Micro-Concept (if applicable)

Also determine the Interaction Type:
- "Conceptual Doubt" (understanding concepts, "What is...", "Explain...")
- "Numerical Problem" (solving equations, finding values)
- "Strategy Question" (how to study, exam prep)
- "Casual" (greetings, non-academic)

Return ONLY a JSON object with keys: "subject", "chapter", "topic", "micro_concept", "interaction_type".
If a category is not applicable, use an empty string.`

// process runs detached from any request context: the response was already
// sent when the task was enqueued.
func (w *Worker) process(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	result, err := w.classify(ctx, task)
	if err != nil {
		slog.Warn("tagging: classification failed", "conversation", task.ConversationUID, "error", err)
		metrics.TagsFailed.Inc()
		return
	}

	if result.Subject == "" {
		result.Subject = "Unknown"
	}
	if result.InteractionType == "" {
		result.InteractionType = "Casual"
	}

	_, err = w.store.CreateConceptTag(ctx, &store.ConceptTag{
		ConversationUID: task.ConversationUID,
		UserID:          task.UserID,
		Subject:         result.Subject,
		Chapter:         result.Chapter,
		Topic:           result.Topic,
		MicroConcept:    result.MicroConcept,
		InteractionType: result.InteractionType,
		CreatedTs:       time.Now().Unix(),
	})
	if err != nil {
		slog.Warn("tagging: failed to store concept tag", "conversation", task.ConversationUID, "error", err)
		metrics.TagsFailed.Inc()
		return
	}

	metrics.TagsCompleted.Inc()
	slog.Debug("tagging: concept tag stored", "conversation", task.ConversationUID, "subject", result.Subject)
}

func (w *Worker) classify(ctx context.Context, task Task) (*classification, error) {
	response, err := w.llm.Complete(ctx, fmt.Sprintf(classifyPrompt, task.Query, task.Answer), task.Domain)
	if err != nil {
		return nil, err
	}

	// Models tend to wrap JSON in markdown fences.
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var result classification
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return &result, nil
}
