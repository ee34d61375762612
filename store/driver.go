package store

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotSupported is returned by drivers for search surfaces they do not
// implement (e.g. vector search on sqlite). The retrieval engine treats it as
// a failed tier and falls through to the next one.
var ErrNotSupported = errors.New("operation not supported by this driver")

// Driver is an interface for store driver.
// It contains all methods that interact with the underlying database.
type Driver interface {
	Close() error
	Migrate(ctx context.Context) error

	// Document
	CreateDocument(ctx context.Context, create *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)

	// KnowledgeChunk
	CreateKnowledgeChunk(ctx context.Context, create *KnowledgeChunk) (*KnowledgeChunk, error)
	ListKnowledgeChunks(ctx context.Context, find *FindKnowledgeChunk) ([]*KnowledgeChunk, error)
	ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*KnowledgeChunkWithScore, error)
	ChunkTextSearch(ctx context.Context, opts *ChunkTextSearchOptions) ([]*KnowledgeChunk, error)

	// Conversation
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)

	// Chat
	CreateChat(ctx context.Context, create *Chat) (*Chat, error)
	GetChat(ctx context.Context, find *FindChat) (*Chat, error)
	// AppendChatConversation links a conversation into a chat. The append is
	// idempotent on conversation uid; it reports whether a new link was made.
	AppendChatConversation(ctx context.Context, chatUID string, ref ChatConversationRef) (bool, error)

	// ConceptTag
	CreateConceptTag(ctx context.Context, create *ConceptTag) (*ConceptTag, error)
	ListConceptTags(ctx context.Context, find *FindConceptTag) ([]*ConceptTag, error)

	// UserLink
	CreateUserLink(ctx context.Context, create *UserLink) (*UserLink, error)
	ListUserLinks(ctx context.Context, find *FindUserLink) ([]*UserLink, error)
}
