package store

import (
	"context"

	"github.com/mentora/mentora/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateDocument(ctx context.Context, create *Document) (*Document, error) {
	return s.driver.CreateDocument(ctx, create)
}

func (s *Store) ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error) {
	return s.driver.ListDocuments(ctx, find)
}

func (s *Store) CreateKnowledgeChunk(ctx context.Context, create *KnowledgeChunk) (*KnowledgeChunk, error) {
	return s.driver.CreateKnowledgeChunk(ctx, create)
}

func (s *Store) ListKnowledgeChunks(ctx context.Context, find *FindKnowledgeChunk) ([]*KnowledgeChunk, error) {
	return s.driver.ListKnowledgeChunks(ctx, find)
}

func (s *Store) ChunkVectorSearch(ctx context.Context, opts *ChunkVectorSearchOptions) ([]*KnowledgeChunkWithScore, error) {
	return s.driver.ChunkVectorSearch(ctx, opts)
}

func (s *Store) ChunkTextSearch(ctx context.Context, opts *ChunkTextSearchOptions) ([]*KnowledgeChunk, error) {
	return s.driver.ChunkTextSearch(ctx, opts)
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the single conversation matching find, or nil.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	find.Limit = 1
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) CreateChat(ctx context.Context, create *Chat) (*Chat, error) {
	return s.driver.CreateChat(ctx, create)
}

func (s *Store) GetChat(ctx context.Context, find *FindChat) (*Chat, error) {
	return s.driver.GetChat(ctx, find)
}

func (s *Store) AppendChatConversation(ctx context.Context, chatUID string, ref ChatConversationRef) (bool, error) {
	return s.driver.AppendChatConversation(ctx, chatUID, ref)
}

func (s *Store) CreateConceptTag(ctx context.Context, create *ConceptTag) (*ConceptTag, error) {
	return s.driver.CreateConceptTag(ctx, create)
}

func (s *Store) ListConceptTags(ctx context.Context, find *FindConceptTag) ([]*ConceptTag, error) {
	return s.driver.ListConceptTags(ctx, find)
}

func (s *Store) CreateUserLink(ctx context.Context, create *UserLink) (*UserLink, error) {
	return s.driver.CreateUserLink(ctx, create)
}

func (s *Store) ListUserLinks(ctx context.Context, find *FindUserLink) ([]*UserLink, error) {
	return s.driver.ListUserLinks(ctx, find)
}
