package store

// Conversation is one persisted question/answer exchange. Immutable after
// creation except for the append-only comment list and the user-supplied
// feedback score.
type Conversation struct {
	UID                 string
	Query               string
	Answer              string
	Domain              string
	ChatUID             string
	PrevConversationUID string
	SourcesUsed         []string // document uids that grounded the answer
	Comments            []ConversationComment
	Embedding           []float32 // embedding of "query answer" for memory retrieval
	FeedbackScore       *int32
	ID                  int32
	UserID              int32
	CreatedTs           int64
	UpdatedTs           int64
}

// ConversationComment is one append-only comment on a conversation.
type ConversationComment struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedTs int64  `json:"created_ts"`
}

// ConversationWithScore bundles a conversation with a similarity score.
type ConversationWithScore struct {
	Conversation *Conversation
	Score        float32
}

// FindConversation specifies the conditions for finding conversations.
type FindConversation struct {
	ID             *int32
	UID            *string
	UserID         *int32
	ChatUID        *string
	Domain         *string
	AnsweredOnly   bool // exclude rows with an empty answer
	WithEmbeddings bool
	Limit          int
}

// UpdateConversation carries mutable fields: feedback score and appended
// comments. Everything else is immutable after creation.
type UpdateConversation struct {
	UID           string
	FeedbackScore *int32
	AddComment    *ConversationComment
	UpdatedTs     *int64
}
