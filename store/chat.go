package store

// Chat groups the conversations of one logical thread between a user and,
// optionally, a tutor counterpart. Created lazily on the first exchange of a
// thread; afterwards mutated only by appending conversation references and
// bumping UpdatedTs.
type Chat struct {
	UID           string
	Title         string
	ThreadKey     string
	Conversations []ChatConversationRef
	ID            int32
	UserID        int32
	TutorID       *int32
	StudentID     *int32
	CreatedTs     int64
	UpdatedTs     int64
}

// ChatConversationRef is one linked conversation inside a chat.
type ChatConversationRef struct {
	ConversationUID     string `json:"conversation_uid"`
	PrevConversationUID string `json:"prev_conversation_uid,omitempty"`
	CreatedTs           int64  `json:"created_ts"`
}

// FindChat looks up a chat either by identifier or by (user, thread key) for
// continuation across sessions when no identifier is supplied by the caller.
type FindChat struct {
	ID        *int32
	UID       *string
	UserID    *int32
	ThreadKey *string
	Limit     int
}
