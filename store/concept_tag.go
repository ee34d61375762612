package store

// ConceptTag classifies one exchange into the subject/topic taxonomy plus an
// interaction-type label. Produced by the asynchronous tagger after the
// response has already been returned; its absence never affects a response.
type ConceptTag struct {
	ConversationUID string
	Subject         string
	Chapter         string
	Topic           string
	MicroConcept    string
	InteractionType string
	ID              int64
	UserID          int32
	CreatedTs       int64
}

// FindConceptTag specifies the conditions for listing concept tags.
type FindConceptTag struct {
	ConversationUID *string
	UserID          *int32
	Subject         *string
	Limit           int
}
