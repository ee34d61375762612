package store

// UserLink ties a user to a counterpart (a student to their tutor or the
// other way around). Retrieval searches the documents of linked counterparts
// alongside the user's own.
type UserLink struct {
	ID            int32
	UserID        int32
	CounterpartID int32
	Relation      string // "tutor" or "student" from the user's point of view
	CreatedTs     int64
}

// FindUserLink specifies the conditions for finding user links.
type FindUserLink struct {
	UserID        *int32
	CounterpartID *int32
	Relation      *string
	Limit         int
}
