package store

// Document represents an uploaded source document. Chunks extracted from the
// document live in the knowledge_chunk table and point back here; the
// document row is the unit of ownership used for access scoping.
type Document struct {
	UID       string
	Filename  string
	Partition string
	ChunkIDs  []int64 // knowledge chunk ids extracted from this document
	ID        int32
	UserID    int32
	CreatedTs int64
}

// FindDocument specifies the conditions for finding documents.
type FindDocument struct {
	ID        *int32
	UID       *string
	UserID    *int32
	UserIDs   []int32 // match any of these owners
	Partition *string
	Limit     int
}
