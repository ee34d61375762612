package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	chunkIDs, err := json.Marshal(create.ChunkIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chunk ids")
	}
	if create.ChunkIDs == nil {
		chunkIDs = []byte("[]")
	}

	stmt := `
		INSERT INTO document (uid, user_id, filename, partition, chunk_ids, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.Filename,
		create.Partition,
		string(chunkIDs),
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if len(find.UserIDs) > 0 {
		marks := make([]string, len(find.UserIDs))
		for i, id := range find.UserIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, "user_id IN ("+strings.Join(marks, ", ")+")")
	}
	if find.Partition != nil {
		where, args = append(where, "partition = ?"), append(args, *find.Partition)
	}

	query := `
		SELECT id, uid, user_id, filename, partition, chunk_ids, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var doc store.Document
		var chunkIDs string
		if err := rows.Scan(
			&doc.ID,
			&doc.UID,
			&doc.UserID,
			&doc.Filename,
			&doc.Partition,
			&chunkIDs,
			&doc.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		if err := json.Unmarshal([]byte(chunkIDs), &doc.ChunkIDs); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal chunk ids")
		}
		list = append(list, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
