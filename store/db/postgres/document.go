package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (uid, user_id, filename, partition, chunk_ids, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.Filename,
		create.Partition,
		pq.Array(create.ChunkIDs),
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if len(find.UserIDs) > 0 {
		where, args = append(where, "user_id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.UserIDs))
	}
	if find.Partition != nil {
		where, args = append(where, "partition = "+placeholder(len(args)+1)), append(args, *find.Partition)
	}

	query := `
		SELECT id, uid, user_id, filename, partition, chunk_ids, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
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
		var chunkIDs pq.Int64Array
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
		doc.ChunkIDs = chunkIDs
		list = append(list, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
