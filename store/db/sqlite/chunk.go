package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateKnowledgeChunk(ctx context.Context, create *store.KnowledgeChunk) (*store.KnowledgeChunk, error) {
	var embedding any
	if len(create.Embedding) > 0 {
		bytes, err := json.Marshal(create.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal embedding")
		}
		embedding = string(bytes)
	}

	stmt := `
		INSERT INTO knowledge_chunk (document_id, partition, chunk_text, filename, embedding, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.DocumentID,
		create.Partition,
		create.Text,
		create.Filename,
		embedding,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create knowledge chunk")
	}
	return create, nil
}

func (d *DB) ListKnowledgeChunks(ctx context.Context, find *store.FindKnowledgeChunk) ([]*store.KnowledgeChunk, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.Partition != nil {
		where, args = append(where, "partition = ?"), append(args, *find.Partition)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = ?"), append(args, *find.DocumentID)
	}
	if len(find.RestrictIDs) > 0 {
		marks := make([]string, len(find.RestrictIDs))
		for i, id := range find.RestrictIDs {
			marks[i] = "?"
			args = append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(marks, ", ")+")")
	}

	fields := "id, document_id, partition, chunk_text, filename, created_ts"
	if find.WithEmbeddings {
		fields += ", embedding"
	}

	query := `
		SELECT ` + fields + `
		FROM knowledge_chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list knowledge chunks")
	}
	defer rows.Close()

	list := []*store.KnowledgeChunk{}
	for rows.Next() {
		var chunk store.KnowledgeChunk
		dests := []any{
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Partition,
			&chunk.Text,
			&chunk.Filename,
			&chunk.CreatedTs,
		}
		var embedding *string
		if find.WithEmbeddings {
			dests = append(dests, &embedding)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge chunk")
		}
		if embedding != nil {
			if err := json.Unmarshal([]byte(*embedding), &chunk.Embedding); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal embedding")
			}
		}
		list = append(list, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ChunkVectorSearch(_ context.Context, _ *store.ChunkVectorSearchOptions) ([]*store.KnowledgeChunkWithScore, error) {
	return nil, store.ErrNotSupported
}

func (d *DB) ChunkTextSearch(_ context.Context, _ *store.ChunkTextSearchOptions) ([]*store.KnowledgeChunk, error) {
	return nil, store.ErrNotSupported
}
