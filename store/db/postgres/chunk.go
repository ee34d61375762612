package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateKnowledgeChunk(ctx context.Context, create *store.KnowledgeChunk) (*store.KnowledgeChunk, error) {
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
		pgvector.NewVector(create.Embedding),
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
		where, args = append(where, "partition = "+placeholder(len(args)+1)), append(args, *find.Partition)
	}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if len(find.RestrictIDs) > 0 {
		where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.RestrictIDs))
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
		query += " LIMIT " + placeholder(len(args)+1)
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
		var vector pgvector.Vector
		if find.WithEmbeddings {
			dests = append(dests, &vector)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, errors.Wrap(err, "failed to scan knowledge chunk")
		}
		if find.WithEmbeddings {
			chunk.Embedding = vector.Slice()
		}
		list = append(list, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// ChunkVectorSearch performs approximate nearest-neighbor search with pgvector.
// The <=> operator computes cosine distance, so similarity is 1 - distance and
// ordering by distance ASC yields the most similar chunks first.
func (d *DB) ChunkVectorSearch(ctx context.Context, opts *store.ChunkVectorSearchOptions) ([]*store.KnowledgeChunkWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"partition = " + placeholder(1)}, []any{opts.Partition}
	if len(opts.RestrictIDs) > 0 {
		where = append(where, "id = ANY("+placeholder(len(args)+1)+")")
		args = append(args, pq.Array(opts.RestrictIDs))
	}

	vector := pgvector.NewVector(opts.Vector)
	scoreArg := placeholder(len(args) + 1)
	args = append(args, vector)
	orderArg := placeholder(len(args) + 1)
	args = append(args, vector)
	limitArg := placeholder(len(args) + 1)
	args = append(args, limit)

	query := `
		SELECT
			id, document_id, partition, chunk_text, filename, created_ts,
			1 - (embedding <=> ` + scoreArg + `) AS score
		FROM knowledge_chunk
		WHERE ` + strings.Join(where, " AND ") + `
			AND embedding IS NOT NULL
		ORDER BY embedding <=> ` + orderArg + `
		LIMIT ` + limitArg

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search knowledge chunks")
	}
	defer rows.Close()

	results := []*store.KnowledgeChunkWithScore{}
	for rows.Next() {
		var result store.KnowledgeChunkWithScore
		var chunk store.KnowledgeChunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Partition,
			&chunk.Text,
			&chunk.Filename,
			&chunk.CreatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		result.Chunk = &chunk
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ChunkTextSearch performs case-insensitive substring search, newest first.
func (d *DB) ChunkTextSearch(ctx context.Context, opts *store.ChunkTextSearchOptions) ([]*store.KnowledgeChunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"partition = " + placeholder(1)}, []any{opts.Partition}
	where = append(where, "chunk_text ILIKE "+placeholder(len(args)+1))
	args = append(args, "%"+opts.Query+"%")
	if len(opts.RestrictIDs) > 0 {
		where = append(where, "id = ANY("+placeholder(len(args)+1)+")")
		args = append(args, pq.Array(opts.RestrictIDs))
	}

	limitArg := placeholder(len(args) + 1)
	args = append(args, limit)

	query := `
		SELECT id, document_id, partition, chunk_text, filename, created_ts
		FROM knowledge_chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
		LIMIT ` + limitArg

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to text search knowledge chunks")
	}
	defer rows.Close()

	list := []*store.KnowledgeChunk{}
	for rows.Next() {
		var chunk store.KnowledgeChunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Partition,
			&chunk.Text,
			&chunk.Filename,
			&chunk.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan text search result")
		}
		list = append(list, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
