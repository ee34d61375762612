package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateConceptTag(ctx context.Context, create *store.ConceptTag) (*store.ConceptTag, error) {
	stmt := `
		INSERT INTO concept_tag (conversation_uid, user_id, subject, chapter, topic, micro_concept, interaction_type, created_ts)
		VALUES (` + placeholders(8) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.ConversationUID,
		create.UserID,
		create.Subject,
		create.Chapter,
		create.Topic,
		create.MicroConcept,
		create.InteractionType,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create concept tag")
	}
	return create, nil
}

func (d *DB) ListConceptTags(ctx context.Context, find *store.FindConceptTag) ([]*store.ConceptTag, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ConversationUID != nil {
		where, args = append(where, "conversation_uid = ?"), append(args, *find.ConversationUID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.Subject != nil {
		where, args = append(where, "subject = ?"), append(args, *find.Subject)
	}

	query := `
		SELECT id, conversation_uid, user_id, subject, chapter, topic, micro_concept, interaction_type, created_ts
		FROM concept_tag
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list concept tags")
	}
	defer rows.Close()

	list := []*store.ConceptTag{}
	for rows.Next() {
		var tag store.ConceptTag
		if err := rows.Scan(
			&tag.ID,
			&tag.ConversationUID,
			&tag.UserID,
			&tag.Subject,
			&tag.Chapter,
			&tag.Topic,
			&tag.MicroConcept,
			&tag.InteractionType,
			&tag.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan concept tag")
		}
		list = append(list, &tag)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
