package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	sources, err := json.Marshal(create.SourcesUsed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal sources")
	}
	if create.SourcesUsed == nil {
		sources = []byte("[]")
	}
	comments, err := json.Marshal(create.Comments)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal comments")
	}
	if create.Comments == nil {
		comments = []byte("[]")
	}

	var embedding any
	if len(create.Embedding) > 0 {
		bytes, err := json.Marshal(create.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal embedding")
		}
		embedding = string(bytes)
	}

	stmt := `
		INSERT INTO conversation (
			uid, user_id, chat_uid, prev_conversation_uid, query, answer, domain,
			sources_used, comments, embedding, feedback_score, created_ts, updated_ts
		)
		VALUES (` + placeholders(13) + `)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.ChatUID,
		create.PrevConversationUID,
		create.Query,
		create.Answer,
		create.Domain,
		string(sources),
		string(comments),
		embedding,
		create.FeedbackScore,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create conversation")
	}
	return create, nil
}

func (d *DB) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
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
	if find.ChatUID != nil {
		where, args = append(where, "chat_uid = ?"), append(args, *find.ChatUID)
	}
	if find.Domain != nil {
		where, args = append(where, "domain = ?"), append(args, *find.Domain)
	}
	if find.AnsweredOnly {
		where = append(where, "answer != ''")
	}

	fields := "id, uid, user_id, chat_uid, prev_conversation_uid, query, answer, domain, sources_used, comments, feedback_score, created_ts, updated_ts"
	if find.WithEmbeddings {
		fields += ", embedding"
	}

	query := `
		SELECT ` + fields + `
		FROM conversation
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	list := []*store.Conversation{}
	for rows.Next() {
		conversation, err := scanConversation(rows, find.WithEmbeddings)
		if err != nil {
			return nil, err
		}
		list = append(list, conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner, withEmbedding bool) (*store.Conversation, error) {
	var conversation store.Conversation
	var sources, comments string
	dests := []any{
		&conversation.ID,
		&conversation.UID,
		&conversation.UserID,
		&conversation.ChatUID,
		&conversation.PrevConversationUID,
		&conversation.Query,
		&conversation.Answer,
		&conversation.Domain,
		&sources,
		&comments,
		&conversation.FeedbackScore,
		&conversation.CreatedTs,
		&conversation.UpdatedTs,
	}
	var embedding *string
	if withEmbedding {
		dests = append(dests, &embedding)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, errors.Wrap(err, "failed to scan conversation")
	}
	if err := json.Unmarshal([]byte(sources), &conversation.SourcesUsed); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal sources")
	}
	if err := json.Unmarshal([]byte(comments), &conversation.Comments); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal comments")
	}
	if embedding != nil {
		if err := json.Unmarshal([]byte(*embedding), &conversation.Embedding); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal embedding")
		}
	}
	return &conversation, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.FeedbackScore != nil {
		set, args = append(set, "feedback_score = ?"), append(args, *update.FeedbackScore)
	}
	if update.AddComment != nil {
		comment, err := json.Marshal(update.AddComment)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal comment")
		}
		// json_insert appends at the end of the array.
		set = append(set, "comments = json_insert(comments, '$[#]', json(?))")
		args = append(args, string(comment))
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = ?"), append(args, updatedTs)
	args = append(args, update.UID)

	stmt := `
		UPDATE conversation
		SET ` + strings.Join(set, ", ") + `
		WHERE uid = ?
		RETURNING id, uid, user_id, chat_uid, prev_conversation_uid, query, answer, domain, sources_used, comments, feedback_score, created_ts, updated_ts
	`

	conversation, err := scanConversation(d.db.QueryRowContext(ctx, stmt, args...), false)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}
