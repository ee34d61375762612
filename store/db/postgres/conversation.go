package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error) {
	comments, err := json.Marshal(create.Comments)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal comments")
	}
	if create.Comments == nil {
		comments = []byte("[]")
	}

	var embedding any
	if len(create.Embedding) > 0 {
		embedding = pgvector.NewVector(create.Embedding)
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
		pq.Array(create.SourcesUsed),
		comments,
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.ChatUID != nil {
		where, args = append(where, "chat_uid = "+placeholder(len(args)+1)), append(args, *find.ChatUID)
	}
	if find.Domain != nil {
		where, args = append(where, "domain = "+placeholder(len(args)+1)), append(args, *find.Domain)
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
		query += " LIMIT " + placeholder(len(args)+1)
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
	var sources pq.StringArray
	var comments []byte
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
	var vector pgvector.Vector
	if withEmbedding {
		dests = append(dests, &vector)
	}
	if err := row.Scan(dests...); err != nil {
		return nil, errors.Wrap(err, "failed to scan conversation")
	}
	conversation.SourcesUsed = sources
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &conversation.Comments); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal comments")
		}
	}
	if withEmbedding {
		conversation.Embedding = vector.Slice()
	}
	return &conversation, nil
}

func (d *DB) UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error) {
	set, args := []string{}, []any{}

	if update.FeedbackScore != nil {
		set, args = append(set, "feedback_score = "+placeholder(len(args)+1)), append(args, *update.FeedbackScore)
	}
	if update.AddComment != nil {
		comment, err := json.Marshal(update.AddComment)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal comment")
		}
		set = append(set, "comments = comments || "+placeholder(len(args)+1)+"::jsonb")
		args = append(args, comment)
	}
	updatedTs := time.Now().Unix()
	if update.UpdatedTs != nil {
		updatedTs = *update.UpdatedTs
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, updatedTs)

	uidArg := placeholder(len(args) + 1)
	args = append(args, update.UID)

	stmt := `
		UPDATE conversation
		SET ` + strings.Join(set, ", ") + `
		WHERE uid = ` + uidArg + `
		RETURNING id, uid, user_id, chat_uid, prev_conversation_uid, query, answer, domain, sources_used, comments, feedback_score, created_ts, updated_ts
	`

	conversation, err := scanConversation(d.db.QueryRowContext(ctx, stmt, args...), false)
	if err != nil {
		return nil, err
	}
	return conversation, nil
}
