package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateChat(ctx context.Context, create *store.Chat) (*store.Chat, error) {
	stmt := `
		INSERT INTO chat (uid, user_id, tutor_id, student_id, thread_key, title, created_ts, updated_ts)
		VALUES (` + placeholders(8) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.TutorID,
		create.StudentID,
		create.ThreadKey,
		create.Title,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create chat")
	}
	return create, nil
}

func (d *DB) GetChat(ctx context.Context, find *store.FindChat) (*store.Chat, error) {
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
	if find.ThreadKey != nil {
		where, args = append(where, "thread_key = "+placeholder(len(args)+1)), append(args, *find.ThreadKey)
	}

	query := `
		SELECT id, uid, user_id, tutor_id, student_id, thread_key, title, created_ts, updated_ts
		FROM chat
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC
		LIMIT 1
	`

	var chat store.Chat
	err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&chat.ID,
		&chat.UID,
		&chat.UserID,
		&chat.TutorID,
		&chat.StudentID,
		&chat.ThreadKey,
		&chat.Title,
		&chat.CreatedTs,
		&chat.UpdatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat")
	}

	refs, err := d.listChatConversations(ctx, chat.UID)
	if err != nil {
		return nil, err
	}
	chat.Conversations = refs

	return &chat, nil
}

func (d *DB) listChatConversations(ctx context.Context, chatUID string) ([]store.ChatConversationRef, error) {
	query := `
		SELECT conversation_uid, prev_conversation_uid, created_ts
		FROM chat_conversation
		WHERE chat_uid = ` + placeholder(1) + `
		ORDER BY created_ts ASC
	`
	rows, err := d.db.QueryContext(ctx, query, chatUID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat conversations")
	}
	defer rows.Close()

	refs := []store.ChatConversationRef{}
	for rows.Next() {
		var ref store.ChatConversationRef
		if err := rows.Scan(&ref.ConversationUID, &ref.PrevConversationUID, &ref.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat conversation ref")
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// AppendChatConversation links a conversation into a chat. ON CONFLICT DO
// NOTHING makes the append idempotent on (chat_uid, conversation_uid) so a
// retried request never links the same conversation twice.
func (d *DB) AppendChatConversation(ctx context.Context, chatUID string, ref store.ChatConversationRef) (bool, error) {
	stmt := `
		INSERT INTO chat_conversation (chat_uid, conversation_uid, prev_conversation_uid, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (chat_uid, conversation_uid) DO NOTHING
	`
	result, err := d.db.ExecContext(ctx, stmt, chatUID, ref.ConversationUID, ref.PrevConversationUID, ref.CreatedTs)
	if err != nil {
		return false, errors.Wrap(err, "failed to append chat conversation")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read rows affected")
	}
	if rows == 0 {
		return false, nil
	}

	bump := `UPDATE chat SET updated_ts = ` + placeholder(1) + ` WHERE uid = ` + placeholder(2)
	if _, err := d.db.ExecContext(ctx, bump, time.Now().Unix(), chatUID); err != nil {
		return true, errors.Wrap(err, "failed to bump chat updated_ts")
	}
	return true, nil
}
