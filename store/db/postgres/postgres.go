package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	if err := pgDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema. The embedding column dimension is fixed at
// deployment time by the configured embedding model.
func (d *DB) Migrate(ctx context.Context) error {
	dims := d.profile.EmbeddingDimensions
	if dims <= 0 {
		dims = 1024
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS document (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			partition TEXT NOT NULL DEFAULT 'general',
			chunk_ids BIGINT[] NOT NULL DEFAULT '{}',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_user_id ON document (user_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge_chunk (
			id BIGSERIAL PRIMARY KEY,
			document_id INTEGER NOT NULL,
			partition TEXT NOT NULL,
			chunk_text TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			created_ts BIGINT NOT NULL
		)`, dims),
		`CREATE INDEX IF NOT EXISTS idx_knowledge_chunk_partition ON knowledge_chunk (partition)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversation (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			chat_uid TEXT NOT NULL DEFAULT '',
			prev_conversation_uid TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT 'general',
			sources_used TEXT[] NOT NULL DEFAULT '{}',
			comments JSONB NOT NULL DEFAULT '[]',
			embedding vector(%d),
			feedback_score INTEGER,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, dims),
		`CREATE INDEX IF NOT EXISTS idx_conversation_user_id ON conversation (user_id, created_ts DESC)`,
		`CREATE TABLE IF NOT EXISTS chat (
			id SERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			tutor_id INTEGER,
			student_id INTEGER,
			thread_key TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_thread_key ON chat (user_id, thread_key)`,
		`CREATE TABLE IF NOT EXISTS chat_conversation (
			chat_uid TEXT NOT NULL,
			conversation_uid TEXT NOT NULL,
			prev_conversation_uid TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			UNIQUE (chat_uid, conversation_uid)
		)`,
		`CREATE TABLE IF NOT EXISTS user_link (
			id SERIAL PRIMARY KEY,
			user_id INTEGER NOT NULL,
			counterpart_id INTEGER NOT NULL,
			relation TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			UNIQUE (user_id, counterpart_id)
		)`,
		`CREATE TABLE IF NOT EXISTS concept_tag (
			id BIGSERIAL PRIMARY KEY,
			conversation_uid TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			subject TEXT NOT NULL DEFAULT '',
			chapter TEXT NOT NULL DEFAULT '',
			topic TEXT NOT NULL DEFAULT '',
			micro_concept TEXT NOT NULL DEFAULT '',
			interaction_type TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
