package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/mentora/mentora/internal/profile"
	"github.com/mentora/mentora/store"
)

// SQLite is kept for local development only. It stores embeddings as JSON
// text and implements no indexed search surfaces; vector and text search
// return store.ErrNotSupported, which forces the retrieval engine onto the
// in-process scan tier. Do not run it in production.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL keeps reads usable while the tagging worker writes.
	dsn := profile.DSN + "?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS document (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			partition TEXT NOT NULL DEFAULT 'general',
			chunk_ids TEXT NOT NULL DEFAULT '[]',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS knowledge_chunk (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL,
			partition TEXT NOT NULL,
			chunk_text TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			embedding TEXT,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			chat_uid TEXT NOT NULL DEFAULT '',
			prev_conversation_uid TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT 'general',
			sources_used TEXT NOT NULL DEFAULT '[]',
			comments TEXT NOT NULL DEFAULT '[]',
			embedding TEXT,
			feedback_score INTEGER,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			tutor_id INTEGER,
			student_id INTEGER,
			thread_key TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_conversation (
			chat_uid TEXT NOT NULL,
			conversation_uid TEXT NOT NULL,
			prev_conversation_uid TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			UNIQUE (chat_uid, conversation_uid)
		)`,
		`CREATE TABLE IF NOT EXISTS user_link (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			counterpart_id INTEGER NOT NULL,
			relation TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL,
			UNIQUE (user_id, counterpart_id)
		)`,
		`CREATE TABLE IF NOT EXISTS concept_tag (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
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

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}
