package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/mentora/mentora/store"
)

func (d *DB) CreateUserLink(ctx context.Context, create *store.UserLink) (*store.UserLink, error) {
	stmt := `
		INSERT INTO user_link (user_id, counterpart_id, relation, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id, counterpart_id) DO UPDATE SET relation = excluded.relation
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.CounterpartID,
		create.Relation,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user link")
	}
	return create, nil
}

func (d *DB) ListUserLinks(ctx context.Context, find *store.FindUserLink) ([]*store.UserLink, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.CounterpartID != nil {
		where, args = append(where, "counterpart_id = ?"), append(args, *find.CounterpartID)
	}
	if find.Relation != nil {
		where, args = append(where, "relation = ?"), append(args, *find.Relation)
	}

	query := `
		SELECT id, user_id, counterpart_id, relation, created_ts
		FROM user_link
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user links")
	}
	defer rows.Close()

	list := []*store.UserLink{}
	for rows.Next() {
		var link store.UserLink
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.CounterpartID,
			&link.Relation,
			&link.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user link")
		}
		list = append(list, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
