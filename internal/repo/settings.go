package repo

import "context"

const getSetting = `-- name: GetSetting :one
SELECT key, value, updated_at
FROM settings
WHERE key = $1
`

func (q *Queries) GetSetting(ctx context.Context, key string) (Setting, error) {
	row := q.db.QueryRow(ctx, getSetting, key)
	var s Setting
	err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

type UpsertSettingParams struct {
	Key   string
	Value string
}

const upsertSetting = `-- name: UpsertSetting :one
INSERT INTO settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
RETURNING key, value, updated_at
`

func (q *Queries) UpsertSetting(ctx context.Context, arg UpsertSettingParams) (Setting, error) {
	row := q.db.QueryRow(ctx, upsertSetting, arg.Key, arg.Value)
	var s Setting
	err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

const listSettings = `-- name: ListSettings :many
SELECT key, value, updated_at
FROM settings
ORDER BY key
`

func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.Query(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
