package repo

import "context"

type InsertAuditLogParams struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Detail   []byte
}

const insertAuditLog = `-- name: InsertAuditLog :exec
INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.Exec(ctx, insertAuditLog, arg.ActorID, arg.Action, arg.Entity, arg.EntityID, arg.Detail)
	return err
}

type ListAuditLogsParams struct {
	Entity string
	Limit  int32
	Offset int32
}

const listAuditLogs = `-- name: ListAuditLogs :many
SELECT id, actor_id, action, entity, entity_id, detail, created_at
FROM audit_logs
WHERE ($1::text = '' OR entity = $1)
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, arg.Entity, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.ActorID, &a.Action, &a.Entity, &a.EntityID, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
