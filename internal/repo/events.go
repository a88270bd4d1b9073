package repo

import "context"

type InsertDomainEventParams struct {
	Topic   string
	Payload []byte
}

const insertDomainEvent = `-- name: InsertDomainEvent :exec
INSERT INTO domain_events (topic, payload)
VALUES ($1, $2)
`

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) error {
	_, err := q.db.Exec(ctx, insertDomainEvent, arg.Topic, arg.Payload)
	return err
}

type ListDomainEventsParams struct {
	Topic  string
	Limit  int32
	Offset int32
}

const listDomainEvents = `-- name: ListDomainEvents :many
SELECT id, topic, payload, created_at
FROM domain_events
WHERE ($1::text = '' OR topic = $1)
ORDER BY id DESC
LIMIT $2 OFFSET $3
`

func (q *Queries) ListDomainEvents(ctx context.Context, arg ListDomainEventsParams) ([]DomainEvent, error) {
	rows, err := q.db.Query(ctx, listDomainEvents, arg.Topic, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DomainEvent
	for rows.Next() {
		var e DomainEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
