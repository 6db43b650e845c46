package sqlstore

import (
	"context"
	"database/sql"
	"time"

	domoutbox "example.com/storefront/app/internal/domain/outbox"
)

type OutboxRepository struct {
	c   conn
	now func() time.Time
}

func (r *OutboxRepository) Append(ctx context.Context, e domoutbox.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	_, err := r.c.insert(ctx, `
        INSERT INTO outbox_events (event_id, topic, msg_key, payload, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, e.EventID, e.Topic, e.Key, string(e.Payload), e.CreatedAt)
	return wrap(err)
}

// FetchPending returns unsent events oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]domoutbox.Event, error) {
	rows, err := r.c.query(ctx, `
        SELECT id, event_id, topic, msg_key, payload, created_at
        FROM outbox_events
        WHERE sent_at IS NULL
        ORDER BY id
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var events []domoutbox.Event
	for rows.Next() {
		var (
			e       domoutbox.Event
			payload string
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.Topic, &e.Key, &payload, &e.CreatedAt); err != nil {
			return nil, wrap(err)
		}
		e.Payload = []byte(payload)
		events = append(events, e)
	}
	return events, wrap(rows.Err())
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.c.exec(ctx, `UPDATE outbox_events SET sent_at = ? WHERE id = ? AND sent_at IS NULL`,
		sql.NullTime{Time: r.now().UTC(), Valid: true}, id)
	return wrap(err)
}
