package outbox

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// Event is a message written in the same transaction as the state change it
// describes and delivered later by the relay.
type Event struct {
	ID        int64
	EventID   string
	Topic     string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

// Writer appends events inside an open transaction.
type Writer interface {
	Append(ctx context.Context, e Event) error
}

type Repository interface {
	FetchPending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id int64) error
}
