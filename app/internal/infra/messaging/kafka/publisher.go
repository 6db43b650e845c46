// Package kafka publishes outbox events to a Kafka topic.
package kafka

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"

	domoutbox "example.com/storefront/app/internal/domain/outbox"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w messageWriter
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher writes to topic. Messages are keyed by order reference, so the
// hash balancer keeps one order's events on one partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key),
		Value: e.Payload,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(e.EventID)},
			{Key: HeaderEventType, Value: []byte(e.Topic)},
		},
	})
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
