// Command sendmail mails the shop inbox whenever an order is placed. It reads
// order.created events from the orders topic and delivers them over SMTP
// (Mailpit in development).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	eventTypeHeader  = "event_type"
	orderCreatedType = "order.created"
)

// orderCreated is the subset of the order.created payload the mail needs.
type orderCreated struct {
	OrderID    int64     `json:"order_id"`
	Reference  string    `json:"reference"`
	UserID     *int64    `json:"user_id,omitempty"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
	Lines      []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	} `json:"lines"`
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type notifier struct {
	smtpAddr string
	from     string
	to       []string
	send     sendFunc
	log      *zap.Logger
}

// handle mails one message. Messages of other event types are skipped.
func (n *notifier) handle(msg kafka.Message) error {
	if eventType(msg) != orderCreatedType {
		return nil
	}

	var ev orderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("decode order.created: %w", err)
	}
	body := renderMail(n.from, n.to, ev)
	if err := n.send(n.smtpAddr, nil, n.from, n.to, body); err != nil {
		return fmt.Errorf("send mail for %s: %w", ev.Reference, err)
	}
	n.log.Info("order mail sent", zap.String("reference", ev.Reference), zap.Int64("order_id", ev.OrderID))
	return nil
}

func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == eventTypeHeader {
			return string(h.Value)
		}
	}
	return ""
}

func renderMail(from string, to []string, ev orderCreated) []byte {
	customer := "guest"
	if ev.UserID != nil {
		customer = fmt.Sprintf("user #%d", *ev.UserID)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: New order %s\r\n", ev.Reference)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Order %s (#%d) placed by %s at %s.\r\n", ev.Reference, ev.OrderID, customer, ev.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total: %s %s\r\n", formatCents(ev.TotalCents), ev.Currency)
	b.WriteString("\r\n")
	for _, l := range ev.Lines {
		fmt.Fprintf(&b, "- product %d x %d\r\n", l.ProductID, l.Quantity)
	}
	return b.Bytes()
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// run commits each offset only after its mail went out, so a crash resends
// rather than drops.
func run(ctx context.Context, r *kafka.Reader, n *notifier) error {
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := n.handle(msg); err != nil {
			return err
		}
		if err := r.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func main() {
	os.Exit(start())
}

func start() int {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer log.Sync()

	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   getenv("KAFKA_TOPIC", "storefront.orders"),
		GroupID: getenv("KAFKA_GROUP", "storefront-sendmail"),
	})
	defer reader.Close()

	n := &notifier{
		smtpAddr: getenv("SMTP_ADDR", "localhost:2025"),
		from:     getenv("MAIL_FROM", "shop@example.com"),
		to:       []string{getenv("MAIL_TO", "orders@example.com")},
		send:     smtp.SendMail,
		log:      log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("waiting for orders", zap.Strings("brokers", brokers))
	if err := run(ctx, reader, n); err != nil {
		log.Error("sendmail stopped", zap.Error(err))
		return 1
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
