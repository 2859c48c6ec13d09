package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/elevro/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

// Decode unmarshals the message payload into v.
func (m *Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("elevro-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

// Ping reports whether the connection is currently up.
func (n *NATSEventBus) Ping(context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats: %s", n.conn.Status())
	}
	return nil
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func toMessage(msg *nats.Msg) *Message {
	now := time.Now()
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: now,
		ID:        fmt.Sprintf("%d", now.UnixNano()),
	}
}

// NopBus drops every event. Used when NATS is unreachable in development.
type NopBus struct{}

func (NopBus) Publish(context.Context, string, interface{}) error  { return nil }
func (NopBus) Subscribe(string, func(*Message)) error              { return nil }
func (NopBus) QueueSubscribe(string, string, func(*Message)) error { return nil }
func (NopBus) Close() error                                        { return nil }

const (
	BookingCreated       = "booking.created"
	BookingCanceled      = "booking.canceled"
	BookingReportUpdated = "booking.report.updated"
	SlotReserved         = "test.slot.reserved"
	SlotReleased         = "test.slot.released"
	PaymentIntentCreated = "payment.intent.created"
)

type BookingCreatedEvent struct {
	BookingID string    `json:"booking_id"`
	TestID    string    `json:"test_id"`
	Email     string    `json:"email"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingCanceledEvent struct {
	BookingID  string    `json:"booking_id"`
	TestID     string    `json:"test_id"`
	Email      string    `json:"email"`
	CanceledBy string    `json:"canceled_by"`
	CanceledAt time.Time `json:"canceled_at"`
}

type ReportUpdatedEvent struct {
	BookingID    string `json:"booking_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	TestName     string `json:"test_name"`
	ReportStatus string `json:"report_status"`
	ReportURL    string `json:"report_url"`
}

type SlotEvent struct {
	TestID string `json:"test_id"`
	Email  string `json:"email,omitempty"`
}

type PaymentIntentCreatedEvent struct {
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}
