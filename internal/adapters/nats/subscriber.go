package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/pkg/logging"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber creates a subscriber whose consumers are named after durable.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeTripEvents delivers events of eventType to handler. Messages are
// acked on success and redelivered up to three times on failure.
func (s *Subscriber) SubscribeTripEvents(ctx context.Context, eventType domain.TripEventType, handler func(ctx context.Context, event *domain.TripEvent) error) error {
	subject := SubjectFilter(eventType, "")
	durable := s.durable
	if eventType != "" {
		durable = fmt.Sprintf("%s-%s", s.durable, eventType)
	}

	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		var event domain.TripEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.FromContext(ctx).Warn("dropping malformed trip event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			logging.FromContext(ctx).Warn("trip event handler failed", "trip_id", event.TripID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
		nats.BindStream(TripStream),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
