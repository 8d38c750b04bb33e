package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

const (
	// TripStream captures every trip lifecycle event.
	TripStream = "TRIP_EVENTS"
	// TripSubjects matches all trip event subjects.
	TripSubjects = "fleet.trip.>"
)

// TripSubject is the subject an event is published on: fleet.trip.<type>.<trip id>.
func TripSubject(eventType domain.TripEventType, tripID string) string {
	return fmt.Sprintf("fleet.trip.%s.%s", eventType, tripID)
}

// SubjectFilter builds a subscription subject. Empty arguments match any
// event type or any trip.
func SubjectFilter(eventType domain.TripEventType, tripID string) string {
	switch {
	case eventType == "" && tripID == "":
		return TripSubjects
	case eventType == "":
		return "fleet.trip.*." + tripID
	case tripID == "":
		return fmt.Sprintf("fleet.trip.%s.>", eventType)
	}
	return TripSubject(eventType, tripID)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the trip event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      TripStream,
		Subjects:  []string{TripSubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, so try an update
		if _, err := js.UpdateStream(cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishTripEvent publishes event as JSON, deduplicated on type and trip ID
// within the stream's duplicate window.
func (p *Publisher) PublishTripEvent(ctx context.Context, event *domain.TripEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msgID := fmt.Sprintf("%s-%s-%d", event.TripID, event.Type, event.Time.UnixNano())
	_, err = p.js.Publish(TripSubject(event.Type, event.TripID), data, nats.Context(ctx), nats.MsgId(msgID))
	return err
}

// Conn exposes the underlying connection for core subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
