package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/tripdesk/internal/adapters/nats"
	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/pkg/metrics"
)

// wsMessage is sent by dashboards to narrow or widen the event feed.
type wsMessage struct {
	Action string `json:"action"`  // "subscribe" | "unsubscribe"
	Event  string `json:"event"`   // trip event type, "" = all
	TripID string `json:"trip_id"` // "" = all trips
}

var wsEventTypes = map[domain.TripEventType]bool{
	domain.TripEventCreated:     true,
	domain.TripEventUpdated:     true,
	domain.TripEventStarted:     true,
	domain.TripEventStopReached: true,
	domain.TripEventEnded:       true,
	domain.TripEventCancelled:   true,
	domain.TripEventSettled:     true,
}

// unsubscriber is the part of *nats.Subscription a client feed needs.
type unsubscriber interface {
	Unsubscribe() error
}

// subscriptionSet tracks one client's NATS subscriptions. A client starts on
// the catch-all trip feed; its first explicit subscribe replaces that feed so
// events are never delivered twice.
type subscriptionSet struct {
	subscribe func(subject string) (unsubscriber, error)
	subs      map[string]unsubscriber
	implicit  string
}

func newSubscriptionSet(subscribe func(subject string) (unsubscriber, error)) *subscriptionSet {
	return &subscriptionSet{subscribe: subscribe, subs: make(map[string]unsubscriber)}
}

// start opens the catch-all feed.
func (s *subscriptionSet) start() error {
	sub, err := s.subscribe(natsadapter.TripSubjects)
	if err != nil {
		return err
	}
	s.subs[natsadapter.TripSubjects] = sub
	s.implicit = natsadapter.TripSubjects
	return nil
}

// add subscribes to subject. It reports false when the subject was already
// requested by the client.
func (s *subscriptionSet) add(subject string) (bool, error) {
	if subject == s.implicit {
		s.implicit = ""
		return true, nil
	}
	if _, exists := s.subs[subject]; exists {
		return false, nil
	}
	sub, err := s.subscribe(subject)
	if err != nil {
		return false, err
	}
	s.subs[subject] = sub
	if s.implicit != "" {
		_ = s.subs[s.implicit].Unsubscribe()
		delete(s.subs, s.implicit)
		s.implicit = ""
	}
	return true, nil
}

// remove drops subject. It reports false when the client is not subscribed.
func (s *subscriptionSet) remove(subject string) bool {
	sub, exists := s.subs[subject]
	if !exists {
		return false
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	if subject == s.implicit {
		s.implicit = ""
	}
	return true
}

func (s *subscriptionSet) subjects() []string {
	out := make([]string, 0, len(s.subs))
	for subject := range s.subs {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

func (s *subscriptionSet) close() {
	for subject, sub := range s.subs {
		_ = sub.Unsubscribe()
		delete(s.subs, subject)
	}
	s.implicit = ""
}

// WebSocketHandler relays trip lifecycle events from NATS to dispatch
// dashboards. A new connection receives every trip event until the client
// sends {"action":"subscribe","event":"started","trip_id":"..."}, which
// narrows the feed to the requested filters.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newSubscriptionSet(func(subject string) (unsubscriber, error) {
			return nc.Subscribe(subject, relay)
		})
		if err := subs.start(); err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}
		defer subs.close()

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			event := domain.TripEventType(m.Event)
			if event != "" && !wsEventTypes[event] {
				_ = writeJSON(map[string]string{"error": "unknown event: " + m.Event})
				continue
			}
			subject := natsadapter.SubjectFilter(event, m.TripID)

			switch m.Action {
			case "subscribe":
				added, err := subs.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				status := "subscribed"
				if !added {
					status = "already subscribed"
				}
				_ = writeJSON(map[string]any{"status": status, "subject": subject, "subjects": subs.subjects()})

			case "unsubscribe":
				if !subs.remove(subject) {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = writeJSON(map[string]any{"status": "unsubscribed", "subject": subject, "subjects": subs.subjects()})

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		log.Info("ws client disconnected")
	}
}
