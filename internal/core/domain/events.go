package domain

import "time"

// TripEventType names a lifecycle event published for a trip.
type TripEventType string

const (
	TripEventCreated     TripEventType = "created"
	TripEventUpdated     TripEventType = "updated"
	TripEventStarted     TripEventType = "started"
	TripEventStopReached TripEventType = "stop_reached"
	TripEventEnded       TripEventType = "ended"
	TripEventCancelled   TripEventType = "cancelled"
	TripEventSettled     TripEventType = "settled"
)

// TripEvent is broadcast to dispatch dashboards and downstream workers.
type TripEvent struct {
	Type      TripEventType `json:"type"`
	TripID    string        `json:"trip_id"`
	Status    TripStatus    `json:"status"`
	StopIndex *int          `json:"stop_index,omitempty"`
	Mismatch  []string      `json:"mismatch,omitempty"`
	Amount    float64       `json:"amount,omitempty"`
	Time      time.Time     `json:"time"`
}
