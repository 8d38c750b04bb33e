package domain

import "time"

// ResourceType identifies what a busy interval blocks.
type ResourceType string

const (
	ResourceVehicle ResourceType = "vehicle"
	ResourceDriver  ResourceType = "driver"
)

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	return r == ResourceVehicle || r == ResourceDriver
}

// BusyInterval is a window during which a vehicle or driver is committed to a trip.
type BusyInterval struct {
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	TripID       string       `json:"trip_id"`
}
