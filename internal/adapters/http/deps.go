package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/tripdesk/internal/adapters/postgres"
	"github.com/samirrijal/tripdesk/internal/adapters/valkey"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Trips        *usecases.TripService
	Availability *usecases.AvailabilityService
	Quotes       *usecases.QuoteService
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}
