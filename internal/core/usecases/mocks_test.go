package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// --- Mock TripRepository ---

type mockTripRepo struct {
	createFn  func(ctx context.Context, trip *domain.Trip) error
	updateFn  func(ctx context.Context, trip *domain.Trip) error
	getByIDFn func(ctx context.Context, id string) (*domain.Trip, error)
	listFn    func(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
	deleteFn  func(ctx context.Context, id string) error

	updates int
}

func (m *mockTripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	if m.createFn != nil {
		return m.createFn(ctx, trip)
	}
	return nil
}

func (m *mockTripRepo) Update(ctx context.Context, trip *domain.Trip) error {
	m.updates++
	if m.updateFn != nil {
		return m.updateFn(ctx, trip)
	}
	return nil
}

func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrTripNotFound
}

func (m *mockTripRepo) List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockTripRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// storedTrip returns a repo serving a copy of trip from GetByID.
func storedTrip(trip domain.Trip) *mockTripRepo {
	return &mockTripRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Trip, error) {
			if id != trip.ID {
				return nil, domain.ErrTripNotFound
			}
			t := trip
			t.Stops = append([]domain.TripLeg(nil), trip.Stops...)
			return &t, nil
		},
	}
}

// --- Mock BusyIntervalRepository ---

type mockBusyRepo struct {
	listBusyFn func(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error)

	mu    sync.Mutex
	calls int
}

func (m *mockBusyRepo) ListBusy(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.listBusyFn != nil {
		return m.listBusyFn(ctx, rt, id)
	}
	return nil, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	err    error
	events []domain.TripEvent
}

func (m *mockPublisher) PublishTripEvent(ctx context.Context, event *domain.TripEvent) error {
	m.events = append(m.events, *event)
	return m.err
}

func (m *mockPublisher) types() []domain.TripEventType {
	out := make([]domain.TripEventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Mock SettlementStarter ---

type mockSettlement struct {
	err     error
	started []string
}

func (m *mockSettlement) StartSettlement(ctx context.Context, tripID string) error {
	m.started = append(m.started, tripID)
	return m.err
}

// --- Fixtures ---

var sched = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func legInput(name string, lon, lat float64, arrival *time.Time) usecases.LegInput {
	return usecases.LegInput{
		Point:           domain.GeoPoint{Name: name, Coordinate: domain.Coordinate{Lon: lon, Lat: lat}},
		ExpectedArrival: arrival,
	}
}

// tripInput is a two-way Bilbao to Madrid run with one stop: 240 min of
// driving plus 30 min of dwell fits in its 6 h window.
func tripInput() usecases.TripInput {
	return usecases.TripInput{
		TripType:  domain.TripTypeCommercial,
		VehicleID: "veh-1",
		DriverID:  "drv-1",
		Start:     legInput("Bilbao depot", -2.935, 43.263, nil),
		Stops: []usecases.LegInput{
			legInput("Vitoria", -2.672, 42.846, timePtr(sched.Add(90*time.Minute))),
		},
		End:            legInput("Madrid hub", -3.703, 40.416, nil),
		ScheduledStart: sched,
		ScheduledEnd:   sched.Add(6 * time.Hour),
		DistanceKm:     100,
		DurationMin:    240,
		AmountPerKm:    10,
		VehicleRent:    500,
		IsTwoWay:       true,
	}
}

// bookedTrip is tripInput as stored in the given status.
func bookedTrip(status domain.TripStatus) domain.Trip {
	in := tripInput()
	leg := func(l usecases.LegInput) domain.TripLeg {
		return domain.TripLeg{Point: l.Point, ExpectedArrival: l.ExpectedArrival, Status: domain.LegStatusPending}
	}
	end := leg(in.End)
	end.ExpectedArrival = timePtr(in.ScheduledEnd)
	return domain.Trip{
		ID:             "trip-1",
		TripType:       in.TripType,
		Status:         status,
		VehicleID:      in.VehicleID,
		DriverID:       in.DriverID,
		Start:          leg(in.Start),
		Stops:          []domain.TripLeg{leg(in.Stops[0])},
		End:            end,
		ScheduledStart: in.ScheduledStart,
		ScheduledEnd:   in.ScheduledEnd,
		DistanceKm:     in.DistanceKm,
		DurationMin:    in.DurationMin,
		AmountPerKm:    in.AmountPerKm,
		VehicleRent:    in.VehicleRent,
		IsTwoWay:       in.IsTwoWay,
		TotalAmount:    2500,
	}
}

func timePtr(t time.Time) *time.Time { return &t }
