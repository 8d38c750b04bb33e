package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/tripdesk/internal/adapters/http"
	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// ---- Mock repositories ----

type mockTripRepo struct {
	createFn  func(ctx context.Context, trip *domain.Trip) error
	updateFn  func(ctx context.Context, trip *domain.Trip) error
	getByIDFn func(ctx context.Context, id string) (*domain.Trip, error)
	listFn    func(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	if m.createFn != nil {
		return m.createFn(ctx, trip)
	}
	return nil
}
func (m *mockTripRepo) Update(ctx context.Context, trip *domain.Trip) error {
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

type mockBusyRepo struct {
	listBusyFn func(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error)
}

func (m *mockBusyRepo) ListBusy(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
	if m.listBusyFn != nil {
		return m.listBusyFn(ctx, rt, id)
	}
	return nil, nil
}

// ---- Fixtures ----

var sched = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func storedTrip(status domain.TripStatus) *mockTripRepo {
	return &mockTripRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Trip, error) {
			if id != "trip-1" {
				return nil, domain.ErrTripNotFound
			}
			end := sched.Add(6 * time.Hour)
			return &domain.Trip{
				ID:        "trip-1",
				TripType:  domain.TripTypeCommercial,
				Status:    status,
				VehicleID: "veh-1",
				DriverID:  "drv-1",
				Start: domain.TripLeg{
					Point:  domain.GeoPoint{Name: "Bilbao depot", Coordinate: domain.Coordinate{Lon: -2.935, Lat: 43.263}},
					Status: domain.LegStatusPending,
				},
				Stops: []domain.TripLeg{{
					Point:  domain.GeoPoint{Name: "Vitoria", Coordinate: domain.Coordinate{Lon: -2.672, Lat: 42.846}},
					Status: domain.LegStatusPending,
				}},
				End: domain.TripLeg{
					Point:           domain.GeoPoint{Name: "Madrid hub", Coordinate: domain.Coordinate{Lon: -3.703, Lat: 40.416}},
					ExpectedArrival: &end,
					Status:          domain.LegStatusPending,
				},
				ScheduledStart: sched,
				ScheduledEnd:   end,
				DistanceKm:     100,
				DurationMin:    240,
				AmountPerKm:    10,
				VehicleRent:    500,
				IsTwoWay:       true,
				TotalAmount:    2500,
			}, nil
		},
	}
}

const tripBody = `{
	"trip_type": "commercial",
	"vehicle_id": "veh-1",
	"driver_id": "drv-1",
	"start": {"point": {"name": "Bilbao depot", "coordinate": {"lon": -2.935, "lat": 43.263}}},
	"stops": [{"point": {"name": "Vitoria", "coordinate": {"lon": -2.672, "lat": 42.846}}}],
	"end": {"point": {"name": "Madrid hub", "coordinate": {"lon": -3.703, "lat": 40.416}}},
	"scheduled_start": "2026-03-02T08:00:00Z",
	"scheduled_end": %q,
	"distance_km": 100,
	"duration_min": 240,
	"amount_per_km": 10,
	"vehicle_rent": 500,
	"is_two_way": true
}`

func tripJSON(scheduledEnd string) string {
	return fmt.Sprintf(tripBody, scheduledEnd)
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(trips *mockTripRepo, busy *mockBusyRepo) *handler.Dependencies {
	if trips == nil {
		trips = &mockTripRepo{}
	}
	if busy == nil {
		busy = &mockBusyRepo{}
	}
	availability := usecases.NewAvailabilityService(busy, nil)
	return &handler.Dependencies{
		Trips:        usecases.NewTripService(trips, availability, nil, nil, usecases.DefaultPolicy),
		Availability: availability,
		Quotes:       usecases.NewQuoteService(usecases.DefaultPolicy),
	}
}

func do(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

type apiError struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// ---- Trip CRUD ----

func TestCreateTrip_Success(t *testing.T) {
	var created *domain.Trip
	app := setupApp(makeDeps(&mockTripRepo{
		createFn: func(ctx context.Context, trip *domain.Trip) error {
			created = trip
			return nil
		},
	}, nil))

	resp := do(t, app, "POST", "/v1/trips", tripJSON("2026-03-02T14:00:00Z"))
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if created == nil {
		t.Fatal("trip was not persisted")
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/trips/"+created.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	var trip domain.Trip
	decode(t, resp, &trip)
	if trip.TotalAmount != 2500 {
		t.Errorf("expected total 2500, got %v", trip.TotalAmount)
	}
	if trip.Status != domain.TripStatusScheduled {
		t.Errorf("expected scheduled, got %s", trip.Status)
	}
}

func TestCreateTrip_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "POST", "/v1/trips", `{"trip_type":`)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var apiErr apiError
	decode(t, resp, &apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", apiErr.Code)
	}
}

func TestCreateTrip_InvalidInput(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := strings.Replace(tripJSON("2026-03-02T14:00:00Z"), `"amount_per_km": 10`, `"amount_per_km": -1`, 1)
	resp := do(t, app, "POST", "/v1/trips", body)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateTrip_WindowTooShort(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	// 240 min of driving plus one stop does not fit in 2 h.
	resp := do(t, app, "POST", "/v1/trips", tripJSON("2026-03-02T10:00:00Z"))
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var apiErr apiError
	decode(t, resp, &apiErr)
	var check struct {
		ShortfallMin float64 `json:"shortfall_min"`
	}
	if err := json.Unmarshal(apiErr.Details, &check); err != nil {
		t.Fatal(err)
	}
	if check.ShortfallMin != 150 {
		t.Errorf("expected shortfall 150, got %v", check.ShortfallMin)
	}
}

func TestCreateTrip_ScheduleConflict(t *testing.T) {
	app := setupApp(makeDeps(nil, &mockBusyRepo{
		listBusyFn: func(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
			if rt != domain.ResourceVehicle {
				return nil, nil
			}
			return []domain.BusyInterval{{
				ResourceType: rt, ResourceID: id, TripID: "other",
				Start: sched.Add(-time.Hour), End: sched.Add(time.Hour),
			}}, nil
		},
	}))

	resp := do(t, app, "POST", "/v1/trips", tripJSON("2026-03-02T14:00:00Z"))
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var apiErr apiError
	decode(t, resp, &apiErr)
	var result struct {
		Conflict bool                  `json:"conflict"`
		Matches  []domain.BusyInterval `json:"matches"`
	}
	if err := json.Unmarshal(apiErr.Details, &result); err != nil {
		t.Fatal(err)
	}
	if !result.Conflict || len(result.Matches) != 1 || result.Matches[0].TripID != "other" {
		t.Errorf("unexpected conflict details: %+v", result)
	}
}

func TestGetTrip_Success(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "GET", "/v1/trips/trip-1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	var trip domain.Trip
	decode(t, resp, &trip)
	if trip.ID != "trip-1" {
		t.Errorf("expected trip-1, got %s", trip.ID)
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "GET", "/v1/trips/missing", "")
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateTrip_NotEditable(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusInProgress), nil))

	resp := do(t, app, "PUT", "/v1/trips/trip-1", tripJSON("2026-03-02T14:00:00Z"))
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestDeleteTrip(t *testing.T) {
	tests := []struct {
		status domain.TripStatus
		want   int
	}{
		{domain.TripStatusScheduled, 204},
		{domain.TripStatusInProgress, 409},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			app := setupApp(makeDeps(storedTrip(tt.status), nil))
			resp := do(t, app, "DELETE", "/v1/trips/trip-1", "")
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestListTrips_Pagination(t *testing.T) {
	var got domain.TripFilter
	app := setupApp(makeDeps(&mockTripRepo{
		listFn: func(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
			got = filter
			return make([]domain.Trip, filter.Limit), nil
		},
	}, nil))

	resp := do(t, app, "GET", "/v1/trips?status=scheduled&vehicle_id=veh-1&offset=4&limit=2", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got.Status != domain.TripStatusScheduled || got.VehicleID != "veh-1" || got.Offset != 4 || got.Limit != 2 {
		t.Errorf("unexpected filter %+v", got)
	}

	var result struct {
		Data       []domain.Trip      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	decode(t, resp, &result)
	if len(result.Data) != 2 || !result.Pagination.HasMore {
		t.Errorf("unexpected page %+v", result.Pagination)
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link %q", rel, link)
		}
	}
	if !strings.Contains(link, "offset=6&limit=2") || !strings.Contains(link, "vehicle_id=veh-1") {
		t.Errorf("next link lost its filters: %s", link)
	}
}

func TestListTrips_UnknownStatus(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "GET", "/v1/trips?status=parked", "")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Lifecycle ----

type startResponse struct {
	Decision struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"decision"`
	Applied           bool `json:"applied"`
	NeedsConfirmation bool `json:"needs_confirmation"`
}

func startBody(now time.Time, confirmed bool) string {
	return fmt.Sprintf(`{"now": %q, "confirmed": %t}`, now.Format(time.RFC3339), confirmed)
}

func TestStartTrip_HardBlock(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/start", startBody(sched.Add(-200*time.Minute), true))
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var apiErr apiError
	decode(t, resp, &apiErr)
	if !strings.Contains(apiErr.Message, "3h 20m early") {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
	var res startResponse
	if err := json.Unmarshal(apiErr.Details, &res); err != nil {
		t.Fatal(err)
	}
	if res.Applied || res.Decision.Kind != "hard" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestStartTrip_SoftNeedsConfirmation(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/start", startBody(sched.Add(45*time.Minute), false))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res startResponse
	decode(t, resp, &res)
	if res.Applied || !res.NeedsConfirmation || res.Decision.Kind != "soft" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestStartTrip_SoftConfirmedByQuery(t *testing.T) {
	var updated *domain.Trip
	repo := storedTrip(domain.TripStatusScheduled)
	repo.updateFn = func(ctx context.Context, trip *domain.Trip) error {
		updated = trip
		return nil
	}
	app := setupApp(makeDeps(repo, nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/start?confirm=true", startBody(sched.Add(45*time.Minute), false))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res startResponse
	decode(t, resp, &res)
	if !res.Applied {
		t.Error("expected start to be applied")
	}
	if updated == nil || updated.Status != domain.TripStatusInProgress {
		t.Errorf("trip not moved in progress: %+v", updated)
	}
}

func TestStartTrip_InvalidTransition(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusCompleted), nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/start", startBody(sched, false))
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

type arrivalResponse struct {
	Mismatch          []string `json:"mismatch"`
	Applied           bool     `json:"applied"`
	NeedsConfirmation bool     `json:"needs_confirmation"`
}

func TestReachStop_BadIndex(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusInProgress), nil))

	tests := []struct {
		path string
		want int
	}{
		{"/v1/trips/trip-1/stops/first/reach", 400},
		{"/v1/trips/trip-1/stops/3/reach", 400},
	}
	for _, tt := range tests {
		resp := do(t, app, "POST", tt.path, "")
		if resp.StatusCode != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, resp.StatusCode)
		}
	}
}

func TestReachStop_OnSite(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusInProgress), nil))

	body := `{"coordinate": {"lon": -2.672, "lat": 42.846}, "time": "2026-03-02T09:30:00Z"}`
	resp := do(t, app, "POST", "/v1/trips/trip-1/stops/0/reach", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res arrivalResponse
	decode(t, resp, &res)
	if !res.Applied || len(res.Mismatch) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEndTrip_LocationMismatch(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusInProgress), nil))

	// Roughly 1.1 km north of the Madrid hub, on time.
	body := `{"coordinate": {"lon": -3.703, "lat": 40.426}, "time": "2026-03-02T14:00:00Z"}`
	resp := do(t, app, "POST", "/v1/trips/trip-1/end", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res arrivalResponse
	decode(t, resp, &res)
	if res.Applied || !res.NeedsConfirmation {
		t.Errorf("expected confirmation request, got %+v", res)
	}
	if len(res.Mismatch) != 1 || !strings.Contains(res.Mismatch[0], "destination") {
		t.Errorf("unexpected mismatch %v", res.Mismatch)
	}
}

func TestEndTrip_NotStarted(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/end", `{"confirmed": true}`)
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCancelTrip(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	resp := do(t, app, "POST", "/v1/trips/trip-1/cancel", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var trip domain.Trip
	decode(t, resp, &trip)
	if trip.Status != domain.TripStatusCancelled {
		t.Errorf("expected cancelled, got %s", trip.Status)
	}
}

// ---- Availability ----

func TestResourceBusy(t *testing.T) {
	app := setupApp(makeDeps(nil, &mockBusyRepo{
		listBusyFn: func(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
			return []domain.BusyInterval{{ResourceType: rt, ResourceID: id, Start: sched, End: sched.Add(time.Hour)}}, nil
		},
	}))

	resp := do(t, app, "GET", "/v1/availability/driver/drv-1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Busy []domain.BusyInterval `json:"busy"`
	}
	decode(t, resp, &result)
	if len(result.Busy) != 1 {
		t.Errorf("expected 1 interval, got %d", len(result.Busy))
	}

	resp = do(t, app, "GET", "/v1/availability/trailer/t-1", "")
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for unknown resource type, got %d", resp.StatusCode)
	}
}

func TestCheckAvailability_ConflictIsNotAnError(t *testing.T) {
	app := setupApp(makeDeps(nil, &mockBusyRepo{
		listBusyFn: func(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
			return []domain.BusyInterval{{ResourceType: rt, ResourceID: id, Start: sched, End: sched.Add(time.Hour), TripID: "t9"}}, nil
		},
	}))

	body := `{"start": "2026-03-02T08:30:00Z", "end": "2026-03-02T10:00:00Z", "vehicle_id": "veh-1"}`
	resp := do(t, app, "POST", "/v1/availability/check", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Conflict bool `json:"conflict"`
	}
	decode(t, resp, &result)
	if !result.Conflict {
		t.Error("expected conflict")
	}

	body = `{"start": "2026-03-02T08:30:00Z", "end": "2026-03-02T08:00:00Z", "vehicle_id": "veh-1"}`
	if resp := do(t, app, "POST", "/v1/availability/check", body); resp.StatusCode != 400 {
		t.Errorf("expected 400 for reversed window, got %d", resp.StatusCode)
	}
}

// ---- Quotes and checks ----

func TestPriceQuote(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "POST", "/v1/quotes/price", `{"distance_km": 100, "amount_per_km": 10, "vehicle_rent": 500, "is_two_way": true}`)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var q struct {
		BillableKm float64 `json:"billable_km"`
		Total      float64 `json:"total"`
	}
	decode(t, resp, &q)
	if q.BillableKm != 200 || q.Total != 2500 {
		t.Errorf("unexpected quote %+v", q)
	}

	resp = do(t, app, "POST", "/v1/quotes/price", `{"distance_km": -5, "amount_per_km": 10}`)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for negative distance, got %d", resp.StatusCode)
	}
}

func TestScheduleCheck(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"scheduled_start": "2026-03-02T08:00:00Z", "scheduled_end": "2026-03-02T10:30:00Z", "duration_min": 120, "stop_count": 2}`
	resp := do(t, app, "POST", "/v1/checks/schedule", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Check struct {
			OK           bool    `json:"ok"`
			ShortfallMin float64 `json:"shortfall_min"`
		} `json:"check"`
		RequiredFormatted string `json:"required_formatted"`
	}
	decode(t, resp, &result)
	if result.Check.OK || result.Check.ShortfallMin != 30 {
		t.Errorf("unexpected check %+v", result.Check)
	}
	if result.RequiredFormatted != "3 hr" {
		t.Errorf("expected 3 hr, got %q", result.RequiredFormatted)
	}
}

func TestStartCheck(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{"scheduled_start": "2026-03-02T08:00:00Z", "now": "2026-03-02T08:10:00Z"}`
	resp := do(t, app, "POST", "/v1/checks/start", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var d struct {
		Kind string `json:"kind"`
	}
	decode(t, resp, &d)
	if d.Kind != "ontime" {
		t.Errorf("expected ontime, got %s", d.Kind)
	}

	if resp := do(t, app, "POST", "/v1/checks/start", `{}`); resp.StatusCode != 400 {
		t.Errorf("expected 400 without scheduled_start, got %d", resp.StatusCode)
	}
}

func TestArrivalCheck(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	body := `{
		"expected": {"coordinate": {"lon": -2.935, "lat": 43.263}, "arrival_time": "2026-03-02T09:00:00Z"},
		"observed": {"coordinate": {"lon": -2.935, "lat": 43.263}, "time": "2026-03-02T10:10:00Z"}
	}`
	resp := do(t, app, "POST", "/v1/checks/arrival", body)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Mismatch          []string `json:"mismatch"`
		NeedsConfirmation bool     `json:"needs_confirmation"`
	}
	decode(t, resp, &result)
	if !result.NeedsConfirmation || len(result.Mismatch) != 1 || !strings.Contains(result.Mismatch[0], "1h 10m late") {
		t.Errorf("unexpected result %+v", result)
	}

	body = `{"expected": {"coordinate": {"lon": 0, "lat": 95}}, "observed": {}}`
	if resp := do(t, app, "POST", "/v1/checks/arrival", body); resp.StatusCode != 400 {
		t.Errorf("expected 400 for invalid latitude, got %d", resp.StatusCode)
	}
}

func TestFormatDuration(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "GET", "/v1/durations/format?minutes=1500", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Formatted string `json:"formatted"`
		Compact   string `json:"compact"`
	}
	decode(t, resp, &result)
	if result.Formatted != "1 day, 1 hr" || result.Compact != "1d 1h 0m" {
		t.Errorf("unexpected formatting %+v", result)
	}

	if resp := do(t, app, "GET", "/v1/durations/format", ""); resp.StatusCode != 400 {
		t.Errorf("expected 400 without minutes, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_QuoteAndDuration(t *testing.T) {
	app := setupApp(makeDeps(storedTrip(domain.TripStatusScheduled), nil))

	query := `{"query": "{ priceQuote(distance_km: 100, amount_per_km: 10, vehicle_rent: 500, is_two_way: true) { total } formatDuration(minutes: 60) trip(id: \"trip-1\") { id status duration_label } }"}`
	resp := do(t, app, "POST", "/graphql", query)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Data struct {
			PriceQuote struct {
				Total float64 `json:"total"`
			} `json:"priceQuote"`
			FormatDuration string `json:"formatDuration"`
			Trip           struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				DurationLabel string `json:"duration_label"`
			} `json:"trip"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp, &result)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors %v", result.Errors)
	}
	if result.Data.PriceQuote.Total != 2500 || result.Data.FormatDuration != "1 hr" {
		t.Errorf("unexpected data %+v", result.Data)
	}
	if result.Data.Trip.ID != "trip-1" || result.Data.Trip.Status != "scheduled" || result.Data.Trip.DurationLabel != "4 hr" {
		t.Errorf("unexpected trip %+v", result.Data.Trip)
	}
}

// ---- System endpoints and middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "GET", "/v1/health", "")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "GET", "/v1/ready", "")
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp := do(t, app, "GET", "/v1/durations/format?minutes=90", "")
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/durations/format?minutes=90", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
