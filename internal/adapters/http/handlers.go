package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// startRequest is the body of POST /v1/trips/:id/start. Now defaults to the
// server clock.
type startRequest struct {
	Now       *time.Time `json:"now,omitempty"`
	Confirmed bool       `json:"confirmed"`
}

// arrivalRequest is the body of the reach and end endpoints.
type arrivalRequest struct {
	Coordinate *domain.Coordinate `json:"coordinate,omitempty"`
	Time       *time.Time         `json:"time,omitempty"`
	Confirmed  bool               `json:"confirmed"`
}

func (r arrivalRequest) observed() tripcheck.Observed {
	obs := tripcheck.Observed{Coordinate: r.Coordinate}
	if r.Time != nil {
		obs.Time = *r.Time
	}
	return obs
}

// parseOptionalBody accepts an empty body as the zero value.
func parseOptionalBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

// ListTripsHandler returns trips filtered by status, vehicle or driver.
func ListTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := domain.TripStatus(c.Query("status"))
		switch status {
		case "", domain.TripStatusScheduled, domain.TripStatusInProgress,
			domain.TripStatusCompleted, domain.TripStatusCancelled:
		default:
			return errBadRequest(c, "unknown status: "+string(status))
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		trips, err := deps.Trips.List(c.UserContext(), domain.TripFilter{
			Status:    status,
			VehicleID: c.Query("vehicle_id"),
			DriverID:  c.Query("driver_id"),
			Offset:    offset,
			Limit:     limit,
		})
		if err != nil {
			return mapError(c, err)
		}
		if trips == nil {
			trips = []domain.Trip{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Count: len(trips), HasMore: len(trips) == limit}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: trips, Pagination: pg})
	}
}

// CreateTripHandler books a new trip.
func CreateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.TripInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		trip, err := deps.Trips.Create(c.UserContext(), in)
		if err != nil {
			return mapError(c, err)
		}

		c.Location("/v1/trips/" + trip.ID)
		return c.Status(fiber.StatusCreated).JSON(trip)
	}
}

// GetTripHandler returns a single trip.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trip, err := deps.Trips.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(trip)
	}
}

// UpdateTripHandler edits a scheduled trip.
func UpdateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.TripInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		trip, err := deps.Trips.Update(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(trip)
	}
}

// DeleteTripHandler removes a trip that is not in progress.
func DeleteTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Trips.Delete(c.UserContext(), c.Params("id")); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StartTripHandler runs the start gate. A hard block answers 409 with the
// decision; a soft block answers 200 with needs_confirmation set.
func StartTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		var now time.Time
		if req.Now != nil {
			now = *req.Now
		}

		res, err := deps.Trips.Start(c.UserContext(), c.Params("id"), now, req.Confirmed || c.QueryBool("confirm"))
		if err != nil {
			return mapError(c, err)
		}
		if res.Decision.Blocked() {
			return newErrorWithDetails(c, fiber.StatusConflict, "conflict", res.Decision.Message, res)
		}
		return c.JSON(res)
	}
}

// ReachStopHandler records arrival at an intermediate stop.
func ReachStopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return errBadRequest(c, "stop index must be an integer")
		}
		var req arrivalRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Trips.ReachStop(c.UserContext(), c.Params("id"), index, req.observed(), req.Confirmed || c.QueryBool("confirm"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(res)
	}
}

// EndTripHandler completes a trip at its destination.
func EndTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req arrivalRequest
		if err := parseOptionalBody(c, &req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Trips.End(c.UserContext(), c.Params("id"), req.observed(), req.Confirmed || c.QueryBool("confirm"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(res)
	}
}

// CancelTripHandler cancels a scheduled or running trip.
func CancelTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trip, err := deps.Trips.Cancel(c.UserContext(), c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(trip)
	}
}

// ResourceBusyHandler lists the busy intervals of a vehicle or driver.
func ResourceBusyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rt := domain.ResourceType(c.Params("resource_type"))
		busy, err := deps.Availability.BusyIntervals(c.UserContext(), rt, c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(fiber.Map{
			"resource_type": rt,
			"resource_id":   c.Params("id"),
			"busy":          busy,
		})
	}
}

type availabilityRequest struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	VehicleID     string    `json:"vehicle_id"`
	DriverID      string    `json:"driver_id"`
	ExcludeTripID string    `json:"exclude_trip_id"`
}

// CheckAvailabilityHandler reports whether a window collides with existing
// bookings. A conflict is a normal answer, not an error.
func CheckAvailabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req availabilityRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		res, err := deps.Availability.Check(c.UserContext(),
			tripcheck.Interval{Start: req.Start, End: req.End},
			req.VehicleID, req.DriverID, req.ExcludeTripID)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(res)
	}
}

type priceRequest struct {
	DistanceKm  float64 `json:"distance_km"`
	AmountPerKm float64 `json:"amount_per_km"`
	VehicleRent float64 `json:"vehicle_rent"`
	IsTwoWay    bool    `json:"is_two_way"`
}

// PriceQuoteHandler returns a price breakdown.
func PriceQuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req priceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		q, err := deps.Quotes.Price(req.DistanceKm, req.AmountPerKm, req.VehicleRent, req.IsTwoWay)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(q)
	}
}

type scheduleRequest struct {
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	DurationMin    float64   `json:"duration_min"`
	StopCount      int       `json:"stop_count"`
}

// ScheduleCheckHandler checks a scheduled window against the route duration.
func ScheduleCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req scheduleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		check, err := deps.Quotes.Schedule(req.ScheduledStart, req.ScheduledEnd, req.DurationMin, req.StopCount)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(fiber.Map{
			"check":              check,
			"required_formatted": deps.Quotes.FormatDuration(check.RequiredMin),
		})
	}
}

type startCheckRequest struct {
	ScheduledStart time.Time  `json:"scheduled_start"`
	Now            *time.Time `json:"now,omitempty"`
}

// StartCheckHandler previews the start gate for a scheduled start.
func StartCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req startCheckRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.ScheduledStart.IsZero() {
			return errBadRequest(c, "scheduled_start is required")
		}
		now := time.Now()
		if req.Now != nil {
			now = *req.Now
		}

		return c.JSON(deps.Quotes.StartPreview(req.ScheduledStart, now))
	}
}

type arrivalCheckRequest struct {
	Expected tripcheck.Expected `json:"expected"`
	Observed tripcheck.Observed `json:"observed"`
}

// ArrivalCheckHandler previews the arrival validator.
func ArrivalCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req arrivalCheckRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Observed.Time.IsZero() {
			req.Observed.Time = time.Now()
		}

		report, err := deps.Quotes.ArrivalPreview(req.Expected, req.Observed)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(fiber.Map{
			"mismatch":           report,
			"needs_confirmation": !report.Empty(),
		})
	}
}

// FormatDurationHandler renders ?minutes= for display.
func FormatDurationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("minutes") == "" {
			return errBadRequest(c, "minutes query parameter is required")
		}
		minutes := c.QueryFloat("minutes", 0)

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{
			"minutes":   minutes,
			"formatted": deps.Quotes.FormatDuration(minutes),
			"compact":   tripcheck.FormatCompact(minutes),
		})
	}
}
