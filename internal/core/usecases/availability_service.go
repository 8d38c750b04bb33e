package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/ports"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
	"github.com/samirrijal/tripdesk/internal/pkg/logging"
	"github.com/samirrijal/tripdesk/internal/pkg/metrics"
	"github.com/samirrijal/tripdesk/internal/pkg/telemetry"
)

const busyCacheTTL = 60

// AvailabilityService answers whether vehicles and drivers are free.
type AvailabilityService struct {
	busy  ports.BusyIntervalRepository
	cache ports.CacheService
}

// NewAvailabilityService creates a new AvailabilityService. cache may be nil.
func NewAvailabilityService(busy ports.BusyIntervalRepository, cache ports.CacheService) *AvailabilityService {
	return &AvailabilityService{busy: busy, cache: cache}
}

func busyKey(rt domain.ResourceType, id string) string {
	return fmt.Sprintf("busy:%s:%s", rt, id)
}

// BusyIntervals returns the windows the resource is committed to.
func (s *AvailabilityService) BusyIntervals(ctx context.Context, rt domain.ResourceType, id string) ([]domain.BusyInterval, error) {
	if !rt.Valid() {
		return nil, domain.ErrInvalidResource
	}
	if id == "" {
		return nil, domain.ErrMissingResourceID
	}

	cacheKey := busyKey(rt, id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var busy []domain.BusyInterval
			if err := json.Unmarshal(data, &busy); err == nil {
				metrics.CacheHits.WithLabelValues("busy_intervals").Inc()
				return busy, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("busy_intervals").Inc()
	}

	busy, err := s.busy.ListBusy(ctx, rt, id)
	if err != nil {
		return nil, fmt.Errorf("list busy %s %s: %w", rt, id, err)
	}
	if busy == nil {
		busy = []domain.BusyInterval{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(busy); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, busyCacheTTL)
		}
	}

	return busy, nil
}

// Check reports every booking of the vehicle or driver that overlaps candidate.
// Intervals belonging to excludeTripID are ignored so a trip never conflicts with itself.
func (s *AvailabilityService) Check(ctx context.Context, candidate tripcheck.Interval, vehicleID, driverID, excludeTripID string) (result tripcheck.ConflictResult, err error) {
	ctx, span := tracer.Start(ctx, "AvailabilityService.Check", trace.WithAttributes(
		telemetry.AttrTripID.String(excludeTripID),
	))
	defer func() { endSpan(span, err) }()

	if !candidate.End.After(candidate.Start) {
		return tripcheck.ConflictResult{}, domain.ErrInvalidSchedule
	}
	if vehicleID == "" && driverID == "" {
		return tripcheck.ConflictResult{}, domain.ErrMissingResourceID
	}

	var busy []domain.BusyInterval
	for _, r := range []struct {
		rt domain.ResourceType
		id string
	}{
		{domain.ResourceVehicle, vehicleID},
		{domain.ResourceDriver, driverID},
	} {
		if r.id == "" {
			continue
		}
		intervals, err := s.BusyIntervals(ctx, r.rt, r.id)
		if err != nil {
			return tripcheck.ConflictResult{}, err
		}
		for _, b := range intervals {
			if excludeTripID != "" && b.TripID == excludeTripID {
				continue
			}
			busy = append(busy, b)
		}
	}

	return tripcheck.FindConflict(candidate, busy), nil
}

// Invalidate drops cached busy intervals for the resources held by trips.
func (s *AvailabilityService) Invalidate(ctx context.Context, trips ...*domain.Trip) {
	if s.cache == nil {
		return
	}
	for _, t := range trips {
		if t == nil {
			continue
		}
		for _, key := range []string{
			busyKey(domain.ResourceVehicle, t.VehicleID),
			busyKey(domain.ResourceDriver, t.DriverID),
		} {
			if err := s.cache.Delete(ctx, key); err != nil {
				logging.FromContext(ctx).Warn("busy cache invalidation failed", "key", key, "error", err)
			}
		}
	}
}
