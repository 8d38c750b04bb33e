package domain

import (
	"fmt"

	"github.com/samirrijal/tripdesk/internal/pkg/geospatial"
)

// Coordinate is a WGS 84 position in degrees.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Validate checks that the coordinate lies inside the WGS 84 ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: got %f", ErrInvalidLatitude, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: got %f", ErrInvalidLongitude, c.Lon)
	}
	return nil
}

// DistanceKm returns the great-circle distance to other in kilometres.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	return geospatial.DistanceKm(c.Lat, c.Lon, other.Lat, other.Lon)
}

// GeoPoint is a named location attached to a trip leg.
type GeoPoint struct {
	Name       string     `json:"name"`
	Address    string     `json:"address,omitempty"`
	Coordinate Coordinate `json:"coordinate"`
}
