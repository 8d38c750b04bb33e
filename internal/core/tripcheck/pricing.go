package tripcheck

import "github.com/samirrijal/tripdesk/internal/core/domain"

// BillableDistanceKm doubles the route distance for two-way trips.
func BillableDistanceKm(distanceKm float64, isTwoWay bool) float64 {
	if isTwoWay {
		return distanceKm * 2
	}
	return distanceKm
}

// TotalPrice is the per-km charge over the billable distance plus the flat rent.
// Inputs must already have passed ValidatePricing.
func TotalPrice(distanceKm, amountPerKm, vehicleRent float64, isTwoWay bool) float64 {
	return amountPerKm*BillableDistanceKm(distanceKm, isTwoWay) + vehicleRent
}

// ValidatePricing rejects negative pricing inputs.
func ValidatePricing(distanceKm, amountPerKm, vehicleRent float64) error {
	switch {
	case distanceKm < 0:
		return domain.ErrNegativeDistance
	case amountPerKm < 0:
		return domain.ErrNegativeRate
	case vehicleRent < 0:
		return domain.ErrNegativeRent
	}
	return nil
}

// PriceQuote is the breakdown behind a total price.
type PriceQuote struct {
	DistanceKm     float64 `json:"distance_km"`
	BillableKm     float64 `json:"billable_km"`
	AmountPerKm    float64 `json:"amount_per_km"`
	DistanceAmount float64 `json:"distance_amount"`
	VehicleRent    float64 `json:"vehicle_rent"`
	IsTwoWay       bool    `json:"is_two_way"`
	Total          float64 `json:"total"`
}

// Quote validates the inputs and returns the price breakdown.
func Quote(distanceKm, amountPerKm, vehicleRent float64, isTwoWay bool) (PriceQuote, error) {
	if err := ValidatePricing(distanceKm, amountPerKm, vehicleRent); err != nil {
		return PriceQuote{}, err
	}
	billable := BillableDistanceKm(distanceKm, isTwoWay)
	return PriceQuote{
		DistanceKm:     distanceKm,
		BillableKm:     billable,
		AmountPerKm:    amountPerKm,
		DistanceAmount: amountPerKm * billable,
		VehicleRent:    vehicleRent,
		IsTwoWay:       isTwoWay,
		Total:          TotalPrice(distanceKm, amountPerKm, vehicleRent, isTwoWay),
	}, nil
}
