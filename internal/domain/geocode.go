package domain

import "context"

// Geocoder resolves coordinates to a human-readable address. An empty
// address with a nil error means the position resolved to nothing useful;
// callers leave the report's address blank in that case.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}
