package ports

import (
	"context"
	"errors"
)

var ErrStationNotFound = errors.New("station not found")

// Station is a physical responsible site; ContactEmail receives critical
// defect alerts for the station.
type Station struct {
	StationID    uint64
	Name         string
	Code         string
	Latitude     float64
	Longitude    float64
	ContactEmail string
}

type StationRepository interface {
	Create(ctx context.Context, s Station) (Station, error)
	GetByID(ctx context.Context, stationID uint64) (Station, error)
	// List returns stations ordered by id, which keeps nearest-site
	// tie-breaking deterministic.
	List(ctx context.Context) ([]Station, error)
	Update(ctx context.Context, s Station) error
	Delete(ctx context.Context, stationID uint64) error
	// FindConflicting returns stations other than excludeID whose name or
	// code collides with the given values.
	FindConflicting(ctx context.Context, name, code string, excludeID uint64) ([]Station, error)
}
