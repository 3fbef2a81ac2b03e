package ports

import (
	"context"
	"errors"
	"time"

	"railguard/internal/domain/defect"
)

var ErrDefectNotFound = errors.New("defect not found")

// Defect is the persistence-facing view of a detected track anomaly.
type Defect struct {
	DefectID   uint64
	DefectType string
	Confidence float64
	ImageRef   string

	Latitude       *float64
	Longitude      *float64
	Chainage       *string
	NearestStation *string

	Severity        defect.Severity
	RootCause       string
	ActionRequired  string
	ResolutionSteps string

	AssignedStationID *uint64

	Status     defect.Status
	ResolvedAt *time.Time
	ResolvedBy *uint64

	CreatedAt time.Time
}

type DefectRepository interface {
	Create(ctx context.Context, d Defect) (Defect, error)
	GetByID(ctx context.Context, defectID uint64) (Defect, error)
	// List returns defects ordered newest-first.
	List(ctx context.Context, skip, limit int) ([]Defect, error)
	AssignStation(ctx context.Context, defectID, stationID uint64) error
	MarkResolved(ctx context.Context, defectID, resolvedBy uint64, resolvedAt time.Time) error
	MarkReopened(ctx context.Context, defectID uint64) error
	Delete(ctx context.Context, defectID uint64) error
	CountByStation(ctx context.Context, stationID uint64) (int64, error)
}
