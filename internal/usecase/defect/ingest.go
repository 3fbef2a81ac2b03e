package defectops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
	"railguard/internal/domain/geo"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

type IngestInput struct {
	DefectType     string
	Confidence     float64
	ImageRef       string
	Latitude       *float64
	Longitude      *float64
	Chainage       *string
	NearestStation *string
}

// Ingest runs the enrichment pipeline for one detection event. Each step is a
// commit point: a failure after the defect row exists does not roll earlier
// steps back. The returned defect includes any station assignment; alert
// dispatch for critical defects happens in the background after return.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (ports.Defect, error) {
	if ctx == nil {
		return ports.Defect{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Defect{}, errs.Wrap(err, "check context")
	}
	if err := validateIngestInput(input); err != nil {
		return ports.Defect{}, err
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "defectops.ingest"),
		slog.String("defect_type", input.DefectType),
	)

	// Step 1: stable location description for the advisory prompt; absent
	// fields render as "unknown" rather than being omitted.
	locationDescription := buildLocationDescription(input)

	// Step 2: advisory enrichment. Errors substitute the zero result; the
	// pipeline never stalls because the advisory service is down.
	advice, err := s.advisory.Analyze(ctx, input.DefectType, input.Confidence, locationDescription)
	if err != nil {
		logging.Warn(logCtx, "advisory analysis failed, continuing with empty result",
			slog.Any("err", errs.Loggable(err)))
		advice = ports.AdvisoryResult{}
	}

	// Step 3: severity normalization; absent raw severity folds to High.
	severity := defect.NormalizeSeverity(advice.SeverityRaw)

	// Step 4: first committed write.
	created, err := s.defects.Create(ctx, ports.Defect{
		DefectType:      input.DefectType,
		Confidence:      input.Confidence,
		ImageRef:        input.ImageRef,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		Chainage:        input.Chainage,
		NearestStation:  input.NearestStation,
		Severity:        severity,
		RootCause:       textOrDefault(advice.RootCause, "Analysis pending"),
		ActionRequired:  textOrDefault(advice.ImmediateAction, "Awaiting assessment"),
		ResolutionSteps: textOrDefault(advice.ResolutionSteps, "Pending detailed analysis"),
		Status:          defect.StatusOpen,
		CreatedAt:       s.clock.Now().UTC(),
	})
	if err != nil {
		return ports.Defect{}, errs.Wrap(err, "persist defect")
	}

	logging.Info(logCtx, "defect persisted",
		slog.Uint64("defect_id", created.DefectID),
		slog.String("severity", string(created.Severity)),
	)

	// Step 5: second committed write. A crash between steps leaves the
	// defect unassigned, which is accepted.
	assignedStation := s.assignNearestStation(logCtx, &created)

	// Step 6: background alert hand-off; the caller is not delayed.
	if created.Severity == defect.SeverityCritical {
		s.dispatchAlert(logCtx, created, assignedStation)
	}

	return created, nil
}

func validateIngestInput(input IngestInput) error {
	if strings.TrimSpace(input.DefectType) == "" {
		return fmt.Errorf("%w: defect type is required", defect.ErrInvalidInput)
	}
	if input.Confidence < 0 || input.Confidence > 100 {
		return fmt.Errorf("%w: confidence must be between 0 and 100", defect.ErrInvalidInput)
	}
	if (input.Latitude == nil) != (input.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be provided together", defect.ErrInvalidInput)
	}
	if input.Latitude != nil {
		if *input.Latitude < -90 || *input.Latitude > 90 {
			return fmt.Errorf("%w: latitude out of range", defect.ErrInvalidInput)
		}
		if *input.Longitude < -180 || *input.Longitude > 180 {
			return fmt.Errorf("%w: longitude out of range", defect.ErrInvalidInput)
		}
	}
	return nil
}

func buildLocationDescription(input IngestInput) string {
	return fmt.Sprintf("Lat: %s, Lon: %s, KM: %s, Station: %s",
		floatOrUnknown(input.Latitude),
		floatOrUnknown(input.Longitude),
		stringOrUnknown(input.Chainage),
		stringOrUnknown(input.NearestStation),
	)
}

// assignNearestStation resolves and persists the responsible station when
// coordinates are present. Resolution failures leave the defect unassigned
// and are logged, never fatal for the ingest call.
func (s *Service) assignNearestStation(ctx context.Context, d *ports.Defect) *ports.Station {
	if d.Latitude == nil || d.Longitude == nil {
		return nil
	}

	stations, err := s.stations.List(ctx)
	if err != nil {
		logging.Warn(ctx, "station lookup failed, defect left unassigned",
			slog.Any("err", errs.Loggable(err)))
		return nil
	}

	sites := make([]geo.Site, 0, len(stations))
	for _, station := range stations {
		sites = append(sites, geo.Site{
			ID:        station.StationID,
			Latitude:  station.Latitude,
			Longitude: station.Longitude,
		})
	}

	nearest, ok := geo.Nearest(*d.Latitude, *d.Longitude, sites)
	if !ok {
		return nil
	}

	if err := s.defects.AssignStation(ctx, d.DefectID, nearest.ID); err != nil {
		logging.Warn(ctx, "station assignment failed, defect left unassigned",
			slog.Any("err", errs.Loggable(err)))
		return nil
	}

	d.AssignedStationID = &nearest.ID
	for i := range stations {
		if stations[i].StationID == nearest.ID {
			logging.Info(ctx, "defect assigned to nearest station",
				slog.Uint64("defect_id", d.DefectID),
				slog.String("station", stations[i].Name),
			)
			return &stations[i]
		}
	}
	return nil
}

func textOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.6f", *v)
}

func stringOrUnknown(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "unknown"
	}
	return *v
}
