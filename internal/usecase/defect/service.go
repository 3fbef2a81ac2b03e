// Package defectops owns the enrichment pipeline and the defect lifecycle:
// advisory enrichment, severity normalization, persistence, nearest-station
// assignment, alert dispatch and the role-scoped resolve/reopen/delete gates.
package defectops

import (
	"github.com/jonboulle/clockwork"

	"railguard/internal/ports"
)

type Service struct {
	defects  ports.DefectRepository
	stations ports.StationRepository
	uow      ports.UnitOfWork
	advisory ports.AdvisoryClient
	alerter  ports.Alerter
	images   ports.ImageStore
	clock    clockwork.Clock

	fallbackRecipient string
}

type Option func(*Service)

// WithClock swaps the wall clock, used by tests to pin lifecycle timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithFallbackRecipient sets the alert recipient used when no responsible
// station was resolved for a critical defect.
func WithFallbackRecipient(recipient string) Option {
	return func(s *Service) {
		s.fallbackRecipient = recipient
	}
}

func NewService(
	defects ports.DefectRepository,
	stations ports.StationRepository,
	uow ports.UnitOfWork,
	advisory ports.AdvisoryClient,
	alerter ports.Alerter,
	images ports.ImageStore,
	opts ...Option,
) *Service {
	s := &Service{
		defects:  defects,
		stations: stations,
		uow:      uow,
		advisory: advisory,
		alerter:  alerter,
		images:   images,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
