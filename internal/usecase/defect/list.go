package defectops

import (
	"context"
	"errors"

	"railguard/internal/errs"
	"railguard/internal/ports"
)

const defaultListLimit = 100

// List returns defects newest-first.
func (s *Service) List(ctx context.Context, skip, limit int) ([]ports.Defect, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if skip < 0 {
		skip = 0
	}
	return s.defects.List(ctx, skip, limit)
}

// Get returns one defect by id.
func (s *Service) Get(ctx context.Context, defectID uint64) (ports.Defect, error) {
	if ctx == nil {
		return ports.Defect{}, errors.New("context is required")
	}
	return s.defects.GetByID(ctx, defectID)
}
