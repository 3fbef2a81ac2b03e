package defectops

import (
	"context"
	"errors"

	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

// Resolve transitions a defect Open -> Resolved as the acting user. The
// conflict check runs against the latest read inside the transaction;
// concurrent double resolution loses with ErrAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, defectID uint64, actor defect.Actor) (ports.Defect, error) {
	if ctx == nil {
		return ports.Defect{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Defect{}, errs.Wrap(err, "check context")
	}

	var resolved ports.Defect
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.defects.GetByID(txCtx, defectID)
		if err != nil {
			return err
		}
		if d.Status == defect.StatusResolved {
			return defect.ErrAlreadyResolved
		}
		if !actor.CanResolve(d.AssignedStationID) {
			return defect.ErrNotAuthorized
		}

		if err := s.defects.MarkResolved(txCtx, defectID, actor.UserID, s.clock.Now().UTC()); err != nil {
			return err
		}

		resolved, err = s.defects.GetByID(txCtx, defectID)
		return err
	})
	if err != nil {
		return ports.Defect{}, err
	}
	return resolved, nil
}

// Reopen transitions a defect Resolved -> Open and clears the resolution
// fields. Admin only.
func (s *Service) Reopen(ctx context.Context, defectID uint64, actor defect.Actor) (ports.Defect, error) {
	if ctx == nil {
		return ports.Defect{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Defect{}, errs.Wrap(err, "check context")
	}
	if !actor.IsAdmin() {
		return ports.Defect{}, defect.ErrNotAuthorized
	}

	var reopened ports.Defect
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		d, err := s.defects.GetByID(txCtx, defectID)
		if err != nil {
			return err
		}
		if d.Status == defect.StatusOpen {
			return defect.ErrAlreadyOpen
		}

		if err := s.defects.MarkReopened(txCtx, defectID); err != nil {
			return err
		}

		reopened, err = s.defects.GetByID(txCtx, defectID)
		return err
	})
	if err != nil {
		return ports.Defect{}, err
	}
	return reopened, nil
}
