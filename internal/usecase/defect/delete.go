package defectops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
	"railguard/internal/errs"
)

// Delete removes a defect record. Admin only, irreversible. The stored
// evidence image is removed best-effort: its failure never blocks record
// deletion.
func (s *Service) Delete(ctx context.Context, defectID uint64, actor defect.Actor) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if !actor.IsAdmin() {
		return defect.ErrNotAuthorized
	}

	d, err := s.defects.GetByID(ctx, defectID)
	if err != nil {
		return err
	}

	if err := s.defects.Delete(ctx, defectID); err != nil {
		return err
	}

	if s.images != nil && d.ImageRef != "" {
		if err := s.images.Remove(ctx, d.ImageRef); err != nil {
			logging.Warn(ctx, "image cleanup failed after defect deletion",
				slog.Uint64("defect_id", defectID),
				slog.String("image_ref", d.ImageRef),
				slog.Any("err", errs.Loggable(err)))
		}
	}
	return nil
}

type BulkDeleteResult struct {
	DeletedCount int
	Errors       []string
}

// BulkDelete processes each id independently: a failure for one id never
// aborts the rest, and successful deletions stay committed.
func (s *Service) BulkDelete(ctx context.Context, defectIDs []uint64, actor defect.Actor) (BulkDeleteResult, error) {
	if ctx == nil {
		return BulkDeleteResult{}, errors.New("context is required")
	}
	if !actor.IsAdmin() {
		return BulkDeleteResult{}, defect.ErrNotAuthorized
	}

	result := BulkDeleteResult{}
	for _, id := range defectIDs {
		if err := s.Delete(ctx, id, actor); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("defect %d: %v", id, err))
			continue
		}
		result.DeletedCount++
	}
	return result, nil
}
