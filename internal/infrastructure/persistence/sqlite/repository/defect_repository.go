package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/ports"
)

type DefectRepository struct {
	db *gorm.DB
}

var _ ports.DefectRepository = (*DefectRepository)(nil)

func NewDefectRepository(db *gorm.DB) *DefectRepository {
	return &DefectRepository{db: db}
}

func (r *DefectRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *DefectRepository) Create(ctx context.Context, d ports.Defect) (ports.Defect, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Defect{}, err
	}

	row := toDefectRow(d)
	if err := db.Create(&row).Error; err != nil {
		return ports.Defect{}, errs.Wrap(err, "insert defect")
	}
	return fromDefectRow(row), nil
}

func (r *DefectRepository) GetByID(ctx context.Context, defectID uint64) (ports.Defect, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Defect{}, err
	}

	var row model.Defect
	if err := db.Where("defect_id = ?", defectID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Defect{}, ports.ErrDefectNotFound
		}
		return ports.Defect{}, errs.Wrap(err, "query defect by id")
	}
	return fromDefectRow(row), nil
}

func (r *DefectRepository) List(ctx context.Context, skip, limit int) ([]ports.Defect, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Defect{}).Order("created_at desc, defect_id desc")
	if skip > 0 {
		query = query.Offset(skip)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Defect
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query defects")
	}

	items := make([]ports.Defect, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromDefectRow(row))
	}
	return items, nil
}

func (r *DefectRepository) AssignStation(ctx context.Context, defectID, stationID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Defect{}).
		Where("defect_id = ?", defectID).
		Update("assigned_station_id", stationID)
	if result.Error != nil {
		return errs.Wrap(result.Error, "assign station")
	}
	if result.RowsAffected == 0 {
		return ports.ErrDefectNotFound
	}
	return nil
}

func (r *DefectRepository) MarkResolved(ctx context.Context, defectID, resolvedBy uint64, resolvedAt time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Defect{}).
		Where("defect_id = ?", defectID).
		Updates(map[string]any{
			"status":      string(defect.StatusResolved),
			"resolved_at": resolvedAt,
			"resolved_by": resolvedBy,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark defect resolved")
	}
	if result.RowsAffected == 0 {
		return ports.ErrDefectNotFound
	}
	return nil
}

func (r *DefectRepository) MarkReopened(ctx context.Context, defectID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Defect{}).
		Where("defect_id = ?", defectID).
		Updates(map[string]any{
			"status":      string(defect.StatusOpen),
			"resolved_at": nil,
			"resolved_by": nil,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark defect reopened")
	}
	if result.RowsAffected == 0 {
		return ports.ErrDefectNotFound
	}
	return nil
}

func (r *DefectRepository) Delete(ctx context.Context, defectID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Where("defect_id = ?", defectID).Delete(&model.Defect{})
	if result.Error != nil {
		return errs.Wrap(result.Error, "delete defect")
	}
	if result.RowsAffected == 0 {
		return ports.ErrDefectNotFound
	}
	return nil
}

func (r *DefectRepository) CountByStation(ctx context.Context, stationID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Defect{}).
		Where("assigned_station_id = ?", stationID).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count defects by station")
	}
	return count, nil
}

func toDefectRow(d ports.Defect) model.Defect {
	return model.Defect{
		DefectID:          d.DefectID,
		DefectType:        d.DefectType,
		Confidence:        d.Confidence,
		ImageRef:          d.ImageRef,
		Latitude:          d.Latitude,
		Longitude:         d.Longitude,
		Chainage:          d.Chainage,
		NearestStation:    d.NearestStation,
		Severity:          string(d.Severity),
		RootCause:         d.RootCause,
		ActionRequired:    d.ActionRequired,
		ResolutionSteps:   d.ResolutionSteps,
		AssignedStationID: d.AssignedStationID,
		Status:            string(d.Status),
		ResolvedAt:        d.ResolvedAt,
		ResolvedBy:        d.ResolvedBy,
		CreatedAt:         d.CreatedAt,
	}
}

func fromDefectRow(row model.Defect) ports.Defect {
	return ports.Defect{
		DefectID:          row.DefectID,
		DefectType:        row.DefectType,
		Confidence:        row.Confidence,
		ImageRef:          row.ImageRef,
		Latitude:          row.Latitude,
		Longitude:         row.Longitude,
		Chainage:          row.Chainage,
		NearestStation:    row.NearestStation,
		Severity:          defect.Severity(row.Severity),
		RootCause:         row.RootCause,
		ActionRequired:    row.ActionRequired,
		ResolutionSteps:   row.ResolutionSteps,
		AssignedStationID: row.AssignedStationID,
		Status:            defect.Status(row.Status),
		ResolvedAt:        row.ResolvedAt,
		ResolvedBy:        row.ResolvedBy,
		CreatedAt:         row.CreatedAt,
	}
}
