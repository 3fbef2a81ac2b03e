package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"railguard/internal/errs"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/ports"
)

type StationRepository struct {
	db *gorm.DB
}

var _ ports.StationRepository = (*StationRepository)(nil)

func NewStationRepository(db *gorm.DB) *StationRepository {
	return &StationRepository{db: db}
}

func (r *StationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *StationRepository) Create(ctx context.Context, s ports.Station) (ports.Station, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Station{}, err
	}

	row := model.Station{
		Name:         s.Name,
		Code:         s.Code,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		ContactEmail: s.ContactEmail,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Station{}, errs.Wrap(err, "insert station")
	}
	return fromStationRow(row), nil
}

func (r *StationRepository) GetByID(ctx context.Context, stationID uint64) (ports.Station, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Station{}, err
	}

	var row model.Station
	if err := db.Where("station_id = ?", stationID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Station{}, ports.ErrStationNotFound
		}
		return ports.Station{}, errs.Wrap(err, "query station by id")
	}
	return fromStationRow(row), nil
}

func (r *StationRepository) List(ctx context.Context) ([]ports.Station, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Station
	if err := db.Order("station_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query stations")
	}

	items := make([]ports.Station, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromStationRow(row))
	}
	return items, nil
}

func (r *StationRepository) Update(ctx context.Context, s ports.Station) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Station{}).
		Where("station_id = ?", s.StationID).
		Updates(map[string]any{
			"name":          s.Name,
			"code":          s.Code,
			"latitude":      s.Latitude,
			"longitude":     s.Longitude,
			"contact_email": s.ContactEmail,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update station")
	}
	if result.RowsAffected == 0 {
		return ports.ErrStationNotFound
	}
	return nil
}

func (r *StationRepository) Delete(ctx context.Context, stationID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Where("station_id = ?", stationID).Delete(&model.Station{})
	if result.Error != nil {
		return errs.Wrap(result.Error, "delete station")
	}
	if result.RowsAffected == 0 {
		return ports.ErrStationNotFound
	}
	return nil
}

func (r *StationRepository) FindConflicting(ctx context.Context, name, code string, excludeID uint64) ([]ports.Station, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Station{}).Where("name = ? OR code = ?", name, code)
	if excludeID > 0 {
		query = query.Where("station_id <> ?", excludeID)
	}

	var rows []model.Station
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query conflicting stations")
	}

	items := make([]ports.Station, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromStationRow(row))
	}
	return items, nil
}

func fromStationRow(row model.Station) ports.Station {
	return ports.Station{
		StationID:    row.StationID,
		Name:         row.Name,
		Code:         row.Code,
		Latitude:     row.Latitude,
		Longitude:    row.Longitude,
		ContactEmail: row.ContactEmail,
	}
}
