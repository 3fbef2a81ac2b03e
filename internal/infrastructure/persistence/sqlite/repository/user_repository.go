package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/ports"
)

type UserRepository struct {
	db *gorm.DB
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *UserRepository) Create(ctx context.Context, u ports.User) (ports.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.User{}, err
	}

	row := model.User{
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		StationID:    u.StationID,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.User{}, errs.Wrap(err, "insert user")
	}
	return fromUserRow(row), nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uint64) (ports.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.User{}, err
	}

	var row model.User
	if err := db.Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, errs.Wrap(err, "query user by id")
	}
	return fromUserRow(row), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (ports.User, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.User{}, err
	}

	var row model.User
	if err := db.Where("username = ?", username).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, ports.ErrUserNotFound
		}
		return ports.User{}, errs.Wrap(err, "query user by username")
	}
	return fromUserRow(row), nil
}

func (r *UserRepository) DeleteByStation(ctx context.Context, stationID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("station_id = ?", stationID).Delete(&model.User{}).Error; err != nil {
		return errs.Wrap(err, "delete users by station")
	}
	return nil
}

func fromUserRow(row model.User) ports.User {
	return ports.User{
		UserID:       row.UserID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Role:         defect.Role(row.Role),
		StationID:    row.StationID,
	}
}
