package ports

import (
	"context"
	"errors"

	"railguard/internal/domain/defect"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	UserID       uint64
	Username     string
	PasswordHash string
	Role         defect.Role
	StationID    *uint64
}

type UserRepository interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, userID uint64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	DeleteByStation(ctx context.Context, stationID uint64) error
}
