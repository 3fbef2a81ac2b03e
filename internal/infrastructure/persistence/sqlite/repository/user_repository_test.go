package repository

import (
	"context"
	"errors"
	"testing"

	"railguard/internal/domain/defect"
	"railguard/internal/ports"
)

func setupUserRepository(t *testing.T) *UserRepository {
	t.Helper()
	return NewUserRepository(setupDB(t))
}

func TestUserCreateAndGetByUsername(t *testing.T) {
	repo := setupUserRepository(t)
	ctx := context.Background()

	stationID := uint64(5)
	created, err := repo.Create(ctx, ports.User{
		Username:     "ndls_master",
		PasswordHash: "$2a$10$fakehash",
		Role:         defect.RoleStationMaster,
		StationID:    &stationID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.UserID == 0 {
		t.Fatalf("Create() user_id = 0")
	}

	got, err := repo.GetByUsername(ctx, "ndls_master")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.Role != defect.RoleStationMaster || got.StationID == nil || *got.StationID != stationID {
		t.Fatalf("GetByUsername() = %+v", got)
	}
}

func TestUserGetByUsernameNotFound(t *testing.T) {
	repo := setupUserRepository(t)

	if _, err := repo.GetByUsername(context.Background(), "nobody"); !errors.Is(err, ports.ErrUserNotFound) {
		t.Fatalf("GetByUsername() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserDeleteByStation(t *testing.T) {
	repo := setupUserRepository(t)
	ctx := context.Background()

	stationID := uint64(9)
	if _, err := repo.Create(ctx, ports.User{
		Username: "station_master", PasswordHash: "h", Role: defect.RoleStationMaster, StationID: &stationID,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := repo.Create(ctx, ports.User{
		Username: "admin", PasswordHash: "h", Role: defect.RoleAdmin,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.DeleteByStation(ctx, stationID); err != nil {
		t.Fatalf("DeleteByStation() error = %v", err)
	}

	if _, err := repo.GetByUsername(ctx, "station_master"); !errors.Is(err, ports.ErrUserNotFound) {
		t.Fatalf("GetByUsername() after delete error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByUsername(ctx, "admin"); err != nil {
		t.Fatalf("GetByUsername() admin should survive, error = %v", err)
	}
}
