package stationops

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"railguard/internal/domain/defect"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/infrastructure/persistence/sqlite/repository"
	"railguard/internal/infrastructure/persistence/sqlite/uow"
	"railguard/internal/ports"
)

type testEnv struct {
	svc      *Service
	stations ports.StationRepository
	users    ports.UserRepository
	defects  ports.DefectRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "railguard.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Defect{}, &model.Station{}, &model.User{}, &model.AgentKV{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	env := &testEnv{
		stations: repository.NewStationRepository(db),
		users:    repository.NewUserRepository(db),
		defects:  repository.NewDefectRepository(db),
	}
	env.svc = NewService(env.stations, env.users, env.defects, uow.NewUnitOfWork(db))
	return env
}

func admin() defect.Actor {
	return defect.Actor{UserID: 1, Role: defect.RoleAdmin}
}

func validCreateInput() CreateInput {
	return CreateInput{
		Name:           "New Delhi Railway Station",
		Code:           "ndls",
		Latitude:       28.6435,
		Longitude:      77.2197,
		ContactEmail:   "ndls@example.com",
		MasterUsername: "ndls_master",
		MasterPassword: "s3cret-pass",
	}
}

func TestCreateProvisionsStationMaster(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, validCreateInput(), admin())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if result.Station.Code != "NDLS" {
		t.Fatalf("Create() code = %q, want upper-cased NDLS", result.Station.Code)
	}

	master, err := env.users.GetByUsername(ctx, "ndls_master")
	if err != nil {
		t.Fatalf("GetByUsername() master error = %v", err)
	}
	if master.Role != defect.RoleStationMaster {
		t.Fatalf("master role = %q", master.Role)
	}
	if master.StationID == nil || *master.StationID != result.Station.StationID {
		t.Fatalf("master station_id = %v, want %d", master.StationID, result.Station.StationID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(master.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Fatalf("master password hash does not verify: %v", err)
	}
}

func TestCreateRejectsNonAdmin(t *testing.T) {
	env := setupEnv(t)

	stationID := uint64(1)
	actor := defect.Actor{UserID: 5, Role: defect.RoleStationMaster, StationID: &stationID}
	if _, err := env.svc.Create(context.Background(), validCreateInput(), actor); !errors.Is(err, defect.ErrNotAuthorized) {
		t.Fatalf("Create() error = %v, want ErrNotAuthorized", err)
	}
}

func TestCreateDuplicateStation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Create(ctx, validCreateInput(), admin()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := validCreateInput()
	dup.Name = "Different Name"
	dup.MasterUsername = "other_master"
	if _, err := env.svc.Create(ctx, dup, admin()); !errors.Is(err, defect.ErrDuplicateStation) {
		t.Fatalf("Create() duplicate code error = %v, want ErrDuplicateStation", err)
	}

	// A failed transaction must leave no orphan user behind.
	if _, err := env.users.GetByUsername(ctx, "other_master"); !errors.Is(err, ports.ErrUserNotFound) {
		t.Fatalf("GetByUsername() orphan check error = %v, want ErrUserNotFound", err)
	}
}

func TestCreateDuplicateMasterUsername(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Create(ctx, validCreateInput(), admin()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := validCreateInput()
	dup.Name = "Mumbai Central"
	dup.Code = "MMCT"
	if _, err := env.svc.Create(ctx, dup, admin()); !errors.Is(err, defect.ErrDuplicateUser) {
		t.Fatalf("Create() duplicate username error = %v, want ErrDuplicateUser", err)
	}
}

func TestCreateValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	missingName := validCreateInput()
	missingName.Name = "  "
	if _, err := env.svc.Create(ctx, missingName, admin()); !errors.Is(err, defect.ErrInvalidInput) {
		t.Fatalf("Create() missing name error = %v, want ErrInvalidInput", err)
	}

	missingCreds := validCreateInput()
	missingCreds.MasterPassword = ""
	if _, err := env.svc.Create(ctx, missingCreds, admin()); !errors.Is(err, defect.ErrInvalidInput) {
		t.Fatalf("Create() missing master password error = %v, want ErrInvalidInput", err)
	}

	badLat := validCreateInput()
	badLat.Latitude = 95
	if _, err := env.svc.Create(ctx, badLat, admin()); !errors.Is(err, defect.ErrInvalidInput) {
		t.Fatalf("Create() bad latitude error = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateConflictExcludesSelf(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreateInput(), admin())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Re-saving a station under its own name and code is not a conflict.
	updated, err := env.svc.Update(ctx, UpdateInput{
		StationID:    created.Station.StationID,
		Name:         created.Station.Name,
		Code:         created.Station.Code,
		Latitude:     28.65,
		Longitude:    77.22,
		ContactEmail: "new-contact@example.com",
	}, admin())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ContactEmail != "new-contact@example.com" {
		t.Fatalf("Update() contact_email = %q", updated.ContactEmail)
	}

	second := validCreateInput()
	second.Name = "Mumbai Central"
	second.Code = "MMCT"
	second.MasterUsername = "mmct_master"
	other, err := env.svc.Create(ctx, second, admin())
	if err != nil {
		t.Fatalf("Create() second error = %v", err)
	}

	if _, err := env.svc.Update(ctx, UpdateInput{
		StationID: other.Station.StationID,
		Name:      created.Station.Name,
		Code:      "MMCT",
		Latitude:  18.97,
		Longitude: 72.82,
	}, admin()); !errors.Is(err, defect.ErrDuplicateStation) {
		t.Fatalf("Update() conflicting name error = %v, want ErrDuplicateStation", err)
	}
}

func TestDeleteRefusedWhileDefectsAssigned(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, validCreateInput(), admin())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d, err := env.defects.Create(ctx, ports.Defect{
		DefectType: "Track Defect", Severity: defect.SeverityHigh, Status: defect.StatusOpen,
	})
	if err != nil {
		t.Fatalf("Create() defect error = %v", err)
	}
	if err := env.defects.AssignStation(ctx, d.DefectID, created.Station.StationID); err != nil {
		t.Fatalf("AssignStation() error = %v", err)
	}

	if err := env.svc.Delete(ctx, created.Station.StationID, admin()); !errors.Is(err, defect.ErrStationHasDefects) {
		t.Fatalf("Delete() error = %v, want ErrStationHasDefects", err)
	}

	if err := env.defects.Delete(ctx, d.DefectID); err != nil {
		t.Fatalf("Delete() defect error = %v", err)
	}
	if err := env.svc.Delete(ctx, created.Station.StationID, admin()); err != nil {
		t.Fatalf("Delete() after unassign error = %v", err)
	}

	// Bound StationMaster users go with the station.
	if _, err := env.users.GetByUsername(ctx, "ndls_master"); !errors.Is(err, ports.ErrUserNotFound) {
		t.Fatalf("GetByUsername() after station delete error = %v, want ErrUserNotFound", err)
	}
}
