package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"railguard/internal/domain/defect"
	"railguard/internal/infrastructure/persistence/sqlite/model"
	"railguard/internal/infrastructure/persistence/sqlite/repository"
	"railguard/internal/ports"
)

func setupService(t *testing.T) (*Service, ports.UserRepository, *clockwork.FakeClock) {
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
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	users := repository.NewUserRepository(db)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(users, "test-secret", time.Hour, WithClock(clock))
	return svc, users, clock
}

func seedUser(t *testing.T, users ports.UserRepository, username, password string, role defect.Role, stationID *uint64) ports.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := users.Create(context.Background(), ports.User{
		Username: username, PasswordHash: string(hash), Role: role, StationID: stationID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginAndParseToken(t *testing.T) {
	svc, users, _ := setupService(t)
	stationID := uint64(7)
	seeded := seedUser(t, users, "ndls_master", "pass123", defect.RoleStationMaster, &stationID)

	result, err := svc.Login(context.Background(), "ndls_master", "pass123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Fatalf("Login() empty token")
	}
	if result.Actor.UserID != seeded.UserID || result.Actor.Role != defect.RoleStationMaster {
		t.Fatalf("Login() actor = %+v", result.Actor)
	}

	actor, err := svc.ParseToken(result.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if actor.UserID != seeded.UserID {
		t.Fatalf("ParseToken() user_id = %d, want %d", actor.UserID, seeded.UserID)
	}
	if actor.StationID == nil || *actor.StationID != stationID {
		t.Fatalf("ParseToken() station_id = %v, want %d", actor.StationID, stationID)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, users, _ := setupService(t)
	seedUser(t, users, "admin", "correct", defect.RoleAdmin, nil)

	if _, err := svc.Login(context.Background(), "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestParseTokenExpired(t *testing.T) {
	svc, users, clock := setupService(t)
	seedUser(t, users, "admin", "pass", defect.RoleAdmin, nil)

	result, err := svc.Login(context.Background(), "admin", "pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	clock.Advance(2 * time.Hour)

	if _, err := svc.ParseToken(result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() expired error = %v, want ErrInvalidToken", err)
	}
}

func TestParseTokenTampered(t *testing.T) {
	svc, users, _ := setupService(t)
	seedUser(t, users, "admin", "pass", defect.RoleAdmin, nil)

	result, err := svc.Login(context.Background(), "admin", "pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	other := NewService(users, "different-secret", time.Hour)
	if _, err := other.ParseToken(result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() wrong secret error = %v, want ErrInvalidToken", err)
	}

	if _, err := svc.ParseToken(result.Token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ParseToken() mangled token error = %v, want ErrInvalidToken", err)
	}
}
