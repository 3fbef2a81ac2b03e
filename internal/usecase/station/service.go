// Package stationops manages responsible sites and the StationMaster users
// bound to them. All mutations are Admin gated at the transport layer; the
// usecases enforce the actor check again defensively through domain roles.
package stationops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

type Service struct {
	stations ports.StationRepository
	users    ports.UserRepository
	defects  ports.DefectRepository
	uow      ports.UnitOfWork
}

func NewService(
	stations ports.StationRepository,
	users ports.UserRepository,
	defects ports.DefectRepository,
	uow ports.UnitOfWork,
) *Service {
	return &Service{
		stations: stations,
		users:    users,
		defects:  defects,
		uow:      uow,
	}
}

type CreateInput struct {
	Name         string
	Code         string
	Latitude     float64
	Longitude    float64
	ContactEmail string
	// Exactly one StationMaster is provisioned with the station.
	MasterUsername string
	MasterPassword string
}

type CreateResult struct {
	Station ports.Station
	Master  ports.User
}

func (s *Service) Create(ctx context.Context, input CreateInput, actor defect.Actor) (CreateResult, error) {
	if ctx == nil {
		return CreateResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return CreateResult{}, errs.Wrap(err, "check context")
	}
	if !actor.IsAdmin() {
		return CreateResult{}, defect.ErrNotAuthorized
	}

	name := strings.TrimSpace(input.Name)
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	username := strings.TrimSpace(input.MasterUsername)
	if name == "" || code == "" {
		return CreateResult{}, fmt.Errorf("%w: station name and code are required", defect.ErrInvalidInput)
	}
	if username == "" || input.MasterPassword == "" {
		return CreateResult{}, fmt.Errorf("%w: station master credentials are required", defect.ErrInvalidInput)
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return CreateResult{}, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.MasterPassword), bcrypt.DefaultCost)
	if err != nil {
		return CreateResult{}, errs.Wrap(err, "hash station master password")
	}

	var result CreateResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		conflicts, err := s.stations.FindConflicting(txCtx, name, code, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return defect.ErrDuplicateStation
		}

		if _, err := s.users.GetByUsername(txCtx, username); err == nil {
			return defect.ErrDuplicateUser
		} else if !errors.Is(err, ports.ErrUserNotFound) {
			return err
		}

		station, err := s.stations.Create(txCtx, ports.Station{
			Name:         name,
			Code:         code,
			Latitude:     input.Latitude,
			Longitude:    input.Longitude,
			ContactEmail: strings.TrimSpace(input.ContactEmail),
		})
		if err != nil {
			return err
		}

		master, err := s.users.Create(txCtx, ports.User{
			Username:     username,
			PasswordHash: string(passwordHash),
			Role:         defect.RoleStationMaster,
			StationID:    &station.StationID,
		})
		if err != nil {
			return err
		}

		result = CreateResult{Station: station, Master: master}
		return nil
	})
	if err != nil {
		return CreateResult{}, err
	}

	logging.Info(ctx, "station created with station master",
		slog.String("component", "stationops"),
		slog.String("station", result.Station.Name),
		slog.String("code", result.Station.Code),
	)
	return result, nil
}

type UpdateInput struct {
	StationID    uint64
	Name         string
	Code         string
	Latitude     float64
	Longitude    float64
	ContactEmail string
}

func (s *Service) Update(ctx context.Context, input UpdateInput, actor defect.Actor) (ports.Station, error) {
	if ctx == nil {
		return ports.Station{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.Station{}, errs.Wrap(err, "check context")
	}
	if !actor.IsAdmin() {
		return ports.Station{}, defect.ErrNotAuthorized
	}

	name := strings.TrimSpace(input.Name)
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if name == "" || code == "" {
		return ports.Station{}, fmt.Errorf("%w: station name and code are required", defect.ErrInvalidInput)
	}
	if err := validateCoordinates(input.Latitude, input.Longitude); err != nil {
		return ports.Station{}, err
	}

	var updated ports.Station
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.stations.GetByID(txCtx, input.StationID); err != nil {
			return err
		}

		conflicts, err := s.stations.FindConflicting(txCtx, name, code, input.StationID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return defect.ErrDuplicateStation
		}

		updated = ports.Station{
			StationID:    input.StationID,
			Name:         name,
			Code:         code,
			Latitude:     input.Latitude,
			Longitude:    input.Longitude,
			ContactEmail: strings.TrimSpace(input.ContactEmail),
		}
		return s.stations.Update(txCtx, updated)
	})
	if err != nil {
		return ports.Station{}, err
	}
	return updated, nil
}

// Delete removes a station and its bound StationMaster users in one
// transaction. Deletion is refused while any defect still references the
// station.
func (s *Service) Delete(ctx context.Context, stationID uint64, actor defect.Actor) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if !actor.IsAdmin() {
		return defect.ErrNotAuthorized
	}

	return s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.stations.GetByID(txCtx, stationID); err != nil {
			return err
		}

		referencing, err := s.defects.CountByStation(txCtx, stationID)
		if err != nil {
			return err
		}
		if referencing > 0 {
			return defect.ErrStationHasDefects
		}

		if err := s.users.DeleteByStation(txCtx, stationID); err != nil {
			return err
		}
		return s.stations.Delete(txCtx, stationID)
	})
}

func (s *Service) List(ctx context.Context) ([]ports.Station, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	return s.stations.List(ctx)
}

func (s *Service) Get(ctx context.Context, stationID uint64) (ports.Station, error) {
	if ctx == nil {
		return ports.Station{}, errors.New("context is required")
	}
	return s.stations.GetByID(ctx, stationID)
}

func validateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude out of range", defect.ErrInvalidInput)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude out of range", defect.ErrInvalidInput)
	}
	return nil
}
