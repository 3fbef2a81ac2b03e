/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/domain/defect"
	"railguard/internal/errs"
	"railguard/internal/ports"
)

var (
	initDbAdminUsername string
	initDbAdminPassword string
	initDbStationsFile  string
)

type stationSeed struct {
	Name         string  `yaml:"name"`
	Code         string  `yaml:"code"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	ContactEmail string  `yaml:"contact_email"`
}

// initDbCmd represents the init-db command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize database schema, optionally seeding an admin and stations",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		if err := deps.App.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		if initDbAdminUsername != "" {
			if initDbAdminPassword == "" {
				return errors.New("--admin-password is required when --admin-username is set")
			}
			if err := seedAdmin(cmd, deps.UserRepo, initDbAdminUsername, initDbAdminPassword); err != nil {
				return errs.Wrap(err, "seed admin user")
			}
		}

		if initDbStationsFile != "" {
			if err := seedStations(cmd, deps.StationRepo, initDbStationsFile); err != nil {
				return errs.Wrap(err, "seed stations")
			}
		}

		logging.Info(ctx, "init-db finished", slog.String("database_dsn", deps.App.Config.Database.DSN))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", deps.App.Config.Database.DSN); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func seedAdmin(cmd *cobra.Command, users ports.UserRepository, username, password string) error {
	ctx := cmd.Context()

	if _, err := users.GetByUsername(ctx, username); err == nil {
		logging.Info(ctx, "admin user already exists, skipping", slog.String("username", username))
		return nil
	} else if !errors.Is(err, ports.ErrUserNotFound) {
		return errs.Wrap(err, "look up admin user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errs.Wrap(err, "hash admin password")
	}

	created, err := users.Create(ctx, ports.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         defect.RoleAdmin,
	})
	if err != nil {
		return errs.Wrap(err, "create admin user")
	}

	logging.Info(ctx, "admin user created", slog.Uint64("user_id", created.UserID), slog.String("username", created.Username))
	return nil
}

func seedStations(cmd *cobra.Command, stations ports.StationRepository, file string) error {
	ctx := cmd.Context()

	raw, err := os.ReadFile(file)
	if err != nil {
		return errs.Wrapf(err, "read stations file %q", file)
	}

	var seeds []stationSeed
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return errs.Wrapf(err, "parse stations file %q", file)
	}

	for _, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		code := strings.ToUpper(strings.TrimSpace(seed.Code))
		if name == "" || code == "" {
			return fmt.Errorf("station seed entry missing name or code: %+v", seed)
		}

		conflicts, err := stations.FindConflicting(ctx, name, code, 0)
		if err != nil {
			return errs.Wrapf(err, "check station %q", name)
		}
		if len(conflicts) > 0 {
			logging.Info(ctx, "station already exists, skipping",
				slog.String("name", name), slog.Uint64("station_id", conflicts[0].StationID))
			continue
		}

		created, err := stations.Create(ctx, ports.Station{
			Name:         name,
			Code:         code,
			Latitude:     seed.Latitude,
			Longitude:    seed.Longitude,
			ContactEmail: strings.TrimSpace(seed.ContactEmail),
		})
		if err != nil {
			return errs.Wrapf(err, "create station %q", name)
		}
		logging.Info(ctx, "station seeded", slog.Uint64("station_id", created.StationID), slog.String("code", created.Code))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initDbCmd)

	initDbCmd.Flags().StringVar(&initDbAdminUsername, "admin-username", "", "Seed an admin user with this username")
	initDbCmd.Flags().StringVar(&initDbAdminPassword, "admin-password", "", "Password for the seeded admin user")
	initDbCmd.Flags().StringVar(&initDbStationsFile, "stations", "", "YAML file of stations to seed")
}
