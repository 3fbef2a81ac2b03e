package bootstrap

import (
	"context"
	"log/slog"
	"net/http"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"railguard/internal/bootstrap/config"
	"railguard/internal/bootstrap/database"
	"railguard/internal/bootstrap/logging"
	advisoryinfra "railguard/internal/infrastructure/advisory"
	alertinfra "railguard/internal/infrastructure/alert"
	cacheinfra "railguard/internal/infrastructure/cache"
	sqliterepo "railguard/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "railguard/internal/infrastructure/persistence/sqlite/uow"
	storageinfra "railguard/internal/infrastructure/storage"
	visioninfra "railguard/internal/infrastructure/vision"
	"railguard/internal/ports"
	"railguard/internal/usecase/agent"
	"railguard/internal/usecase/auth"
	defectops "railguard/internal/usecase/defect"
	stationops "railguard/internal/usecase/station"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDefectRepository,
			fx.As(new(ports.DefectRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewStationRepository,
			fx.As(new(ports.StationRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewUserRepository,
			fx.As(new(ports.UserRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(provideAdvisoryClient),
	fx.Provide(provideAlerter),
	fx.Provide(provideVisionClient),
	fx.Provide(provideImageStore),
	fx.Provide(provideDefectService),
	fx.Provide(stationops.NewService),
	fx.Provide(provideAuthService),
	fx.Provide(provideAgentRunner),
	fx.Provide(agent.NewSupervisor),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideAdvisoryClient(cfg config.Config) ports.AdvisoryClient {
	return advisoryinfra.NewClient(cfg.Advisory)
}

func provideAlerter(cfg config.Config) ports.Alerter {
	return alertinfra.NewShoutrrrAlerter(cfg.Alert)
}

func provideVisionClient(cfg config.Config) ports.VisionClient {
	return visioninfra.NewClient(cfg.Vision, &http.Client{})
}

func provideImageStore(cfg config.Config) (ports.ImageStore, error) {
	return storageinfra.NewLocalImageStore(cfg.Storage.ImageDir)
}

func provideDefectService(
	cfg config.Config,
	defects ports.DefectRepository,
	stations ports.StationRepository,
	uow ports.UnitOfWork,
	advisory ports.AdvisoryClient,
	alerter ports.Alerter,
	images ports.ImageStore,
) *defectops.Service {
	return defectops.NewService(
		defects, stations, uow, advisory, alerter, images,
		defectops.WithFallbackRecipient(cfg.Alert.FallbackRecipient),
	)
}

func provideAuthService(cfg config.Config, users ports.UserRepository) *auth.Service {
	return auth.NewService(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
}

func provideAgentRunner(
	cfg config.Config,
	vision ports.VisionClient,
	images ports.ImageStore,
	cache ports.Cache,
	ingest *defectops.Service,
) *agent.Runner {
	return agent.NewRunner(
		cfg.Agent.WatchDir,
		cfg.Vision.ConfidenceThreshold,
		vision,
		images,
		cache,
		ingest,
	)
}
