package migration

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	filterbusiness "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/usecase/business"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/delivery/http"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/repository/memory"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/repository/postgres"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/usecase/business"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/http/server"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
)

// Module provides migration domain components for fx DI
var Module = fx.Module("migration",
	fx.Provide(
		NewRunRepository,
		NewController,
		NewEngineConfig,
		business.NewEngine,
		NewUseCaseFx,
		asMigrationService,
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

// RepositoryParams holds the optional database connection
type RepositoryParams struct {
	fx.In

	DB     *gorm.DB `optional:"true"`
	Logger zerolog.Logger
}

// NewRunRepository stores runs in Postgres when a database is configured, in memory otherwise
func NewRunRepository(params RepositoryParams) deps.RunRepository {
	if params.DB == nil {
		params.Logger.Info().Msg("Database disabled, run history is kept in memory")
		return memory.NewRepository()
	}
	return postgres.NewRepository(params.DB)
}

// NewController builds the run controller from the configured speed profiles
func NewController(migrationCfg *config.MigrationConfig, logger zerolog.Logger) *business.Controller {
	return business.NewController(
		speedProfiles(migrationCfg.SpeedProfiles),
		entities.Speed(migrationCfg.DefaultSpeed),
		logger,
	)
}

// NewEngineConfig maps migration settings onto engine timings
func NewEngineConfig(migrationCfg *config.MigrationConfig) business.EngineConfig {
	return business.EngineConfig{
		PollTimeout:             migrationCfg.PollTimeout,
		TooManyRequestsCooldown: migrationCfg.TooManyRequestsCooldown,
		MaxFloodWait:            migrationCfg.MaxFloodWait,
		ProgressInterval:        migrationCfg.ProgressInterval,
	}
}

// UseCaseParams defines parameters for the migration use case
type UseCaseParams struct {
	fx.In

	Lifecycle    fx.Lifecycle
	FilterConfig *config.FilterConfig
	ServiceCfg   *config.ServiceConfig
	Controller   *business.Controller
	Engine       *business.Engine
	Filters      *filterbusiness.Factory
	Pool         *pool.Pool
	Exporter     deps.FailureExporter
	Publisher    deps.EventPublisher
	Runs         deps.RunRepository
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewUseCaseFx creates the migration use case and cancels any active run on shutdown
func NewUseCaseFx(params UseCaseParams) (*business.UseCase, error) {
	strategy, err := filterentities.ParseStrategy(params.FilterConfig.Strategy)
	if err != nil {
		return nil, fmt.Errorf("invalid filter strategy: %w", err)
	}

	useCase := business.NewUseCase(
		params.Controller,
		params.Engine,
		params.Filters,
		params.Pool,
		params.Exporter,
		params.Publisher,
		params.Runs,
		strategy,
		params.Logger,
		params.Metrics,
	)

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, params.ServiceCfg.ShutdownTimeout)
			defer cancel()
			return useCase.Shutdown(stopCtx)
		},
	})

	return useCase, nil
}

func asMigrationService(useCase *business.UseCase) deps.MigrationService {
	return useCase
}

func speedProfiles(cfg map[string]config.SpeedProfileConfig) map[entities.Speed]entities.SpeedProfile {
	profiles := make(map[entities.Speed]entities.SpeedProfile, len(cfg))
	for name, p := range cfg {
		profiles[entities.Speed(name)] = entities.SpeedProfile{
			InviteDelay:  entities.DelayRange{Min: p.InviteDelay.Min, Max: p.InviteDelay.Max},
			AccountDelay: entities.DelayRange{Min: p.AccountDelay.Min, Max: p.AccountDelay.Max},
			BatchSize:    p.BatchSize,
		}
	}
	return profiles
}

// registerRoutes registers migration HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
