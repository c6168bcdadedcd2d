package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure"
)

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(
			config.Out,
			context.Background,
		),
		infrastructure.Module,
		// Domain modules
		account.Module, // Must be before migration.Module (provides the account pool)
		filter.Module,
		migration.Module,
	)
}
