package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/database"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/export"
	httpfx "github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/http"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/kafka"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/s3"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/telegram"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	metrics.Module,
	database.Module,
	telegram.Module,
	kafka.Module,
	s3.Module,
	export.Module,
	httpfx.Module,
)
