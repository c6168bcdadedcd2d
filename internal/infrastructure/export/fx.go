package export

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/s3"
)

// Module provides the failure report exporter for fx DI
var Module = fx.Module("export",
	fx.Provide(NewExporterFx),
)

// NewExporterFx picks the exporter from config; s3Client is nil when S3 is disabled
func NewExporterFx(cfg *config.ExportConfig, s3Client *s3.Client, logger zerolog.Logger) deps.FailureExporter {
	if !cfg.Enabled {
		return NoopExporter{}
	}

	var uploader Uploader
	if s3Client != nil {
		uploader = s3Client
	}

	return NewCSVExporter(cfg.Dir, uploader, logger)
}
