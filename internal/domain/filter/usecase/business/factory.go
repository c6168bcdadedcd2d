package business

import (
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
)

// Factory builds one ActivityFilter per migration run
type Factory struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a filter factory from service configuration
func NewFactory(filterCfg *config.FilterConfig, migrationCfg *config.MigrationConfig, logger zerolog.Logger, m *metrics.Metrics) *Factory {
	return &Factory{
		cfg: Config{
			LookupsPerWindow:  filterCfg.LookupsPerWindow,
			Window:            filterCfg.Window,
			MaxRetries:        filterCfg.MaxRetries,
			ActiveWithin:      filterCfg.ActiveWithin,
			RateLimitCooldown: migrationCfg.TooManyRequestsCooldown,
		},
		logger:  logger,
		metrics: m,
	}
}

// New creates a filter that performs advanced lookups through lookup
func (f *Factory) New(lookup domain.TelegramClient) *ActivityFilter {
	return NewActivityFilter(f.cfg, lookup, f.logger, f.metrics)
}
