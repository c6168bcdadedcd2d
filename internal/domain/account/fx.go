package account

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/delivery/http"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/http/server"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

// Module provides account domain components for fx DI
var Module = fx.Module("account",
	fx.Provide(
		NewPoolFx,
		http.NewHandler,
		http.NewRouter,
	),
	fx.Invoke(registerRoutes),
)

// NewPoolFx creates the invite pool and fills it once the account manager has connected.
// The hook depends on the manager so it always starts after the Telegram sessions are restored.
func NewPoolFx(
	lc fx.Lifecycle,
	migrationCfg *config.MigrationConfig,
	manager domain.AccountManager,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *pool.Pool {
	p := pool.New(migrationCfg.MaxInvitesPerAccount)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			fillPool(p, manager, logger)
			m.UpdateAccounts(manager.GetActiveAccountCount(), p.Len())
			m.UpdateAvailableAccounts(len(p.Available()))
			return nil
		},
	})

	return p
}

// fillPool adds every connected account in manager order; the first one becomes the main account
func fillPool(p *pool.Pool, manager domain.AccountManager, logger zerolog.Logger) {
	for _, client := range manager.GetAllAccounts() {
		if !client.IsConnected() {
			continue
		}
		if _, err := p.Add(client); err != nil {
			logger.Warn().
				Err(err).
				Str("account", utils.MaskPhoneNumber(client.GetAccountID())).
				Msg("Failed to add account to pool")
		}
	}

	logger.Info().
		Int("accounts", p.Len()).
		Int("invite_limit", p.Limit()).
		Msg("Account pool ready")
}

// registerRoutes registers account HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
