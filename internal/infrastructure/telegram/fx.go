package telegram

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// Module provides Telegram account manager for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewAccountManagerFx),
)

// NewAccountManagerFx creates an account manager with lifecycle hooks for fx DI.
// Startup fails when fewer than MinRequiredAccounts sessions could be restored.
func NewAccountManagerFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	logger zerolog.Logger,
) domain.AccountManager {
	manager := NewAccountManager(logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			report := manager.InitializeAccounts(ctx, domain.AccountInitConfig{
				APIID:             telegramCfg.APIID,
				APIHash:           telegramCfg.APIHash,
				SessionDir:        telegramCfg.SessionDir,
				Accounts:          telegramCfg.Accounts,
				Logger:            logger,
				MaxConcurrent:     defaultMaxConcurrent,
				ConnectTimeout:    telegramCfg.ConnectTimeout,
				RequestsPerSecond: telegramCfg.RequestsPerSecond,
			})

			for phone, err := range report.Errors {
				logger.Warn().Str("account", phone).Err(err).Msg("Account not initialized")
			}

			if report.SuccessfulAccounts < telegramCfg.MinRequiredAccounts {
				logger.Error().
					Int("successful", report.SuccessfulAccounts).
					Int("required", telegramCfg.MinRequiredAccounts).
					Msg("Not enough accounts initialized")
				return fmt.Errorf("%w: %d of %d required accounts connected",
					domain.ErrNoActiveAccounts, report.SuccessfulAccounts, telegramCfg.MinRequiredAccounts)
			}

			logger.Info().
				Int("successful", report.SuccessfulAccounts).
				Int("failed", report.FailedAccounts).
				Int("total", report.TotalAccounts).
				Msg("Telegram accounts initialized")

			return nil
		},
		OnStop: func(ctx context.Context) error {
			disconnected := manager.Shutdown(ctx)
			logger.Info().
				Int("disconnected", disconnected).
				Msg("Telegram accounts disconnected")
			return nil
		},
	})

	return manager
}
