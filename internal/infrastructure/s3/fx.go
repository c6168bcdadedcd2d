package s3

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
)

// Module provides S3/MinIO client for FX
var Module = fx.Module("s3",
	fx.Provide(NewClientFx),
)

// NewClientFx creates the report storage client; it is nil when S3 is disabled
func NewClientFx(lc fx.Lifecycle, cfg *config.S3Config, logger zerolog.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := NewClient(&Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
		PublicURL: cfg.PublicURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.EnsureBucket(ctx); err != nil {
				// Reports still land on local disk
				logger.Warn().Err(err).Msg("S3 bucket is not ready, report uploads may fail")
			}
			return nil
		},
	})

	return client, nil
}
