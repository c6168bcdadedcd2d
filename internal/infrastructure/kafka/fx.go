package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
)

// Module provides the migration event publisher for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewEventPublisherFx),
)

// NewEventPublisherFx creates a Kafka publisher, or a no-op one when Kafka is disabled
func NewEventPublisherFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	serviceCfg *config.ServiceConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) (deps.EventPublisher, error) {
	if !kafkaCfg.Enabled {
		logger.Info().Msg("Kafka disabled, migration events are not published")
		return NoopPublisher{}, nil
	}

	producer, err := NewEventProducer(ProducerConfig{
		Brokers:        kafkaCfg.Brokers,
		TopicProgress:  kafkaCfg.TopicProgress,
		TopicCompleted: kafkaCfg.TopicCompleted,
		ClientID:       serviceCfg.Name + "-producer",
		Logger:         logger,
		Metrics:        m,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
