package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
)

const (
	// maxStoredErrors bounds the delivery errors kept for Close
	maxStoredErrors = 100

	defaultCloseTimeout = 10 * time.Second
)

// ErrProducerClosed is returned when publishing after Close
var ErrProducerClosed = errors.New("kafka producer is closed")

// EventProducer publishes migration events to Kafka using an asynchronous producer.
// Messages are keyed by run ID so every event of a run lands in one partition.
type EventProducer struct {
	producer       sarama.AsyncProducer
	topicProgress  string
	topicCompleted string
	logger         zerolog.Logger
	metrics        *metrics.Metrics

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	closed    bool
	closeMu   sync.Mutex
	errors    []error
	errorsMu  sync.Mutex
}

// ProducerConfig holds configuration for the event producer
type ProducerConfig struct {
	Brokers         []string
	TopicProgress   string
	TopicCompleted  string
	ClientID        string
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
	MaxMessageBytes int // default 1MB
	MaxRetries      int // default 5
}

// NewEventProducer creates an idempotent async producer
func NewEventProducer(cfg ProducerConfig) (*EventProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.TopicProgress == "" || cfg.TopicCompleted == "" {
		return nil, fmt.Errorf("kafka topics are required")
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1000000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "migration-service-producer"
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy

	// Idempotence requires acks from all replicas and a single in-flight request
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.ClientID = cfg.ClientID
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := newEventProducer(producer, cfg)

	cfg.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic_progress", cfg.TopicProgress).
		Str("topic_completed", cfg.TopicCompleted).
		Msg("Kafka producer initialized successfully")

	return p, nil
}

// newEventProducer wraps an existing async producer and starts its response handlers
func newEventProducer(producer sarama.AsyncProducer, cfg ProducerConfig) *EventProducer {
	m := cfg.Metrics
	if m == nil {
		m = metrics.GetDefaultMetrics()
	}

	p := &EventProducer{
		producer:       producer,
		topicProgress:  cfg.TopicProgress,
		topicCompleted: cfg.TopicCompleted,
		logger:         cfg.Logger.With().Str("component", "kafka_producer").Logger(),
		metrics:        m,
		errors:         make([]error, 0),
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	return p
}

// PublishProgress queues a progress snapshot
func (p *EventProducer) PublishProgress(ctx context.Context, progress entities.Progress) error {
	return p.send(ctx, p.topicProgress, progress.RunID, newProgressEvent(progress), progress.Timestamp)
}

// PublishCompleted queues the final summary of a run
func (p *EventProducer) PublishCompleted(ctx context.Context, run entities.Run) error {
	ts := time.Now()
	if run.FinishedAt != nil {
		ts = *run.FinishedAt
	}
	return p.send(ctx, p.topicCompleted, run.ID, newCompletedEvent(run), ts)
}

func (p *EventProducer) send(ctx context.Context, topic, key string, event any, ts time.Time) error {
	if key == "" {
		return fmt.Errorf("run_id is required")
	}

	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed {
		return ErrProducerClosed
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before sending: %w", ctx.Err())
	default:
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Timestamp: ts,
	}

	select {
	case p.producer.Input() <- msg:
		p.logger.Debug().
			Str("topic", topic).
			Str("run_id", key).
			Msg("Event queued for sending to Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func (p *EventProducer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		p.metrics.RecordKafkaMessage()
		p.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Message sent to Kafka successfully")
	}
}

func (p *EventProducer) handleErrors() {
	defer p.wg.Done()

	for producerErr := range p.producer.Errors() {
		p.metrics.RecordKafkaError(errorType(producerErr.Err))
		p.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Msg("Failed to send message to Kafka")

		p.errorsMu.Lock()
		if len(p.errors) < maxStoredErrors {
			p.errors = append(p.errors, producerErr.Err)
		}
		p.errorsMu.Unlock()
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, sarama.ErrMessageSizeTooLarge):
		return "message_too_large"
	case errors.Is(err, sarama.ErrNotEnoughReplicas), errors.Is(err, sarama.ErrNotEnoughReplicasAfterAppend):
		return "not_enough_replicas"
	case errors.Is(err, sarama.ErrOutOfBrokers):
		return "out_of_brokers"
	default:
		return "delivery"
	}
}

// IsHealthy reports whether the producer is open and not flooded with errors
func (p *EventProducer) IsHealthy() bool {
	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed || p.producer == nil {
		return false
	}

	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	return len(p.errors) < maxStoredErrors
}

// Close flushes pending messages with the default timeout
func (p *EventProducer) Close() error {
	return p.CloseWithTimeout(defaultCloseTimeout)
}

// CloseWithTimeout stops the producer and waits for pending deliveries.
// It is idempotent; later calls return the first result.
func (p *EventProducer) CloseWithTimeout(timeout time.Duration) error {
	p.closeOnce.Do(func() {
		p.closeMu.Lock()
		p.closed = true
		p.closeMu.Unlock()

		var errs []error
		if err := p.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close failed: %w", err))
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			errs = append(errs, fmt.Errorf("close timeout after %s: handlers did not finish in time", timeout))
		}

		p.errorsMu.Lock()
		errorCount := len(p.errors)
		p.errorsMu.Unlock()
		if errorCount > 0 {
			errs = append(errs, fmt.Errorf("producer had %d send errors during operation", errorCount))
		}

		p.closeErr = errors.Join(errs...)
		if p.closeErr != nil {
			p.logger.Error().Err(p.closeErr).Msg("Kafka producer closed with errors")
		} else {
			p.logger.Info().Msg("Kafka producer closed successfully")
		}
	})

	return p.closeErr
}

// NoopPublisher drops events; used when Kafka is disabled
type NoopPublisher struct{}

func (NoopPublisher) PublishProgress(context.Context, entities.Progress) error { return nil }

func (NoopPublisher) PublishCompleted(context.Context, entities.Run) error { return nil }

var (
	_ deps.EventPublisher = (*EventProducer)(nil)
	_ deps.EventPublisher = NoopPublisher{}
)
