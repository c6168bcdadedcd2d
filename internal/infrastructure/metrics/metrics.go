package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the migration service
type Metrics struct {
	// Invitation metrics
	InvitesTotal   *prometheus.CounterVec
	InviteDuration prometheus.Histogram
	RateLimits     *prometheus.CounterVec

	// Account metrics
	ActiveAccounts    prometheus.Gauge
	TotalAccounts     prometheus.Gauge
	AvailableAccounts prometheus.Gauge
	BlockedAccounts   prometheus.Counter

	// Filter metrics
	FilterLookups      prometheus.Counter
	FilterLookupErrors prometheus.Counter
	FilterFloodWaits   prometheus.Counter
	FilterMembers      *prometheus.CounterVec
	ReadyQueueSize     prometheus.Gauge

	// Run metrics
	MigrationsTotal   *prometheus.CounterVec
	MigrationDuration prometheus.Histogram

	// Kafka metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance registered with the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		InvitesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_service_invites_total",
				Help: "Total number of processed members by outcome",
			},
			[]string{"outcome"},
		),
		InviteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "migration_service_invite_duration_seconds",
			Help:    "Duration of a single invite call in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RateLimits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_service_rate_limits_total",
				Help: "Total number of rate limit signals received while inviting",
			},
			[]string{"kind"},
		),

		ActiveAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "migration_service_active_accounts",
			Help: "Current number of connected Telegram accounts",
		}),
		TotalAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "migration_service_total_accounts",
			Help: "Total number of configured Telegram accounts",
		}),
		AvailableAccounts: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "migration_service_available_accounts",
			Help: "Accounts that are neither blocked nor at their invite cap",
		}),
		BlockedAccounts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "migration_service_blocked_accounts_total",
			Help: "Total number of accounts disabled after a peer flood signal",
		}),

		FilterLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "migration_service_filter_lookups_total",
			Help: "Total number of remote status lookups issued by the activity filter",
		}),
		FilterLookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "migration_service_filter_lookup_errors_total",
			Help: "Total number of failed status lookups",
		}),
		FilterFloodWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "migration_service_filter_flood_waits_total",
			Help: "Total number of rate limit signals received by the activity filter",
		}),
		FilterMembers: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_service_filter_members_total",
				Help: "Total number of members classified by the activity filter",
			},
			[]string{"result"},
		),
		ReadyQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "migration_service_ready_queue_size",
			Help: "Members waiting in the ready queue",
		}),

		MigrationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_service_migrations_total",
				Help: "Total number of finished migration runs by final state",
			},
			[]string{"state"},
		),
		MigrationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "migration_service_migration_duration_seconds",
			Help:    "Active (unpaused) duration of migration runs in seconds",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800, 86400},
		}),

		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "migration_service_kafka_messages_produced_total",
			Help: "Total number of messages produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "migration_service_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"error_type"},
		),
	}
}

// RecordInvite records one processed member with its outcome and call duration.
// A zero duration means no remote call was made (bots).
func (m *Metrics) RecordInvite(outcome string, duration float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.InvitesTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		m.InviteDuration.Observe(duration)
	}
}

// RecordRateLimit records a rate limit signal by kind
func (m *Metrics) RecordRateLimit(kind string) {
	m.RateLimits.WithLabelValues(kind).Inc()
}

// UpdateAccounts updates account gauges
func (m *Metrics) UpdateAccounts(active, total int) {
	m.ActiveAccounts.Set(float64(active))
	m.TotalAccounts.Set(float64(total))
}

// UpdateAvailableAccounts sets the number of accounts eligible for work
func (m *Metrics) UpdateAvailableAccounts(available int) {
	m.AvailableAccounts.Set(float64(available))
}

// RecordAccountBlocked records an account disabled by a peer flood signal
func (m *Metrics) RecordAccountBlocked() {
	m.BlockedAccounts.Inc()
}

// RecordFilterLookup records a status lookup and whether it failed
func (m *Metrics) RecordFilterLookup(failed bool) {
	m.FilterLookups.Inc()
	if failed {
		m.FilterLookupErrors.Inc()
	}
}

// RecordFilterFloodWait records a rate limit signal seen by the filter
func (m *Metrics) RecordFilterFloodWait() {
	m.FilterFloodWaits.Inc()
}

// RecordFilterResult records a classification result (active, inactive, bot)
func (m *Metrics) RecordFilterResult(result string) {
	m.FilterMembers.WithLabelValues(result).Inc()
}

// UpdateReadyQueueSize sets the ready queue gauge
func (m *Metrics) UpdateReadyQueueSize(size int) {
	m.ReadyQueueSize.Set(float64(size))
}

// RecordMigration records a finished run
func (m *Metrics) RecordMigration(state string, duration float64) {
	m.MigrationsTotal.WithLabelValues(state).Inc()
	m.MigrationDuration.Observe(duration)
}

// RecordKafkaMessage records a produced Kafka message
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka production error with error type
func (m *Metrics) RecordKafkaError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.KafkaProduceErrors.WithLabelValues(errorType).Inc()
}
