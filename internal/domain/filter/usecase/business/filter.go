package business

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/queue"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice on one filter
	ErrAlreadyStarted = errors.New("filter already started")

	// ErrNoLookupClient is returned when the advanced strategy has no client to query
	ErrNoLookupClient = errors.New("advanced strategy requires a lookup client")
)

const progressLogEvery = 100

// Config holds activity filter parameters
type Config struct {
	LookupsPerWindow int
	Window           time.Duration

	// MaxRetries is how many times a rate-limited lookup is retried before
	// falling back to the roster status
	MaxRetries   int
	ActiveWithin time.Duration

	// RateLimitCooldown is used when a rate limit carries no wait hint
	RateLimitCooldown time.Duration
}

// ActivityFilter classifies members and feeds the active ones into a ready queue.
// One filter serves one run.
type ActivityFilter struct {
	cfg     Config
	lookup  domain.TelegramClient
	limiter *WindowLimiter
	ready   *queue.Queue
	logger  zerolog.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	state       atomic.Int32
	total       atomic.Int64
	processed   atomic.Int64
	activeFound atomic.Int64
	rejected    atomic.Int64
	floodWaits  atomic.Int64
	errors      atomic.Int64
}

// NewActivityFilter creates a filter. lookup may be nil when only the basic strategy is used.
func NewActivityFilter(cfg Config, lookup domain.TelegramClient, logger zerolog.Logger, m *metrics.Metrics) *ActivityFilter {
	return &ActivityFilter{
		cfg:     cfg,
		lookup:  lookup,
		limiter: NewWindowLimiter(cfg.LookupsPerWindow, cfg.Window),
		ready:   queue.New(),
		logger:  logger.With().Str("component", "activity_filter").Logger(),
		metrics: m,
		now:     time.Now,
		sleep:   utils.Sleep,
	}
}

// Start classifies members in order and pushes every active member and every
// bot into the ready queue. It blocks until all members are processed or ctx
// is done; in both cases the filter ends in StateComplete.
func (f *ActivityFilter) Start(ctx context.Context, members []domain.Member, strategy entities.Strategy) error {
	if strategy == entities.StrategyAdvanced && f.lookup == nil {
		return ErrNoLookupClient
	}
	if !f.state.CompareAndSwap(int32(entities.StateIdle), int32(entities.StateFiltering)) {
		return ErrAlreadyStarted
	}
	defer f.state.Store(int32(entities.StateComplete))

	f.total.Store(int64(len(members)))
	started := f.now()

	f.logger.Info().
		Int("members", len(members)).
		Str("strategy", string(strategy)).
		Msg("Activity filtering started")

	for _, member := range members {
		if err := ctx.Err(); err != nil {
			f.logger.Info().
				Int64("processed", f.processed.Load()).
				Msg("Activity filtering stopped")
			return err
		}

		if member.Bot {
			// bots are counted by the engine, not dropped here
			f.processed.Add(1)
			f.push(member)
			f.metrics.RecordFilterResult("bot")
			continue
		}

		active, err := f.classify(ctx, member, strategy)
		if err != nil {
			f.logger.Info().
				Int64("processed", f.processed.Load()).
				Msg("Activity filtering stopped")
			return err
		}

		processed := f.processed.Add(1)
		if active {
			f.activeFound.Add(1)
			f.push(member)
			f.metrics.RecordFilterResult("active")
		} else {
			f.rejected.Add(1)
			f.metrics.RecordFilterResult("inactive")
		}

		if processed%progressLogEvery == 0 {
			f.logger.Info().
				Int64("processed", processed).
				Int("total", len(members)).
				Int64("active_found", f.activeFound.Load()).
				Msg("Activity filtering progress")
		}
	}

	f.logger.Info().
		Int64("processed", f.processed.Load()).
		Int64("active_found", f.activeFound.Load()).
		Int64("flood_waits", f.floodWaits.Load()).
		Int64("errors", f.errors.Load()).
		Dur("elapsed", f.now().Sub(started)).
		Msg("Activity filtering complete")

	return nil
}

func (f *ActivityFilter) push(member domain.Member) {
	f.ready.Push(member)
	f.metrics.UpdateReadyQueueSize(f.ready.Len())
}

func (f *ActivityFilter) classify(ctx context.Context, member domain.Member, strategy entities.Strategy) (bool, error) {
	status := member.Status
	if strategy == entities.StrategyAdvanced {
		var err error
		status, err = f.lookupStatus(ctx, member)
		if err != nil {
			return false, err
		}
	}
	return IsActive(status, f.now(), f.cfg.ActiveWithin), nil
}

// lookupStatus fetches a fresh status through the window limiter. Platform
// errors fall back to the roster status; only context errors are returned.
func (f *ActivityFilter) lookupStatus(ctx context.Context, member domain.Member) (domain.UserStatus, error) {
	for attempt := 0; ; attempt++ {
		waited, err := f.limiter.Wait(ctx)
		if err != nil {
			return domain.UserStatus{}, err
		}
		if waited > 0 {
			f.logger.Debug().
				Dur("waited", waited).
				Msg("Lookup window full, waited for reset")
		}

		status, err := f.lookup.GetUserStatus(ctx, member)
		f.metrics.RecordFilterLookup(err != nil)
		if err == nil {
			return status, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.UserStatus{}, ctxErr
		}

		kind, wait := domain.Classify(err)
		if !kind.IsRateLimit() {
			f.errors.Add(1)
			f.logger.Warn().Err(err).
				Int64("user_id", member.ID).
				Msg("Status lookup failed, using roster status")
			return member.Status, nil
		}

		f.floodWaits.Add(1)
		f.metrics.RecordFilterFloodWait()

		if attempt >= f.cfg.MaxRetries {
			f.logger.Warn().
				Int64("user_id", member.ID).
				Int("attempts", attempt+1).
				Msg("Status lookup still rate limited, using roster status")
			return member.Status, nil
		}

		if wait <= 0 {
			wait = f.cfg.RateLimitCooldown
		}
		f.logger.Warn().
			Str("kind", kind.String()).
			Dur("wait", wait).
			Int64("user_id", member.ID).
			Msg("Status lookup rate limited, backing off")

		if err := f.sleep(ctx, wait); err != nil {
			return domain.UserStatus{}, err
		}
	}
}

// Queue returns the ready queue consumed by the invitation engine
func (f *ActivityFilter) Queue() *queue.Queue {
	return f.ready
}

// State returns the current lifecycle state
func (f *ActivityFilter) State() entities.State {
	return entities.State(f.state.Load())
}

// IsComplete reports whether filtering has finished and the ready queue is drained
func (f *ActivityFilter) IsComplete() bool {
	return f.State() == entities.StateComplete && f.ready.Len() == 0
}

// Stats returns a snapshot of the filter counters
func (f *ActivityFilter) Stats() entities.Stats {
	return entities.Stats{
		Total:       int(f.total.Load()),
		Processed:   f.processed.Load(),
		ActiveFound: f.activeFound.Load(),
		Rejected:    f.rejected.Load(),
		FloodWaits:  f.floodWaits.Load(),
		Errors:      f.errors.Load(),
		Queued:      f.ready.Len(),
	}
}
