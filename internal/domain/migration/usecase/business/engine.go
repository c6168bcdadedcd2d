package business

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/queue"
	filterbusiness "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/usecase/business"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	applogger "github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

// EngineConfig holds invitation engine timing parameters
type EngineConfig struct {
	// PollTimeout bounds one wait on the ready queue; an empty poll is not an error
	PollTimeout time.Duration

	// TooManyRequestsCooldown is slept before retrying a rate limit without a wait hint
	TooManyRequestsCooldown time.Duration

	// MaxFloodWait skips the retry when the server asks for a longer wait; 0 disables it
	MaxFloodWait time.Duration

	ProgressInterval time.Duration

	// InviteTimeout bounds a single in-flight invite call
	InviteTimeout time.Duration
}

// Engine sends invites with round-robin account rotation
type Engine struct {
	pool       *pool.Pool
	controller *Controller
	cfg        EngineConfig
	logger     zerolog.Logger
	metrics    *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an invitation engine over the account pool
func NewEngine(p *pool.Pool, controller *Controller, cfg EngineConfig, logger zerolog.Logger, m *metrics.Metrics) *Engine {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.InviteTimeout <= 0 {
		cfg.InviteTimeout = time.Minute
	}
	return &Engine{
		pool:       p,
		controller: controller,
		cfg:        cfg,
		logger:     logger.With().Str("component", "invitation_engine").Logger(),
		metrics:    m,
		sleep:      utils.Sleep,
	}
}

// workSource yields members to invite one at a time.
// Next returns false once the source is exhausted.
type workSource interface {
	Next(ctx context.Context) (domain.Member, bool, error)
}

type listSource struct {
	members []domain.Member
	pos     int
}

func (s *listSource) Next(ctx context.Context) (domain.Member, bool, error) {
	if s.pos >= len(s.members) {
		return domain.Member{}, false, nil
	}
	member := s.members[s.pos]
	s.pos++
	return member, true, nil
}

type queueSource struct {
	queue    *queue.Queue
	timeout  time.Duration
	complete func() bool
}

func (s *queueSource) Next(ctx context.Context) (domain.Member, bool, error) {
	for {
		member, ok, err := s.queue.Pop(ctx, s.timeout)
		if err != nil {
			return domain.Member{}, false, err
		}
		if ok {
			return member, true, nil
		}
		if s.complete() {
			return domain.Member{}, false, nil
		}
	}
}

// runState carries the mutable state of one engine run
type runState struct {
	counters *entities.Counters
	target   domain.Destination
	source   workSource
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	failures []entities.FailureRecord
}

func (r *runState) record(outcome entities.Outcome) {
	r.counters.Record(outcome)
	r.metrics.RecordInvite(string(outcome), 0)
}

func (r *runState) fail(outcome entities.Outcome, member domain.Member, acc *pool.Account, err error) {
	r.record(outcome)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, entities.FailureRecord{
		Timestamp: time.Now().UTC(),
		Kind:      string(outcome),
		UserID:    member.ID,
		Username:  member.Username,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		Account:   utils.MaskPhoneNumber(acc.ID()),
		Error:     err.Error(),
	})
}

func (r *runState) failureRecords() []entities.FailureRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.FailureRecord, len(r.failures))
	copy(out, r.failures)
	return out
}

// MigrateMembers invites a pre-filtered list (simple mode)
func (e *Engine) MigrateMembers(ctx context.Context, target domain.Destination, members []domain.Member, onProgress ProgressFunc) *entities.Result {
	counters := entities.NewCounters()
	e.controller.Attach(counters, nil)
	e.controller.SetTotal(len(members))

	return e.execute(ctx, target, &listSource{members: members}, counters, len(members), nil, nil, onProgress)
}

// MigrateWithFiltering runs the activity filter in the background and invites
// from its ready queue as members arrive (concurrent mode).
func (e *Engine) MigrateWithFiltering(
	ctx context.Context,
	target domain.Destination,
	members []domain.Member,
	filter *filterbusiness.ActivityFilter,
	strategy filterentities.Strategy,
	onProgress ProgressFunc,
) (*entities.Result, error) {
	counters := entities.NewCounters()
	e.controller.Attach(counters, filter.Stats)
	e.controller.SetTotal(len(members))

	filterCtx, stopFilter := context.WithCancel(ctx)
	defer stopFilter()

	var (
		wg        sync.WaitGroup
		filterErr error
		finished  = make(chan struct{})
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(finished)
		filterErr = filter.Start(filterCtx, members, strategy)
	}()

	ready := filter.Queue()
	source := &queueSource{
		queue:   ready,
		timeout: e.cfg.PollTimeout,
		complete: func() bool {
			if filter.IsComplete() {
				return true
			}
			select {
			case <-finished:
				return ready.Len() == 0
			default:
				return false
			}
		},
	}

	filterState := func() string { return filter.State().String() }
	result := e.execute(ctx, target, source, counters, len(members), filter.Stats, filterState, onProgress)

	stopFilter()
	wg.Wait()
	result.Filter = filterProgress(filter.Stats())
	result.Filter.State = filter.State().String()

	if filterErr != nil && !errors.Is(filterErr, context.Canceled) {
		return result, filterErr
	}
	return result, nil
}

func (e *Engine) execute(
	ctx context.Context,
	target domain.Destination,
	source workSource,
	counters *entities.Counters,
	total int,
	filterStats FilterStatsFunc,
	filterState func() string,
	onProgress ProgressFunc,
) *entities.Result {
	r := &runState{
		counters: counters,
		target:   target,
		source:   source,
		logger: e.logger.With().
			Str("run_id", e.controller.RunID()).
			Str("target", target.Label()).
			Logger(),
		metrics: e.metrics,
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		e.reportProgress(progressCtx, onProgress, func() entities.Progress {
			return e.snapshot(counters, total, filterStats, filterState)
		})
	}()

	reason := e.loop(ctx, r)

	stopProgress()
	<-progressDone

	result := &entities.Result{
		Counters:   counters.Snapshot(),
		Processed:  counters.Processed(),
		Total:      total,
		StopReason: reason,
		Failures:   r.failureRecords(),
	}

	r.logger.Info().
		Str("category", applogger.CategoryPerformance).
		Str("stop_reason", string(reason)).
		Int64("processed", result.Processed).
		Int("total", total).
		Int64("success", result.Counters[entities.OutcomeSuccess]).
		Int64("errors", counters.Errors()).
		Dur("elapsed", e.controller.Elapsed()).
		Msg("Invitation loop finished")

	return result
}

// checkpoint blocks while paused and reports cancellation
func (e *Engine) checkpoint(ctx context.Context) error {
	return e.controller.WaitWhilePaused(ctx)
}

func (e *Engine) loop(ctx context.Context, r *runState) entities.StopReason {
	index := 0

	for {
		if err := e.checkpoint(ctx); err != nil {
			return entities.StopCancelled
		}

		// the eligible set shrinks as accounts hit the cap or get blocked
		accounts := e.pool.Available()
		e.metrics.UpdateAvailableAccounts(len(accounts))
		if len(accounts) == 0 {
			r.logger.Warn().
				Str("category", applogger.CategoryAccount).
				Msg("No available accounts left, stopping")
			return entities.StopNoAccounts
		}

		acc := accounts[index%len(accounts)]
		e.controller.SetCurrentAccount(acc.ID())

		// batch size is fixed for the whole batch; delays are read live
		batchSize := e.controller.SpeedProfile().BatchSize
		if batchSize <= 0 {
			batchSize = 1
		}

		batch := e.runBatch(ctx, r, acc, batchSize)
		if batch.cancelled {
			return entities.StopCancelled
		}
		if batch.attempted > 0 {
			index++
		}
		if batch.exhausted {
			return entities.StopExhausted
		}

		if batch.attempted > 0 && len(e.pool.Available()) > 0 {
			delay := e.controller.SpeedProfile().AccountDelay.Random()
			r.logger.Debug().
				Str("account", utils.MaskPhoneNumber(acc.ID())).
				Int("attempted", batch.attempted).
				Dur("delay", delay).
				Msg("Batch finished, switching account")
			if err := e.sleep(ctx, delay); err != nil {
				return entities.StopCancelled
			}
		}
	}
}

type batchResult struct {
	attempted int
	exhausted bool
	cancelled bool
}

func (e *Engine) runBatch(ctx context.Context, r *runState, acc *pool.Account, batchSize int) batchResult {
	var res batchResult
	logger := r.logger.With().Str("account", utils.MaskPhoneNumber(acc.ID())).Logger()

	for res.attempted < batchSize {
		if err := e.checkpoint(ctx); err != nil {
			res.cancelled = true
			return res
		}
		if !e.pool.IsAvailable(acc) {
			return res
		}

		member, ok, err := r.source.Next(ctx)
		if err != nil {
			res.cancelled = true
			return res
		}
		if !ok {
			res.exhausted = true
			return res
		}

		if member.Bot {
			r.record(entities.OutcomeBot)
			logger.Debug().Int64("user_id", member.ID).Msg("Skipping bot")
			continue
		}

		// a pause may have started while waiting on the queue
		if err := e.checkpoint(ctx); err != nil {
			res.cancelled = true
			return res
		}

		res.attempted++
		endBatch := e.inviteMember(ctx, r, acc, member, logger)
		e.controller.Touch()
		if endBatch {
			return res
		}

		if res.attempted < batchSize {
			if err := e.sleep(ctx, e.controller.SpeedProfile().InviteDelay.Random()); err != nil {
				res.cancelled = true
				return res
			}
		}
	}

	return res
}

// send issues one invite. A call in flight is allowed to finish after cancellation.
func (e *Engine) send(ctx context.Context, r *runState, acc *pool.Account, member domain.Member) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.InviteTimeout)
	defer cancel()

	start := time.Now()
	err := acc.Client().InviteToChannel(callCtx, r.target, member)
	e.metrics.InviteDuration.Observe(time.Since(start).Seconds())
	return err
}

func (e *Engine) recordSuccess(r *runState, acc *pool.Account, member domain.Member, logger zerolog.Logger) {
	r.record(entities.OutcomeSuccess)
	usage := e.pool.IncrementUsage(acc)

	logger.Debug().
		Int64("user_id", member.ID).
		Int("usage", usage).
		Msg("Member invited")

	if usage >= e.pool.Limit() {
		logger.Info().
			Str("category", applogger.CategoryAccount).
			Int("limit", e.pool.Limit()).
			Msg("Account reached invite cap")
	}
}

// inviteMember invites one member and applies the recovery policy of the
// failure kind. It returns true when the account's batch must end.
func (e *Engine) inviteMember(ctx context.Context, r *runState, acc *pool.Account, member domain.Member, logger zerolog.Logger) bool {
	err := e.send(ctx, r, acc, member)
	if err == nil {
		e.recordSuccess(r, acc, member, logger)
		return false
	}

	kind, wait := domain.Classify(err)
	if kind.IsRateLimit() {
		return e.retryAfterRateLimit(ctx, r, acc, member, kind, wait, logger)
	}
	return e.handleFailure(r, acc, member, kind, err, logger)
}

func (e *Engine) retryAfterRateLimit(
	ctx context.Context,
	r *runState,
	acc *pool.Account,
	member domain.Member,
	kind domain.ErrorKind,
	wait time.Duration,
	logger zerolog.Logger,
) bool {
	outcome := entities.OutcomeFloodWait
	if kind == domain.KindTooManyRequests {
		outcome = entities.OutcomeTooManyRequests
		wait = e.cfg.TooManyRequestsCooldown
	} else if wait <= 0 {
		wait = e.cfg.TooManyRequestsCooldown
	}
	e.metrics.RecordRateLimit(kind.String())

	if e.cfg.MaxFloodWait > 0 && wait > e.cfg.MaxFloodWait {
		logger.Warn().
			Str("kind", kind.String()).
			Dur("wait", wait).
			Dur("max_wait", e.cfg.MaxFloodWait).
			Int64("user_id", member.ID).
			Msg("Rate limit wait above ceiling, skipping member")
		r.fail(outcome, member, acc, domain.NewRPCError(kind, wait, errors.New("wait above ceiling")))
		return false
	}

	logger.Warn().
		Str("kind", kind.String()).
		Dur("wait", wait).
		Int64("user_id", member.ID).
		Msg("Rate limited, waiting before retry")

	if err := e.sleep(ctx, wait); err != nil {
		r.fail(outcome, member, acc, domain.NewRPCError(kind, wait, err))
		return false
	}

	retryErr := e.send(ctx, r, acc, member)
	if retryErr == nil {
		e.recordSuccess(r, acc, member, logger)
		return false
	}

	retryKind, _ := domain.Classify(retryErr)
	switch retryKind {
	case domain.KindPeerFlood, domain.KindAdminRequired:
		return e.handleFailure(r, acc, member, retryKind, retryErr, logger)
	}

	logger.Warn().Err(retryErr).
		Int64("user_id", member.ID).
		Msg("Retry after rate limit failed")
	r.fail(entities.OutcomeOther, member, acc, retryErr)
	return false
}

// handleFailure applies the terminal policies of non rate-limit kinds
func (e *Engine) handleFailure(r *runState, acc *pool.Account, member domain.Member, kind domain.ErrorKind, err error, logger zerolog.Logger) bool {
	switch kind {
	case domain.KindPeerFlood:
		r.fail(entities.OutcomePeerFlood, member, acc, err)
		if e.pool.MarkBlocked(acc) {
			e.metrics.RecordAccountBlocked()
			logger.Warn().
				Str("category", applogger.CategoryAccount).
				Int("usage", e.pool.Usage(acc)).
				Msg("Account blocked after peer flood")
		}
		return true
	case domain.KindAdminRequired:
		r.fail(entities.OutcomeAdminRequired, member, acc, err)
		logger.Error().Err(err).
			Str("category", applogger.CategoryAccount).
			Msg("Account lacks invite rights in target group, ending batch")
		return true
	case domain.KindPrivacyRestricted:
		r.fail(entities.OutcomePrivacyRestricted, member, acc, err)
	case domain.KindNotMutualContact:
		r.fail(entities.OutcomeNotMutualContact, member, acc, err)
	case domain.KindTooManyChannels:
		r.fail(entities.OutcomeTooManyChannels, member, acc, err)
	case domain.KindBannedInChannel:
		r.fail(entities.OutcomeBannedInChannel, member, acc, err)
	case domain.KindDeletedAccount:
		r.fail(entities.OutcomeDeletedAccount, member, acc, err)
	case domain.KindFloodWait:
		r.fail(entities.OutcomeFloodWait, member, acc, err)
	case domain.KindTooManyRequests:
		r.fail(entities.OutcomeTooManyRequests, member, acc, err)
	case domain.KindUncategorized:
		r.fail(entities.OutcomeOther, member, acc, err)
	default:
		r.fail(entities.OutcomeOther, member, acc, err)
	}

	logger.Debug().Err(err).
		Str("kind", kind.String()).
		Int64("user_id", member.ID).
		Msg("Invite failed")
	return false
}
