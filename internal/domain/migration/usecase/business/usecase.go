package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	filterbusiness "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/usecase/business"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
	applogger "github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/NewsFlow/services/migration-service/pkg/errors"
)

const (
	finalizeTimeout = 30 * time.Second
	publishTimeout  = 5 * time.Second
	defaultRunLimit = 20
)

// UseCase orchestrates migration runs: resolve, scrape, filter, invite, report
type UseCase struct {
	controller      *Controller
	engine          *Engine
	filters         *filterbusiness.Factory
	pool            *pool.Pool
	exporter        deps.FailureExporter
	publisher       deps.EventPublisher
	runs            deps.RunRepository
	defaultStrategy filterentities.Strategy
	logger          zerolog.Logger
	metrics         *metrics.Metrics

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	newID   func() string
}

// NewUseCase creates a new migration use case
func NewUseCase(
	controller *Controller,
	engine *Engine,
	filters *filterbusiness.Factory,
	accounts *pool.Pool,
	exporter deps.FailureExporter,
	publisher deps.EventPublisher,
	runs deps.RunRepository,
	defaultStrategy filterentities.Strategy,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	ctx, stop := context.WithCancel(context.Background())
	return &UseCase{
		controller:      controller,
		engine:          engine,
		filters:         filters,
		pool:            accounts,
		exporter:        exporter,
		publisher:       publisher,
		runs:            runs,
		defaultStrategy: defaultStrategy,
		logger:          logger.With().Str("component", "migration_usecase").Logger(),
		metrics:         m,
		baseCtx:         ctx,
		stop:            stop,
		newID:           uuid.NewString,
	}
}

// Start validates the request, resolves both groups and launches the run in the background
func (u *UseCase) Start(ctx context.Context, req entities.StartRequest) (*entities.Run, error) {
	if strings.TrimSpace(req.Source) == "" {
		return nil, migrationerrors.ErrMissingSource
	}
	if strings.TrimSpace(req.Target) == "" {
		return nil, migrationerrors.ErrMissingTarget
	}

	mode, err := entities.ParseMode(req.Mode)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	strategy := u.defaultStrategy
	if req.Strategy != "" {
		if strategy, err = filterentities.ParseStrategy(req.Strategy); err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
	}

	if u.controller.State().IsActive() {
		return nil, migrationerrors.ErrMigrationRunning
	}

	main := u.pool.Main()
	if main == nil || len(u.pool.Available()) == 0 {
		return nil, migrationerrors.ErrNoAccounts
	}
	client := main.Client()

	source, err := u.resolve(ctx, client, req.Source)
	if err != nil {
		return nil, err
	}
	target, err := u.resolve(ctx, client, req.Target)
	if err != nil {
		return nil, err
	}
	if source.ID == target.ID {
		return nil, migrationerrors.ErrSameGroup
	}

	if req.Speed != "" {
		if err := u.controller.SetSpeed(req.Speed); err != nil {
			return nil, err
		}
	}

	runID := u.newID()
	runCtx, err := u.controller.Start(u.baseCtx, runID, source.Label(), target.Label(), 0)
	if err != nil {
		return nil, err
	}

	run := &entities.Run{
		ID:        runID,
		Source:    source.Label(),
		Target:    target.Label(),
		Mode:      mode,
		Strategy:  string(strategy),
		Speed:     u.controller.Speed(),
		State:     entities.StateRunning,
		StartedAt: time.Now().UTC(),
	}
	snapshot := *run

	u.wg.Add(1)
	go u.execute(runCtx, run, client, source, target, strategy)

	return &snapshot, nil
}

func (u *UseCase) resolve(ctx context.Context, client deps.MemberSource, ref string) (domain.Destination, error) {
	dest, err := client.ResolveDestination(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrDestinationNotFound) || errors.Is(err, domain.ErrInvalidDestination) {
			return domain.Destination{}, pkgerrors.NewNotFoundErrorf("group %s not found", ref)
		}
		return domain.Destination{}, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return dest, nil
}

// execute runs one migration to the end and finalizes it
func (u *UseCase) execute(
	ctx context.Context,
	run *entities.Run,
	client domain.TelegramClient,
	source, target domain.Destination,
	strategy filterentities.Strategy,
) {
	defer u.wg.Done()

	logger := u.logger.With().Str("run_id", run.ID).Logger()

	result, err := u.migrate(ctx, run, client, source, target, strategy, logger)
	if err != nil {
		run.Error = err.Error()
		logger.Error().Err(err).
			Str("category", applogger.CategoryError).
			Msg("Migration failed")
	}

	run.State = u.controller.Complete()
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.ElapsedSeconds = u.controller.Elapsed().Seconds()
	if result != nil {
		run.Counters = result.Counters
		run.Processed = result.Processed
		run.Total = result.Total
		run.StopReason = result.StopReason
	}

	finalizeCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	if result != nil && len(result.Failures) > 0 {
		location, err := u.exporter.Export(finalizeCtx, run.ID, result.Failures)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to export failure report")
		} else if location != "" {
			run.ReportLocation = location
			logger.Info().
				Str("location", location).
				Int("failures", len(result.Failures)).
				Msg("Failure report exported")
		}
	}

	if err := u.runs.Save(finalizeCtx, run); err != nil {
		logger.Error().Err(err).Msg("Failed to save migration run")
	}

	if err := u.publisher.PublishCompleted(finalizeCtx, *run); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish completion event")
	}

	u.metrics.RecordMigration(string(run.State), run.ElapsedSeconds)

	logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("state", string(run.State)).
		Str("stop_reason", string(run.StopReason)).
		Int64("processed", run.Processed).
		Int("total", run.Total).
		Str("elapsed", FormatDuration(u.controller.Elapsed())).
		Msg("Migration finished")
}

func (u *UseCase) migrate(
	ctx context.Context,
	run *entities.Run,
	client domain.TelegramClient,
	source, target domain.Destination,
	strategy filterentities.Strategy,
	logger zerolog.Logger,
) (*entities.Result, error) {
	members, err := client.ListMembers(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", source.Label(), err)
	}
	u.controller.SetTotal(len(members))

	logger.Info().
		Int("members", len(members)).
		Str("mode", string(run.Mode)).
		Str("strategy", string(strategy)).
		Msg("Source members loaded")

	filter := u.filters.New(client)
	onProgress := u.progressPublisher(logger)

	if run.Mode == entities.ModeConcurrent {
		return u.engine.MigrateWithFiltering(ctx, target, members, filter, strategy, onProgress)
	}

	// simple mode filters everything first, then invites from the list
	if err := filter.Start(ctx, members, strategy); err != nil {
		if errors.Is(err, context.Canceled) {
			return &entities.Result{Counters: entities.NewCounters().Snapshot(), StopReason: entities.StopCancelled}, nil
		}
		return nil, fmt.Errorf("activity filter: %w", err)
	}

	ready := filter.Queue()
	filtered := make([]domain.Member, 0, ready.Len())
	for {
		member, ok := ready.TryPop()
		if !ok {
			break
		}
		filtered = append(filtered, member)
	}

	logger.Info().
		Int("members", len(members)).
		Int("active", len(filtered)).
		Msg("Pre-filtering finished")

	return u.engine.MigrateMembers(ctx, target, filtered, onProgress), nil
}

func (u *UseCase) progressPublisher(logger zerolog.Logger) ProgressFunc {
	return func(progress entities.Progress) {
		event := logger.Info().
			Str("category", applogger.CategoryMigration).
			Int64("processed", progress.Processed).
			Int("total", progress.Total).
			Int64("success", progress.Counters[entities.OutcomeSuccess]).
			Str("elapsed", progress.Elapsed).
			Str("eta", progress.ETA)
		if progress.Filter != nil {
			event = event.
				Int64("filter_processed", progress.Filter.Processed).
				Int64("active_found", progress.Filter.ActiveFound).
				Int("ready_queue", progress.Filter.ReadyQueueSize)
		}
		event.Msg("Migration progress")

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := u.publisher.PublishProgress(ctx, progress); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish progress event")
		}
	}
}

// Pause pauses the active run
func (u *UseCase) Pause() error {
	return u.controller.Pause()
}

// Resume resumes a paused run
func (u *UseCase) Resume() error {
	return u.controller.Resume()
}

// Cancel cancels the active run
func (u *UseCase) Cancel() error {
	return u.controller.Cancel()
}

// SetSpeed changes the speed profile, also while a run is in progress
func (u *UseCase) SetSpeed(name string) error {
	return u.controller.SetSpeed(name)
}

// Statistics returns the structured status snapshot
func (u *UseCase) Statistics() entities.Statistics {
	return u.controller.Statistics()
}

// DetailedStatus returns the human readable status summary
func (u *UseCase) DetailedStatus() string {
	return u.controller.DetailedStatus()
}

// ListRuns returns recent finished runs, newest first
func (u *UseCase) ListRuns(ctx context.Context, limit int) ([]entities.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	return u.runs.List(ctx, limit)
}

// GetRun returns one finished run
func (u *UseCase) GetRun(ctx context.Context, id string) (*entities.Run, error) {
	return u.runs.Get(ctx, id)
}

// Wait blocks until the background run, if any, has finished
func (u *UseCase) Wait() {
	u.wg.Wait()
}

// Shutdown cancels any active run and waits for it to finalize
func (u *UseCase) Shutdown(ctx context.Context) error {
	if u.controller.State().IsActive() {
		_ = u.controller.Cancel()
	}
	u.stop()

	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("migration did not stop in time: %w", ctx.Err())
	}
}
