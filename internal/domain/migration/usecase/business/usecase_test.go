package business

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/migration-service/config"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	filterbusiness "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/usecase/business"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/repository/memory"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/mocks"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
	pkgerrors "github.com/Conte777/NewsFlow/services/migration-service/pkg/errors"
)

type fakeExporter struct {
	mu       sync.Mutex
	runID    string
	failures []entities.FailureRecord
}

func (e *fakeExporter) Export(ctx context.Context, runID string, failures []entities.FailureRecord) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runID = runID
	e.failures = failures
	return "reports/" + runID + ".csv", nil
}

type fakePublisher struct {
	mu        sync.Mutex
	completed []entities.Run
}

func (p *fakePublisher) PublishProgress(ctx context.Context, progress entities.Progress) error {
	return nil
}

func (p *fakePublisher) PublishCompleted(ctx context.Context, run entities.Run) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, run)
	return nil
}

type useCaseFixture struct {
	uc        *UseCase
	client    *mocks.TelegramClient
	pool      *pool.Pool
	exporter  *fakeExporter
	publisher *fakePublisher
	runs      deps.RunRepository
}

func newUseCaseFixture(t *testing.T, members []domain.Member) *useCaseFixture {
	client := mocks.NewTelegramClient("+10000000001")
	client.Members = members
	client.Destinations = map[string]domain.Destination{
		"source": {ID: 1, Title: "Source", Username: "source"},
		"target": {ID: 2, Title: "Target", Username: "target"},
	}

	p := newTestPool(t, 100, client)
	controller := newTestController(zeroDelayProfiles())
	engine, _ := newTestEngine(p, controller, EngineConfig{})
	filters := filterbusiness.NewFactory(
		&config.FilterConfig{LookupsPerWindow: 30, Window: time.Minute, MaxRetries: 1, ActiveWithin: 7 * 24 * time.Hour},
		&config.MigrationConfig{TooManyRequestsCooldown: time.Second},
		zerolog.Nop(),
		metrics.GetDefaultMetrics(),
	)

	f := &useCaseFixture{
		client:    client,
		pool:      p,
		exporter:  &fakeExporter{},
		publisher: &fakePublisher{},
		runs:      memory.NewRepository(),
	}
	f.uc = NewUseCase(controller, engine, filters, p, f.exporter, f.publisher, f.runs,
		filterentities.StrategyBasic, zerolog.Nop(), metrics.GetDefaultMetrics())
	f.uc.newID = func() string { return "run-1" }
	return f
}

func fixtureMembers() []domain.Member {
	members := makeMembers(6)
	members[1].Status = domain.UserStatus{Kind: domain.StatusLastMonth}
	members[4].Bot = true
	return members
}

func TestUseCase_StartRunsToCompletion(t *testing.T) {
	for _, mode := range []string{"simple", "concurrent"} {
		t.Run(mode, func(t *testing.T) {
			f := newUseCaseFixture(t, fixtureMembers())
			f.client.InviteFunc = failFor(map[int64]error{3: rpcErr(domain.KindPrivacyRestricted)})

			run, err := f.uc.Start(context.Background(), entities.StartRequest{
				Source: "@source",
				Target: "@target",
				Mode:   mode,
			})
			require.NoError(t, err)
			assert.Equal(t, "run-1", run.ID)
			assert.Equal(t, entities.StateRunning, run.State)
			assert.Equal(t, entities.Mode(mode), run.Mode)
			assert.Equal(t, "basic", run.Strategy)

			f.uc.Wait()

			saved, err := f.uc.GetRun(context.Background(), "run-1")
			require.NoError(t, err)
			assert.Equal(t, entities.StateCompleted, saved.State)
			assert.Equal(t, entities.StopExhausted, saved.StopReason)
			assert.Equal(t, int64(3), saved.Counters[entities.OutcomeSuccess])
			assert.Equal(t, int64(1), saved.Counters[entities.OutcomePrivacyRestricted])
			assert.Equal(t, int64(1), saved.Counters[entities.OutcomeBot])
			assert.Equal(t, "reports/run-1.csv", saved.ReportLocation)
			require.NotNil(t, saved.FinishedAt)

			require.Len(t, f.exporter.failures, 1)
			assert.Equal(t, int64(3), f.exporter.failures[0].UserID)

			require.Len(t, f.publisher.completed, 1)
			assert.Equal(t, entities.StateCompleted, f.publisher.completed[0].State)

			runs, err := f.uc.ListRuns(context.Background(), 0)
			require.NoError(t, err)
			assert.Len(t, runs, 1)
			assert.Equal(t, entities.StateCompleted, f.uc.Statistics().State)
		})
	}
}

func TestUseCase_StartValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     entities.StartRequest
		wantErr error
	}{
		{"missing source", entities.StartRequest{Target: "target"}, migrationerrors.ErrMissingSource},
		{"missing target", entities.StartRequest{Source: "source"}, migrationerrors.ErrMissingTarget},
		{"same group", entities.StartRequest{Source: "source", Target: "@source"}, migrationerrors.ErrSameGroup},
		{"unknown speed", entities.StartRequest{Source: "source", Target: "target", Speed: "warp"}, migrationerrors.ErrUnknownSpeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUseCaseFixture(t, fixtureMembers())
			_, err := f.uc.Start(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, entities.StateIdle, f.uc.Statistics().State)
		})
	}
}

func TestUseCase_StartTypedErrors(t *testing.T) {
	f := newUseCaseFixture(t, fixtureMembers())

	_, err := f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target", Mode: "turbo"})
	var validationErr *pkgerrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target", Strategy: "psychic"})
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "missing"})
	var notFoundErr *pkgerrors.NotFoundError
	require.True(t, errors.As(err, &notFoundErr))
	assert.Contains(t, err.Error(), "missing")
}

func TestUseCase_StartWithoutAccounts(t *testing.T) {
	f := newUseCaseFixture(t, fixtureMembers())
	f.pool.MarkBlocked(f.pool.Main())

	_, err := f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target"})
	assert.ErrorIs(t, err, migrationerrors.ErrNoAccounts)
}

func TestUseCase_RejectsSecondStart(t *testing.T) {
	f := newUseCaseFixture(t, makeMembers(3))
	release := make(chan struct{})
	f.client.InviteFunc = func(ctx context.Context, target domain.Destination, member domain.Member) error {
		<-release
		return nil
	}

	_, err := f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target"})
	require.NoError(t, err)

	_, err = f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target"})
	assert.ErrorIs(t, err, migrationerrors.ErrMigrationRunning)

	close(release)
	f.uc.Wait()
	assert.Equal(t, entities.StateCompleted, f.uc.Statistics().State)
}

func TestUseCase_SpeedOverride(t *testing.T) {
	f := newUseCaseFixture(t, makeMembers(2))

	run, err := f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target", Speed: "slow"})
	require.NoError(t, err)
	assert.Equal(t, entities.SpeedSlow, run.Speed)
	f.uc.Wait()
}

func TestUseCase_ShutdownCancelsActiveRun(t *testing.T) {
	f := newUseCaseFixture(t, makeMembers(500))
	f.client.InviteFunc = func(ctx context.Context, target domain.Destination, member domain.Member) error {
		time.Sleep(time.Millisecond)
		return nil
	}

	_, err := f.uc.Start(context.Background(), entities.StartRequest{Source: "source", Target: "target"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.uc.Shutdown(ctx))

	saved, err := f.runs.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, entities.StateCancelled, saved.State)
	assert.Equal(t, entities.StopCancelled, saved.StopReason)
	assert.Less(t, saved.Processed, int64(500))
}

func TestUseCase_PauseResumeCancel(t *testing.T) {
	f := newUseCaseFixture(t, makeMembers(3))

	assert.ErrorIs(t, f.uc.Pause(), migrationerrors.ErrNotRunning)
	assert.ErrorIs(t, f.uc.Resume(), migrationerrors.ErrNotPaused)
	assert.ErrorIs(t, f.uc.Cancel(), migrationerrors.ErrNotActive)
	assert.Equal(t, "No migration has been started.", f.uc.DetailedStatus())
}
