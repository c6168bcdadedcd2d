package business

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestController_StateMachine(t *testing.T) {
	c := newTestController(zeroDelayProfiles())
	assert.Equal(t, entities.StateIdle, c.State())

	assert.ErrorIs(t, c.Pause(), migrationerrors.ErrNotRunning)
	assert.ErrorIs(t, c.Resume(), migrationerrors.ErrNotPaused)
	assert.ErrorIs(t, c.Cancel(), migrationerrors.ErrNotActive)

	_, err := c.Start(context.Background(), "run-1", "a", "b", 10)
	require.NoError(t, err)
	assert.Equal(t, entities.StateRunning, c.State())

	_, err = c.Start(context.Background(), "run-2", "a", "b", 10)
	assert.ErrorIs(t, err, migrationerrors.ErrMigrationRunning)

	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), migrationerrors.ErrNotRunning)

	_, err = c.Start(context.Background(), "run-2", "a", "b", 10)
	assert.ErrorIs(t, err, migrationerrors.ErrMigrationRunning, "paused still blocks a new start")

	require.NoError(t, c.Resume())
	assert.ErrorIs(t, c.Resume(), migrationerrors.ErrNotPaused)

	require.NoError(t, c.Cancel())
	assert.Equal(t, entities.StateCancelled, c.State())
	assert.ErrorIs(t, c.Cancel(), migrationerrors.ErrNotActive)

	_, err = c.Start(context.Background(), "run-2", "a", "b", 10)
	require.NoError(t, err)
	assert.Equal(t, "run-2", c.RunID())
}

func TestController_CompleteKeepsCancelled(t *testing.T) {
	c := newTestController(zeroDelayProfiles())
	ctx, err := c.Start(context.Background(), "run-1", "a", "b", 0)
	require.NoError(t, err)

	require.NoError(t, c.Cancel())
	assert.Error(t, ctx.Err(), "cancel ends the run context")
	assert.Equal(t, entities.StateCancelled, c.Complete())

	ctx, err = c.Start(context.Background(), "run-2", "a", "b", 0)
	require.NoError(t, err)
	assert.Equal(t, entities.StateCompleted, c.Complete())
	assert.Error(t, ctx.Err())
}

func TestController_WaitWhilePaused(t *testing.T) {
	c := newTestController(zeroDelayProfiles())
	ctx, err := c.Start(context.Background(), "run-1", "a", "b", 0)
	require.NoError(t, err)

	require.NoError(t, c.WaitWhilePaused(ctx), "running never blocks")

	require.NoError(t, c.Pause())
	done := make(chan error, 1)
	go func() { done <- c.WaitWhilePaused(ctx) }()

	select {
	case <-done:
		t.Fatal("wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.Resume())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after resume")
	}
}

func TestController_CancelReleasesPausedWait(t *testing.T) {
	c := newTestController(zeroDelayProfiles())
	ctx, err := c.Start(context.Background(), "run-1", "a", "b", 0)
	require.NoError(t, err)
	require.NoError(t, c.Pause())

	done := make(chan error, 1)
	go func() { done <- c.WaitWhilePaused(ctx) }()

	require.NoError(t, c.Cancel())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, migrationerrors.ErrMigrationCancelled)
	case <-time.After(time.Second):
		t.Fatal("wait did not return after cancel")
	}
}

func TestController_ElapsedExcludesPauses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestController(zeroDelayProfiles())
	c.now = clock.Now

	_, err := c.Start(context.Background(), "run-1", "a", "b", 0)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	require.NoError(t, c.Pause())
	clock.Advance(5 * time.Second)

	assert.Equal(t, 10*time.Second, c.Elapsed())
	assert.Equal(t, 5*time.Second, c.PausedDuration())
	assert.Equal(t, "0:00:05", c.Statistics().CurrentPause)

	require.NoError(t, c.Resume())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 15*time.Second, c.Elapsed())
	assert.Empty(t, c.Statistics().CurrentPause)

	c.Complete()
	clock.Advance(time.Hour)
	assert.Equal(t, 15*time.Second, c.Elapsed(), "elapsed freezes once finished")
}

func TestController_SetSpeed(t *testing.T) {
	c := newTestController(zeroDelayProfiles())

	require.NoError(t, c.SetSpeed(" FAST "))
	assert.Equal(t, entities.SpeedFast, c.Speed())
	assert.Equal(t, 5, c.SpeedProfile().BatchSize)

	assert.ErrorIs(t, c.SetSpeed("ludicrous"), migrationerrors.ErrUnknownSpeed)
	assert.Equal(t, entities.SpeedFast, c.Speed())
}

func TestController_Statistics(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestController(zeroDelayProfiles())
	c.now = clock.Now

	_, err := c.Start(context.Background(), "run-1", "Source", "Target", 0)
	require.NoError(t, err)

	counters := entities.NewCounters()
	for i := 0; i < 3; i++ {
		counters.Record(entities.OutcomeSuccess)
	}
	counters.Record(entities.OutcomeBot)
	counters.Record(entities.OutcomeOther)

	c.Attach(counters, func() filterentities.Stats {
		return filterentities.Stats{Total: 10, Processed: 7, ActiveFound: 5, Rejected: 2}
	})
	c.SetTotal(10)
	c.SetCurrentAccount("+10000000001")
	clock.Advance(50 * time.Second)

	stats := c.Statistics()
	assert.Equal(t, entities.StateRunning, stats.State)
	assert.Equal(t, int64(5), stats.Processed)
	assert.Equal(t, int64(3), stats.InvitesSent)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(5), stats.ActiveFound)
	assert.Equal(t, "+10****0001", stats.CurrentAccount)
	assert.Equal(t, 1, stats.AccountsUsed)
	assert.Equal(t, "0:00:50", stats.Elapsed)
	// 10 members minus 2 rejected by the filter, 5 done at 10s each
	assert.Equal(t, "0:00:30", stats.ETA)
	assert.InDelta(t, 62.5, stats.ProgressPercent, 0.001)
	assert.InDelta(t, 3.6, stats.InvitesPerMinute, 0.001)
	require.NotNil(t, stats.Filter)
	assert.Equal(t, int64(7), stats.Filter.Processed)
}

func TestController_DetailedStatus(t *testing.T) {
	c := newTestController(zeroDelayProfiles())
	assert.Equal(t, "No migration has been started.", c.DetailedStatus())

	_, err := c.Start(context.Background(), "run-1", "Source", "Target", 0)
	require.NoError(t, err)

	counters := entities.NewCounters()
	for i := 0; i < 1200; i++ {
		counters.Record(entities.OutcomeSuccess)
	}
	counters.Record(entities.OutcomePrivacyRestricted)
	c.Attach(counters, nil)
	c.SetTotal(5000)
	require.NoError(t, c.Pause())

	status := c.DetailedStatus()
	assert.Contains(t, status, "Migration PAUSED")
	assert.Contains(t, status, "Route: Source -> Target")
	assert.Contains(t, status, "Progress: 1,201 / 5,000")
	assert.Contains(t, status, "Invites sent: 1,200")
	assert.Contains(t, status, "privacy_restricted: 1")
	assert.Contains(t, status, "Paused for:")
	assert.NotContains(t, status, "Filter:")
}
