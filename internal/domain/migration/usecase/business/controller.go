package business

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
	applogger "github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/logger"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

// FilterStatsFunc returns live filter counters of a concurrent run
type FilterStatsFunc func() filterentities.Stats

// Controller is the state machine gating one migration at a time.
// The engine consults it before every unit of work.
type Controller struct {
	mu sync.Mutex

	state    entities.State
	speed    entities.Speed
	profiles map[entities.Speed]entities.SpeedProfile

	runID  string
	source string
	target string
	total  int

	startedAt   time.Time
	finishedAt  time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	lastUpdate  time.Time

	// resumed is closed when a pause ends, by resume or cancel
	resumed chan struct{}
	cancel  context.CancelFunc

	counters       *entities.Counters
	filterStats    FilterStatsFunc
	currentAccount string
	accountsUsed   map[string]struct{}

	logger zerolog.Logger
	now    func() time.Time
}

// NewController creates an idle controller with the given speed profiles
func NewController(profiles map[entities.Speed]entities.SpeedProfile, defaultSpeed entities.Speed, logger zerolog.Logger) *Controller {
	return &Controller{
		state:        entities.StateIdle,
		speed:        defaultSpeed,
		profiles:     profiles,
		accountsUsed: make(map[string]struct{}),
		counters:     entities.NewCounters(),
		logger:       logger.With().Str("component", "migration_controller").Logger(),
		now:          time.Now,
	}
}

// Start moves the controller into running and returns the run context.
// It is rejected while another run is running or paused.
func (c *Controller) Start(parent context.Context, runID, source, target string, total int) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsActive() {
		return nil, migrationerrors.ErrMigrationRunning
	}

	ctx, cancel := context.WithCancel(parent)

	c.state = entities.StateRunning
	c.runID = runID
	c.source = source
	c.target = target
	c.total = total
	c.startedAt = c.now()
	c.finishedAt = time.Time{}
	c.pausedAt = time.Time{}
	c.pausedTotal = 0
	c.lastUpdate = c.startedAt
	c.resumed = nil
	c.cancel = cancel
	c.counters = entities.NewCounters()
	c.filterStats = nil
	c.currentAccount = ""
	c.accountsUsed = make(map[string]struct{})

	c.logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("run_id", runID).
		Str("source", source).
		Str("target", target).
		Str("speed", string(c.speed)).
		Msg("Migration started")

	return ctx, nil
}

// Attach binds the live counters (and filter stats in concurrent mode) of the current run
func (c *Controller) Attach(counters *entities.Counters, filterStats FilterStatsFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = counters
	c.filterStats = filterStats
}

// SetTotal updates the number of members the run works on
func (c *Controller) SetTotal(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
}

// Pause suspends a running migration
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != entities.StateRunning {
		return migrationerrors.ErrNotRunning
	}

	c.state = entities.StatePaused
	c.pausedAt = c.now()
	c.resumed = make(chan struct{})

	c.logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("run_id", c.runID).
		Msg("Migration paused")
	return nil
}

// Resume continues a paused migration
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != entities.StatePaused {
		return migrationerrors.ErrNotPaused
	}

	pause := c.endPauseLocked()
	c.state = entities.StateRunning

	c.logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("run_id", c.runID).
		Dur("paused_for", pause).
		Msg("Migration resumed")
	return nil
}

// Cancel stops a running or paused migration and releases any pause wait
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsActive() {
		return migrationerrors.ErrNotActive
	}

	if c.state == entities.StatePaused {
		c.endPauseLocked()
	}
	c.state = entities.StateCancelled
	c.finishedAt = c.now()
	if c.cancel != nil {
		c.cancel()
	}

	c.logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("run_id", c.runID).
		Msg("Migration cancelled")
	return nil
}

// Complete marks an active run as completed. A cancelled run stays cancelled.
// It returns the final state.
func (c *Controller) Complete() entities.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsActive() {
		if c.state == entities.StatePaused {
			c.endPauseLocked()
		}
		c.state = entities.StateCompleted
		c.finishedAt = c.now()
	}
	if c.cancel != nil {
		c.cancel()
	}
	return c.state
}

func (c *Controller) endPauseLocked() time.Duration {
	pause := c.now().Sub(c.pausedAt)
	c.pausedTotal += pause
	c.pausedAt = time.Time{}
	if c.resumed != nil {
		close(c.resumed)
		c.resumed = nil
	}
	return pause
}

// WaitWhilePaused returns immediately while running, blocks while paused and
// returns ErrMigrationCancelled once the run is cancelled or ctx is done.
func (c *Controller) WaitWhilePaused(ctx context.Context) error {
	for {
		c.mu.Lock()
		state := c.state
		resumed := c.resumed
		c.mu.Unlock()

		switch {
		case state == entities.StateCancelled:
			return migrationerrors.ErrMigrationCancelled
		case state != entities.StatePaused:
			if ctx.Err() != nil {
				return migrationerrors.ErrMigrationCancelled
			}
			return nil
		}

		select {
		case <-resumed:
		case <-ctx.Done():
			return migrationerrors.ErrMigrationCancelled
		}
	}
}

// SetSpeed switches the active speed profile; it is allowed at any time
func (c *Controller) SetSpeed(name string) error {
	speed := entities.Speed(strings.ToLower(strings.TrimSpace(name)))

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.profiles[speed]; !ok {
		return migrationerrors.ErrUnknownSpeed
	}
	c.speed = speed

	c.logger.Info().
		Str("category", applogger.CategoryMigration).
		Str("speed", string(speed)).
		Msg("Speed changed")
	return nil
}

// Speed returns the active speed name
func (c *Controller) Speed() entities.Speed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SpeedProfile returns the active profile; the engine reads it before each decision
func (c *Controller) SpeedProfile() entities.SpeedProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profiles[c.speed]
}

// State returns the current state
func (c *Controller) State() entities.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RunID returns the identifier of the current or last run
func (c *Controller) RunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// SetCurrentAccount records which account is working now
func (c *Controller) SetCurrentAccount(accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentAccount = accountID
	c.accountsUsed[accountID] = struct{}{}
	c.lastUpdate = c.now()
}

// Touch records activity for the "last update" field
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUpdate = c.now()
}

// Elapsed returns the active run time, excluding paused intervals
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked()
}

func (c *Controller) elapsedLocked() time.Duration {
	if c.startedAt.IsZero() {
		return 0
	}
	end := c.now()
	if !c.finishedAt.IsZero() {
		end = c.finishedAt
	}
	elapsed := end.Sub(c.startedAt) - c.pausedTotal - c.currentPauseLocked()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (c *Controller) currentPauseLocked() time.Duration {
	if c.state != entities.StatePaused || c.pausedAt.IsZero() {
		return 0
	}
	return c.now().Sub(c.pausedAt)
}

// PausedDuration returns total paused time including an ongoing pause
func (c *Controller) PausedDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pausedTotal + c.currentPauseLocked()
}

// Statistics returns a structured snapshot of the current or last run
func (c *Controller) Statistics() entities.Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.elapsedLocked()
	processed := c.counters.Processed()
	success := c.counters.Get(entities.OutcomeSuccess)

	stats := entities.Statistics{
		RunID:          c.runID,
		State:          c.state,
		Speed:          c.speed,
		Source:         c.source,
		Target:         c.target,
		Elapsed:        FormatDuration(elapsed),
		PausedDuration: FormatDuration(c.pausedTotal + c.currentPauseLocked()),
		Processed:      processed,
		Total:          c.total,
		InvitesSent:    success,
		Errors:         c.counters.Errors(),
		AccountsUsed:   len(c.accountsUsed),
		Counters:       c.counters.Snapshot(),
		StartedAt:      c.startedAt,
		LastUpdate:     c.lastUpdate,
	}

	if c.currentAccount != "" {
		stats.CurrentAccount = utils.MaskPhoneNumber(c.currentAccount)
	}
	if pause := c.currentPauseLocked(); pause > 0 {
		stats.CurrentPause = FormatDuration(pause)
	}
	expected := int64(c.total)
	if c.filterStats != nil {
		fs := c.filterStats()
		stats.ActiveFound = fs.ActiveFound
		stats.Filter = filterProgress(fs)
		expected -= fs.Rejected
	}
	stats.ETA = EstimateRemaining(elapsed, processed, expected)
	if expected > 0 {
		stats.ProgressPercent = float64(processed) / float64(expected) * 100
	}
	if minutes := elapsed.Minutes(); minutes > 0 {
		stats.InvitesPerMinute = float64(success) / minutes
	}

	return stats
}
