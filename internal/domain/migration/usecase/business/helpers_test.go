package business

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/pool"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/mocks"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/infrastructure/metrics"
)

var testTarget = domain.Destination{ID: 200, Title: "Target"}

func zeroDelayProfiles() map[entities.Speed]entities.SpeedProfile {
	return map[entities.Speed]entities.SpeedProfile{
		entities.SpeedSlow:   {BatchSize: 2},
		entities.SpeedNormal: {BatchSize: 3},
		entities.SpeedFast:   {BatchSize: 5},
	}
}

// sleepRecorder replaces real sleeps and remembers the requested durations
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
	return nil
}

func (s *sleepRecorder) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

func newTestController(profiles map[entities.Speed]entities.SpeedProfile) *Controller {
	return NewController(profiles, entities.SpeedNormal, zerolog.Nop())
}

func newTestEngine(p *pool.Pool, c *Controller, cfg EngineConfig) (*Engine, *sleepRecorder) {
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 10 * time.Millisecond
	}
	if cfg.TooManyRequestsCooldown == 0 {
		cfg.TooManyRequestsCooldown = time.Minute
	}
	e := NewEngine(p, c, cfg, zerolog.Nop(), metrics.GetDefaultMetrics())
	rec := &sleepRecorder{}
	e.sleep = rec.Sleep
	return e, rec
}

func newTestPool(t *testing.T, limit int, clients ...*mocks.TelegramClient) *pool.Pool {
	p := pool.New(limit)
	for _, c := range clients {
		_, err := p.Add(c)
		require.NoError(t, err)
	}
	return p
}

func startRun(t *testing.T, c *Controller) context.Context {
	ctx, err := c.Start(context.Background(), "run-1", "Source", "Target", 0)
	require.NoError(t, err)
	return ctx
}

func makeMembers(n int) []domain.Member {
	members := make([]domain.Member, n)
	for i := range members {
		members[i] = domain.Member{
			ID:        int64(i + 1),
			FirstName: "User",
			Status:    domain.UserStatus{Kind: domain.StatusOnline},
		}
	}
	return members
}

func invitedIDs(clients ...*mocks.TelegramClient) []int64 {
	var ids []int64
	for _, c := range clients {
		for _, m := range c.Invited() {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func sumCounters(counters map[entities.Outcome]int64) int64 {
	var sum int64
	for _, v := range counters {
		sum += v
	}
	return sum
}

// failFor returns an InviteFunc failing the listed members with the given errors
func failFor(errs map[int64]error) func(context.Context, domain.Destination, domain.Member) error {
	return func(ctx context.Context, target domain.Destination, member domain.Member) error {
		return errs[member.ID]
	}
}

func rpcErr(kind domain.ErrorKind) error {
	return domain.NewRPCError(kind, 0, errorString(kind.String()))
}

type errorString string

func (e errorString) Error() string { return string(e) }
