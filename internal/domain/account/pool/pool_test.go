package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/mocks"
)

func newPool(t *testing.T, limit int, ids ...string) (*Pool, []*Account) {
	t.Helper()
	p := New(limit)
	accounts := make([]*Account, 0, len(ids))
	for _, id := range ids {
		acc, err := p.Add(mocks.NewTelegramClient(id))
		require.NoError(t, err)
		accounts = append(accounts, acc)
	}
	return p, accounts
}

func ids(accounts []*Account) []string {
	out := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.ID())
	}
	return out
}

func TestAdd_Validation(t *testing.T) {
	p := New(10)

	_, err := p.Add(nil)
	assert.Error(t, err)

	_, err = p.Add(mocks.NewTelegramClient(""))
	assert.Error(t, err)

	_, err = p.Add(mocks.NewTelegramClient("+10000000001"))
	require.NoError(t, err)

	_, err = p.Add(mocks.NewTelegramClient("+10000000001"))
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)
}

func TestAvailable_PreservesInsertionOrder(t *testing.T) {
	p, _ := newPool(t, 10, "a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, ids(p.Available()))
	assert.Equal(t, "a", p.Main().ID())
}

func TestAvailable_ExcludesAccountsAtCap(t *testing.T) {
	p, accounts := newPool(t, 3, "a", "b")

	for i := 0; i < 3; i++ {
		p.IncrementUsage(accounts[0])
	}

	assert.Equal(t, []string{"b"}, ids(p.Available()))
	assert.False(t, p.IsAvailable(accounts[0]))

	// usage never exceeds the cap
	assert.Equal(t, 3, p.IncrementUsage(accounts[0]))
	assert.Equal(t, 3, p.Usage(accounts[0]))
}

func TestMarkBlocked_IsPermanentAndIdempotent(t *testing.T) {
	p, accounts := newPool(t, 10, "a", "b")

	assert.True(t, p.MarkBlocked(accounts[1]))
	assert.False(t, p.MarkBlocked(accounts[1]))
	assert.True(t, p.Blocked(accounts[1]))

	assert.Equal(t, []string{"a"}, ids(p.Available()))

	p.IncrementUsage(accounts[1])
	assert.Equal(t, []string{"a"}, ids(p.Available()))
}

func TestStatuses(t *testing.T) {
	p, accounts := newPool(t, 2, "a", "b")
	p.IncrementUsage(accounts[0])
	p.IncrementUsage(accounts[0])
	p.MarkBlocked(accounts[1])

	statuses := p.Statuses()
	require.Len(t, statuses, 2)

	assert.Equal(t, "a", statuses[0].ID)
	assert.Equal(t, 2, statuses[0].Usage)
	assert.Equal(t, 2, statuses[0].Limit)
	assert.False(t, statuses[0].Available)

	assert.True(t, statuses[1].Blocked)
	assert.True(t, statuses[1].Connected)
	assert.False(t, statuses[1].Available)
}

func TestEmptyPool(t *testing.T) {
	p := New(5)
	assert.Nil(t, p.Main())
	assert.Empty(t, p.Available())
	assert.Equal(t, 0, p.Len())
}
