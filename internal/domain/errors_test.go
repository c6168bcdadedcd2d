package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	base := errors.New("rpc error code 420: FLOOD_WAIT (30)")
	wrapped := fmt.Errorf("invite: %w", NewRPCError(KindFloodWait, 30*time.Second, base))

	kind, wait := Classify(wrapped)
	assert.Equal(t, KindFloodWait, kind)
	assert.Equal(t, 30*time.Second, wait)
	assert.ErrorIs(t, wrapped, base)

	kind, wait = Classify(errors.New("boom"))
	assert.Equal(t, KindUncategorized, kind)
	assert.Zero(t, wait)
}

func TestErrorKind_IsRateLimit(t *testing.T) {
	assert.True(t, KindFloodWait.IsRateLimit())
	assert.True(t, KindTooManyRequests.IsRateLimit())
	assert.False(t, KindPeerFlood.IsRateLimit())
	assert.False(t, KindUncategorized.IsRateLimit())
}

func TestMember_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Member{ID: 1, FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "@ada", Member{ID: 1, Username: "ada"}.DisplayName())
	assert.Equal(t, "42", Member{ID: 42}.DisplayName())
}
