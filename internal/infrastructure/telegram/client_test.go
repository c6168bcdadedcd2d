package telegram

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/gotd/td/tgmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// newMockedClient returns a connected client whose API calls go to mock
func newMockedClient(t *testing.T) (*MTProtoClient, *tgmock.Mock) {
	mock := tgmock.NewRequire(t)
	return &MTProtoClient{
		phoneNumber: "+10000000001",
		connected:   true,
		api:         tg.NewClient(mock),
		logger:      zerolog.Nop(),
		rateLimiter: rate.NewLimiter(rate.Inf, 1),
		now:         time.Now,
	}, mock
}

func TestNewMTProtoClient_Validation(t *testing.T) {
	_, err := NewMTProtoClient(MTProtoClientConfig{APIHash: "h", PhoneNumber: "+1"})
	assert.Error(t, err)

	_, err = NewMTProtoClient(MTProtoClientConfig{APIID: 1, PhoneNumber: "+1"})
	assert.Error(t, err)

	_, err = NewMTProtoClient(MTProtoClientConfig{APIID: 1, APIHash: "h"})
	assert.Error(t, err)

	client, err := NewMTProtoClient(MTProtoClientConfig{
		APIID: 1, APIHash: "h", PhoneNumber: "+10000000001", SessionDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "+10000000001", client.GetAccountID())
	assert.False(t, client.IsConnected())
}

func TestConnect_MissingSession(t *testing.T) {
	client, err := NewMTProtoClient(MTProtoClientConfig{
		APIID: 1, APIHash: "h", PhoneNumber: "+10000000001", SessionDir: t.TempDir(),
	})
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.False(t, client.IsConnected())
}

func TestDisconnect_NotConnected(t *testing.T) {
	client := &MTProtoClient{logger: zerolog.Nop()}
	assert.NoError(t, client.Disconnect(context.Background()))
}

func TestOperations_NotConnected(t *testing.T) {
	client := &MTProtoClient{logger: zerolog.Nop(), rateLimiter: rate.NewLimiter(rate.Inf, 1)}
	ctx := context.Background()

	err := client.InviteToChannel(ctx, domain.Destination{ID: 1}, domain.Member{ID: 2})
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = client.GetUserStatus(ctx, domain.Member{ID: 2})
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = client.ResolveDestination(ctx, "@group")
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = client.ListMembers(ctx, domain.Destination{ID: 1})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"@gophers", "gophers", false},
		{"gophers", "gophers", false},
		{" https://t.me/gophers/ ", "gophers", false},
		{"t.me/gophers", "gophers", false},
		{"", "", true},
		{"@", "", true},
		{"t.me/joinchat/abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeReference(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidDestination)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInviteToChannel_ClassifiesRPCError(t *testing.T) {
	client, mock := newMockedClient(t)
	target := domain.Destination{ID: 10, AccessHash: 11}
	member := domain.Member{ID: 20, AccessHash: 21}

	mock.ExpectCall(&tg.ChannelsInviteToChannelRequest{
		Channel: &tg.InputChannel{ChannelID: 10, AccessHash: 11},
		Users:   []tg.InputUserClass{&tg.InputUser{UserID: 20, AccessHash: 21}},
	}).ThenRPCErr(&tgerr.Error{Code: 420, Message: "FLOOD_WAIT_12", Type: "FLOOD_WAIT", Argument: 12})

	err := client.InviteToChannel(context.Background(), target, member)
	require.Error(t, err)

	kind, wait := domain.Classify(err)
	assert.Equal(t, domain.KindFloodWait, kind)
	assert.Equal(t, 12*time.Second, wait)
}

func TestGetUserStatus(t *testing.T) {
	client, mock := newMockedClient(t)
	wasOnline := time.Unix(1_700_000_000, 0)

	mock.ExpectCall(&tg.UsersGetUsersRequest{
		ID: []tg.InputUserClass{&tg.InputUser{UserID: 20, AccessHash: 21}},
	}).ThenResult(&tg.UserClassVector{Elems: []tg.UserClass{
		&tg.User{ID: 20, AccessHash: 21, Status: &tg.UserStatusOffline{WasOnline: int(wasOnline.Unix())}},
	}})

	status, err := client.GetUserStatus(context.Background(), domain.Member{ID: 20, AccessHash: 21})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, status.Kind)
	assert.True(t, status.WasOnline.Equal(wasOnline))
}

func TestListMembers_Pages(t *testing.T) {
	client, mock := newMockedClient(t)
	source := domain.Destination{ID: 10, AccessHash: 11, Title: "src"}

	page := func(offset int) *tg.ChannelsGetParticipantsRequest {
		return &tg.ChannelsGetParticipantsRequest{
			Channel: &tg.InputChannel{ChannelID: 10, AccessHash: 11},
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  offset,
			Limit:   participantsPageSize,
		}
	}

	first := make([]tg.ChannelParticipantClass, 0, participantsPageSize)
	firstUsers := make([]tg.UserClass, 0, participantsPageSize)
	for i := 1; i <= participantsPageSize; i++ {
		first = append(first, &tg.ChannelParticipant{UserID: int64(i)})
		firstUsers = append(firstUsers, &tg.User{ID: int64(i), FirstName: "u"})
	}

	mock.ExpectCall(page(0)).ThenResult(&tg.ChannelsChannelParticipants{
		Count:        participantsPageSize + 2,
		Participants: first,
		Users:        firstUsers,
	})
	mock.ExpectCall(page(participantsPageSize)).ThenResult(&tg.ChannelsChannelParticipants{
		Count: participantsPageSize + 2,
		Participants: []tg.ChannelParticipantClass{
			&tg.ChannelParticipant{UserID: 1000},
			&tg.ChannelParticipant{UserID: 1001},
		},
		Users: []tg.UserClass{
			&tg.User{ID: 1000, Bot: true, Username: "helper_bot"},
			&tg.User{ID: 1001, Deleted: true},
		},
	})

	members, err := client.ListMembers(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, members, participantsPageSize+1)
	assert.Equal(t, int64(1), members[0].ID)
	assert.True(t, members[participantsPageSize].Bot)
}

func TestFileSessionStorage(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileSessionStorage(dir, "+10000000001")
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, storage.Exists())
	_, err = storage.LoadSession(ctx)
	require.Error(t, err)

	require.NoError(t, storage.StoreSession(ctx, []byte(`{"dc":2}`)))
	assert.True(t, storage.Exists())

	data, err := storage.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"dc":2}`, string(data))

	info, err := os.Stat(storage.FilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
