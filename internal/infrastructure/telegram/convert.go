package telegram

import (
	"time"

	"github.com/gotd/td/tg"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// convertStatus maps a Telegram last-seen status onto the domain categories.
// Online statuses whose expiry already passed are reported as offline at the expiry time.
func convertStatus(status tg.UserStatusClass, now time.Time) domain.UserStatus {
	switch s := status.(type) {
	case *tg.UserStatusOnline:
		expires := time.Unix(int64(s.Expires), 0)
		if s.Expires > 0 && expires.Before(now) {
			return domain.UserStatus{Kind: domain.StatusOffline, WasOnline: expires}
		}
		return domain.UserStatus{Kind: domain.StatusOnline}
	case *tg.UserStatusOffline:
		st := domain.UserStatus{Kind: domain.StatusOffline}
		if s.WasOnline > 0 {
			st.WasOnline = time.Unix(int64(s.WasOnline), 0)
		}
		return st
	case *tg.UserStatusRecently:
		return domain.UserStatus{Kind: domain.StatusRecently}
	case *tg.UserStatusLastWeek:
		return domain.UserStatus{Kind: domain.StatusLastWeek}
	case *tg.UserStatusLastMonth:
		return domain.UserStatus{Kind: domain.StatusLastMonth}
	default:
		return domain.UserStatus{Kind: domain.StatusUnknown}
	}
}

// convertUser converts a roster user into a domain member.
// Deleted accounts and empty users are skipped.
func convertUser(user tg.UserClass, now time.Time) (domain.Member, bool) {
	u, ok := user.(*tg.User)
	if !ok || u.Deleted || u.Self {
		return domain.Member{}, false
	}

	return domain.Member{
		ID:         u.ID,
		AccessHash: u.AccessHash,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Bot:        u.Bot,
		Status:     convertStatus(u.Status, now),
	}, true
}

// convertChannel extracts a destination from resolved chats
func convertChannel(chats []tg.ChatClass) (domain.Destination, bool) {
	for _, chat := range chats {
		if channel, ok := chat.(*tg.Channel); ok {
			return domain.Destination{
				ID:         channel.ID,
				AccessHash: channel.AccessHash,
				Title:      channel.Title,
				Username:   channel.Username,
			}, true
		}
	}
	return domain.Destination{}, false
}

func inputChannel(dest domain.Destination) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: dest.ID, AccessHash: dest.AccessHash}
}

func inputUser(member domain.Member) *tg.InputUser {
	return &tg.InputUser{UserID: member.ID, AccessHash: member.AccessHash}
}
