package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/gotd/td/tgerr"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// rpcKinds maps Telegram RPC error types to the domain taxonomy
var rpcKinds = map[string]domain.ErrorKind{
	"PEER_FLOOD":              domain.KindPeerFlood,
	"USER_PRIVACY_RESTRICTED": domain.KindPrivacyRestricted,
	"USER_NOT_MUTUAL_CONTACT": domain.KindNotMutualContact,
	"USER_CHANNELS_TOO_MUCH":  domain.KindTooManyChannels,
	"CHAT_ADMIN_REQUIRED":     domain.KindAdminRequired,
	"CHAT_WRITE_FORBIDDEN":    domain.KindAdminRequired,
	"USER_BANNED_IN_CHANNEL":  domain.KindBannedInChannel,
	"USER_KICKED":             domain.KindBannedInChannel,
	"USER_DELETED":            domain.KindDeletedAccount,
	"INPUT_USER_DEACTIVATED":  domain.KindDeletedAccount,
}

// ClassifyError converts a gotd error into *domain.RPCError.
// nil stays nil, context errors pass through untouched.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rpcErr *domain.RPCError
	if errors.As(err, &rpcErr) {
		return err
	}

	var tgErr *tgerr.Error
	if !errors.As(err, &tgErr) {
		return domain.NewRPCError(domain.KindUncategorized, 0, err)
	}

	if tgErr.IsType("FLOOD_WAIT") || tgErr.IsType("FLOOD_PREMIUM_WAIT") || tgErr.IsType("SLOWMODE_WAIT") {
		return domain.NewRPCError(domain.KindFloodWait, time.Duration(tgErr.Argument)*time.Second, err)
	}

	if kind, ok := rpcKinds[tgErr.Type]; ok {
		return domain.NewRPCError(kind, 0, err)
	}

	// 420 without a wait hint and plain 429 are generic rate limits
	if tgErr.Code == 420 || tgErr.Code == 429 {
		return domain.NewRPCError(domain.KindTooManyRequests, 0, err)
	}

	return domain.NewRPCError(domain.KindUncategorized, 0, err)
}
