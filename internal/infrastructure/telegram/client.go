package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

// participantsPageSize is the maximum page Telegram serves for channels.getParticipants
const participantsPageSize = 200

// MTProtoClient implements domain.TelegramClient using gotd/td library
type MTProtoClient struct {
	client *telegram.Client

	apiID   int
	apiHash string

	sessionStorage *FileSessionStorage
	phoneNumber    string

	// Connection state
	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{} // closed when client.Run() returns

	logger zerolog.Logger

	api *tg.Client

	rateLimiter *rate.Limiter
	now         func() time.Time
}

// MTProtoClientConfig holds configuration for MTProtoClient
type MTProtoClientConfig struct {
	APIID             int
	APIHash           string
	PhoneNumber       string
	SessionDir        string
	RequestsPerSecond int
	Logger            zerolog.Logger
}

// NewMTProtoClient creates a new MTProto client instance
func NewMTProtoClient(cfg MTProtoClientConfig) (*MTProtoClient, error) {
	if cfg.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.PhoneNumber == "" {
		return nil, fmt.Errorf("PhoneNumber is required")
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = "./sessions"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}

	sessionStorage, err := NewFileSessionStorage(cfg.SessionDir, cfg.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}

	return &MTProtoClient{
		apiID:          cfg.APIID,
		apiHash:        cfg.APIHash,
		phoneNumber:    cfg.PhoneNumber,
		sessionStorage: sessionStorage,
		logger: cfg.Logger.With().
			Str("component", "mtproto_client").
			Str("account", utils.MaskPhoneNumber(cfg.PhoneNumber)).
			Logger(),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		now:         time.Now,
	}, nil
}

// Connect restores the stored session and connects to Telegram.
// Interactive login is not supported: a missing or unauthorized session
// fails with domain.ErrNotAuthorized. The context bounds only the connect
// phase, the connection itself lives until Disconnect.
func (c *MTProtoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		c.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	defer c.mu.Unlock()

	if !c.sessionStorage.Exists() {
		return fmt.Errorf("%w: no session file at %s", domain.ErrNotAuthorized, c.sessionStorage.FilePath())
	}

	c.logger.Info().Msg("connecting to Telegram")

	c.client = telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.sessionStorage,
	})

	clientCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelFunc = cancel

	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})
	c.runDone = runDone
	client := c.client

	go func() {
		defer close(runDone)
		err := client.Run(clientCtx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}
			if !status.Authorized {
				return domain.ErrNotAuthorized
			}

			c.api = client.API()
			c.connected = true
			c.logger.Info().Msg("session restored, connected to Telegram")
			close(readyChan)

			<-ctx.Done()
			return ctx.Err()
		})

		select {
		case errChan <- err:
		default:
		}

		// The connection may drop on its own, not only through Disconnect
		c.mu.Lock()
		if !c.disconnecting && c.client == client {
			c.connected = false
			c.api = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Warn().Err(err).Msg("telegram connection closed")
			}
		}
		c.mu.Unlock()
	}()

	select {
	case <-readyChan:
		return nil
	case err := <-errChan:
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return fmt.Errorf("failed to connect: client stopped")
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// Disconnect stops the client and waits for it to finish or for ctx to expire.
// Repeated calls are safe.
func (c *MTProtoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}
	if !c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already disconnected")
		return nil
	}

	c.logger.Info().Msg("disconnecting from Telegram")

	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()

		if runDone != nil {
			select {
			case <-runDone:
				c.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
			}
		}
	}

	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	c.logger.Info().Msg("disconnected from Telegram")
	return nil
}

// IsConnected checks if client is connected to Telegram
func (c *MTProtoClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// GetAccountID returns the phone number of the account
func (c *MTProtoClient) GetAccountID() string {
	return c.phoneNumber
}

// apiClient returns the raw API after the rate limiter admits the call
func (c *MTProtoClient) apiClient(ctx context.Context) (*tg.Client, error) {
	c.mu.RLock()
	api := c.api
	connected := c.connected
	c.mu.RUnlock()

	if !connected || api == nil {
		return nil, domain.ErrNotConnected
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return api, nil
}

// InviteToChannel adds a single member to the target group
func (c *MTProtoClient) InviteToChannel(ctx context.Context, target domain.Destination, member domain.Member) error {
	api, err := c.apiClient(ctx)
	if err != nil {
		return err
	}

	_, err = api.ChannelsInviteToChannel(ctx, &tg.ChannelsInviteToChannelRequest{
		Channel: inputChannel(target),
		Users:   []tg.InputUserClass{inputUser(member)},
	})
	if err != nil {
		classified := ClassifyError(err)
		kind, _ := domain.Classify(classified)
		c.logger.Debug().
			Err(err).
			Int64("user_id", member.ID).
			Str("error_kind", kind.String()).
			Msg("invite failed")
		return classified
	}

	return nil
}

// GetUserStatus fetches the current last-seen status of a member
func (c *MTProtoClient) GetUserStatus(ctx context.Context, member domain.Member) (domain.UserStatus, error) {
	api, err := c.apiClient(ctx)
	if err != nil {
		return domain.UserStatus{}, err
	}

	users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{inputUser(member)})
	if err != nil {
		return domain.UserStatus{}, ClassifyError(err)
	}

	for _, user := range users {
		if u, ok := user.(*tg.User); ok && u.ID == member.ID {
			return convertStatus(u.Status, c.now()), nil
		}
	}

	return domain.UserStatus{Kind: domain.StatusUnknown}, nil
}

// normalizeReference accepts "@name", "name" and t.me links
func normalizeReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	for _, prefix := range []string{"https://", "http://"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	ref = strings.TrimPrefix(ref, "t.me/")
	ref = strings.TrimPrefix(ref, "@")
	ref = strings.TrimSuffix(ref, "/")

	if ref == "" || strings.ContainsAny(ref, "/ +") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidDestination, ref)
	}
	return ref, nil
}

// ResolveDestination resolves a public group username into a destination handle
func (c *MTProtoClient) ResolveDestination(ctx context.Context, ref string) (domain.Destination, error) {
	username, err := normalizeReference(ref)
	if err != nil {
		return domain.Destination{}, err
	}

	api, err := c.apiClient(ctx)
	if err != nil {
		return domain.Destination{}, err
	}

	resolved, err := api.ContactsResolveUsername(ctx, username)
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return domain.Destination{}, fmt.Errorf("%w: @%s", domain.ErrDestinationNotFound, username)
		}
		c.logger.Error().Err(err).Str("destination", username).Msg("failed to resolve destination")
		return domain.Destination{}, fmt.Errorf("failed to resolve @%s: %w", username, ClassifyError(err))
	}

	dest, ok := convertChannel(resolved.Chats)
	if !ok {
		return domain.Destination{}, fmt.Errorf("%w: @%s is not a group or channel", domain.ErrDestinationNotFound, username)
	}

	return dest, nil
}

// ListMembers pages through channels.getParticipants and returns every user of the group
func (c *MTProtoClient) ListMembers(ctx context.Context, source domain.Destination) ([]domain.Member, error) {
	logger := c.logger.With().Str("source", source.Label()).Logger()
	logger.Info().Msg("fetching group members")

	seen := make(map[int64]struct{})
	members := make([]domain.Member, 0)

	for offset := 0; ; {
		api, err := c.apiClient(ctx)
		if err != nil {
			return nil, err
		}

		result, err := api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: inputChannel(source),
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  offset,
			Limit:   participantsPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get participants at offset %d: %w", offset, ClassifyError(err))
		}

		page, ok := result.(*tg.ChannelsChannelParticipants)
		if !ok || len(page.Participants) == 0 {
			break
		}

		now := c.now()
		for _, user := range page.Users {
			member, ok := convertUser(user, now)
			if !ok {
				continue
			}
			if _, dup := seen[member.ID]; dup {
				continue
			}
			seen[member.ID] = struct{}{}
			members = append(members, member)
		}

		offset += len(page.Participants)
		logger.Debug().Int("fetched", offset).Int("count", page.Count).Msg("participants page")
		if offset >= page.Count {
			break
		}
	}

	logger.Info().Int("members", len(members)).Msg("group members fetched")
	return members, nil
}

var _ domain.TelegramClient = (*MTProtoClient)(nil)
