// Package mocks provides in-memory doubles of domain interfaces for tests.
package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// TelegramClient is a scripted domain.TelegramClient
type TelegramClient struct {
	AccountID string

	// InviteFunc decides the outcome of each invite; nil means success
	InviteFunc func(ctx context.Context, target domain.Destination, member domain.Member) error

	// StatusFunc answers status lookups; nil returns the member's attached status
	StatusFunc func(ctx context.Context, member domain.Member) (domain.UserStatus, error)

	Members      []domain.Member
	Destinations map[string]domain.Destination

	mu          sync.Mutex
	connected   bool
	invited     []domain.Member
	inviteCalls int
	statusCalls int
}

// NewTelegramClient creates a connected client double
func NewTelegramClient(accountID string) *TelegramClient {
	return &TelegramClient{AccountID: accountID, connected: true}
}

func (c *TelegramClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *TelegramClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *TelegramClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *TelegramClient) GetAccountID() string {
	return c.AccountID
}

func (c *TelegramClient) InviteToChannel(ctx context.Context, target domain.Destination, member domain.Member) error {
	c.mu.Lock()
	c.inviteCalls++
	fn := c.InviteFunc
	c.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx, target, member)
	}
	if err == nil {
		c.mu.Lock()
		c.invited = append(c.invited, member)
		c.mu.Unlock()
	}
	return err
}

func (c *TelegramClient) GetUserStatus(ctx context.Context, member domain.Member) (domain.UserStatus, error) {
	c.mu.Lock()
	c.statusCalls++
	fn := c.StatusFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, member)
	}
	return member.Status, nil
}

func (c *TelegramClient) ResolveDestination(ctx context.Context, ref string) (domain.Destination, error) {
	dest, ok := c.Destinations[strings.TrimPrefix(ref, "@")]
	if !ok {
		return domain.Destination{}, domain.ErrDestinationNotFound
	}
	return dest, nil
}

func (c *TelegramClient) ListMembers(ctx context.Context, source domain.Destination) ([]domain.Member, error) {
	members := make([]domain.Member, len(c.Members))
	copy(members, c.Members)
	return members, nil
}

// Invited returns members successfully invited through this client
func (c *TelegramClient) Invited() []domain.Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Member, len(c.invited))
	copy(out, c.invited)
	return out
}

// InviteCalls returns how many invite attempts reached this client
func (c *TelegramClient) InviteCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inviteCalls
}

// StatusCalls returns how many status lookups reached this client
func (c *TelegramClient) StatusCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCalls
}
