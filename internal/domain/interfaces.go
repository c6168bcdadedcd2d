package domain

import "context"

// TelegramClient defines interface for Telegram MTProto operations
type TelegramClient interface {
	// Connect connects to Telegram using a previously authorized session
	Connect(ctx context.Context) error

	// Disconnect disconnects from Telegram
	// The context controls the timeout for graceful shutdown
	Disconnect(ctx context.Context) error

	// IsConnected checks if client is connected
	IsConnected() bool

	// GetAccountID returns unique identifier for this account (phone number)
	GetAccountID() string

	// InviteToChannel invites a single member into the target group.
	// Platform failures are returned as *RPCError.
	InviteToChannel(ctx context.Context, target Destination, member Member) error

	// GetUserStatus fetches the authoritative last-seen status of a member.
	// Platform failures are returned as *RPCError.
	GetUserStatus(ctx context.Context, member Member) (UserStatus, error)

	// ResolveDestination resolves "@username" into a group handle
	ResolveDestination(ctx context.Context, ref string) (Destination, error)

	// ListMembers returns the full roster of a group
	ListMembers(ctx context.Context, source Destination) ([]Member, error)
}

// AccountManager manages multiple Telegram accounts
type AccountManager interface {
	// GetAllAccounts returns all managed accounts in configuration order
	GetAllAccounts() []TelegramClient

	// GetMainAccount returns the first configured account, used for scraping and lookups
	GetMainAccount() (TelegramClient, error)

	// AddAccount adds a new account
	AddAccount(client TelegramClient) error

	// RemoveAccount removes an account
	RemoveAccount(accountID string) error

	// InitializeAccounts creates and connects clients for every configured phone
	InitializeAccounts(ctx context.Context, cfg AccountInitConfig) *InitializationReport

	// Shutdown disconnects all managed accounts and returns how many were disconnected
	Shutdown(ctx context.Context) int

	// GetActiveAccountCount returns the number of connected accounts
	GetActiveAccountCount() int
}
