package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/utils"
)

const (
	defaultMaxConcurrent   = 10
	defaultConnectTimeout  = 30 * time.Second
	cleanupDisconnectDelay = 5 * time.Second
)

// ClientFactory is a function type for creating Telegram clients
type ClientFactory func(cfg MTProtoClientConfig) (domain.TelegramClient, error)

// accountManager keeps the connected accounts in configuration order
type accountManager struct {
	accounts   map[string]domain.TelegramClient // accountID -> client
	accountIDs []string
	mu         sync.RWMutex

	// clientFactory is used to create new clients (can be overridden for testing)
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// NewAccountManager creates a new account manager
func NewAccountManager(logger zerolog.Logger) domain.AccountManager {
	return &accountManager{
		accounts:      make(map[string]domain.TelegramClient),
		accountIDs:    make([]string, 0),
		clientFactory: defaultClientFactory,
		logger:        logger.With().Str("component", "account_manager").Logger(),
	}
}

func defaultClientFactory(cfg MTProtoClientConfig) (domain.TelegramClient, error) {
	return NewMTProtoClient(cfg)
}

// InitializeAccounts creates and connects a client for every configured phone.
// Connects run in parallel, bounded by MaxConcurrent. Successful clients are
// registered in configuration order once all attempts finished, so the first
// configured phone that connected becomes the main account.
func (m *accountManager) InitializeAccounts(ctx context.Context, cfg domain.AccountInitConfig) *domain.InitializationReport {
	report := &domain.InitializationReport{
		TotalAccounts: len(cfg.Accounts),
		Errors:        make(map[string]error),
	}

	if len(cfg.Accounts) == 0 {
		cfg.Logger.Warn().Msg("No accounts configured for initialization")
		return report
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	cfg.Logger.Info().
		Int("count", len(cfg.Accounts)).
		Int("max_concurrent", maxConcurrent).
		Msg("Starting account initialization")

	var wg sync.WaitGroup
	var reportMu sync.Mutex
	semaphore := make(chan struct{}, maxConcurrent)
	connected := make([]domain.TelegramClient, len(cfg.Accounts))

	fail := func(maskedPhone string, err error) {
		reportMu.Lock()
		report.Errors[maskedPhone] = err
		report.FailedAccounts++
		reportMu.Unlock()
	}

	for i, phoneNumber := range cfg.Accounts {
		wg.Add(1)
		go func(idx int, phone string) {
			defer wg.Done()

			maskedPhone := utils.MaskPhoneNumber(phone)

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				fail(maskedPhone, ctx.Err())
				return
			}

			logger := cfg.Logger.With().Str("account", maskedPhone).Logger()

			client, err := m.clientFactory(MTProtoClientConfig{
				APIID:             cfg.APIID,
				APIHash:           cfg.APIHash,
				PhoneNumber:       phone,
				SessionDir:        cfg.SessionDir,
				RequestsPerSecond: cfg.RequestsPerSecond,
				Logger:            logger,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to create MTProto client")
				fail(maskedPhone, fmt.Errorf("create client: %w", err))
				return
			}

			connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
			defer cancel()

			if err := client.Connect(connectCtx); err != nil {
				logger.Warn().Err(err).Msg("Failed to connect account")
				fail(maskedPhone, fmt.Errorf("connect: %w", err))
				return
			}

			connected[idx] = client
		}(i, phoneNumber)
	}

	wg.Wait()

	for _, client := range connected {
		if client == nil {
			continue
		}

		maskedPhone := utils.MaskPhoneNumber(client.GetAccountID())
		if err := m.AddAccount(client); err != nil {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), cleanupDisconnectDelay)
			if disconnectErr := client.Disconnect(disconnectCtx); disconnectErr != nil {
				cfg.Logger.Warn().Err(disconnectErr).Str("account", maskedPhone).Msg("Failed to disconnect client during cleanup")
			}
			cancel()

			fail(maskedPhone, fmt.Errorf("add account: %w", err))
			continue
		}

		cfg.Logger.Info().Str("account", maskedPhone).Msg("Account initialized successfully")
		report.SuccessfulAccounts++
	}

	cfg.Logger.Info().
		Int("total", report.TotalAccounts).
		Int("successful", report.SuccessfulAccounts).
		Int("failed", report.FailedAccounts).
		Msg("Account initialization completed")

	return report
}

// GetAllAccounts returns all managed accounts
func (m *accountManager) GetAllAccounts() []domain.TelegramClient {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accounts := make([]domain.TelegramClient, 0, len(m.accountIDs))
	for _, id := range m.accountIDs {
		accounts = append(accounts, m.accounts[id])
	}
	return accounts
}

// GetMainAccount returns the first connected account in configuration order
func (m *accountManager) GetMainAccount() (domain.TelegramClient, error) {
	for _, client := range m.GetAllAccounts() {
		if client.IsConnected() {
			return client, nil
		}
	}
	return nil, domain.ErrNoActiveAccounts
}

// AddAccount adds a new account to the manager
func (m *accountManager) AddAccount(client domain.TelegramClient) error {
	if client == nil {
		return fmt.Errorf("cannot add nil client")
	}

	accountID := client.GetAccountID()
	if accountID == "" {
		return fmt.Errorf("client account ID is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[accountID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrAccountAlreadyExists, utils.MaskPhoneNumber(accountID))
	}

	m.accounts[accountID] = client
	m.accountIDs = append(m.accountIDs, accountID)

	return nil
}

// RemoveAccount removes an account by account ID
func (m *accountManager) RemoveAccount(accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[accountID]; !exists {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, utils.MaskPhoneNumber(accountID))
	}

	delete(m.accounts, accountID)

	for i, id := range m.accountIDs {
		if id == accountID {
			m.accountIDs = append(m.accountIDs[:i], m.accountIDs[i+1:]...)
			break
		}
	}

	return nil
}

// GetActiveAccountCount returns the number of connected accounts
func (m *accountManager) GetActiveAccountCount() int {
	count := 0
	for _, client := range m.GetAllAccounts() {
		if client.IsConnected() {
			count++
		}
	}
	return count
}

// Shutdown disconnects every account in parallel
func (m *accountManager) Shutdown(ctx context.Context) int {
	accounts := m.GetAllAccounts()

	var wg sync.WaitGroup
	var mu sync.Mutex
	disconnected := 0

	for _, client := range accounts {
		if !client.IsConnected() {
			continue
		}

		wg.Add(1)
		go func(c domain.TelegramClient) {
			defer wg.Done()

			if err := c.Disconnect(ctx); err != nil {
				m.logger.Warn().
					Err(err).
					Str("account", utils.MaskPhoneNumber(c.GetAccountID())).
					Msg("Failed to disconnect account")
				return
			}

			mu.Lock()
			disconnected++
			mu.Unlock()
		}(client)
	}

	wg.Wait()
	return disconnected
}
