package pool

import (
	"fmt"
	"sync"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/account/entities"
)

// Account is one authenticated connection used to send invites.
// Usage and the blocked flag are owned by the Pool that created it.
type Account struct {
	id      string
	client  domain.TelegramClient
	usage   int
	blocked bool
}

// ID returns the account identity (phone number)
func (a *Account) ID() string {
	return a.id
}

// Client returns the connection handle
func (a *Account) Client() domain.TelegramClient {
	return a.client
}

// Pool holds the accounts of one process together with their usage counters.
// Blocking is permanent: there is no unblock operation.
type Pool struct {
	mu       sync.RWMutex
	accounts []*Account
	byID     map[string]*Account
	limit    int
}

// New creates an empty pool where each account may send at most limit invites
func New(limit int) *Pool {
	return &Pool{
		byID:  make(map[string]*Account),
		limit: limit,
	}
}

// Add registers a connection, preserving insertion order
func (p *Pool) Add(client domain.TelegramClient) (*Account, error) {
	if client == nil {
		return nil, fmt.Errorf("cannot add nil client")
	}

	id := client.GetAccountID()
	if id == "" {
		return nil, fmt.Errorf("client account ID is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byID[id]; exists {
		return nil, domain.ErrAccountAlreadyExists
	}

	acc := &Account{id: id, client: client}
	p.accounts = append(p.accounts, acc)
	p.byID[id] = acc
	return acc, nil
}

// Limit returns the per-account invite cap
func (p *Pool) Limit() int {
	return p.limit
}

// Len returns the number of pooled accounts regardless of availability
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.accounts)
}

// Main returns the first registered account or nil
func (p *Pool) Main() *Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.accounts) == 0 {
		return nil
	}
	return p.accounts[0]
}

// Available returns accounts that are not blocked and still under the cap, in insertion order
func (p *Pool) Available() []*Account {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := make([]*Account, 0, len(p.accounts))
	for _, acc := range p.accounts {
		if p.availableLocked(acc) {
			available = append(available, acc)
		}
	}
	return available
}

// IsAvailable reports whether acc is currently eligible for work
func (p *Pool) IsAvailable(acc *Account) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.availableLocked(acc)
}

func (p *Pool) availableLocked(acc *Account) bool {
	return !acc.blocked && acc.usage < p.limit
}

// MarkBlocked permanently excludes acc. It returns false if acc was already blocked.
func (p *Pool) MarkBlocked(acc *Account) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc.blocked {
		return false
	}
	acc.blocked = true
	return true
}

// IncrementUsage records one successful invite sent by acc and returns the new usage
func (p *Pool) IncrementUsage(acc *Account) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc.usage < p.limit {
		acc.usage++
	}
	return acc.usage
}

// Usage returns how many invites acc has sent
func (p *Pool) Usage(acc *Account) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return acc.usage
}

// Blocked reports whether acc has been blocked
func (p *Pool) Blocked(acc *Account) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return acc.blocked
}

// Statuses returns a snapshot of every account in insertion order
func (p *Pool) Statuses() []entities.AccountStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make([]entities.AccountStatus, 0, len(p.accounts))
	for _, acc := range p.accounts {
		statuses = append(statuses, entities.AccountStatus{
			ID:        acc.id,
			Usage:     acc.usage,
			Limit:     p.limit,
			Blocked:   acc.blocked,
			Connected: acc.client.IsConnected(),
			Available: p.availableLocked(acc),
		})
	}
	return statuses
}
