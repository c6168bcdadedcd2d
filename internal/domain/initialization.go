package domain

import (
	"time"

	"github.com/rs/zerolog"
)

// InitializationReport contains statistics about account initialization
type InitializationReport struct {
	TotalAccounts      int
	SuccessfulAccounts int
	FailedAccounts     int

	// Errors maps masked phone numbers to their initialization errors
	Errors map[string]error
}

// AccountInitConfig holds configuration for account initialization
type AccountInitConfig struct {
	APIID      int
	APIHash    string
	SessionDir string

	// Accounts is the ordered list of phone numbers; the first is the main account
	Accounts []string

	Logger zerolog.Logger

	// MaxConcurrent limits parallel connects, defaults to 10
	MaxConcurrent int

	// ConnectTimeout bounds a single account connect, defaults to 30s
	ConnectTimeout time.Duration

	// RequestsPerSecond throttles API calls of each client
	RequestsPerSecond int
}
