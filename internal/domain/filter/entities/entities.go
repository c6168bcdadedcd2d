package entities

import (
	"fmt"
	"strings"
)

// Strategy selects how a member's activity is decided
type Strategy string

const (
	// StrategyBasic uses the status already attached to the roster record
	StrategyBasic Strategy = "basic"
	// StrategyAdvanced fetches each member's status from the platform
	StrategyAdvanced Strategy = "advanced"
)

// ParseStrategy parses a case-insensitive strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyBasic:
		return StrategyBasic, nil
	case StrategyAdvanced:
		return StrategyAdvanced, nil
	default:
		return "", fmt.Errorf("unknown filter strategy %q", s)
	}
}

// State is the lifecycle of one filter pass
type State int32

const (
	StateIdle State = iota
	StateFiltering
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateFiltering:
		return "filtering"
	case StateComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Stats are the filter counters exposed to progress reporting
type Stats struct {
	Total       int   `json:"total"`
	Processed   int64 `json:"processed"`
	ActiveFound int64 `json:"active_found"`
	Rejected    int64 `json:"rejected"`
	FloodWaits  int64 `json:"flood_waits"`
	Errors      int64 `json:"errors"`
	Queued      int   `json:"queued"`
}
