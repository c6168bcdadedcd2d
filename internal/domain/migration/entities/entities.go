package entities

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// State is the lifecycle of a migration run
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCancelled State = "cancelled"
	StateCompleted State = "completed"
)

// IsActive reports whether a run is in progress (running or paused)
func (s State) IsActive() bool {
	return s == StateRunning || s == StatePaused
}

// Mode selects the work source of the invitation engine
type Mode string

const (
	// ModeSimple invites from a pre-filtered list
	ModeSimple Mode = "simple"
	// ModeConcurrent filters and invites at the same time through the ready queue
	ModeConcurrent Mode = "concurrent"
)

// ParseMode parses a case-insensitive mode, defaulting to concurrent
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeConcurrent:
		return ModeConcurrent, nil
	case ModeSimple:
		return ModeSimple, nil
	default:
		return "", fmt.Errorf("unknown migration mode %q", s)
	}
}

// Speed names a throttling profile
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// DelayRange is an inclusive range a random delay is drawn from
type DelayRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Random returns a uniformly distributed duration within the range
func (r DelayRange) Random() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rand.Int63n(int64(r.Max-r.Min+1)))
}

// SpeedProfile bundles the timing and batch parameters of one speed
type SpeedProfile struct {
	InviteDelay  DelayRange `json:"invite_delay"`
	AccountDelay DelayRange `json:"account_delay"`
	BatchSize    int        `json:"batch_size"`
}

// Outcome is the counter bucket a processed member lands in
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeDeletedAccount    Outcome = "deleted_account"
	OutcomeTooManyRequests   Outcome = "too_many_requests"
	OutcomeFloodWait         Outcome = "flood_wait"
	OutcomePeerFlood         Outcome = "peer_flood"
	OutcomePrivacyRestricted Outcome = "privacy_restricted"
	OutcomeNotMutualContact  Outcome = "not_mutual_contact"
	OutcomeTooManyChannels   Outcome = "too_many_channels"
	OutcomeAdminRequired     Outcome = "admin_required"
	OutcomeBannedInChannel   Outcome = "banned_in_channel"
	OutcomeBot               Outcome = "bot"
	OutcomeOther             Outcome = "other"
)

// Outcomes lists every counter bucket in reporting order
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeDeletedAccount,
	OutcomeTooManyRequests,
	OutcomeFloodWait,
	OutcomePeerFlood,
	OutcomePrivacyRestricted,
	OutcomeNotMutualContact,
	OutcomeTooManyChannels,
	OutcomeAdminRequired,
	OutcomeBannedInChannel,
	OutcomeBot,
	OutcomeOther,
}

// StopReason explains why the engine loop ended
type StopReason string

const (
	StopExhausted  StopReason = "exhausted"
	StopNoAccounts StopReason = "no_accounts"
	StopCancelled  StopReason = "cancelled"
)

// FailureRecord is one classified invite failure kept for export
type FailureRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Account   string    `json:"account"`
	Error     string    `json:"error"`
}

// FilterProgress is the filter-stage payload of a concurrent-mode progress report
type FilterProgress struct {
	State          string `json:"state"`
	Processed      int64  `json:"processed"`
	ActiveFound    int64  `json:"active_found"`
	FloodWaits     int64  `json:"flood_waits"`
	Errors         int64  `json:"errors"`
	ReadyQueueSize int    `json:"ready_queue_size"`
}

// Progress is a periodic snapshot of a running migration
type Progress struct {
	RunID     string            `json:"run_id"`
	Counters  map[Outcome]int64 `json:"counters"`
	Processed int64             `json:"processed"`
	Total     int               `json:"total"`
	Elapsed   string            `json:"elapsed"`
	ETA       string            `json:"eta"`
	Filter    *FilterProgress   `json:"filter,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Result is what the engine returns when a run ends
type Result struct {
	Counters   map[Outcome]int64 `json:"counters"`
	Processed  int64             `json:"processed"`
	Total      int               `json:"total"`
	StopReason StopReason        `json:"stop_reason"`
	Failures   []FailureRecord   `json:"-"`
	Filter     *FilterProgress   `json:"filter,omitempty"`
}

// Statistics is the structured status snapshot of the controller
type Statistics struct {
	RunID            string            `json:"run_id,omitempty"`
	State            State             `json:"state"`
	Speed            Speed             `json:"speed"`
	Source           string            `json:"source,omitempty"`
	Target           string            `json:"target,omitempty"`
	Elapsed          string            `json:"elapsed"`
	PausedDuration   string            `json:"paused_duration"`
	CurrentPause     string            `json:"current_pause,omitempty"`
	ProgressPercent  float64           `json:"progress_percent"`
	ETA              string            `json:"eta"`
	InvitesPerMinute float64           `json:"invites_per_minute"`
	Processed        int64             `json:"processed"`
	Total            int               `json:"total"`
	ActiveFound      int64             `json:"active_found"`
	InvitesSent      int64             `json:"invites_sent"`
	Errors           int64             `json:"errors"`
	AccountsUsed     int               `json:"accounts_used"`
	CurrentAccount   string            `json:"current_account,omitempty"`
	Counters         map[Outcome]int64 `json:"counters"`
	Filter           *FilterProgress   `json:"filter,omitempty"`
	StartedAt        time.Time         `json:"started_at,omitempty"`
	LastUpdate       time.Time         `json:"last_update,omitempty"`
}

// StartRequest describes a migration requested by the command layer
type StartRequest struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Mode     string `json:"mode"`
	Strategy string `json:"strategy"`
	Speed    string `json:"speed,omitempty"`
}

// Run is the persisted summary of one migration
type Run struct {
	ID             string            `json:"id"`
	Source         string            `json:"source"`
	Target         string            `json:"target"`
	Mode           Mode              `json:"mode"`
	Strategy       string            `json:"strategy"`
	Speed          Speed             `json:"speed"`
	State          State             `json:"state"`
	StopReason     StopReason        `json:"stop_reason,omitempty"`
	Counters       map[Outcome]int64 `json:"counters,omitempty"`
	Processed      int64             `json:"processed"`
	Total          int               `json:"total"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	ReportLocation string            `json:"report_location,omitempty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     *time.Time        `json:"finished_at,omitempty"`
}
