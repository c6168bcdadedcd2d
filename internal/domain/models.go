package domain

import (
	"strconv"
	"strings"
	"time"
)

// StatusKind is the last-seen status category the platform reports for a user
type StatusKind int

const (
	// StatusUnknown means the status is hidden, empty or was not reported
	StatusUnknown StatusKind = iota
	StatusOnline
	StatusRecently
	StatusLastWeek
	StatusLastMonth
	StatusOffline
)

// String returns the status name
func (k StatusKind) String() string {
	switch k {
	case StatusOnline:
		return "online"
	case StatusRecently:
		return "recently"
	case StatusLastWeek:
		return "last_week"
	case StatusLastMonth:
		return "last_month"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// UserStatus is a user's last-seen status
type UserStatus struct {
	Kind StatusKind `json:"kind"`

	// WasOnline is only meaningful for StatusOffline and may be zero
	WasOnline time.Time `json:"was_online,omitempty"`
}

// Member is a roster record scraped from the source group.
// The core never mutates members.
type Member struct {
	ID         int64      `json:"id"`
	AccessHash int64      `json:"-"`
	Username   string     `json:"username,omitempty"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Bot        bool       `json:"bot"`
	Status     UserStatus `json:"status"`
}

// DisplayName returns "First Last", falling back to @username and then the numeric ID
func (m Member) DisplayName() string {
	name := strings.TrimSpace(m.FirstName + " " + m.LastName)
	if name != "" {
		return name
	}
	if m.Username != "" {
		return "@" + m.Username
	}
	return strconv.FormatInt(m.ID, 10)
}

// Destination is a resolved group or channel handle
type Destination struct {
	ID         int64  `json:"id"`
	AccessHash int64  `json:"-"`
	Title      string `json:"title"`
	Username   string `json:"username,omitempty"`
}

// Label returns a human readable name for the destination
func (d Destination) Label() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Username != "" {
		return "@" + d.Username
	}
	return strconv.FormatInt(d.ID, 10)
}
