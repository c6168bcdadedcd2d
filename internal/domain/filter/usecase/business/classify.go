package business

import (
	"time"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
)

// IsActive applies the tiered last-seen rules.
// Unknown statuses and offline records without a timestamp count as active
// so that missing data never drops a member.
func IsActive(status domain.UserStatus, now time.Time, within time.Duration) bool {
	switch status.Kind {
	case domain.StatusOnline, domain.StatusRecently, domain.StatusLastWeek:
		return true
	case domain.StatusLastMonth:
		return false
	case domain.StatusOffline:
		if status.WasOnline.IsZero() {
			return true
		}
		return !status.WasOnline.Before(now.Add(-within))
	default:
		return true
	}
}
