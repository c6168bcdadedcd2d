package business

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
)

// DetailedStatus renders the current statistics as a multi-line summary
func (c *Controller) DetailedStatus() string {
	stats := c.Statistics()
	if stats.State == entities.StateIdle {
		return "No migration has been started."
	}
	profile := c.SpeedProfile()

	var b strings.Builder
	fmt.Fprintf(&b, "Migration %s\n", strings.ToUpper(string(stats.State)))
	fmt.Fprintf(&b, "Run: %s\n", stats.RunID)
	fmt.Fprintf(&b, "Route: %s -> %s\n", stats.Source, stats.Target)
	fmt.Fprintf(&b, "Speed: %s (batch %d, invite delay %s-%s, account delay %s-%s)\n",
		stats.Speed, profile.BatchSize,
		profile.InviteDelay.Min, profile.InviteDelay.Max,
		profile.AccountDelay.Min, profile.AccountDelay.Max)
	fmt.Fprintf(&b, "Progress: %s / %s (%.1f%%)\n",
		humanize.Comma(stats.Processed), humanize.Comma(int64(stats.Total)), stats.ProgressPercent)
	fmt.Fprintf(&b, "Invites sent: %s | Errors: %s | Bots skipped: %s\n",
		humanize.Comma(stats.InvitesSent), humanize.Comma(stats.Errors),
		humanize.Comma(stats.Counters[entities.OutcomeBot]))
	fmt.Fprintf(&b, "Elapsed: %s (paused %s) | ETA: %s\n", stats.Elapsed, stats.PausedDuration, stats.ETA)
	if stats.CurrentPause != "" {
		fmt.Fprintf(&b, "Paused for: %s\n", stats.CurrentPause)
	}
	fmt.Fprintf(&b, "Rate: %.1f invites/min\n", stats.InvitesPerMinute)
	fmt.Fprintf(&b, "Accounts used: %d", stats.AccountsUsed)
	if stats.CurrentAccount != "" {
		fmt.Fprintf(&b, " | Current: %s", stats.CurrentAccount)
	}
	b.WriteString("\n")

	if f := stats.Filter; f != nil {
		fmt.Fprintf(&b, "Filter: %s processed, %s active, %s queued, %d flood waits, %d errors\n",
			humanize.Comma(f.Processed), humanize.Comma(f.ActiveFound),
			humanize.Comma(int64(f.ReadyQueueSize)), f.FloodWaits, f.Errors)
	}
	if !stats.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", humanize.Time(stats.StartedAt))
	}

	var failures []string
	for _, outcome := range entities.Outcomes {
		if outcome == entities.OutcomeSuccess || outcome == entities.OutcomeBot {
			continue
		}
		if n := stats.Counters[outcome]; n > 0 {
			failures = append(failures, fmt.Sprintf("  %s: %s", outcome, humanize.Comma(n)))
		}
	}
	if len(failures) > 0 {
		b.WriteString("Failures by kind:\n")
		b.WriteString(strings.Join(failures, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}
