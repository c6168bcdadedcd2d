package business

import (
	"context"
	"fmt"
	"time"

	filterentities "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/filter/entities"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
)

// ProgressFunc receives periodic progress snapshots
type ProgressFunc func(entities.Progress)

// FormatDuration renders d as H:MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// EstimateRemaining extrapolates the time left from the average pace so far
func EstimateRemaining(elapsed time.Duration, processed, total int64) string {
	if processed <= 0 || total <= 0 || elapsed <= 0 {
		return "unknown"
	}
	if processed >= total {
		return FormatDuration(0)
	}
	perMember := elapsed / time.Duration(processed)
	return FormatDuration(perMember * time.Duration(total-processed))
}

func filterProgress(stats filterentities.Stats) *entities.FilterProgress {
	return &entities.FilterProgress{
		Processed:      stats.Processed,
		ActiveFound:    stats.ActiveFound,
		FloodWaits:     stats.FloodWaits,
		Errors:         stats.Errors,
		ReadyQueueSize: stats.Queued,
	}
}

// snapshot builds the progress payload of the current run
func (e *Engine) snapshot(counters *entities.Counters, total int, filterStats FilterStatsFunc, filterState func() string) entities.Progress {
	elapsed := e.controller.Elapsed()
	processed := counters.Processed()

	progress := entities.Progress{
		RunID:     e.controller.RunID(),
		Counters:  counters.Snapshot(),
		Processed: processed,
		Total:     total,
		Elapsed:   FormatDuration(elapsed),
		Timestamp: time.Now().UTC(),
	}

	expected := int64(total)
	if filterStats != nil {
		fs := filterStats()
		progress.Filter = filterProgress(fs)
		if filterState != nil {
			progress.Filter.State = filterState()
		}
		expected -= fs.Rejected
	}
	progress.ETA = EstimateRemaining(elapsed, processed, expected)

	return progress
}

// reportProgress calls fn every interval until ctx is done
func (e *Engine) reportProgress(ctx context.Context, fn ProgressFunc, build func() entities.Progress) {
	if fn == nil || e.cfg.ProgressInterval <= 0 {
		return
	}

	ticker := time.NewTicker(e.cfg.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			progress := build()
			e.metrics.UpdateReadyQueueSize(readyQueueSize(progress))
			fn(progress)
		}
	}
}

func readyQueueSize(p entities.Progress) int {
	if p.Filter == nil {
		return 0
	}
	return p.Filter.ReadyQueueSize
}
