package kafka

import "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"

// Event types carried in the envelope
const (
	EventTypeProgress  = "migration.progress"
	EventTypeCompleted = "migration.completed"
)

// ProgressEvent is published periodically while a run is active
type ProgressEvent struct {
	EventType string                   `json:"event_type"`
	RunID     string                   `json:"run_id"`
	Counters  map[string]int64         `json:"counters"`
	Processed int64                    `json:"processed"`
	Total     int                      `json:"total"`
	Elapsed   string                   `json:"elapsed"`
	ETA       string                   `json:"eta"`
	Filter    *entities.FilterProgress `json:"filter,omitempty"`
	Timestamp int64                    `json:"timestamp"`
}

// CompletedEvent is published once when a run reaches a terminal state
type CompletedEvent struct {
	EventType      string           `json:"event_type"`
	RunID          string           `json:"run_id"`
	Source         string           `json:"source"`
	Target         string           `json:"target"`
	Mode           string           `json:"mode"`
	Strategy       string           `json:"strategy"`
	State          string           `json:"state"`
	StopReason     string           `json:"stop_reason,omitempty"`
	Counters       map[string]int64 `json:"counters"`
	Processed      int64            `json:"processed"`
	Total          int              `json:"total"`
	ElapsedSeconds float64          `json:"elapsed_seconds"`
	ReportLocation string           `json:"report_location,omitempty"`
	Error          string           `json:"error,omitempty"`
	StartedAt      int64            `json:"started_at"`
	FinishedAt     int64            `json:"finished_at,omitempty"`
}

func countersToMap(counters map[entities.Outcome]int64) map[string]int64 {
	out := make(map[string]int64, len(counters))
	for outcome, n := range counters {
		out[string(outcome)] = n
	}
	return out
}

func newProgressEvent(p entities.Progress) ProgressEvent {
	return ProgressEvent{
		EventType: EventTypeProgress,
		RunID:     p.RunID,
		Counters:  countersToMap(p.Counters),
		Processed: p.Processed,
		Total:     p.Total,
		Elapsed:   p.Elapsed,
		ETA:       p.ETA,
		Filter:    p.Filter,
		Timestamp: p.Timestamp.Unix(),
	}
}

func newCompletedEvent(run entities.Run) CompletedEvent {
	event := CompletedEvent{
		EventType:      EventTypeCompleted,
		RunID:          run.ID,
		Source:         run.Source,
		Target:         run.Target,
		Mode:           string(run.Mode),
		Strategy:       run.Strategy,
		State:          string(run.State),
		StopReason:     string(run.StopReason),
		Counters:       countersToMap(run.Counters),
		Processed:      run.Processed,
		Total:          run.Total,
		ElapsedSeconds: run.ElapsedSeconds,
		ReportLocation: run.ReportLocation,
		Error:          run.Error,
		StartedAt:      run.StartedAt.Unix(),
	}
	if run.FinishedAt != nil {
		event.FinishedAt = run.FinishedAt.Unix()
	}
	return event
}
