package entities

import "time"

// RunModel is a GORM model for migration_runs table
type RunModel struct {
	ID             string            `gorm:"primaryKey;size:36"`
	Source         string            `gorm:"not null;size:255"`
	Target         string            `gorm:"not null;size:255"`
	Mode           string            `gorm:"not null;size:32"`
	Strategy       string            `gorm:"not null;size:32"`
	Speed          string            `gorm:"not null;size:32"`
	State          string            `gorm:"not null;size:32;index"`
	StopReason     string            `gorm:"size:32;default:''"`
	Counters       map[Outcome]int64 `gorm:"type:jsonb;serializer:json"`
	Processed      int64             `gorm:"not null;default:0"`
	Total          int               `gorm:"not null;default:0"`
	ElapsedSeconds float64           `gorm:"not null;default:0"`
	ReportLocation string            `gorm:"size:1024;default:''"`
	Error          string            `gorm:"type:text;default:''"`
	StartedAt      time.Time         `gorm:"not null;index"`
	FinishedAt     *time.Time        `gorm:"default:null"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (RunModel) TableName() string {
	return "migration_runs"
}

// NewRunModel converts a domain run to its DB model
func NewRunModel(run *Run) *RunModel {
	return &RunModel{
		ID:             run.ID,
		Source:         run.Source,
		Target:         run.Target,
		Mode:           string(run.Mode),
		Strategy:       run.Strategy,
		Speed:          string(run.Speed),
		State:          string(run.State),
		StopReason:     string(run.StopReason),
		Counters:       run.Counters,
		Processed:      run.Processed,
		Total:          run.Total,
		ElapsedSeconds: run.ElapsedSeconds,
		ReportLocation: run.ReportLocation,
		Error:          run.Error,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}
}

// ToEntity converts DB model to domain entity
func (m *RunModel) ToEntity() *Run {
	return &Run{
		ID:             m.ID,
		Source:         m.Source,
		Target:         m.Target,
		Mode:           Mode(m.Mode),
		Strategy:       m.Strategy,
		Speed:          Speed(m.Speed),
		State:          State(m.State),
		StopReason:     StopReason(m.StopReason),
		Counters:       m.Counters,
		Processed:      m.Processed,
		Total:          m.Total,
		ElapsedSeconds: m.ElapsedSeconds,
		ReportLocation: m.ReportLocation,
		Error:          m.Error,
		StartedAt:      m.StartedAt,
		FinishedAt:     m.FinishedAt,
	}
}
