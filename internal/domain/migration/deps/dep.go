package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
)

// MemberSource resolves groups and scrapes their rosters
type MemberSource interface {
	ResolveDestination(ctx context.Context, ref string) (domain.Destination, error)
	ListMembers(ctx context.Context, source domain.Destination) ([]domain.Member, error)
}

// FailureExporter writes the failure report of a run and returns where it was stored
type FailureExporter interface {
	Export(ctx context.Context, runID string, failures []entities.FailureRecord) (string, error)
}

// EventPublisher publishes run progress and completion
type EventPublisher interface {
	PublishProgress(ctx context.Context, progress entities.Progress) error
	PublishCompleted(ctx context.Context, run entities.Run) error
}

// RunRepository stores finished run summaries
type RunRepository interface {
	Save(ctx context.Context, run *entities.Run) error
	Get(ctx context.Context, id string) (*entities.Run, error)
	List(ctx context.Context, limit int) ([]entities.Run, error)
}

// MigrationService is the command surface used by delivery handlers
type MigrationService interface {
	Start(ctx context.Context, req entities.StartRequest) (*entities.Run, error)
	Pause() error
	Resume() error
	Cancel() error
	SetSpeed(name string) error
	Statistics() entities.Statistics
	DetailedStatus() string
	ListRuns(ctx context.Context, limit int) ([]entities.Run, error)
	GetRun(ctx context.Context, id string) (*entities.Run, error)
}
