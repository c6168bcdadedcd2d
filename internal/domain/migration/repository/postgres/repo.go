package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
)

// Repository implements deps.RunRepository using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL run repository
func NewRepository(db *gorm.DB) deps.RunRepository {
	return &Repository{db: db}
}

// Save upserts a run summary
func (r *Repository) Save(ctx context.Context, run *entities.Run) error {
	model := entities.NewRunModel(run)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state", "stop_reason", "counters", "processed", "total",
				"elapsed_seconds", "report_location", "error", "finished_at", "updated_at",
			}),
		}).
		Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save migration run: %w", result.Error)
	}

	return nil
}

// Get retrieves a run by ID
func (r *Repository) Get(ctx context.Context, id string) (*entities.Run, error) {
	var model entities.RunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, migrationerrors.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get migration run: %w", err)
	}

	return model.ToEntity(), nil
}

// List returns up to limit runs, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]entities.Run, error) {
	var models []entities.RunModel
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list migration runs: %w", err)
	}

	runs := make([]entities.Run, 0, len(models))
	for i := range models {
		runs = append(runs, *models[i].ToEntity())
	}
	return runs, nil
}
