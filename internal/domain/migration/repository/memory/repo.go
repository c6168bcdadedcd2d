package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/deps"
	"github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/entities"
	migrationerrors "github.com/Conte777/NewsFlow/services/migration-service/internal/domain/migration/errors"
)

// runRepository implements deps.RunRepository using in-memory storage
type runRepository struct {
	mu   sync.RWMutex
	runs map[string]entities.Run
}

// NewRepository creates a new in-memory run repository
func NewRepository() deps.RunRepository {
	return &runRepository{
		runs: make(map[string]entities.Run),
	}
}

// Save stores or replaces a run summary
func (r *runRepository) Save(ctx context.Context, run *entities.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *run
	if run.Counters != nil {
		stored.Counters = make(map[entities.Outcome]int64, len(run.Counters))
		for k, v := range run.Counters {
			stored.Counters[k] = v
		}
	}
	r.runs[run.ID] = stored
	return nil
}

// Get retrieves a run by ID
func (r *runRepository) Get(ctx context.Context, id string) (*entities.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, migrationerrors.ErrRunNotFound
	}
	return &run, nil
}

// List returns up to limit runs, newest first
func (r *runRepository) List(ctx context.Context, limit int) ([]entities.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]entities.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
