package snapshots

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	"github.com/eduvoyage/admin-gateway/internal/repository"
	"github.com/eduvoyage/admin-gateway/pkg/jobs"
)

// Persister mirrors entity state into Postgres after every terminal update.
// Persistence is asynchronous and best-effort: a failed write retries via the
// queue and never blocks the effect engine.
type Persister struct {
	repo   *repository.SnapshotRepository
	sup    *engine.Supervisor
	queue  *jobs.Queue
	logger *zap.Logger
}

// Config sizes the persist queue.
type Config struct {
	Workers int
	Retries int
	Logger  *zap.Logger
}

// NewPersister builds the persister and hooks it into the supervisor. Must be
// called before the supervisor starts.
func NewPersister(repo *repository.SnapshotRepository, sup *engine.Supervisor, cfg Config) *Persister {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	p := &Persister{repo: repo, sup: sup, logger: cfg.Logger}
	p.queue = jobs.NewQueue("snapshots", p.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     cfg.Logger,
	})

	sup.OnTerminal = func(entity string) {
		job := jobs.Job{ID: uuid.NewString(), Type: "snapshot_persist", Entity: entity}
		if err := p.queue.Enqueue(job); err != nil {
			cfg.Logger.Warn("snapshot enqueue failed", zap.String("entity", entity), zap.Error(err))
		}
	}

	return p
}

// Start launches the persist workers.
func (p *Persister) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop drains the persist workers.
func (p *Persister) Stop() {
	p.queue.Stop()
}

func (p *Persister) persist(ctx context.Context, job jobs.Job) error {
	entity, ok := p.sup.Lookup(job.Entity)
	if !ok {
		return fmt.Errorf("unknown entity %s", job.Entity)
	}

	raw, err := json.Marshal(entity.StateSnapshot())
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", job.Entity, err)
	}

	var counted struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(raw, &counted)

	return p.repo.Upsert(ctx, &repository.StateSnapshot{
		Entity:    job.Entity,
		State:     raw,
		ItemCount: counted.Count,
	})
}
