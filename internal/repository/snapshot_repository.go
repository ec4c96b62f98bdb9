package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// StateSnapshot is one persisted entity state, the last known mirror of the
// upstream for that entity.
type StateSnapshot struct {
	Entity    string          `db:"entity" json:"entity"`
	State     json.RawMessage `db:"state" json:"state"`
	ItemCount int             `db:"item_count" json:"itemCount"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// SnapshotRepository persists entity state snapshots to Postgres so offline
// tooling can query the last known upstream state.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert stores the snapshot for an entity, replacing any previous one.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshot *StateSnapshot) error {
	const query = `INSERT INTO entity_snapshots (entity, state, item_count, updated_at)
VALUES (:entity, :state, :item_count, :updated_at)
ON CONFLICT (entity)
DO UPDATE SET state = EXCLUDED.state, item_count = EXCLUDED.item_count, updated_at = EXCLUDED.updated_at`
	snapshot.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, snapshot); err != nil {
		return fmt.Errorf("upsert snapshot for %s: %w", snapshot.Entity, err)
	}
	return nil
}

// Get fetches the stored snapshot for one entity.
func (r *SnapshotRepository) Get(ctx context.Context, entity string) (*StateSnapshot, error) {
	const query = `SELECT entity, state, item_count, updated_at FROM entity_snapshots WHERE entity = $1`
	var snapshot StateSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, entity); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// List returns all stored snapshots ordered by entity name.
func (r *SnapshotRepository) List(ctx context.Context) ([]StateSnapshot, error) {
	const query = `SELECT entity, state, item_count, updated_at FROM entity_snapshots ORDER BY entity ASC`
	var snapshots []StateSnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}
