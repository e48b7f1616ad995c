package persist

import (
	"context"
	"fmt"
	"time"
)

// ProductionEntry is one "actor produced items" record. The log is an audit
// trail for the economy: cycles append, downstream jobs mark rows processed.
type ProductionEntry struct {
	ActorID int64
	RoomID  int32
	Item    string
	Qty     int64
	CycleAt time.Time
}

type ProductionRepo struct {
	db *DB
}

func NewProductionRepo(db *DB) *ProductionRepo {
	return &ProductionRepo{db: db}
}

// Append writes a batch of entries in a single transaction. All or nothing;
// on failure the caller re-queues the batch.
func (r *ProductionRepo) Append(ctx context.Context, entries []ProductionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("production begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO production_log (actor_id, room_id, item_name, qty, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			e.ActorID, e.RoomID, e.Item, e.Qty, e.CycleAt,
		); err != nil {
			return fmt.Errorf("production insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// MarkProcessed flags every unprocessed row. The persist sweep calls it
// after the ground stacks those rows fed are durable.
func (r *ProductionRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE production_log SET processed = TRUE WHERE NOT processed`,
	)
	return err
}
