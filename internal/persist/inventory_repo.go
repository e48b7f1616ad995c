package persist

import (
	"context"
	"fmt"
)

// Container id prefixes. Ground, character and actor inventories share one
// table keyed by a typed string id.
func RoomContainer(roomID int32) string    { return fmt.Sprintf("room:%d", roomID) }
func CharContainer(identity string) string { return "char:" + identity }
func ActorContainer(actorID int64) string  { return fmt.Sprintf("actor:%d", actorID) }

// InventoryRow is one item stack inside a container.
type InventoryRow struct {
	ContainerID string
	ItemName    string
	Qty         int64
}

type InventoryRepo struct {
	db *DB
}

func NewInventoryRepo(db *DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// Add merges qty into the container's stack for item.
func (r *InventoryRepo) Add(ctx context.Context, containerID, item string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO inventories (container_id, item_name, qty)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (container_id, item_name)
		 DO UPDATE SET qty = inventories.qty + EXCLUDED.qty`,
		containerID, item, qty,
	)
	return err
}

// Remove takes qty from a stack, deleting it when it empties. Removing more
// than the stack holds fails without changing anything.
func (r *InventoryRepo) Remove(ctx context.Context, containerID, item string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE inventories SET qty = qty - $3
		 WHERE container_id = $1 AND item_name = $2 AND qty >= $3`,
		containerID, item, qty,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("remove %d %q from %s: not enough", qty, item, containerID)
	}
	_, err = r.db.Pool.Exec(ctx,
		`DELETE FROM inventories
		 WHERE container_id = $1 AND item_name = $2 AND qty <= 0`,
		containerID, item,
	)
	return err
}

// LoadContainer returns the container's stacks in item order.
func (r *InventoryRepo) LoadContainer(ctx context.Context, containerID string) ([]InventoryRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT container_id, item_name, qty
		 FROM inventories
		 WHERE container_id = $1
		 ORDER BY item_name`, containerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InventoryRow
	for rows.Next() {
		var row InventoryRow
		if err := rows.Scan(&row.ContainerID, &row.ItemName, &row.Qty); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// LoadRoomContainers returns every room container's stacks keyed by room id.
// Boot calls it once to put saved ground piles back on the floors.
func (r *InventoryRepo) LoadRoomContainers(ctx context.Context) (map[int32][]InventoryRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT container_id, item_name, qty
		 FROM inventories
		 WHERE container_id LIKE 'room:%'
		 ORDER BY container_id, item_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int32][]InventoryRow)
	for rows.Next() {
		var row InventoryRow
		if err := rows.Scan(&row.ContainerID, &row.ItemName, &row.Qty); err != nil {
			return nil, err
		}
		var roomID int32
		if _, err := fmt.Sscanf(row.ContainerID, "room:%d", &roomID); err != nil {
			return nil, fmt.Errorf("bad room container id %q: %w", row.ContainerID, err)
		}
		result[roomID] = append(result[roomID], row)
	}
	return result, rows.Err()
}

// ReplaceContainer swaps a container's whole contents in one transaction.
// The ground flush uses it: the in-memory stacks are authoritative, the row
// set just mirrors them.
func (r *InventoryRepo) ReplaceContainer(ctx context.Context, containerID string, stacks []InventoryRow) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("replace begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM inventories WHERE container_id = $1`, containerID,
	); err != nil {
		return fmt.Errorf("replace clear %s: %w", containerID, err)
	}
	for _, s := range stacks {
		if s.Qty <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO inventories (container_id, item_name, qty)
			 VALUES ($1, $2, $3)`,
			containerID, s.ItemName, s.Qty,
		); err != nil {
			return fmt.Errorf("replace insert %s/%s: %w", containerID, s.ItemName, err)
		}
	}
	return tx.Commit(ctx)
}
