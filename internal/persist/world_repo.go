package persist

import (
	"context"
	"fmt"

	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
)

// WorldRepo reads and writes the static world tables: maps and rooms.
// Reads happen once at boot; writes only from the import tool.
type WorldRepo struct {
	db *DB
}

func NewWorldRepo(db *DB) *WorldRepo {
	return &WorldRepo{db: db}
}

func (r *WorldRepo) LoadMaps(ctx context.Context) ([]data.Map, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, description FROM maps ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []data.Map
	for rows.Next() {
		var m data.Map
		if err := rows.Scan(&m.ID, &m.Name, &m.Description); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *WorldRepo) LoadRooms(ctx context.Context) ([]data.Room, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, map_id, x, y, title, description,
		        portal_direction, portal_map_id, portal_x, portal_y
		 FROM rooms
		 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []data.Room
	for rows.Next() {
		var (
			rm data.Room
			pd *int16
			pm *int32
			px *int32
			py *int32
		)
		if err := rows.Scan(
			&rm.ID, &rm.MapID, &rm.X, &rm.Y, &rm.Title, &rm.Description,
			&pd, &pm, &px, &py,
		); err != nil {
			return nil, err
		}
		if pd != nil {
			rm.Portal = &data.Portal{
				Direction: direction.Direction(*pd),
				MapID:     *pm,
				X:         *px,
				Y:         *py,
			}
		}
		result = append(result, rm)
	}
	return result, rows.Err()
}

// Counts returns how many maps and rooms are stored. The import tool
// reports them after a load.
func (r *WorldRepo) Counts(ctx context.Context) (maps, rooms int64, err error) {
	err = r.db.Pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM maps), (SELECT COUNT(*) FROM rooms)`,
	).Scan(&maps, &rooms)
	return maps, rooms, err
}

// Import writes a whole world in one transaction. With wipe set it clears
// the world tables first, including actors and inventories that reference
// rooms, so re-importing a reshaped world cannot strand references.
func (r *WorldRepo) Import(ctx context.Context, maps []data.Map, rooms []data.Room, wipe bool) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("import begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if wipe {
		for _, stmt := range []string{
			`DELETE FROM production_log`,
			`DELETE FROM inventories`,
			`UPDATE characters SET room_id = NULL`,
			`DELETE FROM actor_instances`,
			`DELETE FROM actor_archetypes`,
			`DELETE FROM rooms`,
			`DELETE FROM maps`,
		} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("import wipe: %w", err)
			}
		}
	}

	for _, m := range maps {
		if _, err := tx.Exec(ctx,
			`INSERT INTO maps (id, name, description)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name, description = EXCLUDED.description`,
			m.ID, m.Name, m.Description,
		); err != nil {
			return fmt.Errorf("import map %d: %w", m.ID, err)
		}
	}

	for _, rm := range rooms {
		var (
			pd *int16
			pm *int32
			px *int32
			py *int32
		)
		if rm.Portal != nil {
			d := int16(rm.Portal.Direction)
			pd, pm, px, py = &d, &rm.Portal.MapID, &rm.Portal.X, &rm.Portal.Y
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO rooms (id, map_id, x, y, title, description,
			                    portal_direction, portal_map_id, portal_x, portal_y)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE
			 SET map_id = EXCLUDED.map_id, x = EXCLUDED.x, y = EXCLUDED.y,
			     title = EXCLUDED.title, description = EXCLUDED.description,
			     portal_direction = EXCLUDED.portal_direction,
			     portal_map_id = EXCLUDED.portal_map_id,
			     portal_x = EXCLUDED.portal_x, portal_y = EXCLUDED.portal_y`,
			rm.ID, rm.MapID, rm.X, rm.Y, rm.Title, rm.Description,
			pd, pm, px, py,
		); err != nil {
			return fmt.Errorf("import room %d: %w", rm.ID, err)
		}
	}

	return tx.Commit(ctx)
}
