package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ArchetypeRow mirrors actor_archetypes: a named behavior template shared by
// any number of placed instances.
type ArchetypeRow struct {
	ID          int32
	Name        string
	Behavior    string
	Description string
	Config      map[string]any
}

// ActorRow is one placed actor, denormalized with its archetype so the
// scheduler never joins at runtime.
type ActorRow struct {
	ID           int64
	ArchetypeID  int32
	Name         string
	Behavior     string
	Description  string
	Config       map[string]any
	RoomID       int32
	Slot         int16
	Active       bool
	State        map[string]any
	LastCycleRun time.Time
}

type ActorRepo struct {
	db *DB
}

func NewActorRepo(db *DB) *ActorRepo {
	return &ActorRepo{db: db}
}

// LoadActive returns every active instance joined with its archetype.
func (r *ActorRepo) LoadActive(ctx context.Context) ([]ActorRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT i.id, i.archetype_id, a.name, a.behavior, a.description, a.config,
		        i.room_id, i.slot, i.state, i.last_cycle_run
		 FROM actor_instances i
		 JOIN actor_archetypes a ON a.id = i.archetype_id
		 WHERE i.active
		 ORDER BY i.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActorRow
	for rows.Next() {
		var (
			ac       ActorRow
			rawCfg   []byte
			rawState []byte
		)
		if err := rows.Scan(
			&ac.ID, &ac.ArchetypeID, &ac.Name, &ac.Behavior, &ac.Description, &rawCfg,
			&ac.RoomID, &ac.Slot, &rawState, &ac.LastCycleRun,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawCfg, &ac.Config); err != nil {
			return nil, fmt.Errorf("actor %d config: %w", ac.ID, err)
		}
		if err := json.Unmarshal(rawState, &ac.State); err != nil {
			return nil, fmt.Errorf("actor %d state: %w", ac.ID, err)
		}
		ac.Active = true
		result = append(result, ac)
	}
	return result, rows.Err()
}

// UpdateState writes an instance's state bag and cycle stamp after an
// executed cycle.
func (r *ActorRepo) UpdateState(ctx context.Context, id int64, state map[string]any, lastCycleRun time.Time) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("actor %d state: %w", id, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE actor_instances SET state = $1, last_cycle_run = $2 WHERE id = $3`,
		raw, lastCycleRun, id,
	)
	return err
}

// UpdateRoom persists a patrolling instance's new position.
func (r *ActorRepo) UpdateRoom(ctx context.Context, id int64, roomID int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE actor_instances SET room_id = $1 WHERE id = $2`,
		roomID, id,
	)
	return err
}

// InstanceSeed is a to-be-placed actor from the import tool.
type InstanceSeed struct {
	ArchetypeID int32
	RoomID      int32
	Slot        int16
	State       map[string]any
}

// Import writes archetypes and instances in one transaction. Archetypes
// upsert by id; instances are append-only, so a wipeless re-import adds
// actors rather than replacing them.
func (r *ActorRepo) Import(ctx context.Context, archetypes []ArchetypeRow, instances []InstanceSeed) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("actor import begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range archetypes {
		cfg, err := json.Marshal(a.Config)
		if err != nil {
			return fmt.Errorf("archetype %q config: %w", a.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO actor_archetypes (id, name, behavior, description, config)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET name = EXCLUDED.name, behavior = EXCLUDED.behavior,
			     description = EXCLUDED.description, config = EXCLUDED.config`,
			a.ID, a.Name, a.Behavior, a.Description, cfg,
		); err != nil {
			return fmt.Errorf("import archetype %q: %w", a.Name, err)
		}
	}

	for _, in := range instances {
		state := in.State
		if state == nil {
			state = map[string]any{}
		}
		raw, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("instance state: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO actor_instances (archetype_id, room_id, slot, state)
			 VALUES ($1, $2, $3, $4)`,
			in.ArchetypeID, in.RoomID, in.Slot, raw,
		); err != nil {
			return fmt.Errorf("import instance (archetype %d): %w", in.ArchetypeID, err)
		}
	}

	return tx.Commit(ctx)
}
