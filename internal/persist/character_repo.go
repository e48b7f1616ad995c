package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CharacterRow mirrors the characters table. Identity is the primary key;
// authentication happens upstream, so the row is just position and
// bookkeeping.
type CharacterRow struct {
	Identity   string
	RoomID     *int32
	CreatedAt  time.Time
	LastSeenAt time.Time
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Ensure returns the character row for identity, creating it on first
// sight. last_seen_at refreshes either way.
func (r *CharacterRepo) Ensure(ctx context.Context, identity string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (identity)
		 VALUES ($1)
		 ON CONFLICT (identity) DO UPDATE SET last_seen_at = now()
		 RETURNING identity, room_id, created_at, last_seen_at`,
		identity,
	).Scan(&c.Identity, &c.RoomID, &c.CreatedAt, &c.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("ensure character %q: %w", identity, err)
	}
	return c, nil
}

// LoadByIdentity returns the row, or nil when the identity has never
// connected.
func (r *CharacterRepo) LoadByIdentity(ctx context.Context, identity string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT identity, room_id, created_at, last_seen_at
		 FROM characters WHERE identity = $1`, identity,
	).Scan(&c.Identity, &c.RoomID, &c.CreatedAt, &c.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SaveRoom updates one character's position.
func (r *CharacterRepo) SaveRoom(ctx context.Context, identity string, roomID int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET room_id = $1, last_seen_at = now() WHERE identity = $2`,
		roomID, identity,
	)
	return err
}

// TouchLastSeen refreshes the activity stamp without moving the character.
func (r *CharacterRepo) TouchLastSeen(ctx context.Context, identity string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET last_seen_at = now() WHERE identity = $1`,
		identity,
	)
	return err
}

// SaveRooms flushes many positions in one transaction. The periodic save
// uses it so a crash loses at most one interval of movement.
func (r *CharacterRepo) SaveRooms(ctx context.Context, rooms map[string]int32) error {
	if len(rooms) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save rooms begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for identity, roomID := range rooms {
		if _, err := tx.Exec(ctx,
			`UPDATE characters SET room_id = $1, last_seen_at = now() WHERE identity = $2`,
			roomID, identity,
		); err != nil {
			return fmt.Errorf("save room for %q: %w", identity, err)
		}
	}
	return tx.Commit(ctx)
}
