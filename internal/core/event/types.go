package event

import "github.com/gridmud/server/internal/direction"

// PresenceJoined fires after a character registers and lands in its room.
type PresenceJoined struct {
	Identity string
	RoomID   int32
}

// PresenceLeft fires after a character's registry entry is removed, whether
// by quit or by a dropped connection.
type PresenceLeft struct {
	Identity string
	RoomID   int32
}

// CharacterMoved fires after a successful move, manual or route-driven.
type CharacterMoved struct {
	Identity  string
	FromRoom  int32
	ToRoom    int32
	Direction direction.Direction
}

// ItemsProduced fires when an actor's cycle drops items on the ground.
type ItemsProduced struct {
	ActorID   int64
	ActorName string
	RoomID    int32
	Item      string
	Qty       int64
}

// ActorMoved fires when a patrolling actor changes rooms.
type ActorMoved struct {
	ActorID  int64
	FromRoom int32
	ToRoom   int32
}
