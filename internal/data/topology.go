// Package data holds the static world content loaded at boot: maps, rooms
// and the portals between them, indexed for the lookups the engine needs on
// every move. The tables are immutable once built.
package data

import (
	"fmt"

	"github.com/gridmud/server/internal/direction"
)

// Map is a named coordinate grid rooms live on.
type Map struct {
	ID          int32
	Name        string
	Description string
}

// Portal is a room's single outbound link. Portals are one-directional and
// never auto-mirrored: the return trip needs its own portal or an in-map
// neighbor.
type Portal struct {
	Direction direction.Direction
	MapID     int32
	X, Y      int32
}

// Room is one cell of a map grid. At most one outbound portal.
type Room struct {
	ID          int32
	MapID       int32
	X, Y        int32
	Title       string
	Description string
	Portal      *Portal
}

// RoomKey addresses a room by position. (map, x, y) is unique world-wide.
type RoomKey struct {
	MapID int32
	X, Y  int32
}

// Key returns the room's position key.
func (r *Room) Key() RoomKey {
	return RoomKey{MapID: r.MapID, X: r.X, Y: r.Y}
}

// WallError reports a move that does not resolve. A missing neighbor, a
// dangling portal and a vertical heading all surface as the same error;
// only the human-readable direction name tells them apart.
type WallError struct {
	Direction direction.Direction
}

func (e *WallError) Error() string {
	return "no exit " + e.Direction.Name()
}

// ExitSet records which headings leave a room, indexed by Direction. Up and
// Down have slots but stay false: nothing can be above or below a room yet.
type ExitSet [10]bool

// Has reports whether d is open.
func (s ExitSet) Has(d direction.Direction) bool {
	return d.Valid() && s[d]
}

// Open returns the open headings in canonical order.
func (s ExitSet) Open() []direction.Direction {
	out := make([]direction.Direction, 0, 8)
	for _, d := range direction.Horizontals() {
		if s[d] {
			out = append(out, d)
		}
	}
	return out
}

// Topology is the world lookup table: maps by id and name, rooms by id,
// position and map. Built once at startup from the database rows.
type Topology struct {
	mapsByID   map[int32]*Map
	mapsByName map[string]*Map
	roomsByID  map[int32]*Room
	roomsByPos map[RoomKey]*Room
	roomsByMap map[int32][]*Room
	ordered    []*Room
	portals    int
}

// NewTopology indexes the given maps and rooms. It rejects duplicate map
// names, duplicate room positions, rooms on unknown maps and portals along
// vertical headings.
func NewTopology(maps []Map, rooms []Room) (*Topology, error) {
	t := &Topology{
		mapsByID:   make(map[int32]*Map, len(maps)),
		mapsByName: make(map[string]*Map, len(maps)),
		roomsByID:  make(map[int32]*Room, len(rooms)),
		roomsByPos: make(map[RoomKey]*Room, len(rooms)),
		roomsByMap: make(map[int32][]*Room, len(maps)),
		ordered:    make([]*Room, 0, len(rooms)),
	}

	for i := range maps {
		m := &maps[i]
		if _, dup := t.mapsByID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate map id %d", m.ID)
		}
		if _, dup := t.mapsByName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate map name %q", m.Name)
		}
		t.mapsByID[m.ID] = m
		t.mapsByName[m.Name] = m
	}

	for i := range rooms {
		r := &rooms[i]
		if _, ok := t.mapsByID[r.MapID]; !ok {
			return nil, fmt.Errorf("room %d references unknown map %d", r.ID, r.MapID)
		}
		if _, dup := t.roomsByID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate room id %d", r.ID)
		}
		key := r.Key()
		if other, dup := t.roomsByPos[key]; dup {
			return nil, fmt.Errorf("rooms %d and %d share position map=%d (%d,%d)",
				other.ID, r.ID, key.MapID, key.X, key.Y)
		}
		if p := r.Portal; p != nil {
			if !p.Direction.Valid() {
				return nil, fmt.Errorf("room %d portal has invalid direction", r.ID)
			}
			if p.Direction.Vertical() {
				return nil, fmt.Errorf("room %d portal heads %s: vertical portals are not supported",
					r.ID, p.Direction.Name())
			}
			t.portals++
		}
		t.roomsByID[r.ID] = r
		t.roomsByPos[key] = r
		t.roomsByMap[r.MapID] = append(t.roomsByMap[r.MapID], r)
		t.ordered = append(t.ordered, r)
	}

	return t, nil
}

// MapByID returns the map, or nil.
func (t *Topology) MapByID(id int32) *Map {
	return t.mapsByID[id]
}

// MapByName returns the map, or nil.
func (t *Topology) MapByName(name string) *Map {
	return t.mapsByName[name]
}

// RoomByID returns the room, or nil.
func (t *Topology) RoomByID(id int32) *Room {
	return t.roomsByID[id]
}

// RoomAt returns the room at (x, y) on a map, or nil.
func (t *Topology) RoomAt(mapID, x, y int32) *Room {
	return t.roomsByPos[RoomKey{MapID: mapID, X: x, Y: y}]
}

// RoomsByMap returns the rooms of one map in load order.
func (t *Topology) RoomsByMap(mapID int32) []*Room {
	return t.roomsByMap[mapID]
}

// Rooms returns every room in load order. Callers must not mutate.
func (t *Topology) Rooms() []*Room {
	return t.ordered
}

// MapCount returns the number of maps.
func (t *Topology) MapCount() int { return len(t.mapsByID) }

// RoomCount returns the number of rooms.
func (t *Topology) RoomCount() int { return len(t.roomsByID) }

// PortalCount returns the number of outbound portals.
func (t *Topology) PortalCount() int { return t.portals }

// Exits reports which headings leave room: a heading is open iff the room's
// portal points that way or a room exists one step along it on the same map.
// The check is purely structural; a dangling portal still shows as open and
// then fails at Resolve with the matching wall error.
func (t *Topology) Exits(room *Room) ExitSet {
	var set ExitSet
	for _, d := range direction.Horizontals() {
		if p := room.Portal; p != nil && p.Direction == d {
			set[d] = true
			continue
		}
		dx, dy := d.Delta()
		if t.RoomAt(room.MapID, room.X+dx, room.Y+dy) != nil {
			set[d] = true
		}
	}
	return set
}

// Resolve computes the destination of one step from room along dir.
//
// A portal whose direction matches dir wins over in-map adjacency and may
// cross maps. Otherwise the destination is the same-map unit-step neighbor.
// Either way a missing destination is a *WallError; vertical headings are
// recognized but always walls.
func (t *Topology) Resolve(room *Room, dir direction.Direction) (*Room, error) {
	if !dir.Valid() || dir.Vertical() {
		return nil, &WallError{Direction: dir}
	}
	if p := room.Portal; p != nil && p.Direction == dir {
		if dest := t.RoomAt(p.MapID, p.X, p.Y); dest != nil {
			return dest, nil
		}
		return nil, &WallError{Direction: dir}
	}
	dx, dy := dir.Delta()
	if dest := t.RoomAt(room.MapID, room.X+dx, room.Y+dy); dest != nil {
		return dest, nil
	}
	return nil, &WallError{Direction: dir}
}
