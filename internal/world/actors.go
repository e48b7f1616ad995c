package world

import (
	"sort"
	"time"
)

// ActorInfo is one live actor instance with its archetype folded in. The
// cycle scheduler owns all mutation; everything else only reads, and only
// from the game loop goroutine, so there is no lock.
type ActorInfo struct {
	ID          int64
	ArchetypeID int32
	Name        string
	Description string
	Behavior    string
	Config      map[string]any
	RoomID      int32
	Slot        int16

	// State is the behavior's persistent bag. Keys a behavior does not
	// recognize pass through writes untouched.
	State        map[string]any
	LastCycleRun time.Time
}

// Actors indexes live actor instances by id and by room.
type Actors struct {
	byID   map[int64]*ActorInfo
	byRoom map[int32][]*ActorInfo
}

func NewActors() *Actors {
	return &Actors{
		byID:   make(map[int64]*ActorInfo, 64),
		byRoom: make(map[int32][]*ActorInfo, 64),
	}
}

func (a *Actors) Add(ai *ActorInfo) {
	a.byID[ai.ID] = ai
	a.byRoom[ai.RoomID] = append(a.byRoom[ai.RoomID], ai)
	a.sortRoom(ai.RoomID)
}

func (a *Actors) Get(id int64) *ActorInfo {
	return a.byID[id]
}

// InRoom returns the actors in a room, ordered by slot then id.
func (a *Actors) InRoom(roomID int32) []*ActorInfo {
	return a.byRoom[roomID]
}

// Move reindexes an actor into a new room.
func (a *Actors) Move(id int64, toRoom int32) {
	ai := a.byID[id]
	if ai == nil || ai.RoomID == toRoom {
		return
	}
	from := ai.RoomID
	list := a.byRoom[from]
	for i, other := range list {
		if other.ID == id {
			a.byRoom[from] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(a.byRoom[from]) == 0 {
		delete(a.byRoom, from)
	}
	ai.RoomID = toRoom
	a.byRoom[toRoom] = append(a.byRoom[toRoom], ai)
	a.sortRoom(toRoom)
}

// All returns every actor ordered by id.
func (a *Actors) All() []*ActorInfo {
	out := make([]*ActorInfo, 0, len(a.byID))
	for _, ai := range a.byID {
		out = append(out, ai)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Actors) Len() int {
	return len(a.byID)
}

func (a *Actors) sortRoom(roomID int32) {
	list := a.byRoom[roomID]
	sort.Slice(list, func(i, j int) bool {
		if list[i].Slot != list[j].Slot {
			return list[i].Slot < list[j].Slot
		}
		return list[i].ID < list[j].ID
	})
}
