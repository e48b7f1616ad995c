// Package world holds the mutable runtime state: who is online, which room
// they stand in, and what lies on each room's floor. The game loop is the
// only writer, but every operation is still atomic under the state lock:
// broadcast snapshots and tests read from other goroutines.
package world

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is the write half of a player connection as the world sees it.
// Implementations must be safe for concurrent use and must never block.
type Conn interface {
	// TrySend queues payload for delivery and reports false when the
	// connection is gone or its buffer is full. The payload is then dropped.
	TrySend(payload []byte) bool
}

// Entry is one online identity: connection handle plus current room.
// Ephemeral, never persisted.
type Entry struct {
	Identity string
	Conn     Conn
	RoomID   int32
	JoinedAt time.Time
}

// DuplicateError reports a Register for an identity that already has a live
// session. The existing session wins; the new connection is the one refused.
type DuplicateError struct {
	Identity string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("identity %q is already connected", e.Identity)
}

// State is the presence registry and ground inventory index.
type State struct {
	mu          sync.RWMutex
	byIdentity  map[string]*Entry
	byRoom      map[int32]map[string]*Entry
	charDirty   map[string]struct{}
	ground      map[int32][]GroundStack
	groundDirty map[int32]struct{}
	log         *zap.Logger
}

// NewState builds an empty world state.
func NewState(log *zap.Logger) *State {
	return &State{
		byIdentity:  make(map[string]*Entry, 256),
		byRoom:      make(map[int32]map[string]*Entry, 256),
		charDirty:   make(map[string]struct{}),
		ground:      make(map[int32][]GroundStack),
		groundDirty: make(map[int32]struct{}),
		log:         log,
	}
}

// Register creates the presence entry for identity. If the identity is
// already online the call fails with *DuplicateError and the existing entry
// is untouched: first connection wins, the newcomer is rejected.
func (s *State) Register(identity string, conn Conn, roomID int32) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byIdentity[identity]; exists {
		return nil, &DuplicateError{Identity: identity}
	}
	e := &Entry{
		Identity: identity,
		Conn:     conn,
		RoomID:   roomID,
		JoinedAt: time.Now(),
	}
	s.byIdentity[identity] = e
	s.roomIndex(roomID)[identity] = e
	return e, nil
}

// Unregister removes identity from the registry and returns its entry, or
// nil if it was not online. Idempotent.
func (s *State) Unregister(identity string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byIdentity[identity]
	if !ok {
		return nil
	}
	delete(s.byIdentity, identity)
	s.dropFromRoom(e.RoomID, identity)
	return e
}

// Get returns the entry for identity, or nil.
func (s *State) Get(identity string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byIdentity[identity]
}

// MoveTo re-homes identity to roomID, updating both room indexes in one
// critical section. Returns the room left and whether the identity was
// online at all.
func (s *State) MoveTo(identity string, roomID int32) (from int32, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.byIdentity[identity]
	if !exists {
		return 0, false
	}
	from = e.RoomID
	if from == roomID {
		return from, true
	}
	s.dropFromRoom(from, identity)
	e.RoomID = roomID
	s.roomIndex(roomID)[identity] = e
	s.charDirty[identity] = struct{}{}
	return from, true
}

// TakeCharDirty returns identity→room for every character that moved since
// the last call and clears the set. Identities no longer online are dropped;
// the disconnect path saves them directly.
func (s *State) TakeCharDirty() map[string]int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.charDirty) == 0 {
		return nil
	}
	out := make(map[string]int32, len(s.charDirty))
	for identity := range s.charDirty {
		if e, ok := s.byIdentity[identity]; ok {
			out[identity] = e.RoomID
		}
		delete(s.charDirty, identity)
	}
	return out
}

// OccupantsOf lists the entries in a room, minus any excluded identities,
// in stable identity order.
func (s *State) OccupantsOf(roomID int32, excluding ...string) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.occupantsLocked(roomID, excluding)
}

func (s *State) occupantsLocked(roomID int32, excluding []string) []*Entry {
	room := s.byRoom[roomID]
	if len(room) == 0 {
		return nil
	}
	out := make([]*Entry, 0, len(room))
	for id, e := range room {
		if contains(excluding, id) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// OnlineCount returns the number of registered identities.
func (s *State) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byIdentity)
}

// Entries returns a snapshot of every presence entry, identity-ordered.
// Used by the persistence sweep and the shutdown save.
func (s *State) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.byIdentity))
	for _, e := range s.byIdentity {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

func (s *State) roomIndex(roomID int32) map[string]*Entry {
	room := s.byRoom[roomID]
	if room == nil {
		room = make(map[string]*Entry, 4)
		s.byRoom[roomID] = room
	}
	return room
}

func (s *State) dropFromRoom(roomID int32, identity string) {
	room := s.byRoom[roomID]
	if room == nil {
		return
	}
	delete(room, identity)
	if len(room) == 0 {
		delete(s.byRoom, roomID)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
