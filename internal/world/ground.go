package world

// GroundStack is a pile of one item kind on a room's floor. Stacks merge by
// item name; TTL counts ticks until the pile crumbles (0 = permanent).
type GroundStack struct {
	Item string
	Qty  int64
	TTL  int
}

// AddGround drops qty of item in a room, merging with an existing stack of
// the same item. Merging keeps the longer remaining TTL. No-op for qty <= 0.
func (s *State) AddGround(roomID int32, item string, qty int64, ttl int) {
	if qty <= 0 || item == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stacks := s.ground[roomID]
	for i := range stacks {
		if stacks[i].Item == item {
			stacks[i].Qty += qty
			if ttl == 0 || (stacks[i].TTL != 0 && ttl > stacks[i].TTL) {
				stacks[i].TTL = ttl
			}
			s.groundDirty[roomID] = struct{}{}
			return
		}
	}
	s.ground[roomID] = append(stacks, GroundStack{Item: item, Qty: qty, TTL: ttl})
	s.groundDirty[roomID] = struct{}{}
}

// SeedGround installs stacks restored from storage without marking the room
// dirty. The rows just came from the inventories table; writing them back on
// the next sweep would be a wasted round trip.
func (s *State) SeedGround(roomID int32, stacks []GroundStack) {
	if len(stacks) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ground[roomID] = append(s.ground[roomID], stacks...)
}

// GroundAt returns a copy of the room's ground stacks.
func (s *State) GroundAt(roomID int32) []GroundStack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stacks := s.ground[roomID]
	if len(stacks) == 0 {
		return nil
	}
	out := make([]GroundStack, len(stacks))
	copy(out, stacks)
	return out
}

// TickGround advances every TTL by one tick, removes expired stacks, and
// returns what expired per room so callers can notify the occupants.
func (s *State) TickGround() map[int32][]GroundStack {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired map[int32][]GroundStack
	for roomID, stacks := range s.ground {
		kept := stacks[:0]
		for _, st := range stacks {
			if st.TTL == 0 {
				kept = append(kept, st)
				continue
			}
			st.TTL--
			if st.TTL <= 0 {
				if expired == nil {
					expired = make(map[int32][]GroundStack)
				}
				expired[roomID] = append(expired[roomID], st)
				s.groundDirty[roomID] = struct{}{}
				continue
			}
			kept = append(kept, st)
		}
		if len(kept) == 0 {
			delete(s.ground, roomID)
		} else {
			s.ground[roomID] = kept
		}
	}
	return expired
}

// TakeGroundDirty snapshots the current stacks of every room touched since
// the last call and resets the dirty set. The persistence sweep writes the
// snapshots through to the inventories table.
func (s *State) TakeGroundDirty() map[int32][]GroundStack {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.groundDirty) == 0 {
		return nil
	}
	out := make(map[int32][]GroundStack, len(s.groundDirty))
	for roomID := range s.groundDirty {
		stacks := s.ground[roomID]
		snap := make([]GroundStack, len(stacks))
		copy(snap, stacks)
		out[roomID] = snap
	}
	s.groundDirty = make(map[int32]struct{})
	return out
}
