package world

import "go.uber.org/zap"

// BroadcastRoom fans payload out to every occupant of a room except the
// excluded identities. Delivery is best-effort and fire-and-forget: a closed
// connection or a full outbound buffer silently drops that recipient. The
// occupant set is snapshotted under the read lock; sends happen after it is
// released so a slow recipient can never stall the caller.
//
// Returns the number of connections the payload was queued to.
func (s *State) BroadcastRoom(roomID int32, payload []byte, excluding ...string) int {
	s.mu.RLock()
	targets := s.occupantsLocked(roomID, excluding)
	s.mu.RUnlock()

	sent := 0
	for _, e := range targets {
		if e.Conn == nil {
			continue
		}
		if e.Conn.TrySend(payload) {
			sent++
		} else if s.log != nil {
			s.log.Debug("broadcast recipient dropped",
				zap.String("identity", e.Identity),
				zap.Int32("room", roomID),
			)
		}
	}
	return sent
}

// SendTo delivers payload to a single identity, best-effort. Reports whether
// the payload was queued.
func (s *State) SendTo(identity string, payload []byte) bool {
	e := s.Get(identity)
	if e == nil || e.Conn == nil {
		return false
	}
	return e.Conn.TrySend(payload)
}
