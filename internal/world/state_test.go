package world

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs [][]byte
	dead bool
}

func (c *fakeConn) TrySend(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return false
	}
	c.msgs = append(c.msgs, p)
	return true
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestRegisterDuplicate(t *testing.T) {
	s := NewState(zap.NewNop())

	first, err := s.Register("ada", &fakeConn{}, 1)
	if err != nil {
		t.Fatalf("first Register: %v", err)
	}

	second := &fakeConn{}
	_, err = s.Register("ada", second, 2)
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("second Register err = %v, want *DuplicateError", err)
	}
	if dup.Identity != "ada" {
		t.Errorf("DuplicateError.Identity = %q", dup.Identity)
	}

	// The existing session must win: entry unchanged, still in room 1.
	got := s.Get("ada")
	if got != first || got.RoomID != 1 {
		t.Errorf("registry entry replaced by the rejected connection")
	}
	if s.OnlineCount() != 1 {
		t.Errorf("OnlineCount = %d, want 1", s.OnlineCount())
	}
}

func TestRegisterConcurrentSameIdentity(t *testing.T) {
	s := NewState(zap.NewNop())

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Register("grace", &fakeConn{}, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	okCount, dupCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			okCount++
		default:
			var dup *DuplicateError
			if !errors.As(err, &dup) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			dupCount++
		}
	}
	if okCount != 1 || dupCount != attempts-1 {
		t.Errorf("got %d successes / %d duplicates, want 1 / %d", okCount, dupCount, attempts-1)
	}
	if s.OnlineCount() != 1 {
		t.Errorf("OnlineCount = %d, want 1", s.OnlineCount())
	}
}

func TestUnregister(t *testing.T) {
	s := NewState(zap.NewNop())
	s.Register("ada", &fakeConn{}, 7)

	e := s.Unregister("ada")
	if e == nil || e.Identity != "ada" {
		t.Fatalf("Unregister returned %+v", e)
	}
	if s.Get("ada") != nil {
		t.Error("entry still present after Unregister")
	}
	if got := s.OccupantsOf(7); len(got) != 0 {
		t.Errorf("room 7 still lists %d occupants", len(got))
	}
	// Idempotent.
	if s.Unregister("ada") != nil {
		t.Error("second Unregister returned an entry")
	}
}

func TestMoveTo(t *testing.T) {
	s := NewState(zap.NewNop())
	s.Register("ada", &fakeConn{}, 1)

	from, ok := s.MoveTo("ada", 2)
	if !ok || from != 1 {
		t.Fatalf("MoveTo = (%d, %v), want (1, true)", from, ok)
	}
	if len(s.OccupantsOf(1)) != 0 {
		t.Error("old room still lists the mover")
	}
	occ := s.OccupantsOf(2)
	if len(occ) != 1 || occ[0].Identity != "ada" {
		t.Errorf("new room occupants = %v", occ)
	}
	if s.Get("ada").RoomID != 2 {
		t.Error("entry RoomID not updated")
	}

	// Same-room move is a no-op, not an error.
	if from, ok := s.MoveTo("ada", 2); !ok || from != 2 {
		t.Errorf("same-room MoveTo = (%d, %v)", from, ok)
	}
	// Unknown identity.
	if _, ok := s.MoveTo("ghost", 3); ok {
		t.Error("MoveTo for unknown identity reported ok")
	}
}

func TestOccupantsOfExcluding(t *testing.T) {
	s := NewState(zap.NewNop())
	for _, id := range []string{"cleo", "ada", "bors"} {
		s.Register(id, &fakeConn{}, 5)
	}
	s.Register("dara", &fakeConn{}, 6)

	tests := map[string]struct {
		excluding []string
		want      []string
	}{
		"nobody excluded": {nil, []string{"ada", "bors", "cleo"}},
		"one excluded":    {[]string{"bors"}, []string{"ada", "cleo"}},
		"all excluded":    {[]string{"ada", "bors", "cleo"}, nil},
		"foreign exclude": {[]string{"dara"}, []string{"ada", "bors", "cleo"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := s.OccupantsOf(5, tc.excluding...)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d occupants, want %d", len(got), len(tc.want))
			}
			for i, e := range got {
				if e.Identity != tc.want[i] {
					t.Errorf("occupant[%d] = %q, want %q (order must be stable)", i, e.Identity, tc.want[i])
				}
			}
		})
	}
}

func TestBroadcastRoom(t *testing.T) {
	s := NewState(zap.NewNop())
	ada, bors := &fakeConn{}, &fakeConn{}
	stale := &fakeConn{dead: true}
	elsewhere := &fakeConn{}

	s.Register("ada", ada, 9)
	s.Register("bors", bors, 9)
	s.Register("stale", stale, 9)
	s.Register("far", elsewhere, 10)

	sent := s.BroadcastRoom(9, []byte("hello"), "bors")
	if sent != 1 {
		t.Errorf("BroadcastRoom queued to %d conns, want 1", sent)
	}
	if ada.count() != 1 {
		t.Error("included occupant did not receive the payload")
	}
	if bors.count() != 0 {
		t.Error("excluded occupant received the payload")
	}
	if stale.count() != 0 {
		t.Error("stale connection accumulated payloads")
	}
	if elsewhere.count() != 0 {
		t.Error("occupant of another room received the payload")
	}
}

func TestSendTo(t *testing.T) {
	s := NewState(zap.NewNop())
	conn := &fakeConn{}
	s.Register("ada", conn, 1)

	if !s.SendTo("ada", []byte("x")) || conn.count() != 1 {
		t.Error("SendTo failed for a live identity")
	}
	if s.SendTo("ghost", []byte("x")) {
		t.Error("SendTo succeeded for an unknown identity")
	}
}

func TestGroundStacks(t *testing.T) {
	s := NewState(zap.NewNop())

	s.AddGround(3, "wheat", 2, 10)
	s.AddGround(3, "wheat", 3, 4) // merges, keeps the longer TTL
	s.AddGround(3, "stone", 1, 2)
	s.AddGround(3, "", 5, 0)     // ignored
	s.AddGround(3, "iron", 0, 0) // ignored

	stacks := s.GroundAt(3)
	if len(stacks) != 2 {
		t.Fatalf("GroundAt = %v, want wheat+stone", stacks)
	}
	if stacks[0].Item != "wheat" || stacks[0].Qty != 5 || stacks[0].TTL != 10 {
		t.Errorf("merged stack = %+v", stacks[0])
	}

	// Two ticks: the stone (TTL 2) expires on the second.
	if expired := s.TickGround(); expired != nil {
		t.Fatalf("tick 1 expired %v", expired)
	}
	expired := s.TickGround()
	if got := expired[3]; len(got) != 1 || got[0].Item != "stone" {
		t.Fatalf("tick 2 expired %v, want the stone", expired)
	}
	if stacks := s.GroundAt(3); len(stacks) != 1 || stacks[0].Item != "wheat" {
		t.Errorf("post-expiry ground = %v", stacks)
	}

	// Mutating the returned copy must not touch the room.
	snap := s.GroundAt(3)
	snap[0].Qty = 999
	if s.GroundAt(3)[0].Qty == 999 {
		t.Error("GroundAt leaks internal storage")
	}
}

func TestTakeGroundDirty(t *testing.T) {
	s := NewState(zap.NewNop())
	s.AddGround(1, "wheat", 1, 0)
	s.AddGround(2, "stone", 2, 0)

	dirty := s.TakeGroundDirty()
	if len(dirty) != 2 {
		t.Fatalf("dirty rooms = %d, want 2", len(dirty))
	}
	if s.TakeGroundDirty() != nil {
		t.Error("dirty set not cleared")
	}

	s.AddGround(1, "wheat", 1, 0)
	dirty = s.TakeGroundDirty()
	if len(dirty) != 1 || len(dirty[1]) != 1 || dirty[1][0].Qty != 2 {
		t.Errorf("second take = %v", dirty)
	}
}

func TestPermanentStacksSurviveTicks(t *testing.T) {
	s := NewState(zap.NewNop())
	s.AddGround(1, "anvil", 1, 0)
	for i := 0; i < 100; i++ {
		if expired := s.TickGround(); expired != nil {
			t.Fatalf("permanent stack expired at tick %d: %v", i, expired)
		}
	}
	if got := s.GroundAt(1); len(got) != 1 {
		t.Errorf("permanent stack gone: %v", got)
	}
}

func TestEntriesSnapshot(t *testing.T) {
	s := NewState(zap.NewNop())
	for i := 0; i < 5; i++ {
		s.Register(fmt.Sprintf("p%d", i), &fakeConn{}, int32(i))
	}
	entries := s.Entries()
	if len(entries) != 5 {
		t.Fatalf("Entries = %d, want 5", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Identity >= entries[i].Identity {
			t.Fatal("Entries not identity-ordered")
		}
	}
}
