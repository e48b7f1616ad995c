package event

import "testing"

func TestEmitDeliversNextSwap(t *testing.T) {
	b := NewBus()
	var got []PresenceJoined
	Subscribe(b, func(ev PresenceJoined) { got = append(got, ev) })

	Emit(b, PresenceJoined{Identity: "bors", RoomID: 3})

	// Same tick: nothing delivered yet.
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("event delivered before swap: %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0].Identity != "bors" || got[0].RoomID != 3 {
		t.Fatalf("delivered = %v, want one PresenceJoined for bors in room 3", got)
	}

	// The batch is consumed by the next rotation, not redelivered.
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Fatalf("event redelivered: %v", got)
	}
}

func TestEmitOrderPreserved(t *testing.T) {
	b := NewBus()
	var rooms []int32
	Subscribe(b, func(ev CharacterMoved) { rooms = append(rooms, ev.ToRoom) })

	for i := int32(1); i <= 4; i++ {
		Emit(b, CharacterMoved{Identity: "finn", ToRoom: i})
	}
	b.SwapBuffers()
	b.DispatchAll()

	for i, r := range rooms {
		if r != int32(i+1) {
			t.Fatalf("delivery order = %v", rooms)
		}
	}
	if len(rooms) != 4 {
		t.Fatalf("delivered %d events, want 4", len(rooms))
	}
}

func TestTypesRouteToTheirHandlers(t *testing.T) {
	b := NewBus()
	joins, moves := 0, 0
	Subscribe(b, func(PresenceJoined) { joins++ })
	Subscribe(b, func(CharacterMoved) { moves++ })

	Emit(b, PresenceJoined{Identity: "a"})
	Emit(b, CharacterMoved{Identity: "a"})
	Emit(b, CharacterMoved{Identity: "b"})
	b.SwapBuffers()
	b.DispatchAll()

	if joins != 1 || moves != 2 {
		t.Fatalf("joins=%d moves=%d, want 1 and 2", joins, moves)
	}
}

func TestUnsubscribedTypeIsDropped(t *testing.T) {
	b := NewBus()
	Emit(b, ItemsProduced{Item: "iron ore", Qty: 2})
	if b.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", b.Pending())
	}
	b.SwapBuffers()
	b.DispatchAll() // no handler, no panic
	b.SwapBuffers()
	if b.Pending() != 0 {
		t.Fatalf("Pending after rotation = %d, want 0", b.Pending())
	}
}
