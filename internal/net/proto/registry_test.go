package proto

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestDispatchRoutesByType(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	var gotDir string
	reg.Register(TypeMove, []SessionState{StateInWorld}, func(_ any, data json.RawMessage) {
		var m Move
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("payload: %v", err)
		}
		gotDir = m.Direction
	})

	frame := Encode(TypeMove, Move{Direction: "ne"})
	if err := reg.Dispatch(nil, StateInWorld, frame); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotDir != "ne" {
		t.Fatalf("handler saw direction %q, want ne", gotDir)
	}
}

func TestDispatchStateGate(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	called := false
	reg.Register(TypeMove, []SessionState{StateInWorld}, func(any, json.RawMessage) {
		called = true
	})

	err := reg.Dispatch(nil, StateHandshake, Encode(TypeMove, Move{Direction: "n"}))
	if err == nil {
		t.Fatal("dispatch in disallowed state did not error")
	}
	if called {
		t.Fatal("handler ran despite state gate")
	}
}

func TestDispatchUnknownTypeIgnored(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	if err := reg.Dispatch(nil, StateInWorld, Encode("no_such_thing", nil)); err != nil {
		t.Fatalf("unknown type should be ignored, got %v", err)
	}
}

func TestDispatchBadFrames(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	tests := map[string][]byte{
		"not json":   []byte("hello"),
		"empty type": []byte(`{"data":{}}`),
	}
	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			if err := reg.Dispatch(nil, StateInWorld, frame); err == nil {
				t.Error("malformed frame did not error")
			}
		})
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.Register(TypeSay, []SessionState{StateInWorld}, func(any, json.RawMessage) {
		panic("boom")
	})

	err := reg.Dispatch(nil, StateInWorld, Encode(TypeSay, Say{Message: "hi"}))
	if err == nil {
		t.Fatal("panicking handler did not surface an error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	frame := Encode(TypeRoomMessage, RoomMessage{Kind: "say", From: "finn", Text: "hello"})
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if env.Type != TypeRoomMessage {
		t.Fatalf("type = %q", env.Type)
	}
	var msg RoomMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("data: %v", err)
	}
	if msg.From != "finn" || msg.Text != "hello" {
		t.Fatalf("payload = %+v", msg)
	}
}
