// Package proto defines the JSON wire protocol and the typed dispatch
// registry. Every frame both ways is one envelope: a type tag plus a
// type-specific payload.
package proto

import "encoding/json"

// Envelope frames every message on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client to server message types.
const (
	TypeSelectIdentity = "select_identity"
	TypeMove           = "move"
	TypeLook           = "look"
	TypeSay            = "say"
	TypeRouteCompute   = "route_compute"
	TypeRouteStart     = "route_start"
	TypeRouteStop      = "route_stop"
	TypeRouteContinue  = "route_continue"
	TypeQuit           = "quit"
)

// Server to client message types.
const (
	TypeWelcome       = "welcome"
	TypeError         = "error"
	TypeRoomState     = "room_state"
	TypeMoveResult    = "move_result"
	TypePeerJoined    = "peer_joined"
	TypePeerLeft      = "peer_left"
	TypeRoomMessage   = "room_message"
	TypeRouteComputed = "route_computed"
	TypeRouteStep     = "route_step"
	TypeRouteComplete = "route_complete"
	TypeRouteFailed   = "route_failed"
)

// Error codes carried by Error.Code.
const (
	CodeBadRequest        = "bad_request"
	CodeDuplicateIdentity = "duplicate_identity"
	CodeInvalidIdentity   = "invalid_identity"
	CodeUnknownTarget     = "unknown_target"
	CodeUnreachable       = "unreachable"
	CodeNoRoute           = "no_route"
	CodeRouteStale        = "route_stale"
	CodeInternal          = "internal"
)

type SelectIdentity struct {
	Identity string `json:"identity"`
}

type Move struct {
	Direction string `json:"direction"`
}

type Look struct {
	Target string `json:"target,omitempty"`
}

type Say struct {
	Message string `json:"message"`
}

// Target names a room by map name and grid position.
type Target struct {
	Map string `json:"map"`
	X   int32  `json:"x"`
	Y   int32  `json:"y"`
}

type RouteCompute struct {
	To Target `json:"to"`
}

type RouteStart struct {
	To   Target `json:"to"`
	Mode string `json:"mode,omitempty"` // "path" (default) or "loop"
}

type Welcome struct {
	Server   string `json:"server"`
	Identity string `json:"identity"`
	MOTD     string `json:"motd,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GroundItem is one item stack visible on a room's floor.
type GroundItem struct {
	Item string `json:"item"`
	Qty  int64  `json:"qty"`
}

// RoomActor is an actor as shown in a room snapshot.
type RoomActor struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type RoomState struct {
	Map         string       `json:"map"`
	X           int32        `json:"x"`
	Y           int32        `json:"y"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Exits       []string     `json:"exits"`
	Occupants   []string     `json:"occupants"`
	Actors      []RoomActor  `json:"actors"`
	Items       []GroundItem `json:"items"`
}

type MoveResult struct {
	OK        bool   `json:"ok"`
	Direction string `json:"direction"`
	Error     string `json:"error,omitempty"`
}

type PeerJoined struct {
	Identity string `json:"identity"`
}

type PeerLeft struct {
	Identity string `json:"identity"`
}

// RoomMessage is anything spoken or narrated into a room. Kind is "say" for
// player speech, "notice" for world narration.
type RoomMessage struct {
	From string `json:"from,omitempty"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type RouteComputed struct {
	RouteID string   `json:"route_id"`
	Steps   []string `json:"steps"`
	Length  int      `json:"length"`
}

type RouteStep struct {
	RouteID   string `json:"route_id"`
	Direction string `json:"direction"`
	Step      int    `json:"step"`
	Remaining int    `json:"remaining"`
	Lap       int    `json:"lap"`
}

type RouteComplete struct {
	RouteID string `json:"route_id"`
	Laps    int    `json:"laps"`
}

type RouteFailed struct {
	RouteID string `json:"route_id"`
	Reason  string `json:"reason"`
}

// Encode wraps a payload in an envelope and marshals the whole frame.
// Marshal failures are programming errors; Encode returns nil and the
// caller's send helpers drop nil frames.
func Encode(msgType string, payload any) []byte {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		data = raw
	}
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		return nil
	}
	return frame
}
