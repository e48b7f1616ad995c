package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gridmud/server/internal/core/event"
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
	"github.com/gridmud/server/internal/nav"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
)

// HandleMove walks one step. A manual move while a route is running stops
// the route first; the step itself then proceeds normally.
func HandleMove(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.Move
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed move")
		return
	}
	dir, err := direction.Parse(msg.Direction)
	if err != nil {
		send(sess, proto.TypeMoveResult, proto.MoveResult{
			OK: false, Direction: msg.Direction, Error: err.Error(),
		})
		return
	}

	// A Running route is forcibly stopped by a manual step; a Paused one
	// stays put and only goes stale if the player resumes it elsewhere.
	if rt := deps.Routes.Get(sess.Identity); rt != nil && rt.Status == nav.StatusRunning {
		rt.Stop()
		send(sess, proto.TypeRouteFailed, proto.RouteFailed{
			RouteID: rt.ID, Reason: "interrupted",
		})
	}

	room, err := ApplyMove(sess, deps, dir)
	if err != nil {
		// Walls are the only expected failure; the requester alone hears
		// about them.
		send(sess, proto.TypeMoveResult, proto.MoveResult{
			OK: false, Direction: dir.Name(), Error: err.Error(),
		})
		return
	}

	SendRoomState(sess, deps, room)
	send(sess, proto.TypeMoveResult, proto.MoveResult{OK: true, Direction: dir.Name()})
}

// ApplyMove resolves and executes one step for the session's character:
// presence move plus leave/join broadcasts. The caller decides what to tell
// the mover; peers in both rooms are notified here. Returns the destination.
func ApplyMove(sess *net.Session, deps *Deps, dir direction.Direction) (*data.Room, error) {
	entry := deps.World.Get(sess.Identity)
	if entry == nil {
		return nil, fmt.Errorf("identity %q is not in the world", sess.Identity)
	}
	cur := deps.Topology.RoomByID(entry.RoomID)
	if cur == nil {
		return nil, fmt.Errorf("room %d is gone", entry.RoomID)
	}

	next, err := deps.Topology.Resolve(cur, dir)
	if err != nil {
		return nil, err
	}

	from, ok := deps.World.MoveTo(sess.Identity, next.ID)
	if !ok {
		return nil, errors.New("presence entry vanished mid-move")
	}

	deps.World.BroadcastRoom(from,
		proto.Encode(proto.TypePeerLeft, proto.PeerLeft{Identity: sess.Identity}),
		sess.Identity,
	)
	deps.World.BroadcastRoom(next.ID,
		proto.Encode(proto.TypePeerJoined, proto.PeerJoined{Identity: sess.Identity}),
		sess.Identity,
	)
	event.Emit(deps.Bus, event.CharacterMoved{
		Identity:  sess.Identity,
		FromRoom:  from,
		ToRoom:    next.ID,
		Direction: dir,
	})
	return next, nil
}
