package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gridmud/server/internal/core/event"
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// HandleSelectIdentity binds a connection to a character. Authentication is
// upstream; whoever holds the socket may claim any identity that is not
// already online. First connection wins, the newcomer is refused.
func HandleSelectIdentity(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.SelectIdentity
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed select_identity")
		return
	}

	identity := world.NormalizeIdentity(msg.Identity)
	if !world.ValidIdentity(identity) {
		sendError(sess, proto.CodeInvalidIdentity, "identity must be 1-32 printable characters")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	row, err := deps.CharRepo.Ensure(ctx, identity)
	cancel()
	if err != nil {
		deps.Log.Error("character upsert failed",
			zap.String("identity", identity), zap.Error(err))
		sendError(sess, proto.CodeInternal, "storage error")
		return
	}

	room := startingRoom(deps, row.RoomID)
	if room == nil {
		deps.Log.Error("no starting room available", zap.String("identity", identity))
		sendError(sess, proto.CodeInternal, "world has no rooms")
		return
	}

	if _, err := deps.World.Register(identity, sess, room.ID); err != nil {
		var dup *world.DuplicateError
		if errors.As(err, &dup) {
			sendError(sess, proto.CodeDuplicateIdentity, dup.Error())
			return
		}
		deps.Log.Error("register failed", zap.String("identity", identity), zap.Error(err))
		sendError(sess, proto.CodeInternal, "registry error")
		return
	}

	sess.Identity = identity
	sess.SetState(proto.StateInWorld)

	if row.RoomID == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := deps.CharRepo.SaveRoom(ctx, identity, room.ID); err != nil {
			deps.Log.Warn("initial room save failed",
				zap.String("identity", identity), zap.Error(err))
		}
		cancel()
	}

	deps.Log.Info("identity joined",
		zap.String("identity", identity),
		zap.Uint64("session", sess.ID),
		zap.Int32("room", room.ID),
	)

	send(sess, proto.TypeWelcome, proto.Welcome{
		Server:   deps.Config.Server.Name,
		Identity: identity,
		MOTD:     deps.Config.Server.Name + " is online.",
	})
	SendRoomState(sess, deps, room)

	deps.World.BroadcastRoom(room.ID,
		proto.Encode(proto.TypePeerJoined, proto.PeerJoined{Identity: identity}),
		identity,
	)
	event.Emit(deps.Bus, event.PresenceJoined{Identity: identity, RoomID: room.ID})
}

// startingRoom picks the saved room when it still exists, else the
// configured spawn, else the first room in the world.
func startingRoom(deps *Deps, saved *int32) *data.Room {
	if saved != nil {
		if room := deps.Topology.RoomByID(*saved); room != nil {
			return room
		}
	}
	if m := deps.Topology.MapByName(deps.Config.World.SpawnMap); m != nil {
		if room := deps.Topology.RoomAt(m.ID, deps.Config.World.SpawnX, deps.Config.World.SpawnY); room != nil {
			return room
		}
	}
	rooms := deps.Topology.Rooms()
	if len(rooms) == 0 {
		return nil
	}
	return rooms[0]
}
