package handler

import (
	"encoding/json"
	"fmt"

	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/world"
)

// HandleLook re-sends the room snapshot, or describes a named occupant or
// actor standing in the same room.
func HandleLook(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.Look
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed look")
		return
	}

	entry := deps.World.Get(sess.Identity)
	if entry == nil {
		sendError(sess, proto.CodeInternal, "not in the world")
		return
	}
	room := deps.Topology.RoomByID(entry.RoomID)
	if room == nil {
		sendError(sess, proto.CodeInternal, "room is gone")
		return
	}

	if msg.Target == "" {
		SendRoomState(sess, deps, room)
		return
	}

	target := world.NormalizeIdentity(msg.Target)

	for _, e := range deps.World.OccupantsOf(room.ID) {
		if e.Identity == target {
			send(sess, proto.TypeRoomMessage, proto.RoomMessage{
				Kind: "notice",
				Text: fmt.Sprintf("%s is here.", e.Identity),
			})
			return
		}
	}

	for _, ai := range deps.Actors.InRoom(room.ID) {
		if world.NormalizeIdentity(ai.Name) == target {
			desc := ai.Description
			if desc == "" {
				desc = fmt.Sprintf("%s is hard at work.", ai.Name)
			}
			send(sess, proto.TypeRoomMessage, proto.RoomMessage{
				Kind: "notice",
				Text: desc,
			})
			return
		}
	}

	sendError(sess, proto.CodeUnknownTarget, fmt.Sprintf("nothing called %q here", msg.Target))
}
