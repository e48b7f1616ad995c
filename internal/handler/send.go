package handler

import (
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
)

func send(sess *net.Session, msgType string, payload any) {
	sess.Send(proto.Encode(msgType, payload))
}

func sendError(sess *net.Session, code, message string) {
	send(sess, proto.TypeError, proto.Error{Code: code, Message: message})
}

// buildRoomState assembles the full snapshot of a room as one identity sees
// it: exits, everyone else standing there, the actors, and the ground.
func buildRoomState(deps *Deps, room *data.Room, viewer string) proto.RoomState {
	m := deps.Topology.MapByID(room.MapID)
	mapName := ""
	if m != nil {
		mapName = m.Name
	}

	exits := deps.Topology.Exits(room)
	exitNames := make([]string, 0, 4)
	for _, d := range exits.Open() {
		exitNames = append(exitNames, d.Name())
	}

	occupants := []string{}
	for _, e := range deps.World.OccupantsOf(room.ID, viewer) {
		occupants = append(occupants, e.Identity)
	}

	actors := []proto.RoomActor{}
	for _, ai := range deps.Actors.InRoom(room.ID) {
		actors = append(actors, proto.RoomActor{
			Name:        ai.Name,
			Description: ai.Description,
		})
	}

	items := []proto.GroundItem{}
	for _, st := range deps.World.GroundAt(room.ID) {
		items = append(items, proto.GroundItem{Item: st.Item, Qty: st.Qty})
	}

	return proto.RoomState{
		Map:         mapName,
		X:           room.X,
		Y:           room.Y,
		Title:       room.Title,
		Description: room.Description,
		Exits:       exitNames,
		Occupants:   occupants,
		Actors:      actors,
		Items:       items,
	}
}

// SendRoomState delivers the room snapshot to one session. Exported for the
// route runner, which refreshes the walker's view after each guided step.
func SendRoomState(sess *net.Session, deps *Deps, room *data.Room) {
	send(sess, proto.TypeRoomState, buildRoomState(deps, room, sess.Identity))
}
