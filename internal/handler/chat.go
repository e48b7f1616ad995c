package handler

import (
	"encoding/json"
	"strings"

	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
)

// maxSayRunes caps one room message; longer input is cut, not rejected.
const maxSayRunes = 512

// HandleSay speaks into the room. Everyone else gets the broadcast copy,
// the speaker gets a buffered echo so their own line is ordered with the
// rest of their output.
func HandleSay(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.Say
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed say")
		return
	}

	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > maxSayRunes {
		text = string(runes[:maxSayRunes])
	}

	entry := deps.World.Get(sess.Identity)
	if entry == nil {
		return
	}

	out := proto.RoomMessage{From: sess.Identity, Kind: "say", Text: text}
	deps.World.BroadcastRoom(entry.RoomID, proto.Encode(proto.TypeRoomMessage, out), sess.Identity)
	send(sess, proto.TypeRoomMessage, out)
}
