package handler

import (
	"encoding/json"

	"github.com/gridmud/server/internal/net"
	"go.uber.org/zap"
)

// HandleQuit closes the session. Unregistering the presence entry,
// notifying the room, and persisting the character all happen in the
// input system's disconnect path, so a quit and a dropped socket take
// the same exit road.
func HandleQuit(sess *net.Session, _ json.RawMessage, deps *Deps) {
	deps.Log.Info("client quit",
		zap.Uint64("session", sess.ID),
		zap.String("identity", sess.Identity))
	sess.Close()
}
