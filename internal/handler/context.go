// Package handler implements the message handlers behind the dispatch
// registry. Handlers run on the game loop goroutine; they read and mutate
// world state directly and buffer replies on the session.
package handler

import (
	"encoding/json"

	"github.com/gridmud/server/internal/config"
	"github.com/gridmud/server/internal/core/event"
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/nav"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/persist"
	"github.com/gridmud/server/internal/scripting"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all message handlers.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Topology  *data.Topology
	World     *world.State
	Actors    *world.Actors
	Routes    *nav.Table
	Bus       *event.Bus
	Scripting *scripting.Engine

	CharRepo      *persist.CharacterRepo
	ActorRepo     *persist.ActorRepo
	InventoryRepo *persist.InventoryRepo
}

// RegisterAll registers all message handlers into the registry.
func RegisterAll(reg *proto.Registry, deps *Deps) {
	// Handshake phase
	reg.Register(proto.TypeSelectIdentity,
		[]proto.SessionState{proto.StateHandshake},
		func(sess any, data json.RawMessage) {
			HandleSelectIdentity(sess.(*net.Session), data, deps)
		},
	)

	// In-world phase
	inWorld := []proto.SessionState{proto.StateInWorld}

	reg.Register(proto.TypeMove, inWorld,
		func(sess any, data json.RawMessage) {
			HandleMove(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeLook, inWorld,
		func(sess any, data json.RawMessage) {
			HandleLook(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeSay, inWorld,
		func(sess any, data json.RawMessage) {
			HandleSay(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeRouteCompute, inWorld,
		func(sess any, data json.RawMessage) {
			HandleRouteCompute(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeRouteStart, inWorld,
		func(sess any, data json.RawMessage) {
			HandleRouteStart(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeRouteStop, inWorld,
		func(sess any, data json.RawMessage) {
			HandleRouteStop(sess.(*net.Session), data, deps)
		},
	)
	reg.Register(proto.TypeRouteContinue, inWorld,
		func(sess any, data json.RawMessage) {
			HandleRouteContinue(sess.(*net.Session), data, deps)
		},
	)

	// Quit is legal before an identity is chosen.
	reg.Register(proto.TypeQuit,
		[]proto.SessionState{proto.StateHandshake, proto.StateInWorld},
		func(sess any, data json.RawMessage) {
			HandleQuit(sess.(*net.Session), data, deps)
		},
	)
}
