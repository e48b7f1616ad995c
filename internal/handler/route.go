package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/nav"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
)

// HandleRouteCompute plans a path and parks it Paused in the current room.
// route_continue from the same room starts walking it; moving away first
// makes it stale.
func HandleRouteCompute(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.RouteCompute
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed route_compute")
		return
	}

	rt, ok := planRoute(sess, deps, msg.To, nav.ModePath)
	if !ok {
		return
	}
	rt.Pause(startRoomID(deps, sess))
	deps.Routes.Set(rt)

	send(sess, proto.TypeRouteComputed, routeComputed(rt))
}

// HandleRouteStart plans a path and immediately begins walking it. Any
// previous route for the identity is replaced.
func HandleRouteStart(sess *net.Session, raw json.RawMessage, deps *Deps) {
	var msg proto.RouteStart
	if err := json.Unmarshal(raw, &msg); err != nil {
		sendError(sess, proto.CodeBadRequest, "malformed route_start")
		return
	}
	mode, err := nav.ParseMode(msg.Mode)
	if err != nil {
		sendError(sess, proto.CodeBadRequest, err.Error())
		return
	}

	rt, ok := planRoute(sess, deps, msg.To, mode)
	if !ok {
		return
	}
	deps.Routes.Set(rt)

	send(sess, proto.TypeRouteComputed, routeComputed(rt))
}

// HandleRouteStop pauses a running route in place. The plan survives;
// route_continue picks it back up from the same room.
func HandleRouteStop(sess *net.Session, _ json.RawMessage, deps *Deps) {
	rt := deps.Routes.Get(sess.Identity)
	if rt == nil || rt.Status == nav.StatusStopped {
		sendError(sess, proto.CodeNoRoute, "no active route")
		return
	}
	rt.Pause(startRoomID(deps, sess))

	// Ack with a progress snapshot: the step the route will take when
	// resumed, and how much of the lap is left.
	next := ""
	if st, ok := rt.Current(); ok {
		next = st.Direction.Name()
	}
	send(sess, proto.TypeRouteStep, proto.RouteStep{
		RouteID:   rt.ID,
		Direction: next,
		Step:      rt.StepIndex(),
		Remaining: rt.Remaining(),
		Lap:       rt.Laps(),
	})
}

// HandleRouteContinue resumes a paused route. Resuming anywhere but the
// room it paused in rejects with the stale error and discards the route.
func HandleRouteContinue(sess *net.Session, _ json.RawMessage, deps *Deps) {
	rt := deps.Routes.Get(sess.Identity)
	if rt == nil {
		sendError(sess, proto.CodeNoRoute, "no route to continue")
		return
	}
	if err := rt.Resume(startRoomID(deps, sess)); err != nil {
		if errors.Is(err, nav.ErrStale) {
			send(sess, proto.TypeRouteFailed, proto.RouteFailed{
				RouteID: rt.ID, Reason: err.Error(),
			})
			deps.Routes.Remove(sess.Identity)
			return
		}
		sendError(sess, proto.CodeNoRoute, err.Error())
		return
	}
}

// planRoute resolves the destination and runs the path search, reporting
// failures to the requester. ok is false when anything failed.
func planRoute(sess *net.Session, deps *Deps, to proto.Target, mode nav.Mode) (*nav.Route, bool) {
	entry := deps.World.Get(sess.Identity)
	if entry == nil {
		sendError(sess, proto.CodeInternal, "not in the world")
		return nil, false
	}
	start := deps.Topology.RoomByID(entry.RoomID)
	goal := targetRoom(deps, to)
	if goal == nil {
		sendError(sess, proto.CodeNoRoute,
			fmt.Sprintf("no room at %s (%d,%d)", to.Map, to.X, to.Y))
		return nil, false
	}

	plan, err := nav.ShortestPath(deps.Topology, start, goal)
	if err != nil {
		sendError(sess, proto.CodeUnreachable, err.Error())
		return nil, false
	}
	return nav.NewRoute(sess.Identity, goal.ID, plan, mode), true
}

func targetRoom(deps *Deps, to proto.Target) *data.Room {
	m := deps.Topology.MapByName(to.Map)
	if m == nil {
		return nil
	}
	return deps.Topology.RoomAt(m.ID, to.X, to.Y)
}

func startRoomID(deps *Deps, sess *net.Session) int32 {
	if entry := deps.World.Get(sess.Identity); entry != nil {
		return entry.RoomID
	}
	return -1
}

func routeComputed(rt *nav.Route) proto.RouteComputed {
	steps := make([]string, 0, rt.Length())
	for _, s := range rt.Steps() {
		steps = append(steps, s.Direction.Name())
	}
	return proto.RouteComputed{
		RouteID: rt.ID,
		Steps:   steps,
		Length:  rt.Length(),
	}
}
