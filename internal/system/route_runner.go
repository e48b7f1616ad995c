package system

import (
	"time"

	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/handler"
	"github.com/gridmud/server/internal/nav"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"go.uber.org/zap"
)

// RouteSystem advances every Running guided route one step per interval.
// Phase 2 (Update).
//
// Each step goes through the same move path as a manual command: presence
// MoveTo, leave/join broadcasts, then a fresh room snapshot and a progress
// frame for the walker. Cancellation is cooperative at step boundaries; a
// route stopped mid-lap simply is not stepped again.
type RouteSystem struct {
	deps      *handler.Deps
	store     *net.SessionStore
	stepTicks int
	tickCount int
}

func NewRouteSystem(deps *handler.Deps, store *net.SessionStore) *RouteSystem {
	stepTicks := deps.Config.World.RouteStepTicks
	if stepTicks < 1 {
		stepTicks = 1
	}
	return &RouteSystem{
		deps:      deps,
		store:     store,
		stepTicks: stepTicks,
	}
}

func (s *RouteSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *RouteSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.stepTicks {
		return
	}
	s.tickCount = 0

	// Snapshot the due routes first; stepping sends broadcasts and may
	// stop routes, and the table must not change under its own iteration.
	var due []*nav.Route
	s.deps.Routes.ForEach(func(rt *nav.Route) {
		if rt.Status == nav.StatusRunning {
			due = append(due, rt)
		}
	})
	for _, rt := range due {
		s.step(rt)
	}
}

func (s *RouteSystem) step(rt *nav.Route) {
	sess := s.store.FindByIdentity(rt.Identity)
	if sess == nil || sess.IsClosed() {
		// Walker is gone; disconnect cleanup drops the table entry.
		rt.Stop()
		return
	}

	step, ok := rt.Current()
	if !ok {
		// Empty plan: the walker already stands at the goal.
		if rt.Advance() {
			s.sendComplete(sess, rt)
		}
		return
	}

	next, err := handler.ApplyMove(sess, s.deps, step.Direction)
	if err != nil {
		// Topology refused the step. The walker was moved externally or
		// the world changed under the plan; the rest of it is worthless.
		rt.Stop()
		sess.Send(proto.Encode(proto.TypeRouteFailed, proto.RouteFailed{
			RouteID: rt.ID,
			Reason:  err.Error(),
		}))
		s.deps.Log.Debug("route step refused",
			zap.String("identity", rt.Identity),
			zap.String("direction", step.Direction.Name()),
			zap.Error(err),
		)
		return
	}

	completed := rt.Advance()

	handler.SendRoomState(sess, s.deps, next)
	sess.Send(proto.Encode(proto.TypeRouteStep, proto.RouteStep{
		RouteID:   rt.ID,
		Direction: step.Direction.Name(),
		Step:      rt.StepIndex(),
		Remaining: rt.Remaining(),
		Lap:       rt.Laps(),
	}))

	if completed {
		s.sendComplete(sess, rt)
	}
}

func (s *RouteSystem) sendComplete(sess *net.Session, rt *nav.Route) {
	sess.Send(proto.Encode(proto.TypeRouteComplete, proto.RouteComplete{
		RouteID: rt.ID,
		Laps:    rt.Laps(),
	}))
}
