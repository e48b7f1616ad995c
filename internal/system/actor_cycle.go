package system

import (
	"context"
	"fmt"
	"time"

	"github.com/gridmud/server/internal/core/event"
	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/handler"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/persist"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// actorSaver is the slice of persist.ActorRepo the scheduler writes through.
type actorSaver interface {
	UpdateState(ctx context.Context, id int64, state map[string]any, lastCycleRun time.Time) error
	UpdateRoom(ctx context.Context, id int64, roomID int32) error
}

// ActorCycleSystem drives every active actor instance through its behavior
// cycle. Phase 2 (Update).
//
// The gate is wall-clock, not tick-count: an actor runs when now minus its
// last run reaches the base cycle time, so polling more often than that
// produces no extra executions. Actors run whether or not anyone is in the
// room to watch.
type ActorCycleSystem struct {
	deps      *handler.Deps
	repo      actorSaver
	queue     *ProductionQueue
	env       *behaviorEnv
	baseCycle time.Duration
	ttlTicks  int
	pollTicks int
	tickCount int
	now       func() time.Time
}

func NewActorCycleSystem(deps *handler.Deps, queue *ProductionQueue) *ActorCycleSystem {
	pollTicks := deps.Config.World.CyclePollTicks
	if pollTicks < 1 {
		pollTicks = 1
	}
	ttlTicks := 0
	if deps.Config.World.GroundTTLSec > 0 && deps.Config.Network.TickMS > 0 {
		ttlTicks = deps.Config.World.GroundTTLSec * 1000 / deps.Config.Network.TickMS
	}
	return &ActorCycleSystem{
		deps:  deps,
		repo:  deps.ActorRepo,
		queue: queue,
		env: &behaviorEnv{
			topology:  deps.Topology,
			scripting: deps.Scripting,
			log:       deps.Log,
		},
		baseCycle: deps.Config.BaseCycleTime(),
		ttlTicks:  ttlTicks,
		pollTicks: pollTicks,
		now:       time.Now,
	}
}

func (s *ActorCycleSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ActorCycleSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.pollTicks {
		return
	}
	s.tickCount = 0

	now := s.now()
	for _, ai := range s.deps.Actors.All() {
		if now.Sub(ai.LastCycleRun) < s.baseCycle {
			continue
		}
		s.runActor(ai, now)
	}
}

// runActor executes one cycle for one actor. Panics are contained here so a
// broken behavior or script cannot take the rest of the sweep down with it.
func (s *ActorCycleSystem) runActor(ai *world.ActorInfo, now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			s.deps.Log.Error("actor cycle panic",
				zap.Int64("actor", ai.ID),
				zap.String("behavior", ai.Behavior),
				zap.Any("panic", rec),
			)
		}
	}()

	if ai.State == nil {
		ai.State = make(map[string]any)
	}
	prevCycles := intState(ai, "cycles")

	prods, say, moved := runVariant(ai, s.env)

	// The counter and timestamp advance no matter what the variant did,
	// even for unknown tags.
	ai.State["cycles"] = prevCycles + 1
	ai.LastCycleRun = now

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := s.repo.UpdateState(ctx, ai.ID, ai.State, now); err != nil {
		s.deps.Log.Error("actor state save failed",
			zap.Int64("actor", ai.ID),
			zap.Error(err),
		)
	}
	cancel()

	if moved != nil {
		s.moveActor(ai, moved.ID)
	}

	if say != "" {
		s.deps.World.BroadcastRoom(ai.RoomID, proto.Encode(proto.TypeRoomMessage, proto.RoomMessage{
			From: ai.Name,
			Kind: "say",
			Text: say,
		}))
	}

	for _, p := range prods {
		s.deposit(ai, p, now)
	}
}

// moveActor reindexes a patrolling actor into its next room, persists the
// new placement, and tells both rooms.
func (s *ActorCycleSystem) moveActor(ai *world.ActorInfo, toRoom int32) {
	from := ai.RoomID
	s.deps.Actors.Move(ai.ID, toRoom)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := s.repo.UpdateRoom(ctx, ai.ID, toRoom); err != nil {
		s.deps.Log.Error("actor room save failed",
			zap.Int64("actor", ai.ID),
			zap.Error(err),
		)
	}
	cancel()

	s.deps.World.BroadcastRoom(from, proto.Encode(proto.TypeRoomMessage, proto.RoomMessage{
		Kind: "notice",
		Text: fmt.Sprintf("%s wanders off.", ai.Name),
	}))
	s.deps.World.BroadcastRoom(toRoom, proto.Encode(proto.TypeRoomMessage, proto.RoomMessage{
		Kind: "notice",
		Text: fmt.Sprintf("%s wanders in.", ai.Name),
	}))
	event.Emit(s.deps.Bus, event.ActorMoved{ActorID: ai.ID, FromRoom: from, ToRoom: toRoom})
}

// deposit drops a produced stack on the actor's room floor, tells the room,
// and queues the audit row for the persist phase.
func (s *ActorCycleSystem) deposit(ai *world.ActorInfo, p production, now time.Time) {
	s.deps.World.AddGround(ai.RoomID, p.item, p.qty, s.ttlTicks)
	s.deps.World.BroadcastRoom(ai.RoomID, proto.Encode(proto.TypeRoomMessage, proto.RoomMessage{
		Kind: "notice",
		Text: fmt.Sprintf("The %s yields %d %s.", ai.Name, p.qty, p.item),
	}))
	event.Emit(s.deps.Bus, event.ItemsProduced{
		ActorID:   ai.ID,
		ActorName: ai.Name,
		RoomID:    ai.RoomID,
		Item:      p.item,
		Qty:       p.qty,
	})
	s.queue.Push(persist.ProductionEntry{
		ActorID: ai.ID,
		RoomID:  ai.RoomID,
		Item:    p.item,
		Qty:     p.qty,
		CycleAt: now,
	})
}
