package system

// Behavior variants for the actor cycle scheduler. Dispatch is by the
// archetype's behavior tag; an unknown tag counts the cycle and does nothing
// else, so archetypes can ship ahead of their code.
//
// Tunable parameters (item, yield, set_point, ...) may live either in the
// instance state bag or in the archetype config; the state bag wins. Dynamic
// values (level, progress, stage, phase, patrol_index) live in the state bag
// only. JSONB numbers arrive as float64, so every read coerces.

import (
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
	"github.com/gridmud/server/internal/scripting"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// production is one item stack yielded by a cycle.
type production struct {
	item string
	qty  int64
}

// behaviorEnv carries the world services a variant may consult. Variants
// never mutate anything through it; moves are returned to the scheduler.
type behaviorEnv struct {
	topology  *data.Topology
	scripting *scripting.Engine
	log       *zap.Logger
}

// runVariant executes one behavior cycle. The state bag (never nil here) is
// mutated in place; keys the variant does not recognize pass through
// untouched. moved is the room the actor stepped into, nil when it stayed
// put.
func runVariant(ai *world.ActorInfo, env *behaviorEnv) (prods []production, say string, moved *data.Room) {
	switch ai.Behavior {
	case "rhythm":
		// Harvest-gated: an outside toggle opens production; the variant
		// itself never writes the flag.
		if truthy(stateVal(ai, "active_harvest")) {
			prods = produce(prods, strParam(ai, "item"), intParam(ai, "yield"))
		}

	case "stability":
		level := numState(ai, "level")
		setPoint := numParam(ai, "set_point")
		step := numParam(ai, "step")
		diff := setPoint - level
		if diff > step {
			diff = step
		}
		if diff < -step {
			diff = -step
		}
		ai.State["level"] = level + diff

	case "worker":
		progress := numState(ai, "progress") + numParam(ai, "work_rate")
		target := numParam(ai, "work_target")
		if target > 0 && progress >= target {
			prods = produce(prods, strParam(ai, "item"), 1)
			progress -= target
		}
		ai.State["progress"] = progress

	case "farm":
		stage := intState(ai, "stage") + 1
		ripe := intParam(ai, "ripe_stage")
		if ripe > 0 && stage >= ripe {
			prods = produce(prods, strParam(ai, "item"), intParam(ai, "yield"))
			stage = 0
		}
		ai.State["stage"] = stage

	case "patrol":
		moved = patrolStep(ai, env)

	case "threshold":
		level := numState(ai, "level") + numParam(ai, "rate")
		limit := numParam(ai, "threshold")
		if limit > 0 && level >= limit {
			prods = produce(prods, strParam(ai, "overflow_item"), 1)
			level = 0
		}
		ai.State["level"] = level

	case "machine":
		phases := listParam(ai, "phases")
		if len(phases) > 0 {
			phase := (intState(ai, "phase") + 1) % int64(len(phases))
			if phase == 0 {
				prods = produce(prods, strParam(ai, "item"), 1)
			}
			ai.State["phase"] = phase
		}

	case "scripted":
		prods, say = scriptedCycle(ai, env)

	case "narrative":
		// counter only

	default:
		// unknown tag: counter only
	}
	return prods, say, moved
}

// patrolStep walks one step along the patrol route. A wall or an
// unparseable direction code skips the move; the cursor always advances and
// wraps.
func patrolStep(ai *world.ActorInfo, env *behaviorEnv) *data.Room {
	route := listParam(ai, "patrol_route")
	if len(route) == 0 {
		return nil
	}
	idx := intState(ai, "patrol_index")
	if idx < 0 || idx >= int64(len(route)) {
		idx = 0
	}
	ai.State["patrol_index"] = (idx + 1) % int64(len(route))

	code, _ := route[idx].(string)
	dir, err := direction.Parse(code)
	if err != nil {
		if env.log != nil {
			env.log.Warn("patrol route has a bad direction code",
				zap.Int64("actor", ai.ID),
				zap.String("code", code),
			)
		}
		return nil
	}
	room := env.topology.RoomByID(ai.RoomID)
	if room == nil {
		return nil
	}
	next, err := env.topology.Resolve(room, dir)
	if err != nil {
		return nil // wall: skip the move, keep marching the cursor
	}
	return next
}

// scriptedCycle delegates to the Lua function named by the archetype's
// "script" key. A missing function, a script error, or a malformed result
// degrades to plain counting.
func scriptedCycle(ai *world.ActorInfo, env *behaviorEnv) ([]production, string) {
	fn := strParam(ai, "script")
	if fn == "" || env.scripting == nil {
		return nil, ""
	}
	res, ok := env.scripting.RunActorCycle(fn, scripting.CycleContext{
		ActorID:   ai.ID,
		ActorName: ai.Name,
		RoomID:    ai.RoomID,
		Cycles:    intState(ai, "cycles"),
		State:     ai.State,
		Config:    ai.Config,
	})
	if !ok {
		return nil, ""
	}
	if res.State != nil {
		ai.State = res.State
	}
	var prods []production
	prods = produce(prods, res.Item, res.Qty)
	return prods, res.Say
}

func produce(list []production, item string, qty int64) []production {
	if item == "" || qty <= 0 {
		return list
	}
	return append(list, production{item: item, qty: qty})
}

// stateVal reads a key from the state bag only.
func stateVal(ai *world.ActorInfo, key string) any {
	if ai.State == nil {
		return nil
	}
	return ai.State[key]
}

// param reads a key from the state bag, falling back to archetype config.
func param(ai *world.ActorInfo, key string) any {
	if ai.State != nil {
		if v, ok := ai.State[key]; ok {
			return v
		}
	}
	if ai.Config != nil {
		if v, ok := ai.Config[key]; ok {
			return v
		}
	}
	return nil
}

func numState(ai *world.ActorInfo, key string) float64 { return toNum(stateVal(ai, key)) }
func intState(ai *world.ActorInfo, key string) int64   { return int64(toNum(stateVal(ai, key))) }
func numParam(ai *world.ActorInfo, key string) float64 { return toNum(param(ai, key)) }
func intParam(ai *world.ActorInfo, key string) int64   { return int64(toNum(param(ai, key))) }

func strParam(ai *world.ActorInfo, key string) string {
	s, _ := param(ai, key).(string)
	return s
}

func listParam(ai *world.ActorInfo, key string) []any {
	l, _ := param(ai, key).([]any)
	return l
}

func toNum(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		return 0
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return false
	}
}
