package system

import (
	"testing"

	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/world"
)

func mkActor(behavior string, cfg, state map[string]any) *world.ActorInfo {
	if state == nil {
		state = make(map[string]any)
	}
	return &world.ActorInfo{
		ID:       7,
		Name:     "test actor",
		Behavior: behavior,
		Config:   cfg,
		RoomID:   1,
		State:    state,
	}
}

// patrolTopology is two rooms side by side on one map: id 1 at (0,0) and
// id 2 at (1,0).
func patrolTopology(t *testing.T) *data.Topology {
	t.Helper()
	topo, err := data.NewTopology(
		[]data.Map{{ID: 1, Name: "Yard"}},
		[]data.Room{
			{ID: 1, MapID: 1, X: 0, Y: 0, Title: "west end"},
			{ID: 2, MapID: 1, X: 1, Y: 0, Title: "east end"},
		},
	)
	if err != nil {
		t.Fatalf("NewTopology: %v", err)
	}
	return topo
}

func TestRhythmHarvestGate(t *testing.T) {
	env := &behaviorEnv{}

	t.Run("flag open", func(t *testing.T) {
		ai := mkActor("rhythm",
			map[string]any{"item": "kelp", "yield": float64(2)},
			map[string]any{"active_harvest": true},
		)
		prods, _, moved := runVariant(ai, env)
		if moved != nil {
			t.Fatalf("rhythm moved")
		}
		if len(prods) != 1 || prods[0].item != "kelp" || prods[0].qty != 2 {
			t.Fatalf("prods = %+v, want one kelp x2", prods)
		}
		// The variant reads the flag, it never writes it.
		if got, ok := ai.State["active_harvest"].(bool); !ok || !got {
			t.Errorf("active_harvest = %v, want untouched true", ai.State["active_harvest"])
		}
	})

	t.Run("flag absent", func(t *testing.T) {
		ai := mkActor("rhythm", map[string]any{"item": "kelp", "yield": float64(2)}, nil)
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 0 {
			t.Fatalf("prods = %+v, want none", prods)
		}
	})

	t.Run("numeric flag from storage", func(t *testing.T) {
		// JSONB round trips booleans some seeds write as 0/1.
		ai := mkActor("rhythm",
			map[string]any{"item": "kelp", "yield": float64(1)},
			map[string]any{"active_harvest": float64(1)},
		)
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 1 {
			t.Fatalf("prods = %+v, want one", prods)
		}
	})
}

func TestStabilityStepsTowardSetPoint(t *testing.T) {
	env := &behaviorEnv{}
	cases := map[string]struct {
		level float64
		want  float64
	}{
		"far below":   {level: 0, want: 2},
		"near below":  {level: 9, want: 10},
		"at setpoint": {level: 10, want: 10},
		"near above":  {level: 11, want: 10},
		"far above":   {level: 20, want: 18},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ai := mkActor("stability",
				map[string]any{"set_point": float64(10), "step": float64(2)},
				map[string]any{"level": tc.level},
			)
			prods, _, _ := runVariant(ai, env)
			if len(prods) != 0 {
				t.Fatalf("stability produced %+v", prods)
			}
			if got := ai.State["level"].(float64); got != tc.want {
				t.Errorf("level = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWorkerOverflowRemainder(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("worker",
		map[string]any{"item": "crate", "work_rate": float64(4), "work_target": float64(10)},
		nil,
	)

	// 4, 8, then 12 crosses the target: one crate, remainder 2 carries over.
	for i, want := range []float64{4, 8} {
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 0 {
			t.Fatalf("run %d produced early: %+v", i+1, prods)
		}
		if got := ai.State["progress"].(float64); got != want {
			t.Fatalf("run %d progress = %v, want %v", i+1, got, want)
		}
	}
	prods, _, _ := runVariant(ai, env)
	if len(prods) != 1 || prods[0].item != "crate" || prods[0].qty != 1 {
		t.Fatalf("prods = %+v, want one crate x1", prods)
	}
	if got := ai.State["progress"].(float64); got != 2 {
		t.Errorf("progress after overflow = %v, want 2", got)
	}
}

func TestFarmRipeReset(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("farm",
		map[string]any{"item": "apple", "yield": float64(3), "ripe_stage": float64(3)},
		nil,
	)

	for i, want := range []int64{1, 2} {
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 0 {
			t.Fatalf("run %d produced before ripeness: %+v", i+1, prods)
		}
		if got := ai.State["stage"].(int64); got != want {
			t.Fatalf("run %d stage = %v, want %v", i+1, got, want)
		}
	}
	prods, _, _ := runVariant(ai, env)
	if len(prods) != 1 || prods[0].item != "apple" || prods[0].qty != 3 {
		t.Fatalf("prods = %+v, want apples x3", prods)
	}
	if got := ai.State["stage"].(int64); got != 0 {
		t.Errorf("stage after harvest = %v, want 0", got)
	}
}

func TestPatrolStepsAndWraps(t *testing.T) {
	env := &behaviorEnv{topology: patrolTopology(t)}
	ai := mkActor("patrol",
		map[string]any{"patrol_route": []any{"e", "e"}},
		nil,
	)

	// First leg heads east into room 2.
	_, _, moved := runVariant(ai, env)
	if moved == nil || moved.ID != 2 {
		t.Fatalf("moved = %v, want room 2", moved)
	}
	if got := ai.State["patrol_index"].(int64); got != 1 {
		t.Fatalf("patrol_index = %v, want 1", got)
	}

	// The scheduler owns reindexing; mimic it for the next leg.
	ai.RoomID = 2

	// Second leg heads east into a wall: no move, cursor wraps to 0.
	_, _, moved = runVariant(ai, env)
	if moved != nil {
		t.Fatalf("walked through a wall into %v", moved)
	}
	if got := ai.State["patrol_index"].(int64); got != 0 {
		t.Errorf("patrol_index after wall = %v, want wrapped 0", got)
	}
}

func TestPatrolBadDirectionCode(t *testing.T) {
	env := &behaviorEnv{topology: patrolTopology(t)}
	ai := mkActor("patrol",
		map[string]any{"patrol_route": []any{"zz", "e"}},
		nil,
	)
	_, _, moved := runVariant(ai, env)
	if moved != nil {
		t.Fatalf("bad code moved the actor to %v", moved)
	}
	// A bad leg still advances the cursor, so the route cannot jam.
	if got := ai.State["patrol_index"].(int64); got != 1 {
		t.Errorf("patrol_index = %v, want 1", got)
	}
}

func TestPatrolEmptyRoute(t *testing.T) {
	env := &behaviorEnv{topology: patrolTopology(t)}
	ai := mkActor("patrol", map[string]any{}, nil)
	_, _, moved := runVariant(ai, env)
	if moved != nil {
		t.Fatalf("empty route moved the actor")
	}
	if _, ok := ai.State["patrol_index"]; ok {
		t.Errorf("empty route wrote a cursor")
	}
}

func TestThresholdOverflow(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("threshold",
		map[string]any{"rate": float64(5), "threshold": float64(12), "overflow_item": "fresh water"},
		nil,
	)

	for i, want := range []float64{5, 10} {
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 0 {
			t.Fatalf("run %d overflowed early: %+v", i+1, prods)
		}
		if got := ai.State["level"].(float64); got != want {
			t.Fatalf("run %d level = %v, want %v", i+1, got, want)
		}
	}
	prods, _, _ := runVariant(ai, env)
	if len(prods) != 1 || prods[0].item != "fresh water" || prods[0].qty != 1 {
		t.Fatalf("prods = %+v, want fresh water x1", prods)
	}
	if got := ai.State["level"].(float64); got != 0 {
		t.Errorf("level after overflow = %v, want 0", got)
	}
}

func TestMachineWrapProduces(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("machine",
		map[string]any{"phases": []any{"load", "crush", "rest"}, "item": "cider"},
		nil,
	)

	for i, want := range []int64{1, 2} {
		prods, _, _ := runVariant(ai, env)
		if len(prods) != 0 {
			t.Fatalf("run %d produced mid-cycle: %+v", i+1, prods)
		}
		if got := ai.State["phase"].(int64); got != want {
			t.Fatalf("run %d phase = %v, want %v", i+1, got, want)
		}
	}
	// Wrapping back to phase 0 completes the cycle and yields the item.
	prods, _, _ := runVariant(ai, env)
	if len(prods) != 1 || prods[0].item != "cider" || prods[0].qty != 1 {
		t.Fatalf("prods = %+v, want cider x1", prods)
	}
	if got := ai.State["phase"].(int64); got != 0 {
		t.Errorf("phase = %v, want 0", got)
	}
}

func TestMachineWithoutPhases(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("machine", map[string]any{"item": "cider"}, nil)
	prods, _, _ := runVariant(ai, env)
	if len(prods) != 0 {
		t.Fatalf("phase-less machine produced %+v", prods)
	}
	if _, ok := ai.State["phase"]; ok {
		t.Errorf("phase-less machine wrote a phase")
	}
}

func TestUnknownTagLeavesStateAlone(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("weather", nil, map[string]any{"mood": "damp"})
	prods, say, moved := runVariant(ai, env)
	if len(prods) != 0 || say != "" || moved != nil {
		t.Fatalf("unknown tag did something: prods=%+v say=%q moved=%v", prods, say, moved)
	}
	if got := ai.State["mood"]; got != "damp" {
		t.Errorf("mood = %v, want untouched %q", got, "damp")
	}
}

func TestScriptedDegradesWithoutEngine(t *testing.T) {
	env := &behaviorEnv{}
	ai := mkActor("scripted", map[string]any{"script": "gone"}, map[string]any{"keep": "me"})
	prods, say, _ := runVariant(ai, env)
	if len(prods) != 0 || say != "" {
		t.Fatalf("engine-less scripted actor did something: prods=%+v say=%q", prods, say)
	}
	if got := ai.State["keep"]; got != "me" {
		t.Errorf("state bag mangled: keep = %v", got)
	}
}

func TestStateBagOverridesConfig(t *testing.T) {
	env := &behaviorEnv{}
	// A tuned-up instance carries work_rate in its own bag; it beats the
	// archetype's value.
	ai := mkActor("worker",
		map[string]any{"item": "crate", "work_rate": float64(2), "work_target": float64(100)},
		map[string]any{"work_rate": float64(5)},
	)
	runVariant(ai, env)
	if got := ai.State["progress"].(float64); got != 5 {
		t.Errorf("progress = %v, want the instance rate 5", got)
	}
}
