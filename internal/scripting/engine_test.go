package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, script string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "actors"), 0o755); err != nil {
		t.Fatal(err)
	}
	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, "actors", "test.lua"), []byte(script), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestRunActorCycleRoundTrip(t *testing.T) {
	e := newTestEngine(t, `
function spring_cycle(ctx)
    local drawn = (ctx.state.drawn or 0) + 1
    return {
        state = { drawn = drawn, last_room = ctx.room_id },
        produce = { item = ctx.config.item, qty = 2 },
        say = "cycle " .. ctx.cycles,
    }
end
`)
	res, ok := e.RunActorCycle("spring_cycle", CycleContext{
		ActorID:   3,
		ActorName: "Spring",
		RoomID:    7,
		Cycles:    4,
		State:     map[string]any{"drawn": float64(1)},
		Config:    map[string]any{"item": "water"},
	})
	if !ok {
		t.Fatal("RunActorCycle not ok")
	}
	if res.Item != "water" || res.Qty != 2 {
		t.Errorf("produce = %q x%d, want water x2", res.Item, res.Qty)
	}
	if res.Say != "cycle 4" {
		t.Errorf("say = %q, want %q", res.Say, "cycle 4")
	}
	if got := res.State["drawn"]; got != float64(2) {
		t.Errorf("state.drawn = %v, want 2", got)
	}
	if got := res.State["last_room"]; got != float64(7) {
		t.Errorf("state.last_room = %v, want 7", got)
	}
}

func TestRunActorCycleMissingFunction(t *testing.T) {
	e := newTestEngine(t, "")
	if _, ok := e.RunActorCycle("nobody_home", CycleContext{}); ok {
		t.Fatal("missing function reported ok")
	}
}

func TestRunActorCycleScriptError(t *testing.T) {
	e := newTestEngine(t, `
function broken_cycle(ctx)
    error("deliberately")
end
`)
	if _, ok := e.RunActorCycle("broken_cycle", CycleContext{}); ok {
		t.Fatal("erroring function reported ok")
	}
}

func TestRunActorCycleNonTableReturn(t *testing.T) {
	e := newTestEngine(t, `
function rude_cycle(ctx)
    return 42
end
`)
	if _, ok := e.RunActorCycle("rude_cycle", CycleContext{}); ok {
		t.Fatal("non-table return reported ok")
	}
}

func TestMissingScriptsDirIsFine(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine with missing dir: %v", err)
	}
	e.Close()
}
