package nav

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrStale rejects resuming a paused route after the walker left the room
// it paused in. The route is unusable; the player must start a new one.
var ErrStale = errors.New("route is stale: must restart")

// ErrNotPaused rejects a resume on a route that is not paused.
var ErrNotPaused = errors.New("route is not paused")

// Status is a route's lifecycle state.
type Status int8

const (
	StatusRunning Status = iota
	StatusPaused
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int8(s))
	}
}

// Mode selects what happens when the step list runs out.
type Mode int8

const (
	// ModePath walks the plan once and completes.
	ModePath Mode = iota
	// ModeLoop re-queues the plan endlessly, counting laps. A loop route
	// never completes on its own; only a stop or a failure ends it.
	ModeLoop
)

func (m Mode) String() string {
	if m == ModeLoop {
		return "loop"
	}
	return "path"
}

// ParseMode resolves "path" or "loop". Empty means path.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "path":
		return ModePath, nil
	case "loop":
		return ModeLoop, nil
	default:
		return ModePath, fmt.Errorf("unknown route mode %q", s)
	}
}

// Route is one identity's guided walk. Owned by the game loop goroutine;
// it does not lock itself.
type Route struct {
	ID       string
	Identity string
	Mode     Mode
	Status   Status
	Goal     int32 // destination room id

	steps []Step
	next  int
	laps  int

	pausedIn int32
}

// NewRoute builds a running route over plan. The plan may be empty (already
// at the destination); the runner completes it on its first visit.
func NewRoute(identity string, goal int32, plan []Step, mode Mode) *Route {
	return &Route{
		ID:       uuid.NewString(),
		Identity: identity,
		Mode:     mode,
		Status:   StatusRunning,
		Goal:     goal,
		steps:    plan,
	}
}

// Current returns the step to execute next. ok is false when the plan is
// exhausted (path mode after the last step, or an empty plan).
func (r *Route) Current() (step Step, ok bool) {
	if r.next >= len(r.steps) {
		return Step{}, false
	}
	return r.steps[r.next], true
}

// Advance marks the current step done and reports whether the route just
// completed. In loop mode exhausting the plan re-queues it from step zero
// and increments the lap counter instead of completing.
func (r *Route) Advance() (completed bool) {
	if r.next < len(r.steps) {
		r.next++
	}
	if r.next < len(r.steps) {
		return false
	}
	if r.Mode == ModeLoop && len(r.steps) > 0 {
		r.next = 0
		r.laps++
		return false
	}
	r.Status = StatusStopped
	return true
}

// Pause suspends the route, remembering the room the walker paused in.
func (r *Route) Pause(roomID int32) {
	if r.Status != StatusRunning {
		return
	}
	r.Status = StatusPaused
	r.pausedIn = roomID
}

// Resume restarts a paused route. It fails with ErrStale when the walker is
// no longer in the room it paused in; the remaining steps would no longer
// line up with the world.
func (r *Route) Resume(currentRoom int32) error {
	if r.Status != StatusPaused {
		return ErrNotPaused
	}
	if currentRoom != r.pausedIn {
		r.Status = StatusStopped
		return ErrStale
	}
	r.Status = StatusRunning
	return nil
}

// Stop ends the route unconditionally.
func (r *Route) Stop() {
	r.Status = StatusStopped
}

// Steps returns a copy of the full plan.
func (r *Route) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// StepIndex returns the zero-based index of the next step in the current lap.
func (r *Route) StepIndex() int { return r.next }

// Remaining returns how many steps are left in the current lap.
func (r *Route) Remaining() int { return len(r.steps) - r.next }

// Length returns the plan length.
func (r *Route) Length() int { return len(r.steps) }

// Laps returns how many full passes a loop route has finished.
func (r *Route) Laps() int { return r.laps }

// Table tracks at most one route per identity. Game-loop owned.
type Table struct {
	routes map[string]*Route
}

// NewTable builds an empty route table.
func NewTable() *Table {
	return &Table{routes: make(map[string]*Route, 16)}
}

// Set installs a route, replacing any previous one for that identity.
func (t *Table) Set(r *Route) {
	t.routes[r.Identity] = r
}

// Get returns the identity's route, or nil.
func (t *Table) Get(identity string) *Route {
	return t.routes[identity]
}

// Remove drops the identity's route.
func (t *Table) Remove(identity string) {
	delete(t.routes, identity)
}

// Len returns the number of tracked routes.
func (t *Table) Len() int { return len(t.routes) }

// ForEach visits every route. The visitor must not mutate the table;
// collect removals and apply them afterwards.
func (t *Table) ForEach(fn func(*Route)) {
	for _, r := range t.routes {
		fn(r)
	}
}
