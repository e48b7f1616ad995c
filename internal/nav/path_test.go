package nav

import (
	"errors"
	"testing"

	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
)

// makeGrid builds a w*h map with origin (0,0) and row-major room ids
// starting at base+1.
func makeGrid(mapID, base int32, w, h int32) []data.Room {
	var rooms []data.Room
	id := base
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			id++
			rooms = append(rooms, data.Room{ID: id, MapID: mapID, X: x, Y: y})
		}
	}
	return rooms
}

func topo(t *testing.T, maps []data.Map, rooms []data.Room) *data.Topology {
	t.Helper()
	top, err := data.NewTopology(maps, rooms)
	if err != nil {
		t.Fatalf("NewTopology: %v", err)
	}
	return top
}

func dirs(steps []Step) []direction.Direction {
	out := make([]direction.Direction, len(steps))
	for i, s := range steps {
		out[i] = s.Direction
	}
	return out
}

func TestShortestPathCorridor(t *testing.T) {
	// Six rooms in a straight east-west line: the only plan is five easts,
	// and its length equals the walking distance.
	rooms := makeGrid(1, 0, 6, 1)
	top := topo(t, []data.Map{{ID: 1, Name: "corridor"}}, rooms)

	steps, err := ShortestPath(top, top.RoomAt(1, 0, 0), top.RoomAt(1, 5, 0))
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(steps) != 5 {
		t.Fatalf("plan length = %d, want 5", len(steps))
	}
	for i, s := range steps {
		if s.Direction != direction.East {
			t.Errorf("step %d = %v, want E", i, s.Direction)
		}
	}
	if steps[len(steps)-1].RoomID != top.RoomAt(1, 5, 0).ID {
		t.Error("plan does not end at the goal")
	}
}

func TestShortestPathOpenField(t *testing.T) {
	// With diagonal moves the shortest plan over open ground is the
	// Chebyshev distance.
	rooms := makeGrid(1, 0, 5, 5)
	top := topo(t, []data.Map{{ID: 1, Name: "field"}}, rooms)

	tests := map[string]struct {
		fromX, fromY, toX, toY int32
		want                   int
	}{
		"diagonal":     {0, 0, 4, 4, 4},
		"dogleg":       {0, 0, 4, 2, 4},
		"axis":         {0, 2, 4, 2, 4},
		"single step":  {2, 2, 3, 3, 1},
		"longer axis y": {1, 0, 1, 4, 4},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			steps, err := ShortestPath(top, top.RoomAt(1, tc.fromX, tc.fromY), top.RoomAt(1, tc.toX, tc.toY))
			if err != nil {
				t.Fatalf("ShortestPath: %v", err)
			}
			if len(steps) != tc.want {
				t.Errorf("plan length = %d, want %d", len(steps), tc.want)
			}
		})
	}
}

func TestShortestPathTieBreak(t *testing.T) {
	// (0,0) to (2,1) has several equal plans; canonical enumeration order
	// (N, NE, E, SE, S, SW, W, NW) makes NE-then-E the one BFS finds.
	rooms := makeGrid(1, 0, 3, 3)
	top := topo(t, []data.Map{{ID: 1, Name: "field"}}, rooms)

	steps, err := ShortestPath(top, top.RoomAt(1, 0, 0), top.RoomAt(1, 2, 1))
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	got := dirs(steps)
	want := []direction.Direction{direction.Northeast, direction.East}
	if len(got) != len(want) {
		t.Fatalf("plan = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plan = %v, want %v", got, want)
		}
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	// Two clusters with a gap between them.
	rooms := append(makeGrid(1, 0, 2, 1), data.Room{ID: 50, MapID: 1, X: 10, Y: 10})
	top := topo(t, []data.Map{{ID: 1, Name: "islands"}}, rooms)

	_, err := ShortestPath(top, top.RoomAt(1, 0, 0), top.RoomAt(1, 10, 10))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
}

func TestShortestPathSameRoom(t *testing.T) {
	rooms := makeGrid(1, 0, 2, 1)
	top := topo(t, []data.Map{{ID: 1, Name: "spot"}}, rooms)
	r := top.RoomAt(1, 0, 0)

	steps, err := ShortestPath(top, r, r)
	if err != nil || len(steps) != 0 {
		t.Fatalf("same-room plan = %v, %v; want empty, nil", steps, err)
	}
}

func TestShortestPathThroughPortal(t *testing.T) {
	maps := []data.Map{{ID: 1, Name: "overworld"}, {ID: 2, Name: "cellar"}}
	rooms := []data.Room{
		{ID: 1, MapID: 1, X: 0, Y: 0},
		{ID: 2, MapID: 1, X: 1, Y: 0,
			Portal: &data.Portal{Direction: direction.East, MapID: 2, X: 0, Y: 0}},
		{ID: 3, MapID: 2, X: 0, Y: 0},
		{ID: 4, MapID: 2, X: 1, Y: 0},
	}
	top := topo(t, maps, rooms)

	steps, err := ShortestPath(top, top.RoomByID(1), top.RoomByID(4))
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("plan = %v, want 3 steps", dirs(steps))
	}
	if steps[1].RoomID != 3 {
		t.Errorf("portal hop landed at room %d, want 3", steps[1].RoomID)
	}

	// Portal edges are one-directional: the reverse trip has no way back.
	if _, err := ShortestPath(top, top.RoomByID(4), top.RoomByID(1)); !errors.Is(err, ErrUnreachable) {
		t.Errorf("reverse err = %v, want ErrUnreachable", err)
	}
}
