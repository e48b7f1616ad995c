// Package nav plans shortest paths over the room graph and tracks guided
// routes while the server walks them for a player.
package nav

import (
	"errors"

	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
)

// ErrUnreachable reports that no sequence of moves connects the rooms.
var ErrUnreachable = errors.New("no path to destination")

// Step is one planned move: the heading to take and the room it lands in.
type Step struct {
	Direction direction.Direction
	RoomID    int32
}

// ShortestPath runs a unit-cost breadth-first search from start to goal.
// Edges are exactly what Resolve yields per heading: same-map adjacency plus
// the room's one-directional portal, with a matching portal shadowing the
// in-map neighbor. Neighbors expand in canonical direction order, so between
// equal-length plans the one whose first differing step enumerates earlier
// (N before NE before E, clockwise from north) wins every time.
//
// An empty plan with a nil error means start and goal are the same room.
func ShortestPath(top *data.Topology, start, goal *data.Room) ([]Step, error) {
	if start == nil || goal == nil {
		return nil, ErrUnreachable
	}
	if start.ID == goal.ID {
		return nil, nil
	}

	type hop struct {
		fromID int32
		dir    direction.Direction
	}
	visited := map[int32]hop{start.ID: {}}
	queue := []*data.Room{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range direction.Horizontals() {
			next, err := top.Resolve(cur, d)
			if err != nil {
				continue
			}
			if _, seen := visited[next.ID]; seen {
				continue
			}
			visited[next.ID] = hop{fromID: cur.ID, dir: d}
			if next.ID == goal.ID {
				// Walk parents back to start, then flip.
				var rev []Step
				for at := goal.ID; at != start.ID; {
					h := visited[at]
					rev = append(rev, Step{Direction: h.dir, RoomID: at})
					at = h.fromID
				}
				for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
					rev[i], rev[j] = rev[j], rev[i]
				}
				return rev, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, ErrUnreachable
}
