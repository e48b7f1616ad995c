// Package direction models the compass headings rooms connect along.
//
// The world grid runs north = +y, east = +x. The eight horizontal headings
// are enumerated clockwise from north; that order is canonical and shared by
// exit listings, pathfinding neighbor expansion and tie-breaking.
package direction

import (
	"fmt"
	"strings"
)

// Direction is a compass heading. The zero value is North.
type Direction int8

const (
	North Direction = iota
	Northeast
	East
	Southeast
	South
	Southwest
	West
	Northwest
	// Up and Down are recognized in commands and portal definitions but no
	// room can currently sit above or below another; resolving either always
	// reports a wall.
	Up
	Down
)

var codes = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW", "U", "D"}

var names = [...]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
	"up", "down",
}

// Deltas for the horizontal headings, indexed by Direction.
var (
	deltaX = [8]int32{0, 1, 1, 1, 0, -1, -1, -1}
	deltaY = [8]int32{1, 1, 0, -1, -1, -1, 0, 1}
)

var horizontals = [8]Direction{
	North, Northeast, East, Southeast,
	South, Southwest, West, Northwest,
}

var byToken map[string]Direction

func init() {
	byToken = make(map[string]Direction, len(codes)+len(names))
	for i := range codes {
		byToken[strings.ToLower(codes[i])] = Direction(i)
	}
	for i := range names {
		byToken[names[i]] = Direction(i)
	}
}

// Parse resolves a direction token: short code ("ne") or full word
// ("northeast"), case-insensitive.
func Parse(token string) (Direction, error) {
	d, ok := byToken[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return North, fmt.Errorf("unknown direction %q", token)
	}
	return d, nil
}

// Valid reports whether d is one of the ten defined headings.
func (d Direction) Valid() bool {
	return d >= North && d <= Down
}

// String returns the short code ("NE"). Unknown values format as "D?".
func (d Direction) String() string {
	if !d.Valid() {
		return "D?"
	}
	return codes[d]
}

// Name returns the lowercase full word ("northeast").
func (d Direction) Name() string {
	if !d.Valid() {
		return "unknown"
	}
	return names[d]
}

// Vertical reports whether d is Up or Down.
func (d Direction) Vertical() bool {
	return d == Up || d == Down
}

// Delta returns the grid offset one step along d. Vertical headings have no
// grid projection and return (0, 0).
func (d Direction) Delta() (dx, dy int32) {
	if !d.Valid() || d.Vertical() {
		return 0, 0
	}
	return deltaX[d], deltaY[d]
}

// Opposite returns the reverse heading.
func (d Direction) Opposite() Direction {
	switch {
	case d == Up:
		return Down
	case d == Down:
		return Up
	case d.Valid():
		return (d + 4) % 8
	default:
		return d
	}
}

// Horizontals returns the eight grid headings in canonical order. The
// returned slice is a fresh copy each call.
func Horizontals() []Direction {
	out := make([]Direction, len(horizontals))
	copy(out, horizontals[:])
	return out
}

// All returns every heading, horizontals first, then Up and Down.
func All() []Direction {
	out := make([]Direction, 0, 10)
	out = append(out, horizontals[:]...)
	return append(out, Up, Down)
}
