// Package system sequences per-tick work into fixed phases so the game loop
// stays a single goroutine with a predictable order of effects.
package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain session queues, dispatch messages
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: world logic: cycles, routes
	PhasePostUpdate              // 3: ground expiry, timers
	PhaseOutput                  // 4: flush buffered output
	PhasePersist                 // 5: batch save + production log flush
	PhaseCleanup                 // 6: drop dead sessions and spent routes
)

// System is one unit of per-tick work, pinned to a phase.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
