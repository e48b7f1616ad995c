package system

import (
	"time"

	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/nav"
)

// CleanupSystem sweeps spent guided routes out of the table at tick end.
// Phase 6 (Cleanup).
//
// Stopped routes linger until here so the tick that stopped them can still
// read their final state for progress and failure messages.
type CleanupSystem struct {
	routes *nav.Table
}

func NewCleanupSystem(routes *nav.Table) *CleanupSystem {
	return &CleanupSystem{routes: routes}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	var spent []string
	s.routes.ForEach(func(rt *nav.Route) {
		if rt.Status == nav.StatusStopped {
			spent = append(spent, rt.Identity)
		}
	})
	for _, identity := range spent {
		s.routes.Remove(identity)
	}
}
