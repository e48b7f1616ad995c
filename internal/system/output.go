package system

import (
	"time"

	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/net"
)

// OutputSystem drains every session's buffered output into its OutQueue so
// the write loops can send while the tick finishes. Phase 4 (Output).
type OutputSystem struct {
	store *net.SessionStore
}

func NewOutputSystem(store *net.SessionStore) *OutputSystem {
	return &OutputSystem{store: store}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}
