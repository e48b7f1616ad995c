package system

import (
	"fmt"
	"time"

	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/world"
)

// GroundExpirySystem ages the item piles on room floors and tells occupants
// when one crumbles away. Phase 3 (PostUpdate).
type GroundExpirySystem struct {
	world *world.State
}

func NewGroundExpirySystem(ws *world.State) *GroundExpirySystem {
	return &GroundExpirySystem{world: ws}
}

func (s *GroundExpirySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *GroundExpirySystem) Update(_ time.Duration) {
	expired := s.world.TickGround()
	for roomID, stacks := range expired {
		for _, st := range stacks {
			text := fmt.Sprintf("The %s crumbles to dust.", st.Item)
			if st.Qty > 1 {
				text = fmt.Sprintf("The %d %s crumble to dust.", st.Qty, st.Item)
			}
			s.world.BroadcastRoom(roomID, proto.Encode(proto.TypeRoomMessage, proto.RoomMessage{
				Kind: "notice",
				Text: text,
			}))
		}
	}
}
