package system

import (
	"context"
	"time"

	"github.com/gridmud/server/internal/core/event"
	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/nav"
	"github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/persist"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// InputSystem drains message queues from all sessions and dispatches them
// through the protocol registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *proto.Registry
	store      *net.SessionStore
	maxPerTick int
	worldState *world.State
	routes     *nav.Table
	bus        *event.Bus
	charRepo   *persist.CharacterRepo
	log        *zap.Logger
}

func NewInputSystem(
	netServer *net.Server,
	registry *proto.Registry,
	store *net.SessionStore,
	maxPerTick int,
	worldState *world.State,
	routes *nav.Table,
	bus *event.Bus,
	charRepo *persist.CharacterRepo,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		store:      store,
		maxPerTick: maxPerTick,
		worldState: worldState,
		routes:     routes,
		bus:        bus,
		charRepo:   charRepo,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Reap sessions the server already knows are dead
	for {
		select {
		case id := <-s.netServer.DeadSessions():
			s.store.Remove(id)
		default:
			goto doneDead
		}
	}
doneDead:

	// Drain messages from each session (up to maxPerTick per session)
	for id, sess := range s.store.Raw() {
		if sess.IsClosed() {
			// Drain whatever arrived before the close so a final say or
			// quit still lands, using the last known state.
			for i := 0; i < s.maxPerTick; i++ {
				select {
				case frame := <-sess.InQueue:
					if err := s.registry.Dispatch(sess, sess.State(), frame); err != nil {
						s.log.Debug("dispatch error (closing)",
							zap.Uint64("session", sess.ID),
							zap.Error(err),
						)
					}
				default:
					goto doneClosing
				}
			}
		doneClosing:
			// Flush any remaining buffered output before disconnect cleanup
			sess.FlushOutput()
			s.handleDisconnect(sess)
			s.netServer.NotifyDead(id)
			s.store.Remove(id)
			continue
		}

		for i := 0; i < s.maxPerTick; i++ {
			select {
			case frame := <-sess.InQueue:
				if err := s.registry.Dispatch(sess, sess.State(), frame); err != nil {
					s.log.Debug("dispatch error",
						zap.Uint64("session", sess.ID),
						zap.Error(err),
					)
				}
			default:
				goto nextSession
			}
		}
	nextSession:
	}

	// Early flush: output produced while handling input (move results, room
	// snapshots, join broadcasts) enters the OutQueues now, so the write
	// loops can start sending while the update phases run. OutputSystem
	// flushes whatever those phases add.
	s.store.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

// handleDisconnect cleans up when a session closes: removes the presence
// entry, tells the room, drops any route, and saves the character.
func (s *InputSystem) handleDisconnect(sess *net.Session) {
	identity := sess.Identity
	if identity == "" {
		return // never made it past the handshake
	}

	entry := s.worldState.Unregister(identity)
	if entry == nil {
		return
	}

	s.worldState.BroadcastRoom(entry.RoomID,
		proto.Encode(proto.TypePeerLeft, proto.PeerLeft{Identity: identity}),
		identity)
	s.routes.Remove(identity)
	event.Emit(s.bus, event.PresenceLeft{Identity: identity, RoomID: entry.RoomID})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.charRepo.SaveRoom(ctx, identity, entry.RoomID); err != nil {
		s.log.Error("disconnect save failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
	}
	if err := s.charRepo.TouchLastSeen(ctx, identity); err != nil {
		s.log.Error("disconnect last_seen update failed",
			zap.String("identity", identity),
			zap.Error(err),
		)
	}

	s.log.Info("identity left",
		zap.String("identity", identity),
		zap.Int32("room", entry.RoomID),
		zap.Uint64("session", sess.ID),
	)
}

// SessionCount returns the current number of active sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Len()
}
