package system

import (
	"context"
	"time"

	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/persist"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
)

// PersistenceSystem batches dirty world state to the database on a save
// interval: character positions, touched room floors, and the production
// audit queue. Phase 5 (Persist).
type PersistenceSystem struct {
	world     *world.State
	charRepo  *persist.CharacterRepo
	invRepo   *persist.InventoryRepo
	prodRepo  *persist.ProductionRepo
	queue     *ProductionQueue
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks
}

func NewPersistenceSystem(
	ws *world.State,
	charRepo *persist.CharacterRepo,
	invRepo *persist.InventoryRepo,
	prodRepo *persist.ProductionRepo,
	queue *ProductionQueue,
	log *zap.Logger,
	intervalTicks int,
) *PersistenceSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		world:    ws,
		charRepo: charRepo,
		invRepo:  invRepo,
		prodRepo: prodRepo,
		queue:    queue,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// Flush persists everything dirty immediately. The shutdown path calls it
// once more after the loop stops so nothing in flight is lost.
func (s *PersistenceSystem) Flush() {
	s.flush()
}

func (s *PersistenceSystem) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rooms := s.world.TakeCharDirty(); len(rooms) > 0 {
		if err := s.charRepo.SaveRooms(ctx, rooms); err != nil {
			s.log.Error("character position batch save failed",
				zap.Int("count", len(rooms)),
				zap.Error(err),
			)
		} else {
			s.log.Debug("saved character positions", zap.Int("count", len(rooms)))
		}
	}

	for roomID, stacks := range s.world.TakeGroundDirty() {
		rows := make([]persist.InventoryRow, 0, len(stacks))
		for _, st := range stacks {
			rows = append(rows, persist.InventoryRow{ItemName: st.Item, Qty: st.Qty})
		}
		if err := s.invRepo.ReplaceContainer(ctx, persist.RoomContainer(roomID), rows); err != nil {
			s.log.Error("ground save failed",
				zap.Int32("room", roomID),
				zap.Error(err),
			)
		}
	}

	if entries := s.queue.Drain(); len(entries) > 0 {
		if err := s.prodRepo.Append(ctx, entries); err != nil {
			s.log.Error("production log flush failed",
				zap.Int("count", len(entries)),
				zap.Error(err),
			)
			s.queue.Requeue(entries)
			return
		}
	}

	// The floors those entries fed are durable now; retire the backlog.
	if err := s.prodRepo.MarkProcessed(ctx); err != nil {
		s.log.Error("production log mark processed failed", zap.Error(err))
	}
}
