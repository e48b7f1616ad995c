package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gridmud/server/internal/config"
	"github.com/gridmud/server/internal/core/event"
	coresys "github.com/gridmud/server/internal/core/system"
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/handler"
	"github.com/gridmud/server/internal/nav"
	gonet "github.com/gridmud/server/internal/net"
	"github.com/gridmud/server/internal/net/proto"
	"github.com/gridmud/server/internal/persist"
	"github.com/gridmud/server/internal/scripting"
	"github.com/gridmud/server/internal/system"
	"github.com/gridmud/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName, bind string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             gridmud  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      persistent grid world · Go           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(%s)\033[0m\n\n", serverName, bind)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	explicit := false
	if p := os.Getenv("GRIDMUD_CONFIG"); p != "" {
		cfgPath = p
		explicit = true
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		// No file at the default path: run on built-in defaults.
		cfg = config.Default()
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.Bind)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL connected")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")
	fmt.Println()

	// 4. Create repositories
	worldRepo := persist.NewWorldRepo(db)
	charRepo := persist.NewCharacterRepo(db)
	actorRepo := persist.NewActorRepo(db)
	invRepo := persist.NewInventoryRepo(db)
	prodRepo := persist.NewProductionRepo(db)

	// 5. Load world data
	printSection("world data")

	maps, err := worldRepo.LoadMaps(ctx)
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	rooms, err := worldRepo.LoadRooms(ctx)
	if err != nil {
		return fmt.Errorf("load rooms: %w", err)
	}
	topo, err := data.NewTopology(maps, rooms)
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}
	printStat("maps", topo.MapCount())
	printStat("rooms", topo.RoomCount())
	printStat("portals", topo.PortalCount())

	worldState := world.NewState(log)

	actors := world.NewActors()
	actorCount, err := loadActors(ctx, actors, actorRepo, topo, log)
	if err != nil {
		return fmt.Errorf("load actors: %w", err)
	}
	printStat("actors", actorCount)

	// Ground piles saved by the last run go back on the floors. The
	// table does not keep remaining TTLs, so restored piles restart
	// their decay clock.
	ttlTicks := 0
	if cfg.World.GroundTTLSec > 0 && cfg.Network.TickMS > 0 {
		ttlTicks = cfg.World.GroundTTLSec * 1000 / cfg.Network.TickMS
	}
	groundCount, err := restoreGround(ctx, worldState, invRepo, ttlTicks)
	if err != nil {
		return fmt.Errorf("restore ground: %w", err)
	}
	printStat("ground stacks", groundCount)

	luaEngine, err := scripting.NewEngine(cfg.World.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua scripts loaded")
	fmt.Println()

	// 6. Event bus, routes, handler registry
	bus := event.NewBus()
	wireEvents(bus, worldState, log)

	routes := nav.NewTable()

	deps := &handler.Deps{
		Config:    cfg,
		Log:       log,
		Topology:  topo,
		World:     worldState,
		Actors:    actors,
		Routes:    routes,
		Bus:       bus,
		Scripting: luaEngine,

		CharRepo:      charRepo,
		ActorRepo:     actorRepo,
		InventoryRepo: invRepo,
	}
	reg := proto.NewRegistry(log)
	handler.RegisterAll(reg, deps)

	// 7. Network server
	netServer := gonet.NewServer(cfg.Server.Bind, gonet.SessionOptions{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		MsgsPerSec:   cfg.RateLimit.MsgsPerSec,
		WriteTimeout: time.Duration(cfg.Network.WriteTimeoutSec) * time.Second,
		ReadLimit:    int64(cfg.Network.ReadLimit),
	}, log)
	serveErr := make(chan error, 1)
	go func() { serveErr <- netServer.ListenAndServe() }()

	// 8. Create systems and register with runner
	store := gonet.NewSessionStore()
	queue := system.NewProductionQueue()

	saveTicks := 1
	if cfg.World.SaveIntervalSec > 0 && cfg.Network.TickMS > 0 {
		saveTicks = cfg.World.SaveIntervalSec * 1000 / cfg.Network.TickMS
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, reg, store, cfg.Network.MaxMsgsPerTick, worldState, routes, bus, charRepo, log))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewActorCycleSystem(deps, queue))
	runner.Register(system.NewRouteSystem(deps, store))
	runner.Register(system.NewGroundExpirySystem(worldState))
	runner.Register(system.NewOutputSystem(store))
	persistSys := system.NewPersistenceSystem(worldState, charRepo, invRepo, prodRepo, queue, log, saveTicks)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(routes))

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tickInterval := cfg.TickInterval()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	// Input is polled between full ticks so a client message never
	// waits out the whole tick interval before it is handled.
	const inputPollInterval = 5 * time.Millisecond
	inputPoll := time.NewTicker(inputPollInterval)
	defer inputPoll.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", cfg.Server.Bind))
	printReady(fmt.Sprintf("game loop started (tick: %s)", tickInterval))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(tickInterval)
		case <-inputPoll.C:
			runner.TickPhase(coresys.PhaseInput, inputPollInterval)
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("net server: %w", err)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			persistSys.Flush()
			saveAllCharacters(worldState, charRepo, log)
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			netServer.Shutdown(sctx)
			scancel()
			log.Info("server stopped")
			return nil
		}
	}
}

// loadActors pulls every active actor instance into the in-memory registry.
// Instances placed in rooms the topology does not know are skipped with a
// warning rather than failing the boot.
func loadActors(ctx context.Context, actors *world.Actors, actorRepo *persist.ActorRepo, topo *data.Topology, log *zap.Logger) (int, error) {
	rows, err := actorRepo.LoadActive(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, row := range rows {
		if topo.RoomByID(row.RoomID) == nil {
			log.Warn("actor placed in unknown room",
				zap.Int64("actor", row.ID),
				zap.String("name", row.Name),
				zap.Int32("room", row.RoomID))
			continue
		}
		actors.Add(&world.ActorInfo{
			ID:           row.ID,
			ArchetypeID:  row.ArchetypeID,
			Name:         row.Name,
			Description:  row.Description,
			Behavior:     row.Behavior,
			Config:       row.Config,
			RoomID:       row.RoomID,
			Slot:         row.Slot,
			State:        row.State,
			LastCycleRun: row.LastCycleRun,
		})
		count++
	}
	return count, nil
}

// restoreGround seeds the floors from the saved room containers.
func restoreGround(ctx context.Context, ws *world.State, invRepo *persist.InventoryRepo, ttlTicks int) (int, error) {
	containers, err := invRepo.LoadRoomContainers(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for roomID, rows := range containers {
		stacks := make([]world.GroundStack, 0, len(rows))
		for _, row := range rows {
			stacks = append(stacks, world.GroundStack{Item: row.ItemName, Qty: row.Qty, TTL: ttlTicks})
		}
		ws.SeedGround(roomID, stacks)
		total += len(stacks)
	}
	return total, nil
}

// wireEvents registers the debug audit trail. Handlers own the user-facing
// logs; this is the one place that sees every event the loop emits.
func wireEvents(bus *event.Bus, ws *world.State, log *zap.Logger) {
	event.Subscribe(bus, func(ev event.PresenceJoined) {
		log.Debug("event: presence joined",
			zap.String("identity", ev.Identity),
			zap.Int32("room", ev.RoomID),
			zap.Int("online", ws.OnlineCount()))
	})
	event.Subscribe(bus, func(ev event.PresenceLeft) {
		log.Debug("event: presence left",
			zap.String("identity", ev.Identity),
			zap.Int32("room", ev.RoomID),
			zap.Int("online", ws.OnlineCount()))
	})
	event.Subscribe(bus, func(ev event.CharacterMoved) {
		log.Debug("event: moved",
			zap.String("identity", ev.Identity),
			zap.Int32("from", ev.FromRoom),
			zap.Int32("to", ev.ToRoom),
			zap.String("direction", ev.Direction.Name()))
	})
	event.Subscribe(bus, func(ev event.ItemsProduced) {
		log.Debug("event: production",
			zap.Int64("actor", ev.ActorID),
			zap.String("item", ev.Item),
			zap.Int64("qty", ev.Qty),
			zap.Int32("room", ev.RoomID))
	})
	event.Subscribe(bus, func(ev event.ActorMoved) {
		log.Debug("event: actor moved",
			zap.Int64("actor", ev.ActorID),
			zap.Int32("from", ev.FromRoom),
			zap.Int32("to", ev.ToRoom))
	})
}

// saveAllCharacters persists every online character's position on shutdown.
// The periodic sweep only writes dirty entries; here everyone goes out.
func saveAllCharacters(ws *world.State, charRepo *persist.CharacterRepo, log *zap.Logger) {
	entries := ws.Entries()
	if len(entries) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	positions := make(map[string]int32, len(entries))
	for _, e := range entries {
		positions[e.Identity] = e.RoomID
	}
	if err := charRepo.SaveRooms(ctx, positions); err != nil {
		log.Error("shutdown character save failed", zap.Error(err))
		return
	}
	for _, e := range entries {
		if err := charRepo.TouchLastSeen(ctx, e.Identity); err != nil {
			log.Error("shutdown last-seen touch failed", zap.String("identity", e.Identity), zap.Error(err))
		}
	}
	log.Info("characters saved", zap.Int("count", len(entries)))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
