// worldimport loads a YAML world seed into PostgreSQL.
//
// The seed file carries maps, rooms, actor archetypes and actor placements
// in one document. Everything is validated before anything is written: the
// rooms must form a topology the server would accept at boot, and every
// actor must stand in a room that exists.
//
// Usage:
//
//	go run ./cmd/worldimport -seed seed/world.yaml [-wipe]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gridmud/server/internal/config"
	"github.com/gridmud/server/internal/data"
	"github.com/gridmud/server/internal/direction"
	"github.com/gridmud/server/internal/persist"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML structures
// ---------------------------------------------------------------------------

type seedFile struct {
	Maps       []seedMap       `yaml:"maps"`
	Rooms      []seedRoom      `yaml:"rooms"`
	Archetypes []seedArchetype `yaml:"archetypes"`
	Actors     []seedActor     `yaml:"actors"`
}

type seedMap struct {
	ID          int32  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// seedRoom references its map by name. Room ids are assigned in file order,
// so a re-import of the same file hits the same ids.
type seedRoom struct {
	Map         string      `yaml:"map"`
	X           int32       `yaml:"x"`
	Y           int32       `yaml:"y"`
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Portal      *seedPortal `yaml:"portal"`
}

type seedPortal struct {
	Direction string `yaml:"direction"`
	Map       string `yaml:"map"`
	X         int32  `yaml:"x"`
	Y         int32  `yaml:"y"`
}

type seedArchetype struct {
	ID          int32          `yaml:"id"`
	Name        string         `yaml:"name"`
	Behavior    string         `yaml:"behavior"`
	Description string         `yaml:"description"`
	Config      map[string]any `yaml:"config"`
}

type seedActor struct {
	Archetype string         `yaml:"archetype"`
	Map       string         `yaml:"map"`
	X         int32          `yaml:"x"`
	Y         int32          `yaml:"y"`
	Slot      int16          `yaml:"slot"`
	State     map[string]any `yaml:"state"`
}

// knownBehaviors are the tags the cycle scheduler dispatches on. Unknown
// tags still run (they only count cycles), so they warn instead of failing.
var knownBehaviors = map[string]bool{
	"rhythm":    true,
	"stability": true,
	"worker":    true,
	"farm":      true,
	"patrol":    true,
	"threshold": true,
	"machine":   true,
	"narrative": true,
	"scripted":  true,
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	seedPath := flag.String("seed", "seed/world.yaml", "world seed YAML file")
	cfgPath := flag.String("config", "config/server.toml", "server config for the database DSN")
	wipe := flag.Bool("wipe", false, "clear existing world tables before importing")
	flag.Parse()

	if err := run(*seedPath, *cfgPath, *wipe); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(seedPath, cfgPath string, wipe bool) error {
	// ---- Read & parse seed ----
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}

	maps, rooms, topo, err := buildWorld(&seed)
	if err != nil {
		return err
	}
	archetypes, instances, err := buildActors(&seed, topo)
	if err != nil {
		return err
	}

	// ---- Connect & write ----
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	worldRepo := persist.NewWorldRepo(db)
	if err := worldRepo.Import(ctx, maps, rooms, wipe); err != nil {
		return fmt.Errorf("import world: %w", err)
	}
	fmt.Printf("Imported %d maps, %d rooms (%d portals)\n",
		topo.MapCount(), topo.RoomCount(), topo.PortalCount())

	if len(archetypes) > 0 || len(instances) > 0 {
		actorRepo := persist.NewActorRepo(db)
		if err := actorRepo.Import(ctx, archetypes, instances); err != nil {
			return fmt.Errorf("import actors: %w", err)
		}
		fmt.Printf("Imported %d archetypes, %d actors\n", len(archetypes), len(instances))
	}

	mapCount, roomCount, err := worldRepo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	fmt.Printf("Database now holds %d maps, %d rooms\n", mapCount, roomCount)
	return nil
}

// loadConfig mirrors the server's lookup: explicit flag, then GRIDMUD_CONFIG,
// then built-in defaults when the default path has no file.
func loadConfig(path string) (*config.Config, error) {
	if p := os.Getenv("GRIDMUD_CONFIG"); p != "" && path == "config/server.toml" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildWorld turns the seed into the rows the repo writes, running them
// through the same topology constructor the server boots with so a seed
// that imports cleanly is a seed the server will accept.
func buildWorld(seed *seedFile) ([]data.Map, []data.Room, *data.Topology, error) {
	if len(seed.Maps) == 0 {
		return nil, nil, nil, fmt.Errorf("seed has no maps")
	}

	maps := make([]data.Map, 0, len(seed.Maps))
	mapIDs := make(map[string]int32, len(seed.Maps))
	for _, sm := range seed.Maps {
		if sm.Name == "" {
			return nil, nil, nil, fmt.Errorf("map %d has no name", sm.ID)
		}
		maps = append(maps, data.Map{ID: sm.ID, Name: sm.Name, Description: sm.Description})
		mapIDs[sm.Name] = sm.ID
	}

	rooms := make([]data.Room, 0, len(seed.Rooms))
	for i, sr := range seed.Rooms {
		mapID, ok := mapIDs[sr.Map]
		if !ok {
			return nil, nil, nil, fmt.Errorf("room %q at (%d,%d): unknown map %q", sr.Title, sr.X, sr.Y, sr.Map)
		}
		room := data.Room{
			ID:          int32(i + 1),
			MapID:       mapID,
			X:           sr.X,
			Y:           sr.Y,
			Title:       sr.Title,
			Description: sr.Description,
		}
		if sp := sr.Portal; sp != nil {
			dir, err := direction.Parse(sp.Direction)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("room %q portal: %w", sr.Title, err)
			}
			targetMap, ok := mapIDs[sp.Map]
			if !ok {
				return nil, nil, nil, fmt.Errorf("room %q portal: unknown map %q", sr.Title, sp.Map)
			}
			room.Portal = &data.Portal{Direction: dir, MapID: targetMap, X: sp.X, Y: sp.Y}
		}
		rooms = append(rooms, room)
	}

	topo, err := data.NewTopology(maps, rooms)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("seed topology: %w", err)
	}

	// Dangling portals are legal (they resolve as walls) but almost always
	// a seed typo, so they get a warning.
	for _, r := range topo.Rooms() {
		if p := r.Portal; p != nil {
			if topo.RoomAt(p.MapID, p.X, p.Y) == nil {
				fmt.Fprintf(os.Stderr, "warning: room %q portal points at map %d (%d,%d), which has no room\n",
					r.Title, p.MapID, p.X, p.Y)
			}
		}
	}

	return maps, rooms, topo, nil
}

// buildActors resolves archetype names and room positions into rows.
func buildActors(seed *seedFile, topo *data.Topology) ([]persist.ArchetypeRow, []persist.InstanceSeed, error) {
	archetypes := make([]persist.ArchetypeRow, 0, len(seed.Archetypes))
	archIDs := make(map[string]int32, len(seed.Archetypes))
	for _, sa := range seed.Archetypes {
		if sa.Name == "" {
			return nil, nil, fmt.Errorf("archetype %d has no name", sa.ID)
		}
		if _, dup := archIDs[sa.Name]; dup {
			return nil, nil, fmt.Errorf("duplicate archetype name %q", sa.Name)
		}
		if !knownBehaviors[sa.Behavior] {
			fmt.Fprintf(os.Stderr, "warning: archetype %q has unknown behavior %q (its cycles will only count)\n",
				sa.Name, sa.Behavior)
		}
		archetypes = append(archetypes, persist.ArchetypeRow{
			ID:          sa.ID,
			Name:        sa.Name,
			Behavior:    sa.Behavior,
			Description: sa.Description,
			Config:      sa.Config,
		})
		archIDs[sa.Name] = sa.ID
	}

	instances := make([]persist.InstanceSeed, 0, len(seed.Actors))
	for _, sa := range seed.Actors {
		archID, ok := archIDs[sa.Archetype]
		if !ok {
			return nil, nil, fmt.Errorf("actor references unknown archetype %q", sa.Archetype)
		}
		m := topo.MapByName(sa.Map)
		if m == nil {
			return nil, nil, fmt.Errorf("actor %q placed on unknown map %q", sa.Archetype, sa.Map)
		}
		room := topo.RoomAt(m.ID, sa.X, sa.Y)
		if room == nil {
			return nil, nil, fmt.Errorf("actor %q placed at map %q (%d,%d), which has no room",
				sa.Archetype, sa.Map, sa.X, sa.Y)
		}
		instances = append(instances, persist.InstanceSeed{
			ArchetypeID: archID,
			RoomID:      room.ID,
			Slot:        sa.Slot,
			State:       sa.State,
		})
	}

	return archetypes, instances, nil
}
