package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/zkplatoon/platoon/internal/config"
	"github.com/zkplatoon/platoon/internal/database"
	"github.com/zkplatoon/platoon/internal/fault"
	"github.com/zkplatoon/platoon/internal/influx"
	"github.com/zkplatoon/platoon/internal/neighbors"
	"github.com/zkplatoon/platoon/internal/recorder"
	"github.com/zkplatoon/platoon/internal/shuffle"
	"github.com/zkplatoon/platoon/internal/simulation"
	"github.com/zkplatoon/platoon/pkg/core"
)

func createNeighborStore(cfg config.NeighborsConfig) (neighbors.Store, func(), error) {
	switch cfg.Type {
	case "memory", "":
		Logger.Info("Memory neighbor store initialized")
		return neighbors.NewMemoryStore(), func() {}, nil

	case database.KindSqlite, database.KindPostgres:
		dbManager := database.NewManager(SlogManager.Zerolog("database"))
		dbManager.SqliteFilePath = cfg.SQLite.Path

		db := config.GetDBConfig()
		err := dbManager.Open(cfg.Type, database.PostgresConfig{
			Host:     db.Host,
			Port:     db.Port,
			Username: db.Username,
			Password: db.Password,
			Database: db.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := dbManager.Setup(neighbors.Models()...); err != nil {
			_ = dbManager.Close()
			return nil, nil, err
		}

		closeFn := func() {
			if dbManager.ShouldSaveLocal && cfg.SQLite.DumpPath != "" {
				if err := dbManager.DumpMemoryToDisk(cfg.SQLite.DumpPath); err != nil {
					Logger.Warn("Failed to dump neighbor DB", "path", cfg.SQLite.DumpPath, "error", err)
				} else {
					Logger.Info("Neighbor DB dumped", "path", cfg.SQLite.DumpPath)
				}
			}
			if err := dbManager.Close(); err != nil {
				Logger.Warn("Failed to close neighbor DB", "error", err)
			}
		}
		Logger.Info("Database neighbor store initialized", "type", cfg.Type, "sqlite", dbManager.ShouldSaveLocal)
		return neighbors.NewGormStore(dbManager.DB), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown neighbor store type: %s", cfg.Type)
	}
}

func createController(cfg config.SimulationConfig, key string, store neighbors.Store) (*simulation.Controller, error) {
	strategy, err := neighbors.Strategy(cfg.NeighborStrategy)
	if err != nil {
		return nil, err
	}
	schedule, err := parseFaultSchedule(cfg.FaultSchedule)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	shuffler := shuffle.New(store,
		shuffle.WithRand(rand.New(rand.NewPCG(seed, seed))),
		shuffle.WithNeighborFunc(strategy),
		shuffle.WithKey(key),
		shuffle.WithLogger(Logger.With("component", "shuffle")),
	)

	ctrl, err := simulation.New(simulation.Dependencies{
		Injector: fault.NewInjector(schedule),
		Shuffler: shuffler,
		Logger:   Logger.With("component", "simulation"),
		Seed:     seed,
	}, cfg.TickInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	Logger.Info("Simulation initialized",
		"tickInterval", ctrl.Interval(),
		"strategy", cfg.NeighborStrategy,
		"faultSchedule", cfg.FaultSchedule,
		"seed", seed)
	return ctrl, nil
}

// parseFaultSchedule maps truck names to identities. An empty list keeps
// the default schedule.
func parseFaultSchedule(names []string) (fault.Schedule, error) {
	schedule := make(fault.Schedule, 0, len(names))
	for _, name := range names {
		id, ok := core.ParseEntityID(strings.ToUpper(strings.TrimSpace(name)))
		if !ok {
			return nil, fmt.Errorf("unknown truck in fault schedule: %q", name)
		}
		schedule = append(schedule, id)
	}
	return schedule, nil
}

func createRecorderBackend(rc config.RecorderConfig, ic config.InfluxConfig) (recorder.Backend, error) {
	backend, err := recorder.NewBackend(rc, Logger.With("component", "recorder"))
	if err != nil {
		return nil, err
	}
	Logger.Info("Recorder backend initialized", "type", rc.Type)

	if !ic.Enabled {
		return backend, nil
	}
	ib := recorder.NewInfluxBackend(influx.NewManager(SlogManager.Zerolog("influx"), ic))
	Logger.Info("InfluxDB recorder enabled", "host", ic.Host, "bucket", ic.Bucket)
	return recorder.Multi{backend, ib}, nil
}
