package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sniperleonid/Calc-sub001/internal/cache"
	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/internal/influx"
	"github.com/sniperleonid/Calc-sub001/internal/logging"
	"github.com/sniperleonid/Calc-sub001/internal/solver"
	"github.com/sniperleonid/Calc-sub001/internal/storage"
	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/internal/weapons"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// app holds the services shared by every subcommand.
type app struct {
	SessionStart time.Time
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	Solver       *solver.Solver
	Journal      storage.Backend
	Influx       *influx.Manager // nil when disabled
	EPSG         int
	Out          io.Writer

	zlog    zerolog.Logger
	logFile *os.File
}

func newApp(configDir string, start time.Time) (*app, error) {
	a := &app{SessionStart: start, SlogManager: logging.NewSlogManager(), Out: os.Stdout}
	a.SlogManager.Setup(os.Stderr, viper.GetString("logLevel"), nil)
	a.Logger = a.SlogManager.Logger()

	if configDir == "" {
		configDir = "."
	}
	if err := config.Load(configDir); err != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.Logger.Info("Loaded config", "dir", configDir)
	}

	if err := a.initLogging(); err != nil {
		return nil, err
	}
	if err := a.initSolver(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initStorage(); err != nil {
		a.Close()
		return nil, err
	}
	a.initInflux(context.Background())
	a.EPSG = config.GetInt("theatre.epsg")
	return a, nil
}

func (a *app) initLogging() error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, "firecalc", a.SessionStart)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	a.logFile = f

	var gelfWriter io.Writer
	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGELFWriter(config.GetString("graylog.address"))
		if err != nil {
			a.Logger.Warn("Failed to create GELF writer", "error", err)
		} else {
			gelfWriter = w
		}
	}
	a.SlogManager.Setup(f, config.GetString("logLevel"), gelfWriter)
	a.Logger = a.SlogManager.Logger()
	a.zlog = zerolog.New(f).With().Timestamp().Str("component", "storage").Logger()
	return nil
}

func (a *app) initSolver() error {
	cfg := config.GetSolverConfig()
	dataDir := config.GetString("dataDir")

	tableCache := cache.NewTableCache(tables.NewFileLoader(dataDir))
	weaponCache := cache.NewWeaponCache(weapons.NewFileRegistry(filepath.Join(dataDir, "weapons"), tableCache))

	s, err := solver.New(weaponCache, tableCache,
		solver.WithLogger(a.Logger),
		solver.WithSettings(solver.Settings{
			Step:       cfg.Step,
			Horizon:    cfg.Horizon,
			ToleranceM: cfg.Tolerance,
			Mode:       core.SolveMode(cfg.Mode),
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create solver: %w", err)
	}
	a.Solver = s
	return nil
}

// record journals one operation. Journal failures are logged, never fatal.
func (a *app) record(missionID, op string, input, result map[string]any, target *core.Position3D) {
	r := core.JournalRecord{MissionID: missionID, Operation: op, Input: input, Result: result}
	if target != nil {
		if ll, ok := geo.ToWGS84(*target, a.EPSG); ok {
			r.Lon, r.Lat = &ll.Lon, &ll.Lat
		}
	}
	if err := a.Journal.Append(&r); err != nil {
		a.Logger.Error("Failed to journal operation", "operation", op, "error", err)
	}
}

func (a *app) Close() {
	var errs []error
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.Influx != nil {
		errs = append(errs, a.Influx.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Error("Shutdown failed", "error", err)
	}
	_ = a.SlogManager.Close()
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
