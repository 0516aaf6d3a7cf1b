package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/influx"
	"github.com/sniperleonid/Calc-sub001/internal/storage"
)

func (a *app) initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, a.zlog)
	if err != nil {
		a.Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		a.Logger.Error("Failed to initialize storage backend", "error", err)
		return fmt.Errorf("storage %s: %w", storageCfg.Type, err)
	}
	a.Journal = backend
	a.Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

// initInflux connects the solution exporter. A disabled or failed exporter
// leaves a.Influx nil.
func (a *app) initInflux(ctx context.Context) {
	backup := filepath.Join(
		config.GetString("logsDir"),
		fmt.Sprintf("fire_solutions.%s.lp.gz", a.SessionStart.Format("20060102_150405")),
	)
	m := influx.NewManager(a.zlog, backup)
	err := m.Connect(ctx, config.GetInfluxConfig())
	switch {
	case errors.Is(err, influx.ErrDisabled):
		a.Logger.Debug("InfluxDB export disabled")
	case err != nil:
		a.Logger.Warn("Failed to start InfluxDB export", "error", err)
	default:
		a.Influx = m
		a.Logger.Info("InfluxDB export ready", "online", m.IsValid)
	}
}
