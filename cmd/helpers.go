package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/quakelab/ddlocate/internal/relocate"
	"github.com/quakelab/ddlocate/internal/store"
	"github.com/quakelab/ddlocate/internal/traveltime"
)

// initStore opens the configured run-catalog backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	}
	return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// buildModel constructs the configured travel-time model: a layered YAML
// model when a path is set, otherwise a uniform half-space.
func buildModel() (traveltime.Model, error) {
	if cfg.Model.Path != "" {
		return traveltime.LoadLayered(cfg.Model.Path)
	}
	return traveltime.NewHalfSpace(cfg.Model.Vp, cfg.Model.Vs)
}

// solverOptions maps the configuration onto relocate.Options.
func solverOptions() relocate.Options {
	return relocate.Options{
		Tolerance:        cfg.Solver.Tolerance,
		MaxIterations:    cfg.Solver.MaxIterations,
		Damping:          cfg.Solver.Damping,
		DampingFactor:    cfg.Solver.DampingFactor,
		MaxDamping:       cfg.Solver.MaxDamping,
		DivergenceLimit:  cfg.Solver.DivergenceLimit,
		MinStationDistKm: cfg.Solver.MinStationDistKm,
		RejectOutliers:   cfg.Solver.RejectOutliers,
		OutlierThreshold: cfg.Solver.OutlierThreshold,
	}
}
