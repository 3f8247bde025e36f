package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/obsio"
	"github.com/quakelab/ddlocate/internal/relocate"
	"github.com/quakelab/ddlocate/internal/report"
	"github.com/quakelab/ddlocate/internal/store"
)

var (
	locateEvents  string
	locateObs     string
	locateLabel   string
	locateGeoJSON string
	locateNoStore bool
	locateTrace   bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Relocate a single doublet",
	Long: `Relocate one slave event relative to its master.

The events file is a CSV (time,latitude,longitude,depth,magnitude) whose
first row is the master event; a second row, when present, records the
catalog slave location for comparison. Observations are a whitespace table
as produced by "ddlocate synth" or the upstream cross-correlation stage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		events, err := obsio.ReadEventsFile(locateEvents)
		if err != nil {
			return err
		}
		master := events[0]

		obs, err := obsio.ReadObsFile(locateObs)
		if err != nil {
			return err
		}

		mdl, err := buildModel()
		if err != nil {
			return err
		}

		opts := solverOptions()
		if locateTrace {
			opts.OnIteration = func(ts model.TrialState) {
				zap.L().Info("iteration",
					zap.Int("n", ts.Iteration),
					zap.Float64("cost", ts.Cost),
					zap.String("offset", ts.Offset.String()),
				)
			}
		}
		solver, err := relocate.New(master, mdl, opts)
		if err != nil {
			return err
		}

		doublet := model.Doublet{Master: master, Label: locateLabel}
		if len(events) > 1 {
			doublet.Slave = &events[1]
		}

		var st store.Store
		var runID string
		if !locateNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
			run, err := st.CreateRun(ctx, doublet)
			if err != nil {
				return err
			}
			runID = run.ID
			if err := st.UpdateRunStatus(ctx, runID, model.RunStatusRunning); err != nil {
				return err
			}
		}

		sol, solveErr := solver.Solve(obs)
		if st != nil {
			msg := ""
			if solveErr != nil {
				msg = solveErr.Error()
			}
			if err := st.UpdateRunSolution(ctx, runID, sol, msg); err != nil {
				zap.L().Error("store run solution", zap.Error(err))
			}
		}
		if solveErr != nil {
			return solveErr
		}
		return printSolution(master, doublet, obs, sol)
	},
}

// printSolution logs the headline numbers, writes the optional GeoJSON
// report, and prints the full solution JSON to stdout.
func printSolution(master model.Event, doublet model.Doublet, obs *model.ObservationSet, sol *model.Solution) error {
	relocated := sol.ToEvent(master)
	fields := []zap.Field{
		zap.String("status", string(sol.Status)),
		zap.Int("iterations", sol.Iterations),
		zap.Float64("rms", sol.RMS),
		zap.String("offset", sol.Offset.String()),
		zap.Float64("latitude", relocated.Latitude),
		zap.Float64("longitude", relocated.Longitude),
		zap.Float64("depth_km", relocated.DepthKm),
	}
	if doublet.Slave != nil {
		fields = append(fields,
			zap.Float64("catalog_latitude", doublet.Slave.Latitude),
			zap.Float64("catalog_longitude", doublet.Slave.Longitude),
		)
	}
	zap.L().Info("relocation complete", fields...)

	if locateGeoJSON != "" {
		if err := report.GeoJSONFile(locateGeoJSON, master, obs, sol); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sol)
}

func init() {
	f := locateCmd.Flags()
	f.StringVar(&locateEvents, "events", "", "events CSV file, master first (required)")
	f.StringVar(&locateObs, "obs", "", "observation table (required)")
	f.StringVar(&locateLabel, "label", "", "run label for the catalog")
	f.StringVar(&locateGeoJSON, "geojson", "", "write a GeoJSON report to this path")
	f.BoolVar(&locateNoStore, "no-store", false, "skip the run catalog")
	f.BoolVar(&locateTrace, "trace", false, "log every solver iteration")
	_ = locateCmd.MarkFlagRequired("events")
	_ = locateCmd.MarkFlagRequired("obs")
	rootCmd.AddCommand(locateCmd)
}
