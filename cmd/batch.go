package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/obsio"
	"github.com/quakelab/ddlocate/internal/relocate"
	"github.com/quakelab/ddlocate/internal/report"
	"github.com/quakelab/ddlocate/internal/store"
	"github.com/quakelab/ddlocate/internal/traveltime"
)

var (
	batchManifest string
	batchXLSX     string
	batchWorkers  int
)

// manifestEntry is one line of the batch manifest: label, events CSV and
// observation table paths.
type manifestEntry struct {
	Label      string
	EventsPath string
	ObsPath    string
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Relocate a batch of doublets in parallel",
	Long: `Relocate many independent doublets concurrently.

The manifest is a whitespace table with one doublet per line:

	label events_file obs_file

Each doublet is solved by its own solver instance; all of them share one
immutable travel-time model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		entries, err := readManifest(batchManifest)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return eris.New("empty manifest")
		}

		mdl, err := buildModel()
		if err != nil {
			return err
		}
		opts := solverOptions()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		workers := batchWorkers
		if workers <= 0 {
			workers = cfg.Batch.MaxConcurrentDoublets
		}

		var mu sync.Mutex
		var exported []report.Entry
		failed := 0

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, e := range entries {
			g.Go(func() error {
				sol, master, err := relocateOne(gctx, e, mdl, opts, st)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed++
					zap.L().Error("doublet failed", zap.String("label", e.Label), zap.Error(err))
					return nil // keep going; failures are recorded in the catalog
				}
				exported = append(exported, report.Entry{Label: e.Label, Master: master, Solution: sol})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("total", len(entries)),
			zap.Int("succeeded", len(exported)),
			zap.Int("failed", failed),
		)

		if batchXLSX != "" && len(exported) > 0 {
			if err := report.XLSXFile(batchXLSX, exported); err != nil {
				return err
			}
			zap.L().Info("xlsx report written", zap.String("path", batchXLSX))
		}
		return nil
	},
}

// relocateOne runs a single manifest entry end to end, recording the
// outcome in the run catalog.
func relocateOne(ctx context.Context, e manifestEntry, mdl traveltime.Model, opts relocate.Options, st store.Store) (*model.Solution, model.Event, error) {
	events, err := obsio.ReadEventsFile(e.EventsPath)
	if err != nil {
		return nil, model.Event{}, err
	}
	master := events[0]

	obs, err := obsio.ReadObsFile(e.ObsPath)
	if err != nil {
		return nil, master, err
	}

	doublet := model.Doublet{Master: master, Label: e.Label}
	if len(events) > 1 {
		doublet.Slave = &events[1]
	}

	run, err := st.CreateRun(ctx, doublet)
	if err != nil {
		return nil, master, err
	}
	if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return nil, master, err
	}

	solver, err := relocate.New(master, mdl, opts)
	if err != nil {
		_ = st.UpdateRunSolution(ctx, run.ID, nil, err.Error())
		return nil, master, err
	}
	sol, err := solver.Solve(obs)
	if err != nil {
		_ = st.UpdateRunSolution(ctx, run.ID, nil, err.Error())
		return nil, master, err
	}
	if err := st.UpdateRunSolution(ctx, run.ID, sol, ""); err != nil {
		return nil, master, err
	}
	return sol, master, nil
}

// readManifest parses the batch manifest table.
func readManifest(path string) ([]manifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open manifest %s", path)
	}
	defer f.Close()

	var entries []manifestEntry
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, eris.Errorf("manifest line %d: %d fields, want 3", lineNo, len(fields))
		}
		entries = append(entries, manifestEntry{Label: fields[0], EventsPath: fields[1], ObsPath: fields[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "read manifest %s", path)
	}
	return entries, nil
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchManifest, "manifest", "", "batch manifest file (required)")
	f.StringVar(&batchXLSX, "xlsx", "", "write an XLSX summary to this path")
	f.IntVar(&batchWorkers, "workers", 0, "max concurrent doublets (defaults to config)")
	_ = batchCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(batchCmd)
}
