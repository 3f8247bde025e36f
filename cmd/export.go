package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quakelab/ddlocate/internal/model"
	"github.com/quakelab/ddlocate/internal/obsio"
	"github.com/quakelab/ddlocate/internal/report"
	"github.com/quakelab/ddlocate/internal/store"
)

var (
	exportRun     string
	exportStatus  string
	exportLabel   string
	exportLimit   int
	exportGeoJSON string
	exportXLSX    string
	exportObs     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted runs as GeoJSON or XLSX",
	Long: `Export runs already recorded in the catalog, without re-solving.

--xlsx writes a solution summary workbook for the selected runs, either a
single run (--run) or every run matching the filters. --geojson writes a
map report for a single run and needs the original observation table
(--obs) to place the stations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportGeoJSON == "" && exportXLSX == "" {
			return eris.New("nothing to export: set --geojson and/or --xlsx")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var runs []model.Run
		if exportRun != "" {
			run, err := st.GetRun(ctx, exportRun)
			if err != nil {
				return err
			}
			runs = []model.Run{*run}
		} else {
			runs, err = st.ListRuns(ctx, store.RunFilter{
				Status: model.RunStatus(exportStatus),
				Label:  exportLabel,
				Limit:  exportLimit,
			})
			if err != nil {
				return err
			}
		}

		if exportXLSX != "" {
			entries := exportableEntries(runs)
			if len(entries) == 0 {
				return eris.New("no solved runs to export")
			}
			if err := report.XLSXFile(exportXLSX, entries); err != nil {
				return err
			}
			zap.L().Info("xlsx report written",
				zap.String("path", exportXLSX),
				zap.Int("runs", len(entries)),
			)
		}

		if exportGeoJSON != "" {
			if exportRun == "" {
				return eris.New("--geojson exports a single run: set --run")
			}
			if exportObs == "" {
				return eris.New("--geojson needs the observation table: set --obs")
			}
			run := runs[0]
			if run.Solution == nil {
				return eris.Errorf("run %s has no solution (status %s)", run.ID, run.Status)
			}
			obs, err := obsio.ReadObsFile(exportObs)
			if err != nil {
				return err
			}
			if err := report.GeoJSONFile(exportGeoJSON, run.Doublet.Master, obs, run.Solution); err != nil {
				return err
			}
			zap.L().Info("geojson report written",
				zap.String("path", exportGeoJSON),
				zap.String("run", run.ID),
			)
		}
		return nil
	},
}

// exportableEntries keeps the runs that carry a solution, in listing order.
func exportableEntries(runs []model.Run) []report.Entry {
	var entries []report.Entry
	for i := range runs {
		r := &runs[i]
		if r.Solution == nil {
			continue
		}
		entries = append(entries, report.Entry{
			Label:    r.Doublet.Label,
			Master:   r.Doublet.Master,
			Solution: r.Solution,
		})
	}
	return entries
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportRun, "run", "", "export a single run by id")
	f.StringVar(&exportStatus, "status", "", "filter by status when listing")
	f.StringVar(&exportLabel, "label", "", "filter by label when listing")
	f.IntVar(&exportLimit, "limit", 0, "maximum runs to export (0 = no limit)")
	f.StringVar(&exportGeoJSON, "geojson", "", "write a GeoJSON report to this path")
	f.StringVar(&exportXLSX, "xlsx", "", "write an XLSX summary to this path")
	f.StringVar(&exportObs, "obs", "", "observation table for the GeoJSON station layer")
	rootCmd.AddCommand(exportCmd)
}
