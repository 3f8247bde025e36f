package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/quakelab/ddlocate/internal/model"
)

// Entry pairs one relocated doublet with its solution for export.
type Entry struct {
	Label    string
	Master   model.Event
	Solution *model.Solution
}

// XLSXFile writes a workbook with one summary row per solution and a
// residual sheet, for spreadsheet-based review of batch results.
func XLSXFile(path string, entries []Entry) error {
	f := xlsx.NewFile()

	sum, err := f.AddSheet("solutions")
	if err != nil {
		return eris.Wrap(err, "report: add solutions sheet")
	}
	header := sum.AddRow()
	for _, h := range []string{
		"label", "status", "converged", "iterations", "rms",
		"dx_km", "dy_km", "dz_km", "dt_sec",
		"latitude", "longitude", "depth_km", "used", "excluded",
	} {
		header.AddCell().Value = h
	}

	res, err := f.AddSheet("residuals")
	if err != nil {
		return eris.Wrap(err, "report: add residuals sheet")
	}
	resHeader := res.AddRow()
	for _, h := range []string{
		"label", "station", "phase", "weight", "observed", "predicted", "residual", "excluded", "reason",
	} {
		resHeader.AddCell().Value = h
	}

	for _, e := range entries {
		sol := e.Solution
		ev := sol.ToEvent(e.Master)
		row := sum.AddRow()
		row.AddCell().Value = e.Label
		row.AddCell().Value = string(sol.Status)
		row.AddCell().SetBool(sol.Converged)
		row.AddCell().SetInt(sol.Iterations)
		row.AddCell().SetFloat(sol.RMS)
		row.AddCell().SetFloat(sol.Offset.DxKm)
		row.AddCell().SetFloat(sol.Offset.DyKm)
		row.AddCell().SetFloat(sol.Offset.DzKm)
		row.AddCell().SetFloat(sol.Offset.DtSec)
		row.AddCell().SetFloat(ev.Latitude)
		row.AddCell().SetFloat(ev.Longitude)
		row.AddCell().SetFloat(ev.DepthKm)
		row.AddCell().SetInt(sol.Used)
		row.AddCell().SetInt(sol.Excluded)

		for _, r := range sol.Residuals {
			rr := res.AddRow()
			rr.AddCell().Value = e.Label
			rr.AddCell().Value = r.Station
			rr.AddCell().Value = r.Phase
			rr.AddCell().SetFloat(r.Weight)
			rr.AddCell().SetFloat(r.Observed)
			rr.AddCell().SetFloat(r.Predicted)
			rr.AddCell().SetFloat(r.Value)
			rr.AddCell().SetBool(r.Excluded)
			rr.AddCell().Value = r.Reason
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}
