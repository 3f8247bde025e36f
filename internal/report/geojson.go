// Package report converts relocation results into the formats consumed by
// downstream plotting and review tools.
package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/quakelab/ddlocate/internal/model"
)

func pointFeature(id string, lon, lat float64, props map[string]any) *geojson.Feature {
	return &geojson.Feature{
		ID:         id,
		Geometry:   geom.NewPointFlat(geom.XY, []float64{lon, lat}),
		Properties: props,
	}
}

// GeoJSON writes a FeatureCollection with the master event, the relocated
// slave event and every observed station annotated with its final
// residual, for map-based inspection of the solution.
func GeoJSON(w io.Writer, master model.Event, obs *model.ObservationSet, sol *model.Solution) error {
	relocated := sol.ToEvent(master)

	features := []*geojson.Feature{
		pointFeature("master", master.Longitude, master.Latitude, map[string]any{
			"role":     "master",
			"event_id": master.ID(),
			"depth_km": master.DepthKm,
		}),
		pointFeature("slave", relocated.Longitude, relocated.Latitude, map[string]any{
			"role":      "slave",
			"event_id":  relocated.ID(),
			"depth_km":  relocated.DepthKm,
			"converged": sol.Converged,
			"status":    string(sol.Status),
			"rms":       sol.RMS,
		}),
	}

	for _, r := range sol.Residuals {
		o, ok := obs.Get(r.Station, r.Phase)
		if !ok {
			continue
		}
		props := map[string]any{
			"role":     "station",
			"station":  r.Station,
			"phase":    r.Phase,
			"residual": r.Value,
			"weight":   r.Weight,
			"excluded": r.Excluded,
		}
		if r.Reason != "" {
			props["reason"] = r.Reason
		}
		features = append(features,
			pointFeature("station/"+r.Station+"/"+r.Phase, o.Station.Longitude, o.Station.Latitude, props))
	}

	fc := &geojson.FeatureCollection{Features: features}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "report: encode geojson")
	}
	return nil
}

// GeoJSONFile writes the GeoJSON report to a file.
func GeoJSONFile(path string, master model.Event, obs *model.ObservationSet, sol *model.Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()
	if err := GeoJSON(f, master, obs, sol); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}
