// Package obsio reads and writes the plain-text observation, station and
// event files exchanged with the measurement and reporting stages.
package obsio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quakelab/ddlocate/internal/model"
)

// obsHeader is the column order of an observation table, one observation
// per line, whitespace separated. Lines starting with '#' are comments.
// The trailing sigma column is optional on read; older tables omit it.
var obsHeader = []string{
	"station", "latitude", "longitude", "distance", "azimuth",
	"phase", "time", "dtdd", "dtdh", "dt", "cc", "weight", "sigma",
}

// WriteObs writes observations as a whitespace-separated table.
func WriteObs(w io.Writer, obs []model.Observation) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.Join(obsHeader, " ")); err != nil {
		return eris.Wrap(err, "obsio: write header")
	}
	for _, o := range obs {
		_, err := fmt.Fprintf(bw, "%s %.6f %.6f %.6f %.6f %s %.6f %.6f %.6f %.6f %.6f %.6f %.6f\n",
			o.Station.Name, o.Station.Latitude, o.Station.Longitude,
			o.DistanceDeg, o.AzimuthDeg, o.Phase,
			o.TimeSec, o.DtDd, o.DtDh, o.DiffTime, o.CC, o.Weight, o.Sigma,
		)
		if err != nil {
			return eris.Wrapf(err, "obsio: write observation %s/%s", o.Station.Name, o.Phase)
		}
	}
	return eris.Wrap(bw.Flush(), "obsio: flush")
}

// WriteObsFile writes observations to a file.
func WriteObsFile(path string, obs []model.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "obsio: create %s", path)
	}
	defer f.Close()
	if err := WriteObs(f, obs); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "obsio: close %s", path)
}

// ReadObs parses a whitespace-separated observation table. The header line
// is optional; '#' comments and blank lines are skipped.
func ReadObs(r io.Reader) (*model.ObservationSet, error) {
	set := &model.ObservationSet{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == obsHeader[0] {
			continue
		}
		if len(fields) != len(obsHeader) && len(fields) != len(obsHeader)-1 {
			return nil, eris.Errorf("obsio: line %d: %d fields, want %d or %d",
				lineNo, len(fields), len(obsHeader)-1, len(obsHeader))
		}

		vals := make([]float64, len(obsHeader))
		for i, f := range fields {
			if i == 0 || i == 5 { // station, phase
				continue
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "obsio: line %d column %s", lineNo, obsHeader[i])
			}
			vals[i] = v
		}

		o := model.Observation{
			Station: model.Station{
				Name:      fields[0],
				Latitude:  vals[1],
				Longitude: vals[2],
			},
			DistanceDeg: vals[3],
			AzimuthDeg:  vals[4],
			Phase:       fields[5],
			TimeSec:     vals[6],
			DtDd:        vals[7],
			DtDh:        vals[8],
			DiffTime:    vals[9],
			CC:          vals[10],
			Weight:      vals[11],
			Sigma:       vals[12],
		}
		if err := set.Add(o); err != nil {
			return nil, eris.Wrapf(err, "obsio: line %d", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "obsio: read")
	}
	return set, nil
}

// ReadObsFile reads an observation table from a file.
func ReadObsFile(path string) (*model.ObservationSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "obsio: open %s", path)
	}
	defer f.Close()
	return ReadObs(f)
}

// eventTimeLayouts are the accepted origin-time formats in event files.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseEventTime(s string) (time.Time, error) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, eris.Errorf("obsio: unrecognized origin time %q", s)
}

// ReadEvents reads events from a CSV file with the columns
// time,latitude,longitude,depth,magnitude. Usually the file holds two
// rows: the master event first, then the slave.
func ReadEvents(r io.Reader) ([]model.Event, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "obsio: read events csv")
	}
	if len(records) == 0 {
		return nil, eris.New("obsio: empty events file")
	}

	var events []model.Event
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "time") {
			continue
		}
		if len(rec) < 5 {
			return nil, eris.Errorf("obsio: events row %d: %d columns, want 5", i+1, len(rec))
		}
		origin, err := parseEventTime(rec[0])
		if err != nil {
			return nil, eris.Wrapf(err, "obsio: events row %d", i+1)
		}
		nums := make([]float64, 4)
		for j := 0; j < 4; j++ {
			nums[j], err = strconv.ParseFloat(strings.TrimSpace(rec[j+1]), 64)
			if err != nil {
				return nil, eris.Wrapf(err, "obsio: events row %d column %d", i+1, j+2)
			}
		}
		events = append(events, model.Event{
			Origin:    origin,
			Latitude:  nums[0],
			Longitude: nums[1],
			DepthKm:   nums[2],
			Magnitude: nums[3],
		})
	}
	if len(events) == 0 {
		return nil, eris.New("obsio: no events parsed")
	}
	return events, nil
}

// ReadEventsFile reads events from a CSV file.
func ReadEventsFile(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "obsio: open %s", path)
	}
	defer f.Close()
	return ReadEvents(f)
}

// ReadStations parses a whitespace-separated station table with the
// columns name latitude longitude elevation.
func ReadStations(r io.Reader) ([]model.Station, error) {
	var stations []model.Station
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "name" {
			continue
		}
		if len(fields) < 3 {
			return nil, eris.Errorf("obsio: stations line %d: %d fields, want at least 3", lineNo, len(fields))
		}
		var nums [3]float64
		for i := 0; i < len(fields)-1 && i < 3; i++ {
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "obsio: stations line %d", lineNo)
			}
			nums[i] = v
		}
		stations = append(stations, model.Station{
			Name:        fields[0],
			Latitude:    nums[0],
			Longitude:   nums[1],
			ElevationKm: nums[2],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "obsio: read stations")
	}
	return stations, nil
}

// ReadStationsFile reads a station table from a file.
func ReadStationsFile(path string) ([]model.Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "obsio: open %s", path)
	}
	defer f.Close()
	return ReadStations(f)
}
