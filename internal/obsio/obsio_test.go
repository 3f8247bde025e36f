package obsio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakelab/ddlocate/internal/model"
)

func TestObsRoundTrip(t *testing.T) {
	t.Parallel()

	obs := []model.Observation{
		{
			Station:     model.Station{Name: "JRC2", Latitude: 35.98249, Longitude: -117.80885},
			Phase:       "P",
			DistanceDeg: 0.21, AzimuthDeg: 312.5,
			TimeSec: 4.125, DtDd: 17.2, DtDh: 0.09,
			DiffTime: 0.153, CC: 0.92, Weight: 1.0, Sigma: 0.02,
		},
		{
			Station:     model.Station{Name: "SRT", Latitude: 35.69235, Longitude: -117.75051},
			Phase:       "S",
			DistanceDeg: 0.15, AzimuthDeg: 188.0,
			TimeSec: 6.87, DtDd: 29.4, DtDh: 0.16,
			DiffTime: -0.082, CC: 0.88, Weight: 0.5,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteObs(&buf, obs))

	set, err := ReadObs(&buf)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())

	got, ok := set.Get("JRC2", "P")
	require.True(t, ok)
	assert.Equal(t, "JRC2", got.Station.Name)
	assert.InDelta(t, 35.98249, got.Station.Latitude, 1e-6)
	assert.InDelta(t, 0.153, got.DiffTime, 1e-6)
	assert.InDelta(t, 0.92, got.CC, 1e-6)
	assert.InDelta(t, 1.0, got.Weight, 1e-6)
	assert.InDelta(t, 0.02, got.Sigma, 1e-6)

	got, ok = set.Get("SRT", "S")
	require.True(t, ok)
	assert.InDelta(t, -0.082, got.DiffTime, 1e-6)
	assert.InDelta(t, 0.5, got.Weight, 1e-6)
	assert.Zero(t, got.Sigma)
}

func TestReadObs(t *testing.T) {
	t.Parallel()

	t.Run("comments and blanks skipped", func(t *testing.T) {
		t.Parallel()
		doc := `# observation table
station latitude longitude distance azimuth phase time dtdd dtdh dt cc weight

CCC 35.52495 -117.36453 0.3 45.0 P 5.2 16.9 0.08 0.12 0.95 1.0
`
		set, err := ReadObs(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, 1, set.Len())
	})

	t.Run("sigma column optional", func(t *testing.T) {
		t.Parallel()
		// A table written before the sigma column existed still reads.
		doc := `CCC 35.5 -117.4 0.3 45.0 P 5.2 16.9 0.08 0.12 0.95 1.0
WBM 35.6 -117.9 0.4 120.0 P 6.1 16.5 0.07 0.21 0.90 1.0 0.015
`
		set, err := ReadObs(strings.NewReader(doc))
		require.NoError(t, err)

		legacy, ok := set.Get("CCC", "P")
		require.True(t, ok)
		assert.Zero(t, legacy.Sigma)

		withSigma, ok := set.Get("WBM", "P")
		require.True(t, ok)
		assert.InDelta(t, 0.015, withSigma.Sigma, 1e-9)
	})

	t.Run("wrong column count", func(t *testing.T) {
		t.Parallel()
		_, err := ReadObs(strings.NewReader("CCC 35.5 -117.4 0.3\n"))
		assert.ErrorContains(t, err, "fields")
	})

	t.Run("bad number", func(t *testing.T) {
		t.Parallel()
		_, err := ReadObs(strings.NewReader(
			"CCC bad -117.4 0.3 45.0 P 5.2 16.9 0.08 0.12 0.95 1.0\n"))
		assert.ErrorContains(t, err, "latitude")
	})

	t.Run("duplicate observation", func(t *testing.T) {
		t.Parallel()
		doc := `CCC 35.5 -117.4 0.3 45.0 P 5.2 16.9 0.08 0.12 0.95 1.0
CCC 35.5 -117.4 0.3 45.0 P 5.2 16.9 0.08 0.12 0.95 1.0
`
		_, err := ReadObs(strings.NewReader(doc))
		assert.ErrorContains(t, err, "duplicate")
	})
}

func TestReadEvents(t *testing.T) {
	t.Parallel()

	t.Run("header and two rows", func(t *testing.T) {
		t.Parallel()
		doc := `time,latitude,longitude,depth,magnitude
2019-07-06T03:19:53Z,35.7695,-117.5993,8.0,7.1
2019-07-06T03:47:53.32Z,35.8992,-117.7268,2.8,4.9
`
		events, err := ReadEvents(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, time.Date(2019, 7, 6, 3, 19, 53, 0, time.UTC), events[0].Origin)
		assert.InDelta(t, 35.7695, events[0].Latitude, 1e-9)
		assert.InDelta(t, 8.0, events[0].DepthKm, 1e-9)
		assert.InDelta(t, 4.9, events[1].Magnitude, 1e-9)
	})

	t.Run("space separated time accepted", func(t *testing.T) {
		t.Parallel()
		doc := `"2019-07-06 03:19:53",35.77,-117.60,8.0,7.1
`
		events, err := ReadEvents(strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, "20190706031953", events[0].ID())
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		_, err := ReadEvents(strings.NewReader(""))
		assert.ErrorContains(t, err, "empty events")
	})

	t.Run("header only", func(t *testing.T) {
		t.Parallel()
		_, err := ReadEvents(strings.NewReader("time,latitude,longitude,depth,magnitude\n"))
		assert.ErrorContains(t, err, "no events")
	})

	t.Run("bad origin time", func(t *testing.T) {
		t.Parallel()
		_, err := ReadEvents(strings.NewReader("yesterday,35.77,-117.60,8.0,7.1\n"))
		assert.ErrorContains(t, err, "origin time")
	})
}

func TestReadStations(t *testing.T) {
	t.Parallel()

	t.Run("table with header and comment", func(t *testing.T) {
		t.Parallel()
		doc := `# southern network
name latitude longitude elevation
JRC2 35.98249 -117.80885 0.7
SRT 35.69235 -117.75051 0.0
`
		stations, err := ReadStations(strings.NewReader(doc))
		require.NoError(t, err)
		require.Len(t, stations, 2)
		assert.Equal(t, "JRC2", stations[0].Name)
		assert.InDelta(t, 0.7, stations[0].ElevationKm, 1e-9)
		assert.Equal(t, "SRT", stations[1].Name)
	})

	t.Run("elevation optional", func(t *testing.T) {
		t.Parallel()
		stations, err := ReadStations(strings.NewReader("SRT 35.69235 -117.75051\n"))
		require.NoError(t, err)
		require.Len(t, stations, 1)
		assert.Equal(t, 0.0, stations[0].ElevationKm)
	})

	t.Run("too few fields", func(t *testing.T) {
		t.Parallel()
		_, err := ReadStations(strings.NewReader("SRT 35.69\n"))
		assert.ErrorContains(t, err, "fields")
	})

	t.Run("bad coordinate", func(t *testing.T) {
		t.Parallel()
		_, err := ReadStations(strings.NewReader("SRT north -117.75\n"))
		assert.Error(t, err)
	})
}

func TestWriteReadObsFile(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/obs.dat"
	obs := []model.Observation{{
		Station:  model.Station{Name: "WBM", Latitude: 35.60839, Longitude: -117.89049},
		Phase:    "P",
		DiffTime: 0.2,
		Weight:   1,
	}}
	require.NoError(t, WriteObsFile(path, obs))

	set, err := ReadObsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	_, err = ReadObsFile(path + ".missing")
	assert.Error(t, err)
}
