package traveltime

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quakelab/ddlocate/internal/geodesy"
)

func twoLayerModel(t *testing.T) *Layered {
	t.Helper()
	m, err := NewLayered("crust over basement", []Layer{
		{TopKm: 0, Vp: 4.0, Vs: 2.3},
		{TopKm: 10, Vp: 8.0, Vs: 4.6},
	}, 40.0, 0)
	require.NoError(t, err)
	return m
}

func TestNewLayeredValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		layers   []Layer
		bottomKm float64
		wantErr  string
	}{
		{
			name:     "no layers",
			layers:   nil,
			bottomKm: 40,
			wantErr:  "at least one layer",
		},
		{
			name:     "first layer below surface",
			layers:   []Layer{{TopKm: 2, Vp: 6, Vs: 3.5}},
			bottomKm: 40,
			wantErr:  "start at the surface",
		},
		{
			name: "tops not increasing",
			layers: []Layer{
				{TopKm: 0, Vp: 6, Vs: 3.5},
				{TopKm: 0, Vp: 8, Vs: 4.6},
			},
			bottomKm: 40,
			wantErr:  "tops must increase",
		},
		{
			name:     "non-positive velocity",
			layers:   []Layer{{TopKm: 0, Vp: 6, Vs: 0}},
			bottomKm: 40,
			wantErr:  "non-positive velocity",
		},
		{
			name:     "bottom above deepest top",
			layers:   []Layer{{TopKm: 0, Vp: 6, Vs: 3.5}, {TopKm: 10, Vp: 8, Vs: 4.6}},
			bottomKm: 10,
			wantErr:  "not below deepest layer top",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewLayered("m", tt.layers, tt.bottomKm, 0)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLayeredSingleLayerMatchesHalfSpace(t *testing.T) {
	t.Parallel()

	layered, err := NewLayered("uniform", []Layer{{TopKm: 0, Vp: 6.0, Vs: 3.5}}, 60.0, 0)
	require.NoError(t, err)
	half, err := NewHalfSpace(6.0, 3.5)
	require.NoError(t, err)

	for _, xKm := range []float64{5, 20, 80} {
		for _, depth := range []float64{2.0, 15.0} {
			dist := geodesy.Deg(xKm)
			pl, err := layered.Predict("P", depth, dist)
			require.NoError(t, err)
			ph, err := half.Predict("P", depth, dist)
			require.NoError(t, err)

			assert.InDelta(t, ph.TimeSec, pl.TimeSec, 1e-8, "time at x=%g depth=%g", xKm, depth)
			assert.InDelta(t, ph.DtDd, pl.DtDd, 1e-6)
			assert.InDelta(t, ph.DtDh, pl.DtDh, 1e-8)
			assert.InDelta(t, ph.TakeoffDeg, pl.TakeoffDeg, 1e-5)
		}
	}
}

func TestLayeredHeadWave(t *testing.T) {
	t.Parallel()
	m := twoLayerModel(t)

	t.Run("head wave is first at long range", func(t *testing.T) {
		t.Parallel()
		depth, xKm := 5.0, 100.0
		p, err := m.Predict("P", depth, geodesy.Deg(xKm))
		require.NoError(t, err)

		// t = x/v2 + (down leg + up leg) * eta with eta for v1 under v2.
		eta := math.Sqrt(1.0/(4.0*4.0) - 1.0/(8.0*8.0))
		wantT := xKm/8.0 + (5.0+10.0)*eta
		assert.InDelta(t, wantT, p.TimeSec, 1e-9)

		// Refracted arrival moves at the refractor velocity and gets
		// earlier as the source deepens toward the interface.
		assert.InDelta(t, geodesy.KmPerDeg/8.0, p.DtDd, 1e-9)
		assert.Negative(t, p.DtDh)
		assert.InDelta(t, math.Asin(4.0/8.0)*180.0/math.Pi, p.TakeoffDeg, 1e-9)
	})

	t.Run("direct wave is first at short range", func(t *testing.T) {
		t.Parallel()
		depth, xKm := 5.0, 6.0
		p, err := m.Predict("P", depth, geodesy.Deg(xKm))
		require.NoError(t, err)

		wantT := math.Hypot(xKm, depth) / 4.0
		assert.InDelta(t, wantT, p.TimeSec, 1e-8)
		assert.Positive(t, p.DtDh)
		assert.Greater(t, p.TakeoffDeg, 90.0)
	})

	t.Run("crossover is monotone in range", func(t *testing.T) {
		t.Parallel()
		prev := 0.0
		for xKm := 2.0; xKm <= 120.0; xKm += 2.0 {
			p, err := m.Predict("P", 5.0, geodesy.Deg(xKm))
			require.NoError(t, err)
			assert.Greater(t, p.TimeSec, prev, "first arrivals must increase with range (x=%g)", xKm)
			prev = p.TimeSec
		}
	})
}

func TestLayeredPredictRange(t *testing.T) {
	t.Parallel()
	m := twoLayerModel(t)

	_, err := m.Predict("P", 45.0, 0.5)
	assert.ErrorIs(t, err, ErrModelRange)

	_, err = m.Predict("P", 5.0, 0)
	assert.ErrorIs(t, err, ErrModelRange)

	_, err = m.Predict("X", 5.0, 0.5)
	assert.ErrorIs(t, err, ErrUnknownPhase)

	bounded, err := NewLayered("m", []Layer{{TopKm: 0, Vp: 6, Vs: 3.5}}, 40, 1.0)
	require.NoError(t, err)
	_, err = bounded.Predict("P", 5.0, 2.0)
	assert.ErrorIs(t, err, ErrModelRange)
}

func TestLoadLayered(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.yaml")
	doc := `name: test crust
bottom_km: 40
max_distance_deg: 5
layers:
  - top_km: 0
    vp: 4.0
    vs: 2.3
  - top_km: 10
    vp: 8.0
    vs: 4.6
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	m, err := LoadLayered(path)
	require.NoError(t, err)
	assert.Equal(t, "test crust", m.Name())
	assert.Equal(t, 40.0, m.MaxDepthKm())

	_, err = m.Predict("P", 5.0, 0.5)
	assert.NoError(t, err)

	_, err = LoadLayered(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("layers: {not a list}"), 0o644))
	_, err = LoadLayered(bad)
	assert.Error(t, err)
}
