package traveltime

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/quakelab/ddlocate/internal/geodesy"
)

// HalfSpace is a uniform-velocity half-space with straight-ray travel
// times. It is exact for its own geometry, which makes it the reference
// model for synthetics and solver tests.
type HalfSpace struct {
	VpKmS      float64
	VsKmS      float64
	MaxDepth   float64 // km; 0 means unbounded
	MaxDistDeg float64 // deg; 0 means unbounded
}

// NewHalfSpace constructs a half-space model with the given P and S
// velocities in km/s.
func NewHalfSpace(vp, vs float64) (*HalfSpace, error) {
	if vp <= 0 || vs <= 0 {
		return nil, eris.Errorf("traveltime: non-positive velocity vp=%g vs=%g", vp, vs)
	}
	return &HalfSpace{VpKmS: vp, VsKmS: vs}, nil
}

// MaxDepthKm reports the deepest supported source depth.
func (m *HalfSpace) MaxDepthKm() float64 {
	if m.MaxDepth > 0 {
		return m.MaxDepth
	}
	return math.Inf(1)
}

func (m *HalfSpace) velocity(phase string) (float64, string, error) {
	switch strings.ToUpper(phase) {
	case "P":
		return m.VpKmS, "P", nil
	case "S":
		return m.VsKmS, "S", nil
	}
	return 0, "", eris.Wrapf(ErrUnknownPhase, "half-space has no phase %q", phase)
}

// Predict returns the straight-ray first arrival from a source at depth to
// a surface receiver at the given epicentral distance.
func (m *HalfSpace) Predict(phase string, sourceDepthKm, distanceDeg float64) (Prediction, error) {
	v, name, err := m.velocity(phase)
	if err != nil {
		return Prediction{}, err
	}
	if sourceDepthKm < 0 || (m.MaxDepth > 0 && sourceDepthKm > m.MaxDepth) {
		return Prediction{}, eris.Wrapf(ErrModelRange, "depth %.3f km", sourceDepthKm)
	}
	if distanceDeg < 0 || (m.MaxDistDeg > 0 && distanceDeg > m.MaxDistDeg) {
		return Prediction{}, eris.Wrapf(ErrModelRange, "distance %.4f deg", distanceDeg)
	}

	x := geodesy.Km(distanceDeg)
	l := math.Hypot(x, sourceDepthKm)
	if l == 0 {
		return Prediction{}, eris.Wrap(ErrModelRange, "source and receiver coincide")
	}

	// Straight up-going ray: time grows with both range and depth.
	return Prediction{
		Phase:      name,
		TimeSec:    l / v,
		DtDd:       x / (l * v) * geodesy.KmPerDeg,
		DtDh:       sourceDepthKm / (l * v),
		TakeoffDeg: math.Atan2(x, -sourceDepthKm) * 180.0 / math.Pi,
	}, nil
}
