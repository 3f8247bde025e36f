package traveltime

import (
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/quakelab/ddlocate/internal/geodesy"
)

// Layer is one constant-velocity layer of a flat-layered structure.
type Layer struct {
	TopKm float64 `yaml:"top_km"`
	Vp    float64 `yaml:"vp"`
	Vs    float64 `yaml:"vs"`
}

// layeredSpec is the on-disk YAML form of a layered model.
type layeredSpec struct {
	Name       string  `yaml:"name"`
	BottomKm   float64 `yaml:"bottom_km"`
	MaxDistDeg float64 `yaml:"max_distance_deg"`
	Layers     []Layer `yaml:"layers"`
}

// Layered is a flat-layered 1-D velocity model. First arrivals are the
// minimum of the direct up-going ray and head waves refracted along
// interfaces below the source.
type Layered struct {
	name       string
	layers     []Layer
	bottomKm   float64
	maxDistDeg float64
}

// NewLayered validates and constructs a layered model.
func NewLayered(name string, layers []Layer, bottomKm, maxDistDeg float64) (*Layered, error) {
	if len(layers) == 0 {
		return nil, eris.New("traveltime: layered model needs at least one layer")
	}
	if layers[0].TopKm != 0 {
		return nil, eris.Errorf("traveltime: first layer must start at the surface, got top %.3f km", layers[0].TopKm)
	}
	for i, l := range layers {
		if l.Vp <= 0 || l.Vs <= 0 {
			return nil, eris.Errorf("traveltime: layer %d has non-positive velocity", i)
		}
		if i > 0 && l.TopKm <= layers[i-1].TopKm {
			return nil, eris.Errorf("traveltime: layer tops must increase, layer %d at %.3f km", i, l.TopKm)
		}
	}
	if bottomKm <= layers[len(layers)-1].TopKm {
		return nil, eris.Errorf("traveltime: bottom %.3f km not below deepest layer top", bottomKm)
	}
	cp := make([]Layer, len(layers))
	copy(cp, layers)
	return &Layered{name: name, layers: cp, bottomKm: bottomKm, maxDistDeg: maxDistDeg}, nil
}

// LoadLayered reads a layered model from a YAML file.
func LoadLayered(path string) (*Layered, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "traveltime: read model %s", path)
	}
	var spec layeredSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, eris.Wrapf(err, "traveltime: parse model %s", path)
	}
	m, err := NewLayered(spec.Name, spec.Layers, spec.BottomKm, spec.MaxDistDeg)
	if err != nil {
		return nil, eris.Wrapf(err, "traveltime: model %s", path)
	}
	return m, nil
}

// Name returns the model name from the YAML spec.
func (m *Layered) Name() string { return m.name }

// MaxDepthKm reports the deepest supported source depth.
func (m *Layered) MaxDepthKm() float64 { return m.bottomKm }

func (m *Layered) velocity(l Layer, phase string) float64 {
	if strings.ToUpper(phase) == "S" {
		return l.Vs
	}
	return l.Vp
}

func (m *Layered) phaseName(phase string) (string, error) {
	switch strings.ToUpper(phase) {
	case "P":
		return "P", nil
	case "S":
		return "S", nil
	}
	return "", eris.Wrapf(ErrUnknownPhase, "layered model has no phase %q", phase)
}

// thickness returns the thickness of layer i, bounded by the model bottom.
func (m *Layered) thickness(i int) float64 {
	if i == len(m.layers)-1 {
		return m.bottomKm - m.layers[i].TopKm
	}
	return m.layers[i+1].TopKm - m.layers[i].TopKm
}

// sourceLayer returns the index of the layer containing depth.
func (m *Layered) sourceLayer(depthKm float64) int {
	si := 0
	for i, l := range m.layers {
		if depthKm >= l.TopKm {
			si = i
		}
	}
	return si
}

// Predict returns the first arrival for the phase at the given source depth
// and epicentral distance.
func (m *Layered) Predict(phase string, sourceDepthKm, distanceDeg float64) (Prediction, error) {
	name, err := m.phaseName(phase)
	if err != nil {
		return Prediction{}, err
	}
	if sourceDepthKm < 0 || sourceDepthKm > m.bottomKm {
		return Prediction{}, eris.Wrapf(ErrModelRange, "depth %.3f km outside [0, %.3f]", sourceDepthKm, m.bottomKm)
	}
	if distanceDeg <= 0 || (m.maxDistDeg > 0 && distanceDeg > m.maxDistDeg) {
		return Prediction{}, eris.Wrapf(ErrModelRange, "distance %.4f deg", distanceDeg)
	}

	x := geodesy.Km(distanceDeg)
	best, ok := m.direct(name, sourceDepthKm, x)
	if ref, refOK := m.refracted(name, sourceDepthKm, x); refOK && (!ok || ref.TimeSec < best.TimeSec) {
		best, ok = ref, true
	}
	if !ok {
		return Prediction{}, eris.Wrapf(ErrModelRange,
			"no %s arrival at depth %.3f km distance %.4f deg", name, sourceDepthKm, distanceDeg)
	}
	best.Phase = name
	return best, nil
}

// pathSegment is one constant-velocity leg of a ray path.
type pathSegment struct {
	thick float64
	v     float64
}

// upPath lists the legs from the source depth to the surface, source first.
func (m *Layered) upPath(phase string, depthKm float64) []pathSegment {
	si := m.sourceLayer(depthKm)
	segs := make([]pathSegment, 0, si+1)
	segs = append(segs, pathSegment{thick: depthKm - m.layers[si].TopKm, v: m.velocity(m.layers[si], phase)})
	for i := si - 1; i >= 0; i-- {
		segs = append(segs, pathSegment{thick: m.thickness(i), v: m.velocity(m.layers[i], phase)})
	}
	return segs
}

// direct computes the up-going ray from the source to a surface receiver at
// horizontal range x, shooting the ray parameter by bisection.
func (m *Layered) direct(phase string, depthKm, x float64) (Prediction, bool) {
	segs := m.upPath(phase, depthKm)
	vsrc := segs[0].v

	if depthKm == 0 {
		// Surface source: the direct wave skims the top layer.
		return Prediction{
			TimeSec:    x / vsrc,
			DtDd:       geodesy.KmPerDeg / vsrc,
			DtDh:       0,
			TakeoffDeg: 90.0,
		}, true
	}

	vmax := 0.0
	for _, s := range segs {
		if s.v > vmax {
			vmax = s.v
		}
	}

	// X(p) is strictly increasing on [0, 1/vmax), so bisection is safe.
	rangeAt := func(p float64) float64 {
		sum := 0.0
		for _, s := range segs {
			sv := p * s.v
			sum += s.thick * sv / math.Sqrt(1.0-sv*sv)
		}
		return sum
	}

	lo, hi := 0.0, (1.0-1e-12)/vmax
	if rangeAt(hi) < x {
		return Prediction{}, false
	}
	for range 200 {
		mid := 0.5 * (lo + hi)
		if rangeAt(mid) < x {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-15 {
			break
		}
	}
	p := 0.5 * (lo + hi)

	t := 0.0
	for _, s := range segs {
		sv := p * s.v
		t += s.thick / (s.v * math.Sqrt(1.0-sv*sv))
	}

	sv := p * vsrc
	return Prediction{
		TimeSec: t,
		DtDd:    p * geodesy.KmPerDeg,
		// Up-going ray: deepening the source lengthens the path.
		DtDh:       math.Sqrt(1.0-sv*sv) / vsrc,
		TakeoffDeg: 180.0 - math.Asin(math.Min(1.0, sv))*180.0/math.Pi,
	}, true
}

// refracted computes the fastest head wave along interfaces below the
// source, if any exists at range x.
func (m *Layered) refracted(phase string, depthKm, x float64) (Prediction, bool) {
	si := m.sourceLayer(depthKm)
	vsrc := m.velocity(m.layers[si], phase)

	best := Prediction{}
	found := false
	for j := si + 1; j < len(m.layers); j++ {
		vn := m.velocity(m.layers[j], phase)

		// Down leg from the source to the refractor, then up leg from the
		// refractor to the surface.
		legs := []pathSegment{{thick: m.layers[si+1].TopKm - depthKm, v: vsrc}}
		for i := si + 1; i < j; i++ {
			legs = append(legs, pathSegment{thick: m.thickness(i), v: m.velocity(m.layers[i], phase)})
		}
		for i := 0; i < j; i++ {
			legs = append(legs, pathSegment{thick: m.thickness(i), v: m.velocity(m.layers[i], phase)})
		}

		valid := true
		t := x / vn
		xcrit := 0.0
		for _, s := range legs {
			if s.v >= vn {
				valid = false
				break
			}
			eta := math.Sqrt(1.0/(s.v*s.v) - 1.0/(vn*vn))
			t += s.thick * eta
			sinc := s.v / vn
			xcrit += s.thick * sinc / math.Sqrt(1.0-sinc*sinc)
		}
		if !valid || x < xcrit {
			continue
		}
		if !found || t < best.TimeSec {
			etaSrc := math.Sqrt(1.0/(vsrc*vsrc) - 1.0/(vn*vn))
			best = Prediction{
				TimeSec: t,
				DtDd:    geodesy.KmPerDeg / vn,
				// Deepening the source shortens the down leg.
				DtDh:       -etaSrc,
				TakeoffDeg: math.Asin(vsrc/vn) * 180.0 / math.Pi,
			}
			found = true
		}
	}
	return best, found
}
