package model

import "github.com/rotisserie/eris"

// Observation is a single differential travel-time measurement at one
// station for one phase, as delivered by the upstream cross-correlation
// stage. DiffTime is slave arrival minus master arrival in seconds.
type Observation struct {
	Station Station `json:"station"`

	// Phase is the seismic phase name, e.g. "P".
	Phase string `json:"phase"`

	// DistanceDeg and AzimuthDeg are precomputed from the master event to
	// the station. They describe the master-side geometry only; the solver
	// recomputes slave-side geometry at every trial offset.
	DistanceDeg float64 `json:"distance_deg"`
	AzimuthDeg  float64 `json:"azimuth_deg"`

	// TimeSec, DtDd and DtDh are the master-side predicted travel time and
	// slownesses, filled in by observation preparation.
	TimeSec float64 `json:"time_sec"`
	DtDd    float64 `json:"dtdd"` // horizontal slowness, s/deg
	DtDh    float64 `json:"dtdh"` // vertical slowness, s/km

	// DiffTime is the measured differential travel time in seconds.
	DiffTime float64 `json:"diff_time"`

	// CC is the cross-correlation coefficient behind the measurement.
	// Zero means no cross-correlation was applied.
	CC float64 `json:"cc"`

	// Weight is non-negative. Zero-weight observations are excluded from
	// the linear system entirely.
	Weight float64 `json:"weight"`

	// Sigma is an optional a priori measurement uncertainty in seconds.
	Sigma float64 `json:"sigma,omitempty"`
}

// Key identifies an observation within a set.
type Key struct {
	Station string
	Phase   string
}

// Key returns the (station, phase) identity of the observation.
func (o Observation) Key() Key {
	return Key{Station: o.Station.Name, Phase: o.Phase}
}

// ObservationSet is an ordered collection of observations with unique
// (station, phase) keys. The zero value is ready to use.
type ObservationSet struct {
	obs  []Observation
	keys map[Key]int
}

// NewObservationSet builds a set from the given observations.
// Duplicate (station, phase) keys are rejected.
func NewObservationSet(obs []Observation) (*ObservationSet, error) {
	s := &ObservationSet{keys: make(map[Key]int, len(obs))}
	for _, o := range obs {
		if err := s.Add(o); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends an observation, enforcing key uniqueness and a non-negative
// weight.
func (s *ObservationSet) Add(o Observation) error {
	if o.Weight < 0 {
		return eris.Errorf("model: negative weight %g for %s/%s", o.Weight, o.Station.Name, o.Phase)
	}
	if s.keys == nil {
		s.keys = make(map[Key]int)
	}
	k := o.Key()
	if _, dup := s.keys[k]; dup {
		return eris.Errorf("model: duplicate observation for %s/%s", k.Station, k.Phase)
	}
	s.keys[k] = len(s.obs)
	s.obs = append(s.obs, o)
	return nil
}

// Len returns the total number of observations, including zero-weight ones.
func (s *ObservationSet) Len() int { return len(s.obs) }

// Usable returns the number of observations with positive weight.
func (s *ObservationSet) Usable() int {
	n := 0
	for _, o := range s.obs {
		if o.Weight > 0 {
			n++
		}
	}
	return n
}

// All returns the observations in insertion order. The returned slice is
// shared; callers must not modify it.
func (s *ObservationSet) All() []Observation { return s.obs }

// Get looks up an observation by (station, phase).
func (s *ObservationSet) Get(station, phase string) (Observation, bool) {
	i, ok := s.keys[Key{Station: station, Phase: phase}]
	if !ok {
		return Observation{}, false
	}
	return s.obs[i], true
}

// Reweight returns a copy of the set with the weight of the given key
// replaced. Unknown keys are ignored.
func (s *ObservationSet) Reweight(k Key, weight float64) *ObservationSet {
	out := &ObservationSet{
		obs:  make([]Observation, len(s.obs)),
		keys: make(map[Key]int, len(s.keys)),
	}
	copy(out.obs, s.obs)
	for key, i := range s.keys {
		out.keys[key] = i
	}
	if i, ok := out.keys[k]; ok {
		out.obs[i].Weight = weight
	}
	return out
}
