package relocate

import (
	"github.com/rotisserie/eris"

	"github.com/quakelab/ddlocate/internal/model"
)

// Options holds the solver configuration. Every behavior knob is an
// explicit field; DefaultOptions documents the defaults in one place so
// nothing changes silently between runs.
type Options struct {
	// Tolerance is the update-vector norm below which the solver may
	// declare convergence (km/s mixed 4-vector norm).
	Tolerance float64

	// MaxIterations caps the Gauss-Newton iteration count.
	MaxIterations int

	// Damping is the initial Levenberg-Marquardt lambda. DampingFactor
	// scales it up after a cost increase and back down after a decrease,
	// bounded by MaxDamping.
	Damping       float64
	DampingFactor float64
	MaxDamping    float64

	// DivergenceLimit is the number of consecutive cost increases, despite
	// damping growth, after which the run is declared diverged.
	DivergenceLimit int

	// MinStationDistKm excludes stations closer to the trial epicenter
	// than this, where the azimuth projection is singular.
	MinStationDistKm float64

	// RejectOutliers enables a single re-run with observations beyond
	// OutlierThreshold residual standard deviations zero-weighted.
	RejectOutliers   bool
	OutlierThreshold float64

	// OnIteration, when set, receives a snapshot of every evaluated trial
	// offset. Snapshots are independent copies; the callback runs on the
	// solver goroutine.
	OnIteration func(model.TrialState)
}

// DefaultOptions returns the documented solver defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:        1e-6,
		MaxIterations:    30,
		Damping:          1e-4,
		DampingFactor:    10.0,
		MaxDamping:       1e6,
		DivergenceLimit:  2,
		MinStationDistKm: 1.0,
		RejectOutliers:   false,
		OutlierThreshold: 3.0,
	}
}

// Validate rejects option values the solver cannot run with.
func (o Options) Validate() error {
	if o.Tolerance <= 0 {
		return eris.Errorf("relocate: tolerance must be positive, got %g", o.Tolerance)
	}
	if o.MaxIterations <= 0 {
		return eris.Errorf("relocate: max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.Damping < 0 || o.DampingFactor <= 1 || o.MaxDamping < o.Damping {
		return eris.Errorf("relocate: bad damping policy (damping=%g factor=%g max=%g)",
			o.Damping, o.DampingFactor, o.MaxDamping)
	}
	if o.DivergenceLimit < 1 {
		return eris.Errorf("relocate: divergence limit must be at least 1, got %d", o.DivergenceLimit)
	}
	if o.MinStationDistKm < 0 {
		return eris.Errorf("relocate: negative near-field threshold %g", o.MinStationDistKm)
	}
	if o.RejectOutliers && o.OutlierThreshold <= 0 {
		return eris.Errorf("relocate: outlier threshold must be positive, got %g", o.OutlierThreshold)
	}
	return nil
}
