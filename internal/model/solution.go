package model

import (
	"fmt"
	"math"
	"time"
)

// Offset is the slave hypocenter expressed relative to the master event in
// a local Cartesian frame centred on the master: x east, y north, z down,
// t the origin-time shift.
type Offset struct {
	DxKm  float64 `json:"dx_km"`
	DyKm  float64 `json:"dy_km"`
	DzKm  float64 `json:"dz_km"`
	DtSec float64 `json:"dt_sec"`
}

// Add returns the offset shifted by the given update.
func (o Offset) Add(u Offset) Offset {
	return Offset{
		DxKm:  o.DxKm + u.DxKm,
		DyKm:  o.DyKm + u.DyKm,
		DzKm:  o.DzKm + u.DzKm,
		DtSec: o.DtSec + u.DtSec,
	}
}

// Norm returns the Euclidean norm of the 4-vector (km and seconds mixed;
// used only as a convergence measure).
func (o Offset) Norm() float64 {
	return math.Sqrt(o.DxKm*o.DxKm + o.DyKm*o.DyKm + o.DzKm*o.DzKm + o.DtSec*o.DtSec)
}

// Vec returns the offset as a [dx, dy, dz, dt] slice.
func (o Offset) Vec() []float64 {
	return []float64{o.DxKm, o.DyKm, o.DzKm, o.DtSec}
}

// String formats the offset for logs and CLI output.
func (o Offset) String() string {
	return fmt.Sprintf("dx=%.4f km dy=%.4f km dz=%.4f km dt=%.4f s",
		o.DxKm, o.DyKm, o.DzKm, o.DtSec)
}

// SolveStatus enumerates the solver state machine states.
type SolveStatus string

const (
	StatusInitialized SolveStatus = "initialized"
	StatusIterating   SolveStatus = "iterating"
	StatusConverged   SolveStatus = "converged"
	StatusDiverged    SolveStatus = "diverged"
	StatusMaxIter     SolveStatus = "max_iter_reached"
)

// Terminal reports whether the status ends a solver run.
func (s SolveStatus) Terminal() bool {
	switch s {
	case StatusConverged, StatusDiverged, StatusMaxIter:
		return true
	}
	return false
}

// Residual is a per-observation final residual, exposed for quality
// inspection by downstream consumers.
type Residual struct {
	Station   string  `json:"station"`
	Phase     string  `json:"phase"`
	Weight    float64 `json:"weight"`
	Observed  float64 `json:"observed"`  // observed differential time, s
	Predicted float64 `json:"predicted"` // predicted differential time, s
	Value     float64 `json:"value"`     // weighted residual, s
	Excluded  bool    `json:"excluded"`  // true when the row was left out of the final system
	Reason    string  `json:"reason,omitempty"`
}

// TrialState is an immutable snapshot of one solver iteration, delivered
// through the solver's OnIteration callback.
type TrialState struct {
	Offset    Offset
	Iteration int
	Residuals []float64 // weighted residual vector, usable rows only
	Cost      float64   // weighted sum of squared residuals
	Jacobian  [][]float64
}

// Uncertainty carries the covariance-derived error measures of a solution.
type Uncertainty struct {
	// Covariance is the 4x4 parameter covariance over (dx, dy, dz, dt).
	Covariance [][]float64 `json:"covariance"`

	// StdErr holds the 1-D standard errors per axis, same ordering.
	StdErr [4]float64 `json:"std_err"`

	// EllipseMajorKm, EllipseMinorKm and EllipseAzimuthDeg describe the
	// one-sigma epicentral error ellipse of (dx, dy).
	EllipseMajorKm    float64 `json:"ellipse_major_km"`
	EllipseMinorKm    float64 `json:"ellipse_minor_km"`
	EllipseAzimuthDeg float64 `json:"ellipse_azimuth_deg"`

	// EllipsoidKm holds the semi-axis lengths of the one-sigma spatial
	// error ellipsoid, descending.
	EllipsoidKm [3]float64 `json:"ellipsoid_km"`
}

// Solution is the final product of a relocation run.
type Solution struct {
	Offset      Offset       `json:"offset"`
	Uncertainty *Uncertainty `json:"uncertainty,omitempty"`
	Residuals   []Residual   `json:"residuals"`
	RMS         float64      `json:"rms"`
	Iterations  int          `json:"iterations"`
	Status      SolveStatus  `json:"status"`
	Converged   bool         `json:"converged"`

	// Used and Excluded count the observations that did and did not enter
	// the final linear system.
	Used     int `json:"used"`
	Excluded int `json:"excluded"`
}

// ToEvent converts the solution offset to an absolute slave hypocenter
// using the small-offset flat-Earth approximation around the master.
func (s Solution) ToEvent(master Event) Event {
	const earthRadiusKm = 6371.0
	latRad := master.Latitude * math.Pi / 180.0
	dlat := s.Offset.DyKm / earthRadiusKm * 180.0 / math.Pi
	dlon := s.Offset.DxKm / (earthRadiusKm * math.Cos(latRad)) * 180.0 / math.Pi
	return Event{
		Origin:    master.Origin.Add(time.Duration(s.Offset.DtSec * float64(time.Second))),
		Latitude:  master.Latitude + dlat,
		Longitude: master.Longitude + dlon,
		DepthKm:   master.DepthKm + s.Offset.DzKm,
		Magnitude: master.Magnitude,
	}
}

// Cylindrical returns the epicentral offset in cylindrical form:
// horizontal distance in meters, azimuth in degrees clockwise from north,
// and depth offset in meters.
func (s Solution) Cylindrical() (distM, azDeg, ddepthM float64) {
	distM = math.Hypot(s.Offset.DxKm, s.Offset.DyKm) * 1000.0
	azDeg = math.Atan2(s.Offset.DxKm, s.Offset.DyKm) * 180.0 / math.Pi
	if azDeg < 0 {
		azDeg += 360.0
	}
	ddepthM = s.Offset.DzKm * 1000.0
	return distM, azDeg, ddepthM
}
