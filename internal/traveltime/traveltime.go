// Package traveltime wraps 1-D Earth velocity structures behind a common
// prediction interface. A Model is immutable once constructed and
// side-effect free, so a single instance may be shared by concurrent
// relocation runs.
package traveltime

import "errors"

var (
	// ErrModelRange is returned when the requested depth or distance falls
	// outside the model's valid domain, or no first arrival exists for the
	// phase at that range. Callers must treat it per-observation.
	ErrModelRange = errors.New("traveltime: request outside model range")

	// ErrUnknownPhase is returned for phase names the model cannot predict.
	ErrUnknownPhase = errors.New("traveltime: unknown phase")
)

// Prediction holds a predicted first arrival and the slowness terms needed
// for hypocenter partial derivatives.
type Prediction struct {
	// Phase is the phase actually used, which may differ in case from the
	// requested name.
	Phase string

	// TimeSec is the predicted travel time in seconds.
	TimeSec float64

	// DtDd is the horizontal slowness in s/deg.
	DtDd float64

	// DtDh is the vertical slowness in s/km, negative when travel time
	// decreases with increasing source depth.
	DtDh float64

	// TakeoffDeg is the takeoff angle at the source: 0 for a vertical
	// down-going ray, 180 for vertical up-going.
	TakeoffDeg float64
}

// Model predicts first-arrival travel times for a 1-D velocity structure.
// Implementations must be immutable and safe for concurrent use.
type Model interface {
	// Predict returns the first arrival for the phase at the given source
	// depth (km) and epicentral distance (deg). It returns ErrModelRange
	// when the request is outside the model's valid domain.
	Predict(phase string, sourceDepthKm, distanceDeg float64) (Prediction, error)

	// MaxDepthKm reports the deepest source depth the model supports.
	MaxDepthKm() float64
}
