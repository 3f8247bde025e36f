// Package model defines the domain types shared across the relocation
// pipeline: events, stations, differential-time observations, offsets and
// solutions.
package model

import (
	"fmt"
	"time"
)

// Event holds hypocenter information for a single earthquake.
type Event struct {
	Origin    time.Time `json:"origin"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	DepthKm   float64   `json:"depth_km"`
	Magnitude float64   `json:"magnitude"` // carried through, unused by the solver
}

// ID returns the event identifier in the catalog convention YYYYMMDDHHMMSS.
func (e Event) ID() string {
	return e.Origin.UTC().Format("20060102150405")
}

// String formats the event as "origin lat lon depth".
func (e Event) String() string {
	return fmt.Sprintf("%s %.5f %.5f %.4f",
		e.Origin.UTC().Format(time.RFC3339), e.Latitude, e.Longitude, e.DepthKm)
}

// Station is an immutable seismic station record.
type Station struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ElevationKm float64 `json:"elevation_km"` // carried through, unused by the solver
}
