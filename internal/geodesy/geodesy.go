// Package geodesy provides the spherical-Earth distance, azimuth and
// small-offset projection helpers used by the relocation solver. All of the
// flat-Earth approximation lives here: swapping in full geodesics would not
// touch the solver itself.
package geodesy

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used throughout.
	EarthRadiusKm = 6371.0

	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// KmPerDeg is the great-circle kilometers per degree of arc.
var KmPerDeg = 2.0 * math.Pi * EarthRadiusKm / 360.0

// DistAz returns the great-circle distance in degrees and the azimuth in
// degrees clockwise from north, from point 1 to point 2.
func DistAz(lat1, lon1, lat2, lon2 float64) (distDeg, azDeg float64) {
	phi1 := lat1 * deg2rad
	phi2 := lat2 * deg2rad
	dlon := (lon2 - lon1) * deg2rad

	// Central angle via the haversine form, stable at short distances.
	dphi := phi2 - phi1
	sinDphi := math.Sin(dphi / 2.0)
	sinDlon := math.Sin(dlon / 2.0)
	h := sinDphi*sinDphi + math.Cos(phi1)*math.Cos(phi2)*sinDlon*sinDlon
	distDeg = 2.0 * math.Asin(math.Min(1.0, math.Sqrt(h))) * rad2deg

	y := math.Sin(dlon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dlon)
	azDeg = math.Atan2(y, x) * rad2deg
	if azDeg < 0 {
		azDeg += 360.0
	}
	return distDeg, azDeg
}

// DistAzKm is DistAz with the distance in kilometers.
func DistAzKm(lat1, lon1, lat2, lon2 float64) (distKm, azDeg float64) {
	d, az := DistAz(lat1, lon1, lat2, lon2)
	return d * KmPerDeg, az
}

// Shift displaces a geographic point by east/north kilometers using the
// small-offset flat-Earth approximation. Doublet separations are assumed
// small relative to the Earth radius.
func Shift(lat, lon, eastKm, northKm float64) (latOut, lonOut float64) {
	latOut = lat + northKm/EarthRadiusKm*rad2deg
	lonOut = lon + eastKm/(EarthRadiusKm*math.Cos(lat*deg2rad))*rad2deg
	return latOut, lonOut
}

// Deg converts kilometers of arc to degrees.
func Deg(km float64) float64 { return km / KmPerDeg }

// Km converts degrees of arc to kilometers.
func Km(deg float64) float64 { return deg * KmPerDeg }
