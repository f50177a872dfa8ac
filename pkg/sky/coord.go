// Package sky holds celestial coordinates (ICRS right ascension and declination, degrees)
// and the few spherical-geometry operations the mosaic code needs.
package sky

import (
	"errors"
	"fmt"
	"math"

	"github.com/abworrall/hips-mosaic/pkg/emath"
)

var ErrInvalidCoordinate = errors.New("invalid sky coordinate")

// Coord is an immutable sky position. RA is in [0,360), Dec in [-90,90].
type Coord struct {
	RA  float64
	Dec float64
}

// New validates and returns a Coord. Out of range values are rejected, never clamped.
func New(ra, dec float64) (Coord, error) {
	c := Coord{RA: ra, Dec: dec}
	return c, c.Validate()
}

func (c Coord) Validate() error {
	switch {
	case math.IsNaN(c.RA) || math.IsNaN(c.Dec):
		return fmt.Errorf("%w: NaN in (%v, %v)", ErrInvalidCoordinate, c.RA, c.Dec)
	case c.RA < 0 || c.RA >= 360:
		return fmt.Errorf("%w: ra %v not in [0,360)", ErrInvalidCoordinate, c.RA)
	case c.Dec < -90 || c.Dec > 90:
		return fmt.Errorf("%w: dec %v not in [-90,90]", ErrInvalidCoordinate, c.Dec)
	}
	return nil
}

// Pointing returns the HEALPix pointing: colatitude theta and longitude phi, in radians.
func (c Coord) Pointing() (theta, phi float64) {
	return emath.Deg2Rad(90 - c.Dec), emath.Deg2Rad(c.RA)
}

// FromPointing is the inverse of Pointing; RA is normalised into [0,360).
func FromPointing(theta, phi float64) Coord {
	return Coord{
		RA:  emath.WrapDeg360(emath.Rad2Deg(phi)),
		Dec: 90 - emath.Rad2Deg(theta),
	}
}

// Separation is the great-circle distance between a and b, in radians (haversine).
func Separation(a, b Coord) float64 {
	lat1, lat2 := emath.Deg2Rad(a.Dec), emath.Deg2Rad(b.Dec)
	dLat := lat2 - lat1
	dLon := emath.Deg2Rad(b.RA - a.RA)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h))
}

// OffsetArcsec returns the tangent-plane offset of c from ref, in arcseconds: east
// (RA difference scaled by cos(c.Dec), wrapped across RA=0) and north.
func (c Coord) OffsetArcsec(ref Coord) (east, north float64) {
	dRA := emath.WrapDeg180(c.RA - ref.RA)
	east = dRA * emath.ArcsecPerDegree * math.Cos(emath.Deg2Rad(c.Dec))
	north = (c.Dec - ref.Dec) * emath.ArcsecPerDegree
	return east, north
}

func (c Coord) String() string {
	return fmt.Sprintf("RA %.6f°, Dec %+.6f°", c.RA, c.Dec)
}

// Sexagesimal renders c as "hh:mm:ss.s +dd:mm:ss".
func (c Coord) Sexagesimal() string {
	return FormatHMS(c.RA) + " " + FormatDMS(c.Dec)
}
