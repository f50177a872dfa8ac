package hips

import (
	"fmt"
	"log"
	"math"

	"github.com/abworrall/hips-mosaic/pkg/sky"
)

// Direction is one of the 8 compass points around a pixel. North is increasing Dec,
// East is increasing RA.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest

	NumDirections = 8
)

var Directions = [NumDirections]Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

var directionNames = [NumDirections]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

func (d Direction) Opposite() Direction { return (d + 4) % NumDirections }

// GridOffset is where this neighbour sits in a grid whose rows run north to south and
// whose columns run west to east.
func (d Direction) GridOffset() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case NorthEast:
		return 1, -1
	case East:
		return 1, 0
	case SouthEast:
		return 1, 1
	case South:
		return 0, 1
	case SouthWest:
		return -1, 1
	case West:
		return -1, 0
	case NorthWest:
		return -1, -1
	}
	return 0, 0
}

// unit vector (east, north) for each direction
func (d Direction) compass() (east, north float64) {
	dx, dy := d.GridOffset()
	n := math.Hypot(float64(dx), float64(dy))
	return float64(dx) / n, float64(-dy) / n
}

// rawNeighborOrder labels the slots of the primitive's neighbour array. Checked against
// the sky by VerifyDirections.
var rawNeighborOrder = [8]Direction{SouthWest, West, NorthWest, North, NorthEast, East, SouthEast, South}

// NeighborSet holds the (up to) 8 neighbours of a pixel, indexed by Direction.
type NeighborSet struct {
	Center  PixelAddress
	addrs   [NumDirections]PixelAddress
	present [NumDirections]bool
}

func (ns NeighborSet) Get(d Direction) (PixelAddress, bool) {
	if d < 0 || d >= NumDirections || !ns.present[d] {
		return InvalidAddress(ns.Center.Order), false
	}
	return ns.addrs[d], true
}

func (ns NeighborSet) Count() int {
	n := 0
	for _, p := range ns.present {
		if p {
			n++
		}
	}
	return n
}

func (ns NeighborSet) String() string {
	str := fmt.Sprintf("neighbors of %s:", ns.Center)
	for _, d := range Directions {
		if a, ok := ns.Get(d); ok {
			str += fmt.Sprintf(" %s=%d", d, a.Index)
		} else {
			str += fmt.Sprintf(" %s=-", d)
		}
	}
	return str
}

func emptyNeighborSet(center PixelAddress) NeighborSet {
	ns := NeighborSet{Center: center}
	for i := range ns.addrs {
		ns.addrs[i] = InvalidAddress(center.Order)
	}
	return ns
}

// Neighbors returns the compass neighbours of center. A bad center is an error; a
// primitive failure is logged and returns a set with every direction absent.
func (ix *Index) Neighbors(center PixelAddress) (NeighborSet, error) {
	if !center.Valid() {
		return NeighborSet{}, fmt.Errorf("neighbors %s: %w", center, ErrInvalidAddress)
	}
	ns := emptyNeighborSet(center)

	raw, err := ix.prim.Neighbors(center.Nside(), center.Index)
	if err != nil {
		log.Printf("hips: neighbors(%s) failed: %v\n", center, err)
		return ns, nil
	}

	for slot, d := range rawNeighborOrder {
		addr := PixelAddress{Index: raw[slot], Order: center.Order}
		if raw[slot] < 0 || !addr.Valid() {
			continue
		}
		ns.addrs[d] = addr
		ns.present[d] = true
	}
	return ns, nil
}

// DirectionCheck is the outcome of verifying one labelled neighbour against the sky.
type DirectionCheck struct {
	Direction Direction
	Address   PixelAddress
	Present   bool
	East      float64 // arcsec
	North     float64 // arcsec
	Alignment float64 // cosine between the actual and the labelled direction
}

func (dc DirectionCheck) OK() bool { return !dc.Present || dc.Alignment > 0.5 }

// CheckDirections measures where each labelled neighbour of the pixel containing ref
// actually lies on the sky, relative to the pixel's centre.
func CheckDirections(ix *Index, ref sky.Coord, order int) ([NumDirections]DirectionCheck, error) {
	var checks [NumDirections]DirectionCheck

	center, err := ix.ToPixel(ref, order)
	if err != nil {
		return checks, err
	}
	if !center.Valid() {
		return checks, fmt.Errorf("check directions at %s: %w", ref, ErrInvalidAddress)
	}
	centerSky, err := ix.ToSky(center)
	if err != nil {
		return checks, err
	}
	ns, err := ix.Neighbors(center)
	if err != nil {
		return checks, err
	}

	for _, d := range Directions {
		checks[d].Direction = d
		addr, ok := ns.Get(d)
		if !ok {
			continue
		}
		nSky, err := ix.ToSky(addr)
		if err != nil {
			return checks, err
		}
		east, north := nSky.OffsetArcsec(centerSky)
		ce, cn := d.compass()
		norm := math.Hypot(east, north)

		checks[d].Address = addr
		checks[d].Present = true
		checks[d].East = east
		checks[d].North = north
		if norm > 0 {
			checks[d].Alignment = (east*ce + north*cn) / norm
		}
	}
	return checks, nil
}

// VerifyDirections fails if any neighbour of the pixel at ref lies more than about 60
// degrees away from its compass label.
func VerifyDirections(ix *Index, ref sky.Coord, order int) error {
	checks, err := CheckDirections(ix, ref, order)
	if err != nil {
		return err
	}
	for _, c := range checks {
		if !c.OK() {
			return fmt.Errorf("neighbor %s (%s) lies at east=%.1f\" north=%.1f\" (alignment %.2f)",
				c.Direction, c.Address, c.East, c.North, c.Alignment)
		}
	}
	return nil
}
