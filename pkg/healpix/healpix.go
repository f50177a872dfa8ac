// Package healpix implements the HEALPix pixelization primitives we need: angle to pixel,
// pixel to angle, and the 8 neighbours of a pixel. Only the NESTED numbering scheme is
// supported. The algorithms follow healpix_cxx (Gorski et al. 2005).
package healpix

import (
	"errors"
	"fmt"
	"math"
)

type Scheme int

const (
	SchemeNested Scheme = iota
	SchemeRing
)

func (s Scheme) String() string {
	switch s {
	case SchemeNested:
		return "nested"
	case SchemeRing:
		return "ring"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

const MaxOrder = 29

var (
	ErrBadNside    = errors.New("nside must be a power of two in [1, 2^29]")
	ErrBadScheme   = errors.New("only the nested scheme is supported")
	ErrBadPixel    = errors.New("pixel index out of range")
	ErrBadPointing = errors.New("theta must be in [0, pi] and phi finite")
)

// Base is a HEALPix map geometry at one resolution.
type Base struct {
	order  int
	nside  int64
	npface int64
	npix   int64
	fact1  float64
	fact2  float64
}

// OrderToNside returns 2^order.
func OrderToNside(order int) int64 { return int64(1) << uint(order) }

// NsideToOrder returns log2(nside), or -1 if nside is not a valid power of two.
func NsideToOrder(nside int64) int {
	if nside <= 0 || nside&(nside-1) != 0 {
		return -1
	}
	order := 0
	for n := nside; n > 1; n >>= 1 {
		order++
	}
	if order > MaxOrder {
		return -1
	}
	return order
}

func NewBase(nside int64, scheme Scheme) (*Base, error) {
	if scheme != SchemeNested {
		return nil, fmt.Errorf("healpix %s: %w", scheme, ErrBadScheme)
	}
	order := NsideToOrder(nside)
	if order < 0 {
		return nil, fmt.Errorf("healpix nside %d: %w", nside, ErrBadNside)
	}
	b := &Base{
		order:  order,
		nside:  nside,
		npface: nside * nside,
		npix:   12 * nside * nside,
	}
	b.fact2 = 4.0 / float64(b.npix)
	b.fact1 = float64(nside<<1) * b.fact2
	return b, nil
}

func (b *Base) Order() int   { return b.order }
func (b *Base) Nside() int64 { return b.nside }
func (b *Base) Npix() int64  { return b.npix }

// Per-face ring and phi offsets, in units of nside.
var (
	jrll = [12]int64{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int64{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

func spreadBits(v int64) int64 {
	var r int64
	for i := uint(0); i < 32; i++ {
		if (v>>i)&1 == 1 {
			r |= 1 << (2 * i)
		}
	}
	return r
}

func compressBits(v int64) int64 {
	var r int64
	for i := uint(0); i < 32; i++ {
		if (v>>(2*i))&1 == 1 {
			r |= 1 << i
		}
	}
	return r
}

func (b *Base) xyf2nest(ix, iy int64, face int) int64 {
	return int64(face)<<(2*uint(b.order)) + spreadBits(ix) + spreadBits(iy)<<1
}

func (b *Base) nest2xyf(pix int64) (ix, iy int64, face int) {
	face = int(pix >> (2 * uint(b.order)))
	ipf := pix & (b.npface - 1)
	return compressBits(ipf), compressBits(ipf >> 1), face
}

// Ang2Pix returns the nested pixel containing the pointing (theta colatitude, phi
// longitude, both radians).
func (b *Base) Ang2Pix(theta, phi float64) (int64, error) {
	if math.IsNaN(theta) || math.IsNaN(phi) || math.IsInf(phi, 0) || theta < 0 || theta > math.Pi {
		return -1, fmt.Errorf("ang2pix (%g,%g): %w", theta, phi, ErrBadPointing)
	}

	nside := b.nside
	z := math.Cos(theta)
	za := math.Abs(z)
	tt := math.Mod(phi*2/math.Pi, 4.0)
	if tt < 0 {
		tt += 4
	}

	if za <= 2.0/3.0 {
		// Equatorial region
		t1 := float64(nside) * (0.5 + tt)
		t2 := float64(nside) * z * 0.75
		jp := int64(t1 - t2)
		jm := int64(t1 + t2)
		ifp := jp >> uint(b.order)
		ifm := jm >> uint(b.order)
		var face int64
		switch {
		case ifp == ifm:
			face = ifp | 4
		case ifp < ifm:
			face = ifp
		default:
			face = ifm + 8
		}
		ix := jm & (nside - 1)
		iy := nside - (jp & (nside - 1)) - 1
		return b.xyf2nest(ix, iy, int(face)), nil
	}

	// Polar caps
	ntt := int64(tt)
	if ntt > 3 {
		ntt = 3
	}
	tp := tt - float64(ntt)
	tmp := float64(nside) * math.Sqrt(3*(1-za))
	jp := int64(tp * tmp)
	jm := int64((1 - tp) * tmp)
	if jp > nside-1 {
		jp = nside - 1
	}
	if jm > nside-1 {
		jm = nside - 1
	}
	if z >= 0 {
		return b.xyf2nest(nside-jm-1, nside-jp-1, int(ntt)), nil
	}
	return b.xyf2nest(jp, jm, int(ntt)+8), nil
}

// Pix2Ang returns the pointing (theta, phi) of the centre of a nested pixel.
func (b *Base) Pix2Ang(pix int64) (theta, phi float64, err error) {
	if pix < 0 || pix >= b.npix {
		return 0, 0, fmt.Errorf("pix2ang %d (npix %d): %w", pix, b.npix, ErrBadPixel)
	}

	nside := b.nside
	ix, iy, face := b.nest2xyf(pix)
	jr := (jrll[face] << uint(b.order)) - ix - iy - 1

	var nr int64
	var z float64
	switch {
	case jr < nside:
		nr = jr
		z = 1 - float64(nr*nr)*b.fact2
	case jr > 3*nside:
		nr = 4*nside - jr
		z = float64(nr*nr)*b.fact2 - 1
	default:
		nr = nside
		z = float64(2*nside-jr) * b.fact1
	}

	tmp := jpll[face]*nr + ix - iy
	if tmp < 0 {
		tmp += 8 * nr
	}
	if nr == nside {
		phi = 0.75 * math.Pi / 2 * float64(tmp) * b.fact1
	} else {
		phi = (0.5 * math.Pi / 2 * float64(tmp)) / float64(nr)
	}
	return math.Acos(z), phi, nil
}

var (
	xoffset = [8]int64{-1, -1, 0, 1, 1, 1, 0, -1}
	yoffset = [8]int64{0, 1, 1, 1, 0, -1, -1, -1}

	facearray = [9][12]int{
		{8, 9, 10, 11, -1, -1, -1, -1, 10, 11, 8, 9}, // S
		{5, 6, 7, 4, 8, 9, 10, 11, 9, 10, 11, 8},     // SE
		{-1, -1, -1, -1, 5, 6, 7, 4, -1, -1, -1, -1}, // E
		{4, 5, 6, 7, 11, 8, 9, 10, 11, 8, 9, 10},     // SW
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},       // center
		{1, 2, 3, 0, 0, 1, 2, 3, 5, 6, 7, 4},         // NE
		{-1, -1, -1, -1, 7, 4, 5, 6, -1, -1, -1, -1}, // W
		{3, 0, 1, 2, 3, 0, 1, 2, 4, 5, 6, 7},         // NW
		{2, 3, 0, 1, -1, -1, -1, -1, 0, 1, 2, 3},     // N
	}

	// bit 0: flip x, bit 1: flip y, bit 2: swap x and y
	swaparray = [9][3]int{
		{0, 0, 3}, // S
		{0, 0, 6}, // SE
		{0, 0, 0}, // E
		{0, 0, 5}, // SW
		{0, 0, 0}, // center
		{5, 0, 0}, // NE
		{0, 0, 0}, // W
		{6, 0, 0}, // NW
		{3, 0, 0}, // N
	}
)

// Neighbors returns the 8 neighbours of pix in the raw healpix_cxx order
// SW, W, NW, N, NE, E, SE, S. A missing neighbour (only possible where three faces meet)
// is returned as -1.
func (b *Base) Neighbors(pix int64) ([8]int64, error) {
	var result [8]int64
	if pix < 0 || pix >= b.npix {
		return result, fmt.Errorf("neighbors %d (npix %d): %w", pix, b.npix, ErrBadPixel)
	}

	nside := b.nside
	ix, iy, face := b.nest2xyf(pix)

	for i := 0; i < 8; i++ {
		x := ix + xoffset[i]
		y := iy + yoffset[i]
		nbnum := 4
		if x < 0 {
			x += nside
			nbnum--
		} else if x >= nside {
			x -= nside
			nbnum++
		}
		if y < 0 {
			y += nside
			nbnum -= 3
		} else if y >= nside {
			y -= nside
			nbnum += 3
		}

		f := facearray[nbnum][face]
		if f < 0 {
			result[i] = -1
			continue
		}
		bits := swaparray[nbnum][face>>2]
		if bits&1 != 0 {
			x = nside - x - 1
		}
		if bits&2 != 0 {
			y = nside - y - 1
		}
		if bits&4 != 0 {
			x, y = y, x
		}
		result[i] = b.xyf2nest(x, y, f)
	}

	return result, nil
}

// Nest adapts Base to calls that carry nside on every request. It holds no state.
type Nest struct{}

func (Nest) Ang2Pix(nside int64, theta, phi float64) (int64, error) {
	b, err := NewBase(nside, SchemeNested)
	if err != nil {
		return -1, err
	}
	return b.Ang2Pix(theta, phi)
}

func (Nest) Pix2Ang(nside int64, pix int64) (float64, float64, error) {
	b, err := NewBase(nside, SchemeNested)
	if err != nil {
		return 0, 0, err
	}
	return b.Pix2Ang(pix)
}

func (Nest) Neighbors(nside int64, pix int64) ([8]int64, error) {
	b, err := NewBase(nside, SchemeNested)
	if err != nil {
		return [8]int64{}, err
	}
	return b.Neighbors(pix)
}
