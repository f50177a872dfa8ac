// Package hips turns sky coordinates into HiPS tile addresses: HEALPix pixels at a given
// order, their compass neighbours, grids of pixels around a centre, and the survey tile
// locators that name each pixel's image.
package hips

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/abworrall/hips-mosaic/pkg/emath"
	"github.com/abworrall/hips-mosaic/pkg/healpix"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

const MaxOrder = healpix.MaxOrder

var (
	ErrInvalidOrder   = errors.New("invalid HEALPix order")
	ErrInvalidAddress = errors.New("invalid pixel address")
)

// Primitive is the HEALPix pixel/angle conversion we depend on. The scheme is always
// nested. healpix.Nest is the production implementation.
type Primitive interface {
	Ang2Pix(nside int64, theta, phi float64) (int64, error)
	Pix2Ang(nside int64, pix int64) (theta, phi float64, err error)
	Neighbors(nside int64, pix int64) ([8]int64, error)
}

// PixelAddress is a nested HEALPix pixel at one order. Addresses at different orders
// never refer to the same thing; recompute rather than convert.
type PixelAddress struct {
	Index int64
	Order int
}

// InvalidAddress is the sentinel returned when the primitive fails.
func InvalidAddress(order int) PixelAddress { return PixelAddress{Index: -1, Order: order} }

func Nside(order int) int64 { return healpix.OrderToNside(order) }
func Npix(order int) int64  { return 12 * Nside(order) * Nside(order) }

func (a PixelAddress) Nside() int64 { return Nside(a.Order) }

func (a PixelAddress) Valid() bool {
	return a.Order >= 0 && a.Order <= MaxOrder && a.Index >= 0 && a.Index < Npix(a.Order)
}

func (a PixelAddress) String() string {
	if a.Index < 0 {
		return fmt.Sprintf("Norder%d/<invalid>", a.Order)
	}
	return fmt.Sprintf("Norder%d/Npix%d", a.Order, a.Index)
}

func validateOrder(order int) error {
	if order < 0 || order > MaxOrder {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrInvalidOrder, order, MaxOrder)
	}
	return nil
}

// Resolution is the approximate angular size of a pixel at this order, in radians.
func Resolution(order int) float64 {
	return math.Sqrt(math.Pi/3) / float64(Nside(order))
}

// ArcsecPerPixel is the image scale of a tile of tileSize pixels at this order.
func ArcsecPerPixel(order, tileSize int) float64 {
	return Resolution(order) * emath.ArcsecPerRadian / float64(tileSize)
}

// Index maps between sky coordinates and pixel addresses.
type Index struct {
	prim Primitive
}

func NewIndex(p Primitive) *Index {
	if p == nil {
		p = healpix.Nest{}
	}
	return &Index{prim: p}
}

// ToPixel returns the pixel containing c at the given order. Bad input is an error; a
// failure inside the primitive yields InvalidAddress(order), which the caller must check.
func (ix *Index) ToPixel(c sky.Coord, order int) (PixelAddress, error) {
	if err := validateOrder(order); err != nil {
		return PixelAddress{}, err
	}
	if err := c.Validate(); err != nil {
		return PixelAddress{}, err
	}

	theta, phi := c.Pointing()
	pix, err := ix.prim.Ang2Pix(Nside(order), theta, phi)
	if err != nil {
		log.Printf("hips: ang2pix(%s, order %d) failed: %v\n", c, order, err)
		return InvalidAddress(order), nil
	}
	addr := PixelAddress{Index: pix, Order: order}
	if !addr.Valid() {
		log.Printf("hips: ang2pix(%s, order %d) returned out of range pixel %d\n", c, order, pix)
		return InvalidAddress(order), nil
	}
	return addr, nil
}

// ToSky returns the sky position of the centre of the pixel.
func (ix *Index) ToSky(a PixelAddress) (sky.Coord, error) {
	if !a.Valid() {
		return sky.Coord{}, fmt.Errorf("tosky %s: %w", a, ErrInvalidAddress)
	}
	theta, phi, err := ix.prim.Pix2Ang(a.Nside(), a.Index)
	if err != nil {
		return sky.Coord{}, fmt.Errorf("tosky %s: %w", a, err)
	}
	return sky.FromPointing(theta, phi), nil
}
