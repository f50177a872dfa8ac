package hips

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hips-mosaic/pkg/healpix"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

var (
	m51 = sky.Coord{RA: 202.4695833, Dec: 47.1951667}

	// Positions used across the package tests; none sits on a face corner at the
	// orders we test.
	testPositions = []sky.Coord{
		m51,
		{RA: 83, Dec: -5.4},       // Orion
		{RA: 266.4, Dec: -29},     // Galactic centre
		{RA: 186.25, Dec: 12.95},  // Virgo
		{RA: 210, Dec: 54},        // Ursa Major
		{RA: 0, Dec: 0},
		{RA: 180, Dec: 0},
		{RA: 23.46, Dec: 30.66},   // M33 area
		{RA: 201, Dec: -43},       // Centaurus
	}
)

// failingPrimitive errors on every call.
type failingPrimitive struct{}

var errBoom = errors.New("boom")

func (failingPrimitive) Ang2Pix(int64, float64, float64) (int64, error) { return 0, errBoom }
func (failingPrimitive) Pix2Ang(int64, int64) (float64, float64, error) { return 0, 0, errBoom }
func (failingPrimitive) Neighbors(int64, int64) ([8]int64, error)       { return [8]int64{}, errBoom }

func TestToPixel(t *testing.T) {
	ix := NewIndex(healpix.Nest{})

	addr, err := ix.ToPixel(m51, 8)
	require.NoError(t, err)
	assert.Equal(t, PixelAddress{Index: 176440, Order: 8}, addr)
	assert.True(t, addr.Valid())

	// Same position, same answer
	again, err := ix.ToPixel(m51, 8)
	require.NoError(t, err)
	assert.Equal(t, addr, again)

	addr, err = ix.ToPixel(m51, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(176440>>16), addr.Index)
}

func TestToPixelRejectsBadInput(t *testing.T) {
	ix := NewIndex(nil)

	_, err := ix.ToPixel(m51, -1)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ix.ToPixel(m51, MaxOrder+1)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = ix.ToPixel(sky.Coord{RA: 400, Dec: 0}, 8)
	assert.ErrorIs(t, err, sky.ErrInvalidCoordinate)
	_, err = ix.ToPixel(sky.Coord{RA: 10, Dec: -95}, 8)
	assert.ErrorIs(t, err, sky.ErrInvalidCoordinate)
}

func TestToPixelPrimitiveFailureGivesSentinel(t *testing.T) {
	ix := NewIndex(failingPrimitive{})

	addr, err := ix.ToPixel(m51, 8)
	require.NoError(t, err)
	assert.False(t, addr.Valid())
	assert.Equal(t, InvalidAddress(8), addr)

	_, err = ix.ToSky(PixelAddress{Index: 176440, Order: 8})
	assert.ErrorIs(t, err, errBoom)
}

func TestToSky(t *testing.T) {
	ix := NewIndex(nil)

	c, err := ix.ToSky(PixelAddress{Index: 176440, Order: 8})
	require.NoError(t, err)
	assert.InDelta(t, 202.5982532751092, c.RA, 1e-9)
	assert.InDelta(t, 47.16134274309578, c.Dec, 1e-9)

	c, err = ix.ToSky(PixelAddress{Index: 4, Order: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, c.RA, 1e-9)
	assert.InDelta(t, 0, c.Dec, 1e-9)

	for _, bad := range []PixelAddress{InvalidAddress(8), {Index: Npix(8), Order: 8}, {Index: 0, Order: -1}} {
		_, err := ix.ToSky(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, "%v", bad)
	}
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	ix := NewIndex(nil)
	points := append([]sky.Coord{
		{RA: 0, Dec: 90},
		{RA: 0, Dec: -90},
		{RA: 359.999, Dec: 89.9},
		{RA: 45, Dec: 41.81},
		{RA: 300, Dec: -75},
		{RA: 10.6847, Dec: 41.2687},
	}, testPositions...)

	for order := 0; order <= 13; order++ {
		for _, c := range points {
			addr, err := ix.ToPixel(c, order)
			require.NoError(t, err)
			require.True(t, addr.Valid())
			back, err := ix.ToSky(addr)
			require.NoError(t, err)
			assert.LessOrEqual(t, sky.Separation(c, back), Resolution(order),
				"order %d, %s -> %s -> %s", order, c, addr, back)
		}
	}
}

func TestArcsecPerPixel(t *testing.T) {
	assert.InDelta(t, 1.610384255539409, ArcsecPerPixel(8, 512), 1e-9)
	assert.InDelta(t, 2*ArcsecPerPixel(8, 512), ArcsecPerPixel(7, 512), 1e-9)
	assert.Equal(t, int64(786432), Npix(8))
}
