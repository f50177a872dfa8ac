package hips

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hips-mosaic/pkg/healpix"
)

func exact(idx int64) Cell     { return Cell{Address: PixelAddress{Index: idx, Order: 8}, State: CellExact} }
func estimated(idx int64) Cell { return Cell{Address: PixelAddress{Index: idx, Order: 8}, State: CellEstimated} }

func TestBuild3x3M51(t *testing.T) {
	ix := NewIndex(nil)
	center, err := ix.ToPixel(m51, 8)
	require.NoError(t, err)

	g, err := ix.Build3x3(center)
	require.NoError(t, err)
	assert.Equal(t, GridExact, g.Status)
	assert.Equal(t, 1, g.CenterX)
	assert.Equal(t, 1, g.CenterY)

	want := [][]Cell{
		{exact(176442), exact(176443), exact(176441)},
		{exact(176431), exact(176440), exact(176435)},
		{exact(176429), exact(176423), exact(176434)},
	}
	if diff := cmp.Diff(want, g.Cells); diff != "" {
		t.Errorf("3x3 around M51 (-want +got):\n%s", diff)
	}

	// Re-querying the centre cell gives back the same pixel
	assert.Equal(t, center, g.At(g.CenterX, g.CenterY).Address)
}

func TestBuild3x3MissingNeighbour(t *testing.T) {
	ix := NewIndex(nil)
	g, err := ix.Build3x3(PixelAddress{Index: 21845, Order: 8})
	require.NoError(t, err)

	east := g.At(2, 1)
	assert.Equal(t, CellNoData, east.State)
	assert.False(t, east.HasData())
	assert.Equal(t, 1, g.Count(CellNoData))
	assert.Equal(t, 8, g.Count(CellExact))
}

func TestBuild3x3PrimitiveFailure(t *testing.T) {
	ix := NewIndex(failingPrimitive{})
	g, err := ix.Build3x3(PixelAddress{Index: 176440, Order: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, g.Count(CellNoData))
	assert.Equal(t, CellExact, g.At(1, 1).State)

	_, err = ix.Build3x3(InvalidAddress(8))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestBuildNxMDelegatesFor3x3(t *testing.T) {
	ix := NewIndex(nil)
	center := PixelAddress{Index: 176440, Order: 8}
	a, err := ix.Build3x3(center)
	require.NoError(t, err)
	b, err := ix.BuildNxM(center, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildNxM5x5(t *testing.T) {
	ix := NewIndex(nil)
	center := PixelAddress{Index: 176440, Order: 8}

	g, err := ix.BuildNxM(center, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, GridEmbeddedWithFallback, g.Status)
	assert.Equal(t, 2, g.CenterX)
	assert.Equal(t, 2, g.CenterY)
	assert.Equal(t, 9, g.Count(CellExact))
	assert.Equal(t, 16, g.Count(CellEstimated))

	// spacing at order 8 is 256/32 = 8
	assert.Equal(t, estimated(176440-2*64-2*8), g.At(0, 0))
	assert.Equal(t, estimated(176440+2*64+2*8), g.At(4, 4))
	assert.Equal(t, estimated(176440+2*8), g.At(4, 2))
	assert.Equal(t, estimated(176440-2*64), g.At(2, 0))
}

func TestBuildNxMEmbedsExactBlock(t *testing.T) {
	ix := NewIndex(nil)
	sizes := [][2]int{{3, 4}, {4, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 3}, {9, 9}}

	for _, order := range []int{2, 8, 12} {
		for _, c := range testPositions {
			center, err := ix.ToPixel(c, order)
			require.NoError(t, err)
			ref, err := ix.Build3x3(center)
			require.NoError(t, err)

			for _, sz := range sizes {
				g, err := ix.BuildNxM(center, sz[0], sz[1])
				require.NoError(t, err)
				require.Equal(t, GridEmbeddedWithFallback, g.Status)

				block, fits := g.CenterBlock()
				require.True(t, fits)
				for by := 0; by < 3; by++ {
					assert.Equal(t, ref.Cells[by][:], block[by][:],
						"order %d, %s, %dx%d, row %d", order, c, sz[0], sz[1], by)
				}
			}
		}
	}
}

func TestBuildNxMSmallGrids(t *testing.T) {
	ix := NewIndex(nil)
	center := PixelAddress{Index: 176440, Order: 8}

	g, err := ix.BuildNxM(center, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, exact(176440), g.At(0, 0))

	g, err = ix.BuildNxM(center, 2, 2)
	require.NoError(t, err)
	// centre at (1,1); NW, N and W neighbours fit, the rest of the block does not
	assert.Equal(t, exact(176440), g.At(1, 1))
	assert.Equal(t, exact(176442), g.At(0, 0))
	assert.Equal(t, exact(176443), g.At(1, 0))
	assert.Equal(t, exact(176431), g.At(0, 1))
	_, fits := g.CenterBlock()
	assert.False(t, fits)
}

func TestBuildNxMRejectsBadInput(t *testing.T) {
	ix := NewIndex(nil)
	center := PixelAddress{Index: 176440, Order: 8}

	_, err := ix.BuildNxM(center, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidGridSize)
	_, err = ix.BuildNxM(center, 4, -1)
	assert.ErrorIs(t, err, ErrInvalidGridSize)
	_, err = ix.BuildNxM(InvalidAddress(8), 5, 5)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestBuildNxMMissingNeighbourPropagates(t *testing.T) {
	ix := NewIndex(nil)
	g, err := ix.BuildNxM(PixelAddress{Index: 21845, Order: 8}, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, GridEmbeddedWithFallback, g.Status)
	assert.Equal(t, CellNoData, g.At(3, 2).State)
	assert.Equal(t, 1, g.Count(CellNoData))
}

// flakyPrimitive answers neighbour queries differently after the first one.
type flakyPrimitive struct {
	healpix.Nest
	calls int
}

func (p *flakyPrimitive) Neighbors(nside, pix int64) ([8]int64, error) {
	raw, err := p.Nest.Neighbors(nside, pix)
	p.calls++
	if p.calls > 1 {
		raw[3]++
	}
	return raw, err
}

func TestBuildNxMFallsBackToPureEstimate(t *testing.T) {
	ix := NewIndex(&flakyPrimitive{})
	center := PixelAddress{Index: 176440, Order: 8}

	g, err := ix.BuildNxM(center, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, GridPureEstimate, g.Status)
	assert.Equal(t, PureEstimateGrid(center, 5, 5), g)
	assert.Equal(t, exact(176440), g.At(2, 2))
	assert.Equal(t, estimated(176440-64), g.At(2, 1))
	assert.Equal(t, 24, g.Count(CellEstimated))
}

func TestEstimatePixelClamps(t *testing.T) {
	first := PixelAddress{Index: 0, Order: 8}
	last := PixelAddress{Index: Npix(8) - 1, Order: 8}

	assert.Equal(t, first, EstimatePixel(first, -3, -3))
	assert.Equal(t, last, EstimatePixel(last, 2, 2))
	assert.Equal(t, int64(1), EstimateSpacing(3))
	assert.Equal(t, int64(8), EstimateSpacing(8))

	g := PureEstimateGrid(first, 4, 4)
	for _, row := range g.Cells {
		for _, c := range row {
			assert.True(t, c.Address.Valid())
		}
	}
}

func TestTileGridString(t *testing.T) {
	ix := NewIndex(nil)
	g, err := ix.BuildNxM(PixelAddress{Index: 176440, Order: 8}, 4, 3)
	require.NoError(t, err)
	s := g.String()
	assert.Contains(t, s, "4x3")
	assert.Contains(t, s, "176440*")
	assert.Contains(t, s, "embedded-with-fallback")
}
