package mosaic

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

var (
	m51   = sky.Coord{RA: 202.4695833, Dec: 47.1951667}
	black = color.RGBA{0, 0, 0, 255}
)

func solidImage(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// cellColor gives each grid cell a distinct colour.
func cellColor(x, y int) color.RGBA {
	return color.RGBA{uint8(40 + 30*x), uint8(40 + 30*y), 200, 255}
}

func testLayout(t *testing.T, target sky.Coord, w, h, tileSize int) *Layout {
	t.Helper()
	ix := hips.NewIndex(nil)
	center, err := ix.ToPixel(target, 8)
	require.NoError(t, err)
	g, err := ix.BuildNxM(center, w, h)
	require.NoError(t, err)
	l, err := NewLayout(ix, hips.NewRegistry(), "DSS2_Color", g, tileSize)
	require.NoError(t, err)
	return l
}

func TestNewLayout(t *testing.T) {
	l := testLayout(t, m51, 3, 3, 512)
	require.Len(t, l.Tiles, 9)
	assert.Equal(t, image.Rect(0, 0, 1536, 1536), l.CanvasBounds())

	c := l.CenterTile()
	assert.Equal(t, int64(176440), c.Address.Index)
	assert.InDelta(t, 202.5982532751092, c.SkyCenter.RA, 1e-9)
	assert.Equal(t, "http://alasky.u-strasbg.fr/DSS/DSSColor/Norder8/Dir170000/Npix176440.jpg", c.Locator.URL())
	assert.Len(t, l.Fetchable(), 9)

	assert.Equal(t, image.Rect(512, 1024, 1024, 1536), l.CellRect(1, 2))
	assert.Equal(t, image.Pt(768, 768), l.CellCenter(1, 1))
	assert.Nil(t, l.Tile(3, 0))

	_, err := NewLayout(hips.NewIndex(nil), hips.NewRegistry(), "Nope", l.Grid, 512)
	assert.Error(t, err)
}

func TestNewLayoutNoDataCells(t *testing.T) {
	ix := hips.NewIndex(nil)
	g, err := ix.Build3x3(hips.PixelAddress{Index: 21845, Order: 8})
	require.NoError(t, err)
	l, err := NewLayout(ix, hips.NewRegistry(), "DSS2_Color", g, 64)
	require.NoError(t, err)

	east := l.Tile(2, 1)
	assert.False(t, east.Fetchable())
	assert.False(t, east.Locator.Valid())
	assert.Len(t, l.Fetchable(), 8)
}

func TestAssembleRaw(t *testing.T) {
	const ts = 16
	l := testLayout(t, m51, 3, 3, ts)
	for _, tile := range l.Tiles {
		tile.Image = solidImage(ts, cellColor(tile.GridX, tile.GridY))
		tile.Retrieved = true
	}
	l.Tile(0, 2).Retrieved = false

	canvas := AssembleRaw(l, black)
	require.Equal(t, image.Rect(0, 0, 3*ts, 3*ts), canvas.Bounds())

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			want := cellColor(x, y)
			if x == 0 && y == 2 {
				want = black
			}
			r := l.CellRect(x, y)
			for _, p := range []image.Point{r.Min, r.Max.Sub(image.Pt(1, 1)), RectCenter(r)} {
				assert.Equal(t, want, canvas.RGBAAt(p.X, p.Y), "cell %d,%d at %v", x, y, p)
			}
		}
	}
}

func TestBlitClipsToCell(t *testing.T) {
	const ts = 16
	l := testLayout(t, m51, 3, 3, ts)
	red := color.RGBA{255, 0, 0, 255}

	// too big: must not spill into the neighbours
	center := l.CenterTile()
	center.Image = solidImage(ts+10, red)
	center.Retrieved = true
	// too small: the rest of the cell stays background
	corner := l.Tile(0, 0)
	corner.Image = solidImage(ts/2, red)
	corner.Retrieved = true

	canvas := AssembleRaw(l, black)
	assert.Equal(t, red, canvas.RGBAAt(ts, ts))
	assert.Equal(t, red, canvas.RGBAAt(2*ts-1, 2*ts-1))
	assert.Equal(t, black, canvas.RGBAAt(2*ts, 2*ts))
	assert.Equal(t, black, canvas.RGBAAt(2*ts, ts))

	assert.Equal(t, red, canvas.RGBAAt(ts/2-1, ts/2-1))
	assert.Equal(t, black, canvas.RGBAAt(ts/2, ts/2))
}

func TestAssembleNothingRetrieved(t *testing.T) {
	l := testLayout(t, m51, 4, 2, 8)
	bg := color.RGBA{1, 2, 3, 255}
	canvas := AssembleRaw(l, bg)
	assert.Equal(t, image.Rect(0, 0, 32, 16), canvas.Bounds())
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			require.Equal(t, bg, canvas.RGBAAt(x, y))
		}
	}
}

func TestConcurrentBlits(t *testing.T) {
	const ts = 16
	l := testLayout(t, m51, 6, 6, ts)
	canvas := NewCanvas(l, black)

	var wg sync.WaitGroup
	for _, tile := range l.Tiles {
		tile.Image = solidImage(ts, cellColor(tile.GridX, tile.GridY))
		tile.Retrieved = true
		wg.Add(1)
		go func(tile *Tile) {
			defer wg.Done()
			Blit(canvas, l, tile)
		}(tile)
	}
	wg.Wait()

	for _, tile := range l.Tiles {
		c := l.CellCenter(tile.GridX, tile.GridY)
		assert.Equal(t, cellColor(tile.GridX, tile.GridY), canvas.RGBAAt(c.X, c.Y))
	}
}
