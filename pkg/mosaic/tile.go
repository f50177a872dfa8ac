package mosaic

import (
	"fmt"
	"image"
	"log"

	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

// A Tile is one cell of the mosaic: which HiPS pixel it shows, where that pixel points
// on the sky, and the image once the fetcher has delivered it.
type Tile struct {
	GridX, GridY int
	hips.Cell                  // pixel address and how much we trust it
	SkyCenter    sky.Coord     // where the pixel centre points
	Locator      hips.TileLocator

	Image     image.Image // nil until retrieved
	Retrieved bool
	Err       error // why retrieval failed, if it did
	Bytes     int   // size of the encoded tile
	Filename  string

	settled bool
}

func (t Tile) String() string {
	status := "pending"
	switch {
	case t.Retrieved:
		status = fmt.Sprintf("ok %dB", t.Bytes)
	case t.Err != nil:
		status = fmt.Sprintf("failed: %v", t.Err)
	case !t.HasData():
		status = "nodata"
	}
	return fmt.Sprintf("[%d,%d] %s (%s) %s, %s", t.GridX, t.GridY, t.Address, t.State, t.SkyCenter, status)
}

// Fetchable is true for tiles that name a real pixel in a known survey.
func (t Tile) Fetchable() bool { return t.HasData() && t.Locator.Valid() }

// Layout is a TileGrid materialised into tiles with sky positions and locators.
type Layout struct {
	Grid     hips.TileGrid
	TileSize int
	Tiles    []*Tile // row-major
}

// NewLayout resolves every cell of g against the sky and the named survey.
func NewLayout(ix *hips.Index, reg *hips.Registry, survey string, g hips.TileGrid, tileSize int) (*Layout, error) {
	if _, ok := reg.Get(survey); !ok {
		return nil, fmt.Errorf("layout: no survey named '%s'", survey)
	}
	if tileSize < 1 {
		return nil, fmt.Errorf("layout: tile size %d must be positive", tileSize)
	}

	l := &Layout{Grid: g, TileSize: tileSize}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := &Tile{GridX: x, GridY: y, Cell: g.At(x, y)}
			if t.HasData() {
				c, err := ix.ToSky(t.Address)
				if err != nil {
					log.Printf("layout: tile [%d,%d] %s has no sky position (%v), treating as no data\n", x, y, t.Address, err)
					t.State = hips.CellNoData
				} else {
					t.SkyCenter = c
					t.Locator = reg.Locate(survey, t.Address)
				}
			}
			l.Tiles = append(l.Tiles, t)
		}
	}
	return l, nil
}

func (l *Layout) Width() int  { return l.Grid.Width }
func (l *Layout) Height() int { return l.Grid.Height }

func (l *Layout) Tile(x, y int) *Tile {
	if !l.Grid.InBounds(x, y) {
		return nil
	}
	return l.Tiles[y*l.Grid.Width+x]
}

func (l *Layout) CenterTile() *Tile { return l.Tile(l.Grid.CenterX, l.Grid.CenterY) }

// CanvasBounds is the raw canvas: one TileSize square per cell.
func (l *Layout) CanvasBounds() image.Rectangle {
	return image.Rect(0, 0, l.Grid.Width*l.TileSize, l.Grid.Height*l.TileSize)
}

// CellRect is where the tile at (x,y) is drawn.
func (l *Layout) CellRect(x, y int) image.Rectangle {
	return image.Rect(x*l.TileSize, y*l.TileSize, (x+1)*l.TileSize, (y+1)*l.TileSize)
}

// CellCenter is the canvas pixel at the centre of cell (x,y).
func (l *Layout) CellCenter(x, y int) image.Point {
	return image.Pt(x*l.TileSize+l.TileSize/2, y*l.TileSize+l.TileSize/2)
}

func (l *Layout) Fetchable() []*Tile {
	var out []*Tile
	for _, t := range l.Tiles {
		if t.Fetchable() {
			out = append(out, t)
		}
	}
	return out
}

func (l *Layout) Retrieved() int {
	n := 0
	for _, t := range l.Tiles {
		if t.Retrieved {
			n++
		}
	}
	return n
}

func (l *Layout) String() string {
	str := fmt.Sprintf("Layout %dx%d, %dpx tiles, %s [\n", l.Grid.Width, l.Grid.Height, l.TileSize, l.Grid.Status)
	for _, t := range l.Tiles {
		str += fmt.Sprintf("  %s\n", t)
	}
	return str + "]\n"
}
