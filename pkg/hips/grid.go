package hips

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/abworrall/hips-mosaic/pkg/emath"
)

var ErrInvalidGridSize = errors.New("grid width and height must be positive")

// CellState says how much to trust a grid cell's pixel.
type CellState int

const (
	CellNoData    CellState = iota // no pixel here (e.g. a missing neighbour)
	CellExact                      // the centre, or a true HEALPix neighbour of it
	CellEstimated                  // linear estimate, may not be a true neighbour
)

func (s CellState) String() string {
	switch s {
	case CellNoData:
		return "nodata"
	case CellExact:
		return "exact"
	case CellEstimated:
		return "estimated"
	}
	return fmt.Sprintf("CellState(%d)", int(s))
}

type Cell struct {
	Address PixelAddress
	State   CellState
}

func (c Cell) HasData() bool { return c.State != CellNoData && c.Address.Valid() }

// GridStatus records which strategy produced a grid.
type GridStatus int

const (
	GridExact                GridStatus = iota // 3x3, every cell a true neighbour
	GridEmbeddedWithFallback                   // exact 3x3 centre block, estimated outer cells
	GridPureEstimate                           // validation failed, every cell estimated
)

func (s GridStatus) String() string {
	switch s {
	case GridExact:
		return "exact"
	case GridEmbeddedWithFallback:
		return "embedded-with-fallback"
	case GridPureEstimate:
		return "pure-estimate"
	}
	return fmt.Sprintf("GridStatus(%d)", int(s))
}

// TileGrid is a Width x Height array of pixels. Row 0 is the northernmost row and
// column 0 the westernmost, so a tile at (x,y) is drawn at (x*tileSize, y*tileSize).
type TileGrid struct {
	Width, Height    int
	CenterX, CenterY int
	Center           PixelAddress
	Status           GridStatus
	Cells            [][]Cell // [y][x]
}

func newTileGrid(center PixelAddress, w, h int) TileGrid {
	g := TileGrid{
		Width:   w,
		Height:  h,
		CenterX: w / 2,
		CenterY: h / 2,
		Center:  center,
		Cells:   make([][]Cell, h),
	}
	for y := range g.Cells {
		g.Cells[y] = make([]Cell, w)
		for x := range g.Cells[y] {
			g.Cells[y][x] = Cell{Address: InvalidAddress(center.Order), State: CellNoData}
		}
	}
	return g
}

func (g TileGrid) Order() int { return g.Center.Order }

func (g TileGrid) InBounds(x, y int) bool { return x >= 0 && x < g.Width && y >= 0 && y < g.Height }

func (g TileGrid) At(x, y int) Cell {
	if !g.InBounds(x, y) {
		return Cell{Address: InvalidAddress(g.Center.Order), State: CellNoData}
	}
	return g.Cells[y][x]
}

// CenterBlock returns the 3x3 block around the centre cell. The bool is false if the
// block does not fit inside the grid.
func (g TileGrid) CenterBlock() ([3][3]Cell, bool) {
	var block [3][3]Cell
	fits := true
	for by := 0; by < 3; by++ {
		for bx := 0; bx < 3; bx++ {
			x, y := g.CenterX-1+bx, g.CenterY-1+by
			if !g.InBounds(x, y) {
				fits = false
			}
			block[by][bx] = g.At(x, y)
		}
	}
	return block, fits
}

// Count returns how many cells are in each state.
func (g TileGrid) Count(s CellState) int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if c.State == s {
				n++
			}
		}
	}
	return n
}

func (g TileGrid) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "TileGrid %dx%d around %s [%s]\n", g.Width, g.Height, g.Center, g.Status)
	for y, row := range g.Cells {
		for x, c := range row {
			mark := " "
			switch {
			case x == g.CenterX && y == g.CenterY:
				mark = "*"
			case c.State == CellEstimated:
				mark = "~"
			}
			if c.State == CellNoData {
				fmt.Fprintf(&sb, " %10s%s", "-", mark)
			} else {
				fmt.Fprintf(&sb, " %10d%s", c.Address.Index, mark)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Build3x3 puts center at (1,1) and its compass neighbours around it:
//
//	NW N NE
//	W  C  E
//	SW S SE
//
// Missing neighbours become CellNoData.
func (ix *Index) Build3x3(center PixelAddress) (TileGrid, error) {
	if !center.Valid() {
		return TileGrid{}, fmt.Errorf("build3x3 %s: %w", center, ErrInvalidAddress)
	}
	ns, err := ix.Neighbors(center)
	if err != nil {
		return TileGrid{}, err
	}

	g := newTileGrid(center, 3, 3)
	g.Status = GridExact
	g.Cells[1][1] = Cell{Address: center, State: CellExact}
	for _, d := range Directions {
		dx, dy := d.GridOffset()
		if addr, ok := ns.Get(d); ok {
			g.Cells[1+dy][1+dx] = Cell{Address: addr, State: CellExact}
		}
	}
	return g, nil
}

// BuildNxM builds a w x h grid with center at (w/2, h/2). A 3x3 request is exact. Larger
// grids embed the exact 3x3 block at the centre and estimate every other cell with
// EstimatePixel; those outer cells are plausible, not guaranteed neighbours. If the
// embedded block fails validation, the whole grid is estimated instead.
func (ix *Index) BuildNxM(center PixelAddress, w, h int) (TileGrid, error) {
	if w < 1 || h < 1 {
		return TileGrid{}, fmt.Errorf("buildNxM %dx%d: %w", w, h, ErrInvalidGridSize)
	}
	if !center.Valid() {
		return TileGrid{}, fmt.Errorf("buildNxM %s: %w", center, ErrInvalidAddress)
	}
	if w == 3 && h == 3 {
		return ix.Build3x3(center)
	}

	block, err := ix.Build3x3(center)
	if err != nil {
		return TileGrid{}, err
	}

	g := newTileGrid(center, w, h)
	g.Status = GridEmbeddedWithFallback
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.Cells[y][x] = Cell{
				Address: EstimatePixel(center, x-g.CenterX, y-g.CenterY),
				State:   CellEstimated,
			}
		}
	}
	for by := 0; by < 3; by++ {
		for bx := 0; bx < 3; bx++ {
			x, y := g.CenterX-1+bx, g.CenterY-1+by
			if g.InBounds(x, y) {
				g.Cells[y][x] = block.Cells[by][bx]
			}
		}
	}

	if err := ix.validateEmbedding(g); err != nil {
		log.Printf("hips: %dx%d grid around %s failed validation (%v), using pure estimate\n", w, h, center, err)
		return PureEstimateGrid(center, w, h), nil
	}
	return g, nil
}

// validateEmbedding recomputes the 3x3 block and checks the grid's centre block matches
// it cell for cell.
func (ix *Index) validateEmbedding(g TileGrid) error {
	ref, err := ix.Build3x3(g.Center)
	if err != nil {
		return err
	}
	for by := 0; by < 3; by++ {
		for bx := 0; bx < 3; bx++ {
			x, y := g.CenterX-1+bx, g.CenterY-1+by
			if !g.InBounds(x, y) {
				continue
			}
			if got, want := g.Cells[y][x], ref.Cells[by][bx]; got != want {
				return fmt.Errorf("cell (%d,%d) is %d/%s, want %d/%s",
					x, y, got.Address.Index, got.State, want.Address.Index, want.State)
			}
		}
	}
	return nil
}

// PureEstimateGrid applies EstimatePixel to every cell, including the centre.
func PureEstimateGrid(center PixelAddress, w, h int) TileGrid {
	g := newTileGrid(center, w, h)
	g.Status = GridPureEstimate
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			state := CellEstimated
			if x == g.CenterX && y == g.CenterY {
				state = CellExact
			}
			g.Cells[y][x] = Cell{Address: EstimatePixel(center, x-g.CenterX, y-g.CenterY), State: state}
		}
	}
	return g
}

// EstimateSpacing is the index step per grid column used by EstimatePixel.
func EstimateSpacing(order int) int64 {
	spacing := Nside(order) / 32
	if spacing < 1 {
		spacing = 1
	}
	return spacing
}

// EstimatePixel guesses the pixel dx columns and dy rows away from center as
// center + dy*spacing*8 + dx*spacing, clamped to the valid range. This is a heuristic
// with no geometric basis; accuracy falls off quickly away from the centre.
func EstimatePixel(center PixelAddress, dx, dy int) PixelAddress {
	spacing := EstimateSpacing(center.Order)
	idx := center.Index + int64(dy)*spacing*8 + int64(dx)*spacing
	idx = emath.ClampInt64(idx, 0, Npix(center.Order)-1)
	return PixelAddress{Index: idx, Order: center.Order}
}
