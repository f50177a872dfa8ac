package mosaic

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"

	"github.com/abworrall/hips-mosaic/pkg/emath"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

// Centering finds where a sky coordinate lands on the raw canvas.
type Centering struct {
	TileSize          int
	ArcsecPerPixel    float64
	MaxOffsetFraction float64
}

// Placement is the outcome of TargetPixel.
type Placement struct {
	Pixel            image.Point // on the raw canvas
	Tile             *Tile       // nearest tile, nil on fallback with no candidates
	SeparationArcsec float64     // target to nearest tile centre
	OffsetArcsec     [2]float64  // east, north
	OffsetPixels     [2]float64  // x right, y down
	Fallback         bool        // Pixel is the canvas centre, not a computed position
	Reason           string
}

func (p Placement) String() string {
	if p.Fallback {
		return fmt.Sprintf("pixel %v (canvas centre fallback: %s)", p.Pixel, p.Reason)
	}
	return fmt.Sprintf("pixel %v via tile [%d,%d] %s, offset %.1f\",%.1f\" = %.2fpx,%.2fpx",
		p.Pixel, p.Tile.GridX, p.Tile.GridY, p.Tile.Address,
		p.OffsetArcsec[0], p.OffsetArcsec[1], p.OffsetPixels[0], p.OffsetPixels[1])
}

// TargetPixel picks the tile whose centre is nearest to target, converts the angular
// offset from that centre into pixels (RA scaled by cos(dec), Dec up means y down), and
// adds it to the tile's canvas centre. Offsets larger than MaxOffsetFraction of a tile
// mean the geometry is wrong, and the canvas centre is returned instead.
func (c Centering) TargetPixel(target sky.Coord, l *Layout) Placement {
	bounds := l.CanvasBounds()
	fallback := func(reason string) Placement {
		return Placement{Pixel: RectCenter(bounds), Fallback: true, Reason: reason}
	}

	var candidates []*Tile
	var dists []float64
	for _, t := range l.Tiles {
		if !t.HasData() {
			continue
		}
		candidates = append(candidates, t)
		dists = append(dists, sky.Separation(target, t.SkyCenter))
	}
	if len(candidates) == 0 {
		return fallback("no tile has a sky position")
	}
	if c.ArcsecPerPixel <= 0 {
		return fallback(fmt.Sprintf("bad image scale %v", c.ArcsecPerPixel))
	}

	i := floats.MinIdx(dists)
	nearest := candidates[i]

	east, north := target.OffsetArcsec(nearest.SkyCenter)
	dx := east / c.ArcsecPerPixel
	dy := -north / c.ArcsecPerPixel

	p := Placement{
		Tile:             nearest,
		SeparationArcsec: dists[i] * emath.ArcsecPerRadian,
		OffsetArcsec:     [2]float64{east, north},
		OffsetPixels:     [2]float64{dx, dy},
	}

	limit := float64(c.TileSize) * c.MaxOffsetFraction
	if math.Abs(dx) > limit || math.Abs(dy) > limit {
		fb := fallback(fmt.Sprintf("offset %.1fpx,%.1fpx exceeds %.1fpx", dx, dy, limit))
		fb.Tile, fb.SeparationArcsec, fb.OffsetArcsec, fb.OffsetPixels = p.Tile, p.SeparationArcsec, p.OffsetArcsec, p.OffsetPixels
		return fb
	}

	centre := l.CellCenter(nearest.GridX, nearest.GridY)
	p.Pixel = image.Pt(
		emath.ClampInt(centre.X+int(math.Round(dx)), bounds.Min.X, bounds.Max.X-1),
		emath.ClampInt(centre.Y+int(math.Round(dy)), bounds.Min.Y, bounds.Max.Y-1),
	)
	return p
}

// CenteredMosaic is the final square crop.
type CenteredMosaic struct {
	Image        *image.RGBA     // origin at (0,0)
	Crop         image.Rectangle // in raw canvas coordinates
	TargetPixel  image.Point     // in raw canvas coordinates
	TargetInCrop image.Point
	Residual     float64 // pixels between TargetInCrop and the crop centre
	Shifted      bool    // the crop hit a canvas edge and was moved
}

func (cm CenteredMosaic) Center() image.Point {
	return image.Pt(cm.Crop.Dx()/2, cm.Crop.Dy()/2)
}

// CropToCenter cuts an outputSize square out of canvas, centred on target. Near an edge
// the square is moved back inside the canvas rather than shrunk, and the resulting
// off-centre distance is reported as Residual. An outputSize larger than the canvas is
// reduced to the canvas's shorter side.
func CropToCenter(canvas *image.RGBA, target image.Point, outputSize int) (CenteredMosaic, error) {
	b := canvas.Bounds()
	if outputSize < 1 {
		return CenteredMosaic{}, fmt.Errorf("crop: output size %d must be positive", outputSize)
	}
	if !target.In(b) {
		return CenteredMosaic{}, fmt.Errorf("crop: target %v outside canvas %v", target, b)
	}

	side := outputSize
	if side > b.Dx() {
		side = b.Dx()
	}
	if side > b.Dy() {
		side = b.Dy()
	}

	x0 := target.X - side/2
	y0 := target.Y - side/2
	cx := emath.ClampInt(x0, b.Min.X, b.Max.X-side)
	cy := emath.ClampInt(y0, b.Min.Y, b.Max.Y-side)
	crop := image.Rect(cx, cy, cx+side, cy+side)

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), canvas, crop.Min, draw.Src)

	cm := CenteredMosaic{
		Image:        img,
		Crop:         crop,
		TargetPixel:  target,
		TargetInCrop: target.Sub(crop.Min),
		Shifted:      cx != x0 || cy != y0,
	}
	centre := cm.Center()
	cm.Residual = math.Hypot(float64(cm.TargetInCrop.X-centre.X), float64(cm.TargetInCrop.Y-centre.Y))
	return cm, nil
}
