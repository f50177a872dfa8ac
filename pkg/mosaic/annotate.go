package mosaic

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"github.com/abworrall/hips-mosaic/pkg/hips"
)

// Annotate returns a copy of img with a crosshair on p and the given lines of text in
// the top left corner.
func Annotate(img image.Image, p image.Point, lines []string, c color.Color) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(c)
	dc.SetLineWidth(2)

	x, y := float64(p.X)+0.5, float64(p.Y)+0.5
	gap, arm := 12.0, 40.0
	dc.DrawLine(x-gap-arm, y, x-gap, y)
	dc.DrawLine(x+gap, y, x+gap+arm, y)
	dc.DrawLine(x, y-gap-arm, x, y-gap)
	dc.DrawLine(x, y+gap, x, y+gap+arm)
	dc.Stroke()

	dc.DrawCircle(x, y, 3)
	dc.Fill()

	for i, line := range lines {
		// shadow first, so labels read on bright fields
		dc.SetRGB(0, 0, 0)
		dc.DrawString(line, 11, 21+float64(i)*16)
		dc.SetColor(c)
		dc.DrawString(line, 10, 20+float64(i)*16)
	}

	return dc.Image()
}

var cellStateColors = map[hips.CellState]color.RGBA{
	hips.CellExact:     {0, 200, 0, 255},
	hips.CellEstimated: {230, 200, 0, 255},
	hips.CellNoData:    {220, 0, 0, 255},
}

// DebugGrid outlines every cell of the raw canvas, coloured by how its pixel was found,
// and labels it with the pixel index.
func DebugGrid(canvas image.Image, l *Layout) image.Image {
	dc := gg.NewContextForImage(canvas)
	dc.SetLineWidth(2)

	for _, t := range l.Tiles {
		r := l.CellRect(t.GridX, t.GridY)
		dc.SetColor(cellStateColors[t.State])
		dc.DrawRectangle(float64(r.Min.X)+2, float64(r.Min.Y)+2, float64(r.Dx())-4, float64(r.Dy())-4)
		dc.Stroke()

		label := "no data"
		if t.HasData() {
			label = t.Address.String()
		}
		if t.HasData() && !t.Retrieved {
			label += " (missing)"
		}
		dc.DrawString(label, float64(r.Min.X)+8, float64(r.Min.Y)+20)
	}

	return dc.Image()
}
