package mosaic

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// NewCanvas allocates the raw canvas for l, filled with bg.
func NewCanvas(l *Layout, bg color.Color) *image.RGBA {
	canvas := image.NewRGBA(l.CanvasBounds())
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return canvas
}

// Blit copies t's image into its own cell, unscaled and clipped to the cell. Tiles
// without an image leave the background alone. Blits of different cells touch disjoint
// pixels, so they may run concurrently.
func Blit(canvas draw.Image, l *Layout, t *Tile) {
	if !t.Retrieved || t.Image == nil {
		return
	}
	r := l.CellRect(t.GridX, t.GridY).Intersect(canvas.Bounds())
	draw.Draw(canvas, r, t.Image, t.Image.Bounds().Min, draw.Src)
}

// AssembleRaw paints every retrieved tile onto a fresh canvas. Missing tiles stay
// background; a mosaic with no tiles at all is still a valid canvas.
func AssembleRaw(l *Layout, bg color.Color) *image.RGBA {
	canvas := NewCanvas(l, bg)
	for _, t := range l.Tiles {
		Blit(canvas, l, t)
	}
	return canvas
}
