package mosaic

import (
	"image"

	"golang.org/x/image/draw"
)

// Preview scales img so its longer side is maxSide, keeping the aspect ratio. Images
// already small enough are copied unscaled.
func Preview(img image.Image, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		if w >= h {
			w, h = maxSide, h*maxSide/w
		} else {
			w, h = w*maxSide/h, maxSide
		}
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ZoomAround crops a side x side square centred on p (moved inside img if needed) and
// scales it to outSize x outSize.
func ZoomAround(img image.Image, p image.Point, side, outSize int) *image.RGBA {
	b := img.Bounds()
	if side > b.Dx() {
		side = b.Dx()
	}
	if side > b.Dy() {
		side = b.Dy()
	}
	sr := SquareAround(p, side)
	if sr.Min.X < b.Min.X {
		sr = sr.Add(image.Pt(b.Min.X-sr.Min.X, 0))
	}
	if sr.Min.Y < b.Min.Y {
		sr = sr.Add(image.Pt(0, b.Min.Y-sr.Min.Y))
	}
	if sr.Max.X > b.Max.X {
		sr = sr.Sub(image.Pt(sr.Max.X-b.Max.X, 0))
	}
	if sr.Max.Y > b.Max.Y {
		sr = sr.Sub(image.Pt(0, sr.Max.Y-b.Max.Y))
	}

	dst := image.NewRGBA(image.Rect(0, 0, outSize, outSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, sr, draw.Src, nil)
	return dst
}

// ZoomSide is the crop side, in pixels, that frames an object of sizeArcmin with
// some margin, never less than minSide.
func ZoomSide(sizeArcmin, arcsecPerPixel float64, minSide int) int {
	if arcsecPerPixel <= 0 {
		return minSide
	}
	side := int(sizeArcmin * 60 * 1.5 / arcsecPerPixel)
	if side < minSide {
		side = minSide
	}
	return side
}
