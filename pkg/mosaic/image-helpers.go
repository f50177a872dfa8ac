package mosaic

// A few helper routines for golang's image libraries

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

func RectCenter(b image.Rectangle) image.Point {
	return image.Point{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

// SquareAround is the side x side square centred on p.
func SquareAround(p image.Point, side int) image.Rectangle {
	return image.Rect(p.X-side/2, p.Y-side/2, p.X-side/2+side, p.Y-side/2+side)
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

func WriteJPEG(img image.Image, filename string, quality int) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	} else {
		defer writer.Close()
		return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
	}
}

// WriteImage picks the encoder from the filename's extension.
func WriteImage(img image.Image, filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return WriteJPEG(img, filename, 92)
	case ".png":
		return WritePNG(img, filename)
	default:
		return fmt.Errorf("write '%s': unknown image extension", filename)
	}
}
