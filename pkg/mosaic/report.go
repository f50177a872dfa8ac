package mosaic

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

var reportHeader = []string{"Grid_X", "Grid_Y", "HEALPix_Pixel", "Tile_RA", "Tile_Dec", "Downloaded", "ImageSize", "Filename"}

// WriteReport writes one CSV row per tile of the layout.
func WriteReport(w io.Writer, l *Layout) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}

	for _, t := range l.Tiles {
		pixel, ra, dec := "", "", ""
		if t.HasData() {
			pixel = strconv.FormatInt(t.Address.Index, 10)
			ra = strconv.FormatFloat(t.SkyCenter.RA, 'f', 6, 64)
			dec = strconv.FormatFloat(t.SkyCenter.Dec, 'f', 6, 64)
		}
		size := ""
		if t.Retrieved && t.Image != nil {
			b := t.Image.Bounds()
			size = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
		}
		row := []string{
			strconv.Itoa(t.GridX),
			strconv.Itoa(t.GridY),
			pixel, ra, dec,
			strconv.FormatBool(t.Retrieved),
			size,
			t.Filename,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteReportFile(l *Layout, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}
	defer f.Close()
	return WriteReport(f, l)
}
