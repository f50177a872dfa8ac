package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

var (
	fOrder  int
	fWidth  int
	fHeight int
	fRA     string
	fDec    string
	fNoDirs bool
)

type position struct {
	Name string
	sky.Coord
}

// Spread over the sky: equator, poles-ish, both hemispheres, RA wraparound.
var positions = []position{
	{"Orion", sky.Coord{RA: 83.8221, Dec: -5.3911}},
	{"Galactic Center", sky.Coord{RA: 266.4168, Dec: -29.0078}},
	{"Virgo", sky.Coord{RA: 187.7059, Dec: 12.3911}},
	{"Ursa Major", sky.Coord{RA: 165.9319, Dec: 61.7511}},
	{"(0,0)", sky.Coord{RA: 0, Dec: 0}},
	{"(180,0)", sky.Coord{RA: 180, Dec: 0}},
	{"M31", sky.Coord{RA: 10.6847, Dec: 41.2687}},
	{"Centaurus", sky.Coord{RA: 201.3651, Dec: -43.0191}},
	{"M51", sky.Coord{RA: 202.4695833, Dec: 47.1951667}},
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	centreStyle = cellStyle.Foreground(lipgloss.Color("229")).Bold(true)
	estStyle    = cellStyle.Foreground(lipgloss.Color("214"))
	dimStyle    = cellStyle.Foreground(lipgloss.Color("60"))
	errorStyle  = cellStyle.Foreground(lipgloss.Color("#E84A27"))
)

func init() {
	flag.IntVar(&fOrder, "order", 8, "HEALPix order")
	flag.IntVar(&fWidth, "w", 3, "grid width")
	flag.IntVar(&fHeight, "h", 3, "grid height")
	flag.StringVar(&fRA, "ra", "", "look at this RA instead of the standard positions")
	flag.StringVar(&fDec, "dec", "", "look at this Dec instead of the standard positions")
	flag.BoolVar(&fNoDirs, "nodirs", false, "skip the neighbour direction check")
	flag.Parse()

	log.Printf("hips-grid starting\n")
}

func gridTable(g hips.TileGrid) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle)

	for y := 0; y < g.Height; y++ {
		row := make([]string, g.Width)
		for x := 0; x < g.Width; x++ {
			c := g.At(x, y)
			switch {
			case !c.HasData():
				row[x] = "-"
			case c.State == hips.CellEstimated:
				row[x] = "~" + strconv.FormatInt(c.Address.Index, 10)
			default:
				row[x] = strconv.FormatInt(c.Address.Index, 10)
			}
		}
		t.Row(row...)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		c := g.At(col, row)
		switch {
		case col == g.CenterX && row == g.CenterY:
			return centreStyle
		case !c.HasData():
			return dimStyle
		case c.State == hips.CellEstimated:
			return estStyle
		}
		return cellStyle
	})
	return t.String()
}

func directionTable(checks [hips.NumDirections]hips.DirectionCheck) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Dir", "Pixel", "East\"", "North\"", "Align", "")

	for _, dc := range checks {
		if !dc.Present {
			t.Row(dc.Direction.String(), "-", "", "", "", "absent")
			continue
		}
		ok := "ok"
		if !dc.OK() {
			ok = "WRONG"
		}
		t.Row(dc.Direction.String(), strconv.FormatInt(dc.Address.Index, 10),
			fmt.Sprintf("%.0f", dc.East), fmt.Sprintf("%.0f", dc.North),
			fmt.Sprintf("%.3f", dc.Alignment), ok)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 5 && !checks[row].OK() {
			return errorStyle
		}
		return cellStyle
	})
	return t.String()
}

func show(ix *hips.Index, p position) error {
	center, err := ix.ToPixel(p.Coord, fOrder)
	if err != nil {
		return err
	}
	g, err := ix.BuildNxM(center, fWidth, fHeight)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%s  %s  %s  %s", p.Name, p.Coord.Sexagesimal(), center, g.Status)))
	fmt.Println(gridTable(g))

	if !fNoDirs {
		checks, err := hips.CheckDirections(ix, p.Coord, fOrder)
		if err != nil {
			return err
		}
		fmt.Println(directionTable(checks))
	}
	fmt.Println()
	return nil
}

func main() {
	ps := positions
	if fRA != "" || fDec != "" {
		c, err := sky.Parse(fRA, fDec)
		if err != nil {
			log.Fatal(err)
		}
		ps = []position{{"target", c}}
	}

	ix := hips.NewIndex(nil)
	failed := 0
	for _, p := range ps {
		if err := show(ix, p); err != nil {
			log.Printf("%s: %v\n", p.Name, err)
			failed++
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d positions failed\n", failed, len(ps))
	}
}
