package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/abworrall/hips-mosaic/pkg/catalog"
	"github.com/abworrall/hips-mosaic/pkg/fetch"
	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/ledger"
	"github.com/abworrall/hips-mosaic/pkg/mosaic"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

var (
	fVerbosity  int
	fConfigFile string

	fObject string
	fRA     string
	fDec    string

	fSurvey     string
	fOrder      int
	fGridWidth  int
	fGridHeight int
	fOutputSize int
	fOutput     string
	fWorkers    int
	fCacheDir   string
	fLedger     string

	fAnnotate  bool
	fDebugGrid bool
	fPreview   bool
	fReport    bool
	fList      bool
	fStrict    bool
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfigFile, "config", "", "yaml config file; flags override it")

	flag.StringVar(&fObject, "object", "", "Messier object to image, e.g. M51 or 'Whirlpool Galaxy'")
	flag.StringVar(&fRA, "ra", "", "target RA: degrees, decimal hours ('13.5h'), or '13:29:52.7'")
	flag.StringVar(&fDec, "dec", "", "target Dec: degrees or '+47:11:43'")

	flag.StringVar(&fSurvey, "survey", "", "HiPS survey to use")
	flag.IntVar(&fOrder, "order", -1, "HEALPix order of the tiles")
	flag.IntVar(&fGridWidth, "gridw", 0, "tiles across")
	flag.IntVar(&fGridHeight, "gridh", 0, "tiles down")
	flag.IntVar(&fOutputSize, "size", 0, "side of the output image, in pixels")
	flag.StringVar(&fOutput, "o", "", "output image filename (.png or .jpg); default is derived from the target")
	flag.IntVar(&fWorkers, "workers", 0, "parallel tile downloads")
	flag.StringVar(&fCacheDir, "cache", "", "tile cache directory")
	flag.StringVar(&fLedger, "ledger", "", "sqlite file to record builds in")

	flag.BoolVar(&fAnnotate, "annotate", false, "draw a crosshair and label on the target")
	flag.BoolVar(&fDebugGrid, "debuggrid", false, "also write the raw canvas with the tile grid drawn on it")
	flag.BoolVar(&fPreview, "preview", false, "also write a small preview (and a zoom, for small objects)")
	flag.BoolVar(&fReport, "report", true, "write a CSV report of the tiles")
	flag.BoolVar(&fStrict, "strict", false, "refuse to build if the neighbour direction check fails")
	flag.BoolVar(&fList, "list", false, "list the Messier catalog and the surveys, then exit")
	flag.Parse()

	log.Printf("hips-mosaic starting\n")
}

func loadConfig() mosaic.Config {
	cfg := mosaic.NewConfig()
	if fConfigFile != "" {
		var err error
		if cfg, err = mosaic.LoadConfig(fConfigFile); err != nil {
			log.Fatal(err)
		}
	}

	// Override the config file with command line args, if relevant
	if fVerbosity > 0 {
		cfg.Verbosity = fVerbosity
	}
	if fSurvey != "" {
		cfg.Survey = fSurvey
	}
	if fOrder >= 0 {
		cfg.Order = fOrder
	}
	if fGridWidth > 0 {
		cfg.GridWidth = fGridWidth
	}
	if fGridHeight > 0 {
		cfg.GridHeight = fGridHeight
	}
	if fOutputSize > 0 {
		cfg.OutputSize = fOutputSize
	}
	if fWorkers > 0 {
		cfg.Workers = fWorkers
	}
	if fCacheDir != "" {
		cfg.CacheDir = fCacheDir
	}
	if fLedger != "" {
		cfg.LedgerPath = fLedger
	}

	// Just set the bool vars, unless the config file asked for them
	cfg.Annotate = cfg.Annotate || fAnnotate
	cfg.DebugGrid = cfg.DebugGrid || fDebugGrid
	cfg.Preview = cfg.Preview || fPreview
	cfg.StrictDirections = cfg.StrictDirections || fStrict

	if err := cfg.Validate(); err != nil {
		log.Fatalf("bad configuration: %v\n", err)
	}
	return cfg
}

// target works out what we're looking at. obj is nil for bare coordinates.
func target(cat *catalog.Catalog) (name string, c sky.Coord, obj *catalog.Object) {
	if fObject != "" {
		o, ok := cat.ByName(fObject)
		if !ok {
			log.Fatalf("'%s' is not in the Messier catalog\n", fObject)
		}
		return o.Label(), o.Coord(), &o
	}
	if fRA == "" || fDec == "" {
		log.Fatal("need -object, or both -ra and -dec")
	}
	c, err := sky.Parse(fRA, fDec)
	if err != nil {
		log.Fatal(err)
	}
	return c.Sexagesimal(), c, nil
}

func outputBase(name string) string {
	if fOutput != "" {
		return strings.TrimSuffix(fOutput, filepath.Ext(fOutput))
	}
	base := strings.Fields(name)
	if len(base) == 0 {
		return "mosaic"
	}
	return "mosaic-" + strings.NewReplacer(":", "", "+", "p", "-", "m").Replace(base[0])
}

func list(cat *catalog.Catalog, reg *hips.Registry) {
	for _, o := range cat.All() {
		fmt.Println(o)
	}
	fmt.Println()
	for _, name := range reg.Names() {
		s, _ := reg.Get(name)
		fmt.Println(s)
	}
}

func main() {
	cat, err := catalog.Load()
	if err != nil {
		log.Fatal(err)
	}
	cfg := loadConfig()
	if fList {
		list(cat, cfg.Registry())
		return
	}

	name, coord, obj := target(cat)
	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	ix := hips.NewIndex(nil)
	b, err := mosaic.NewBuild(cfg, name, coord)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%s\n", b)

	if err := b.CheckDirections(ix); err != nil {
		log.Fatalf("refusing to build: %v\n", err)
	}

	if err := b.ComputeGrid(ix); err != nil {
		log.Fatalf("ComputeGrid failed, err: %v\n", err)
	}
	if cfg.Verbosity > 0 {
		log.Printf("grid:\n%s\n", b.Layout.Grid)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stats := fetchTiles(ctx, b)

	if err := b.Assemble(); err != nil {
		log.Fatal(err)
	}
	if err := b.Center(); err != nil {
		log.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		log.Fatal(err)
	}

	base := filepath.Join(cfg.OutputDir, outputBase(name))
	outfile := base + ".png"
	if fOutput != "" {
		outfile = filepath.Join(cfg.OutputDir, fOutput)
	}
	writeOutputs(b, obj, base, outfile)

	if cfg.LedgerPath != "" {
		db, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := db.Record(b, outfile); err != nil {
			log.Printf("ledger: %v\n", err)
		}
	}

	log.Printf("fetch: %s\n", stats.Summary())
	log.Printf("%s: %d/%d tiles, target %s, written to '%s'\n",
		b, b.Layout.Retrieved(), len(b.Layout.Tiles), b.Placement, outfile)
}

// fetchTiles drives the TilesPending state: every tile is settled exactly once, whether
// or not it arrived.
func fetchTiles(ctx context.Context, b *mosaic.Build) *fetch.Stats {
	tiles, err := b.BeginFetch()
	if err != nil {
		log.Fatal(err)
	}

	fetcher := fetch.NewFetcher(fetch.WithTimeout(b.Timeout), fetch.WithUserAgent(b.UserAgent))
	cache := fetch.NewDiskCache(b.CacheDir, fetcher)
	cache.Verbosity = b.Verbosity
	stats := fetch.NewStats()
	pool := &fetch.Pool{Source: cache, Workers: b.Workers, Stats: stats, Verbosity: b.Verbosity}

	locs := make([]hips.TileLocator, len(tiles))
	for i, t := range tiles {
		locs[i] = t.Locator
	}

	pool.Run(ctx, locs, func(i int, r fetch.Result) {
		t := tiles[i]
		if r.Success {
			t.Filename = cache.Path(t.Locator)
		}
		if err := b.TileSettled(t, r.Image, r.Size, r.Err); err != nil {
			log.Printf("tile %s: %v\n", t.Locator, err)
		}
	})
	return stats
}

func writeOutputs(b *mosaic.Build, obj *catalog.Object, base, outfile string) {
	var img image.Image = b.Result.Image
	if b.Annotate {
		lines := []string{
			b.Name,
			b.Target.Sexagesimal(),
			fmt.Sprintf("%s order %d", b.Survey, b.Order),
		}
		img = mosaic.Annotate(img, b.Result.TargetInCrop, lines, b.GetAnnotationColor())
	}
	if err := mosaic.WriteImage(img, outfile); err != nil {
		log.Fatal(err)
	}

	if b.DebugGrid {
		if err := mosaic.WritePNG(mosaic.DebugGrid(b.Canvas, b.Layout), base+"-grid.png"); err != nil {
			log.Printf("debug grid: %v\n", err)
		}
	}

	if b.Preview {
		if err := mosaic.WritePNG(mosaic.Preview(img, b.PreviewSize), base+"-preview.png"); err != nil {
			log.Printf("preview: %v\n", err)
		}
		// Small objects get a zoomed view as well
		if obj != nil {
			side := mosaic.ZoomSide(obj.LargestArcmin(), b.GetArcsecPerPixel(), 128)
			if side < b.OutputSize/2 {
				zoom := mosaic.ZoomAround(img, b.Result.TargetInCrop, side, b.PreviewSize)
				if err := mosaic.WritePNG(zoom, base+"-zoom.png"); err != nil {
					log.Printf("zoom: %v\n", err)
				}
			}
		}
	}

	if fReport {
		if err := mosaic.WriteReportFile(b.Layout, base+"-tiles.csv"); err != nil {
			log.Printf("report: %v\n", err)
		}
	}
}
