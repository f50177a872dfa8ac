package mosaic

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/hips-mosaic/pkg/hips"
)

type Config struct {
	Verbosity int

	Survey     string
	Order      int
	GridWidth  int
	GridHeight int
	TileSize   int // pixels per tile side; HiPS tiles are 512

	ArcsecPerPixel     float64 // image scale; 0 means derive it from Order and TileSize
	OutputSize         int     // side of the final square crop, in pixels
	MaxOffsetFraction  float64 // centering offsets beyond this fraction of a tile are rejected
	ResidualWarnPixels float64 // log if the target lands further than this from the crop centre

	Background      string // hex colour for cells with no tile
	AnnotationColor string // hex colour for the crosshair and labels
	Annotate        bool
	DebugGrid       bool
	Preview         bool
	PreviewSize     int

	Workers   int
	Timeout   time.Duration
	UserAgent string

	CacheDir   string
	LedgerPath string
	OutputDir  string

	ReferenceCheck   bool // verify the neighbour direction table before building
	StrictDirections bool // refuse to build when that check fails, rather than warn

	Surveys []hips.Survey // added to (or replacing) the built-in surveys
}

func NewConfig() Config {
	return Config{
		Survey:             "DSS2_Color",
		Order:              8,
		GridWidth:          3,
		GridHeight:         3,
		TileSize:           512,
		OutputSize:         1200,
		MaxOffsetFraction:  0.8,
		ResidualWarnPixels: 2,
		Background:         "#000000",
		AnnotationColor:    "#ff3030",
		PreviewSize:        512,
		Workers:            9,
		Timeout:            15 * time.Second,
		UserAgent:          "hips-mosaic/1.0",
		CacheDir:           "tiles",
		OutputDir:          ".",
		ReferenceCheck:     true,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

// LoadConfig reads a yaml file over the defaults.
func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read '%s': %w", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return Config{}, fmt.Errorf("config parse '%s': %w", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Printf("Can't marshal config yaml: %v\n", err)
		return ""
	}
	return string(b)
}

func (c Config) Validate() error {
	switch {
	case c.Order < 0 || c.Order > hips.MaxOrder:
		return fmt.Errorf("order %d: %w", c.Order, hips.ErrInvalidOrder)
	case c.GridWidth < 1 || c.GridHeight < 1:
		return fmt.Errorf("grid %dx%d: %w", c.GridWidth, c.GridHeight, hips.ErrInvalidGridSize)
	case c.TileSize < 1:
		return fmt.Errorf("tilesize %d must be positive", c.TileSize)
	case c.OutputSize < 1:
		return fmt.Errorf("outputsize %d must be positive", c.OutputSize)
	case c.ArcsecPerPixel < 0:
		return fmt.Errorf("arcsecperpixel %v must not be negative", c.ArcsecPerPixel)
	case c.MaxOffsetFraction <= 0:
		return fmt.Errorf("maxoffsetfraction %v must be positive", c.MaxOffsetFraction)
	}
	if _, err := colorful.Hex(c.Background); err != nil {
		return fmt.Errorf("background '%s': %w", c.Background, err)
	}
	if _, err := colorful.Hex(c.AnnotationColor); err != nil {
		return fmt.Errorf("annotationcolor '%s': %w", c.AnnotationColor, err)
	}
	if _, ok := c.Registry().Get(c.Survey); !ok {
		return fmt.Errorf("no survey named '%s'", c.Survey)
	}
	return nil
}

func (c Config) Registry() *hips.Registry { return hips.NewRegistry(c.Surveys...) }

// GetArcsecPerPixel returns the configured scale, or the HEALPix-derived one.
func (c Config) GetArcsecPerPixel() float64 {
	if c.ArcsecPerPixel > 0 {
		return c.ArcsecPerPixel
	}
	return hips.ArcsecPerPixel(c.Order, c.TileSize)
}

func (c Config) GetBackground() color.RGBA      { return hexColor(c.Background, color.RGBA{0, 0, 0, 255}) }
func (c Config) GetAnnotationColor() color.RGBA { return hexColor(c.AnnotationColor, color.RGBA{255, 48, 48, 255}) }

func hexColor(hex string, fallback color.RGBA) color.RGBA {
	cf, err := colorful.Hex(hex)
	if err != nil {
		log.Printf("bad colour '%s' (%v), using %v\n", hex, err, fallback)
		return fallback
	}
	r, g, b := cf.RGB255()
	return color.RGBA{r, g, b, 255}
}

func (c Config) Centering() Centering {
	return Centering{
		TileSize:          c.TileSize,
		ArcsecPerPixel:    c.GetArcsecPerPixel(),
		MaxOffsetFraction: c.MaxOffsetFraction,
	}
}
