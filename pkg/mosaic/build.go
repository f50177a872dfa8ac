package mosaic

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abworrall/hips-mosaic/pkg/hips"
	"github.com/abworrall/hips-mosaic/pkg/sky"
)

var (
	ErrBadTransition  = errors.New("illegal build state transition")
	ErrAlreadySettled = errors.New("tile already settled")
	ErrNotFetchable   = errors.New("tile has no data to fetch")
)

// State is where a Build is in its life:
//
//	Idle -> GridComputed -> TilesPending(n) -> RawAssembled -> Centered -> Done
type State int

const (
	StateIdle State = iota
	StateGridComputed
	StateTilesPending
	StateRawAssembled
	StateCentered
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateGridComputed:
		return "GridComputed"
	case StateTilesPending:
		return "TilesPending"
	case StateRawAssembled:
		return "RawAssembled"
	case StateCentered:
		return "Centered"
	case StateDone:
		return "Done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Build holds one mosaic from target coordinate to centred crop. The fetcher drives the
// TilesPending state by calling TileSettled once per tile, from any goroutine.
type Build struct {
	ID     string
	Name   string // what we are looking at, for labels
	Target sky.Coord
	Config

	Started  time.Time
	Finished time.Time

	Layout    *Layout
	Canvas    *image.RGBA
	Placement Placement
	Result    CenteredMosaic

	DirectionWarning string // set when the neighbour direction check failed

	mu      sync.Mutex
	state   State
	pending int
	failed  int
}

func NewBuild(cfg Config, name string, target sky.Coord) (*Build, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Build{
		ID:      uuid.New().String(),
		Name:    name,
		Target:  target,
		Config:  cfg,
		Started: time.Now(),
	}, nil
}

func (b *Build) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Pending is the number of tiles still awaited in TilesPending.
func (b *Build) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

func (b *Build) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

func (b *Build) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	str := fmt.Sprintf("Build %s '%s' at %s [%s", b.ID, b.Name, b.Target, b.state)
	if b.state == StateTilesPending {
		str += fmt.Sprintf("(%d)", b.pending)
	}
	return str + "]"
}

// must be called with b.mu held
func (b *Build) expect(s State) error {
	if b.state != s {
		return fmt.Errorf("%w: in %s, need %s", ErrBadTransition, b.state, s)
	}
	return nil
}

// CheckDirections runs the neighbour direction check around the target, when configured.
// A failure is logged and kept in DirectionWarning; only StrictDirections makes it an error.
func (b *Build) CheckDirections(ix *hips.Index) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateIdle); err != nil {
		return err
	}
	if !b.ReferenceCheck {
		return nil
	}

	err := hips.VerifyDirections(ix, b.Target, b.Order)
	if err == nil {
		return nil
	}
	b.DirectionWarning = err.Error()
	if b.StrictDirections {
		return fmt.Errorf("neighbour directions look wrong: %w", err)
	}
	log.Printf("build %s: neighbour directions look wrong, tiles may be misplaced: %v\n", b.ID, err)
	return nil
}

// ComputeGrid finds the target's pixel and lays out the tile grid around it.
func (b *Build) ComputeGrid(ix *hips.Index) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateIdle); err != nil {
		return err
	}

	center, err := ix.ToPixel(b.Target, b.Order)
	if err != nil {
		return fmt.Errorf("compute grid: %w", err)
	}
	if !center.Valid() {
		return fmt.Errorf("compute grid: no pixel for %s: %w", b.Target, hips.ErrInvalidAddress)
	}

	grid, err := ix.BuildNxM(center, b.GridWidth, b.GridHeight)
	if err != nil {
		return fmt.Errorf("compute grid: %w", err)
	}
	if grid.Status == hips.GridPureEstimate {
		log.Printf("build %s: grid is a pure estimate, tiles may not be true neighbours\n", b.ID)
	}

	reg := b.Registry()
	layout, err := NewLayout(ix, reg, b.Survey, grid, b.TileSize)
	if err != nil {
		return fmt.Errorf("compute grid: %w", err)
	}
	if s, _ := reg.Get(b.Survey); !s.Supports(b.Order) {
		log.Printf("build %s: %s only goes to order %d, expect missing tiles at order %d\n", b.ID, s.Name, s.MaxOrder, b.Order)
	}

	b.Layout = layout
	b.state = StateGridComputed
	if b.Verbosity > 0 {
		log.Printf("build %s: target %s is %s\n%s", b.ID, b.Target, center, grid)
	}
	return nil
}

// BeginFetch allocates the canvas and returns the tiles the fetcher should retrieve.
// With nothing to fetch the build is immediately TilesPending(0).
func (b *Build) BeginFetch() ([]*Tile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateGridComputed); err != nil {
		return nil, err
	}

	b.Canvas = NewCanvas(b.Layout, b.GetBackground())
	tiles := b.Layout.Fetchable()
	b.pending = len(tiles)
	b.state = StateTilesPending
	return tiles, nil
}

// TileSettled records one fetch outcome. img may be nil and err non-nil; either way the
// tile counts as settled and a failed tile stays background. The tile is painted as soon
// as it arrives.
func (b *Build) TileSettled(t *Tile, img image.Image, size int, err error) error {
	b.mu.Lock()
	if e := b.expect(StateTilesPending); e != nil {
		b.mu.Unlock()
		return e
	}
	if t.settled {
		b.mu.Unlock()
		return fmt.Errorf("tile [%d,%d]: %w", t.GridX, t.GridY, ErrAlreadySettled)
	}
	if b.Layout.Tile(t.GridX, t.GridY) != t {
		b.mu.Unlock()
		return fmt.Errorf("tile [%d,%d] is not part of build %s", t.GridX, t.GridY, b.ID)
	}
	if !t.Fetchable() {
		b.mu.Unlock()
		return fmt.Errorf("tile [%d,%d]: %w", t.GridX, t.GridY, ErrNotFetchable)
	}
	t.settled = true
	t.Bytes = size
	t.Err = err
	if err == nil && img != nil {
		t.Image = img
		t.Retrieved = true
	} else {
		b.failed++
		if t.Err == nil {
			t.Err = errors.New("no image")
		}
	}
	canvas := b.Canvas
	b.mu.Unlock()

	// Cells are disjoint, so painting needs no lock
	Blit(canvas, b.Layout, t)

	b.mu.Lock()
	b.pending--
	remaining := b.pending
	b.mu.Unlock()

	if b.Verbosity > 1 {
		log.Printf("build %s: settled %s, %d remaining\n", b.ID, t, remaining)
	}
	return nil
}

// Assemble closes the fetch phase. It needs every tile settled; how many succeeded does
// not matter.
func (b *Build) Assemble() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateTilesPending); err != nil {
		return err
	}
	if b.pending != 0 {
		return fmt.Errorf("%w: %d tiles still pending", ErrBadTransition, b.pending)
	}
	if got := b.Layout.Retrieved(); got == 0 {
		log.Printf("build %s: no tiles retrieved, mosaic is all background\n", b.ID)
	} else if b.failed > 0 {
		log.Printf("build %s: %d tiles retrieved, %d failed\n", b.ID, got, b.failed)
	}
	b.state = StateRawAssembled
	return nil
}

// Center places the target on the canvas and crops around it.
func (b *Build) Center() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateRawAssembled); err != nil {
		return err
	}

	b.Placement = b.Centering().TargetPixel(b.Target, b.Layout)
	if b.Placement.Fallback {
		log.Printf("build %s: centering fell back to the canvas centre: %s\n", b.ID, b.Placement.Reason)
	} else if b.Verbosity > 0 {
		log.Printf("build %s: target at %s\n", b.ID, b.Placement)
	}

	result, err := CropToCenter(b.Canvas, b.Placement.Pixel, b.OutputSize)
	if err != nil {
		return fmt.Errorf("center: %w", err)
	}
	if result.Residual > b.ResidualWarnPixels {
		log.Printf("build %s: target is %.1fpx from the crop centre (crop %v, shifted=%v)\n",
			b.ID, result.Residual, result.Crop, result.Shifted)
	}
	b.Result = result
	b.state = StateCentered
	return nil
}

func (b *Build) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.expect(StateCentered); err != nil {
		return err
	}
	b.Finished = time.Now()
	b.state = StateDone
	return nil
}
