package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/abworrall/hips-mosaic/pkg/hips"
)

// Result is the outcome of fetching one tile.
type Result struct {
	Survey   string
	URL      string
	Pixel    int64
	Order    int
	Success  bool
	Status   int // HTTP status, 0 if we never got one
	Err      error
	Image    image.Image
	Size     int
	Duration time.Duration
	Time     time.Time
}

func (r Result) String() string {
	if r.Success {
		return fmt.Sprintf("%s order %d pix %d: ok %dB in %s", r.Survey, r.Order, r.Pixel, r.Size, r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf("%s order %d pix %d: %v", r.Survey, r.Order, r.Pixel, r.Err)
}

// Pool fetches and decodes tiles with a fixed number of workers.
type Pool struct {
	Source    Source
	Workers   int
	Stats     *Stats // optional
	Verbosity int
}

type job struct {
	i   int
	loc hips.TileLocator
}

// Run fetches every locator and calls fn once per locator, from the worker goroutines,
// as each one finishes. fn must be safe to call concurrently. Run returns when all of
// them have been reported; a cancelled ctx makes the remainder fail quickly.
func (p *Pool) Run(ctx context.Context, locs []hips.TileLocator, fn func(i int, r Result)) {
	var wg sync.WaitGroup
	jobs := make(chan job, len(locs))

	nWorkers := p.Workers
	if nWorkers < 1 {
		nWorkers = 1
	}
	if nWorkers > len(locs) {
		nWorkers = len(locs)
	}

	for i := 0; i < nWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r := p.fetchOne(ctx, j.loc)
				if p.Stats != nil {
					p.Stats.Add(r)
				}
				if p.Verbosity > 0 {
					log.Printf(" -- %s\n", r)
				}
				fn(j.i, r)
			}
		}()
	}

	for i, loc := range locs {
		jobs <- job{i, loc}
	}
	close(jobs)
	wg.Wait()
}

func (p *Pool) fetchOne(ctx context.Context, loc hips.TileLocator) (r Result) {
	r = Result{
		Survey: loc.Survey,
		URL:    loc.URL(),
		Pixel:  loc.Address.Index,
		Order:  loc.Address.Order,
		Time:   time.Now(),
	}
	defer func() { r.Duration = time.Since(r.Time) }()

	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}

	data, err := p.Source.Fetch(ctx, loc)
	if err != nil {
		r.Err = err
		var se *StatusError
		if errors.As(err, &se) {
			r.Status = se.StatusCode
		}
		return r
	}
	r.Status = http.StatusOK
	r.Size = len(data)

	img, err := Decode(data)
	if err != nil {
		r.Err = fmt.Errorf("%s: %w", loc, err)
		return r
	}
	r.Image = img
	r.Success = true
	return r
}
