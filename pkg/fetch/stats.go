package fetch

import (
	"fmt"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
)

// Stats accumulates fetch latency and size. It is safe for concurrent use.
type Stats struct {
	mu       sync.Mutex
	latency  *hdrhistogram.Histogram // microseconds
	sizes    *hdrhistogram.Histogram // bytes
	count    int
	failures int
	bytes    int64
}

func NewStats() *Stats {
	return &Stats{
		latency: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
		sizes:   hdrhistogram.New(1, maxTileBytes, 3),
	}
}

func (s *Stats) Add(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if !r.Success {
		s.failures++
	}
	us := r.Duration.Microseconds()
	if us < 1 {
		us = 1
	}
	// out of range values are dropped by the histogram; the counters still see them
	_ = s.latency.RecordValue(us)
	if r.Size > 0 {
		s.bytes += int64(r.Size)
		_ = s.sizes.RecordValue(int64(r.Size))
	}
}

type Summary struct {
	Count, Failures int
	Bytes           int64
	P50, P90, Max   time.Duration
	MedianSize      int64
}

func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{Count: s.count, Failures: s.failures, Bytes: s.bytes}
	if s.count == 0 {
		return sum
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	sum.P50 = us(s.latency.ValueAtQuantile(50))
	sum.P90 = us(s.latency.ValueAtQuantile(90))
	sum.Max = us(s.latency.Max())
	sum.MedianSize = s.sizes.ValueAtQuantile(50)
	return sum
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tiles, %d failed, %.1fKB; latency p50 %s p90 %s max %s",
		s.Count, s.Failures, float64(s.Bytes)/1024, s.P50.Round(time.Millisecond),
		s.P90.Round(time.Millisecond), s.Max.Round(time.Millisecond))
}
