package emath

import "math"

// Some functions that only operate on basic types, that are useful

const (
	ArcsecPerRadian = 180.0 * 3600.0 / math.Pi
	ArcsecPerDegree = 3600.0
)

func Deg2Rad(d float64) float64 { return d * math.Pi / 180.0 }
func Rad2Deg(r float64) float64 { return r * 180.0 / math.Pi }

// WrapDeg360 maps an angle into [0,360).
func WrapDeg360(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	if d >= 360.0 {
		d = 0
	}
	return d
}

// WrapDeg180 maps an angle into [-180,180).
func WrapDeg180(d float64) float64 {
	d = WrapDeg360(d + 180.0)
	return d - 180.0
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
