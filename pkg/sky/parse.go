package sky

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseRA reads a right ascension and returns degrees. Accepted forms:
//
//	"13:29:52.7", "13 29 52.7", "13h29m52.7s"  (hours, minutes, seconds)
//	"202.4696", "202.4696d"                    (degrees)
//	"13.4979h"                                 (decimal hours)
func ParseRA(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty RA", ErrInvalidCoordinate)
	}

	var deg float64
	if fields, sexagesimal := splitSexagesimal(s, "hms"); sexagesimal {
		h, err := sexagesimalValue(fields)
		if err != nil {
			return 0, fmt.Errorf("ra '%s': %w", s, err)
		}
		deg = h * 15
	} else if strings.HasSuffix(s, "h") {
		h, err := strconv.ParseFloat(strings.TrimSuffix(s, "h"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: ra '%s': %v", ErrInvalidCoordinate, s, err)
		}
		deg = h * 15
	} else {
		d, err := strconv.ParseFloat(strings.TrimSuffix(s, "d"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: ra '%s': %v", ErrInvalidCoordinate, s, err)
		}
		deg = d
	}

	if math.IsNaN(deg) || deg < 0 || deg >= 360 {
		return 0, fmt.Errorf("%w: ra '%s' -> %v not in [0,360)", ErrInvalidCoordinate, s, deg)
	}
	return deg, nil
}

// ParseDec reads a declination and returns degrees. Accepted forms:
//
//	"+47:11:43", "-5 23 28", "47d11m43s", "-29.0"
func ParseDec(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty Dec", ErrInvalidCoordinate)
	}

	sign := 1.0
	body := s
	switch body[0] {
	case '-':
		sign, body = -1, body[1:]
	case '+':
		body = body[1:]
	}

	var deg float64
	if fields, sexagesimal := splitSexagesimal(body, "dms"); sexagesimal {
		d, err := sexagesimalValue(fields)
		if err != nil {
			return 0, fmt.Errorf("dec '%s': %w", s, err)
		}
		deg = d
	} else {
		d, err := strconv.ParseFloat(strings.TrimSuffix(body, "d"), 64)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("%w: dec '%s'", ErrInvalidCoordinate, s)
		}
		deg = d
	}

	deg *= sign
	if math.IsNaN(deg) || deg < -90 || deg > 90 {
		return 0, fmt.Errorf("%w: dec '%s' -> %v not in [-90,90]", ErrInvalidCoordinate, s, deg)
	}
	return deg, nil
}

// Parse reads an RA and a Dec string into a validated Coord.
func Parse(ra, dec string) (Coord, error) {
	r, err := ParseRA(ra)
	if err != nil {
		return Coord{}, err
	}
	d, err := ParseDec(dec)
	if err != nil {
		return Coord{}, err
	}
	return New(r, d)
}

// splitSexagesimal splits "a:b:c", "a b c" or "a<u1>b<u2>c<u3>" into fields. The second
// return is false when the string is a single plain number.
func splitSexagesimal(s, units string) ([]string, bool) {
	seps := func(r rune) bool {
		return r == ':' || unicode.IsSpace(r) || strings.ContainsRune(units, r) || r == '\'' || r == '"'
	}
	fields := strings.FieldsFunc(s, seps)
	if len(fields) < 2 {
		return nil, false
	}
	return fields, true
}

func sexagesimalValue(fields []string) (float64, error) {
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: too many fields %q", ErrInvalidCoordinate, fields)
	}
	scale := 1.0
	total := 0.0
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: bad field %q", ErrInvalidCoordinate, f)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: field %q must be < 60", ErrInvalidCoordinate, f)
		}
		total += v / scale
		scale *= 60
	}
	return total, nil
}

// FormatHMS renders an RA in degrees as "hh:mm:ss.s".
func FormatHMS(raDeg float64) string {
	h := raDeg / 15
	hh := math.Floor(h)
	m := (h - hh) * 60
	mm := math.Floor(m)
	ss := (m - mm) * 60
	if ss >= 59.95 {
		ss = 0
		mm++
	}
	if mm >= 60 {
		mm = 0
		hh++
	}
	return fmt.Sprintf("%02d:%02d:%04.1f", int(hh)%24, int(mm), ss)
}

// FormatDMS renders a Dec in degrees as "+dd:mm:ss".
func FormatDMS(decDeg float64) string {
	sign := "+"
	if decDeg < 0 {
		sign = "-"
		decDeg = -decDeg
	}
	dd := math.Floor(decDeg)
	m := (decDeg - dd) * 60
	mm := math.Floor(m)
	ss := math.Round((m - mm) * 60)
	if ss >= 60 {
		ss = 0
		mm++
	}
	if mm >= 60 {
		mm = 0
		dd++
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, int(dd), int(mm), int(ss))
}
