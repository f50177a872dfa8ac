package hips

import (
	"fmt"
	"sort"
	"strings"
)

// Survey is a HiPS image survey: a base URL under which tiles live, and their format.
type Survey struct {
	Name        string
	BaseURL     string
	Format      string // file extension: jpg, png, webp
	MaxOrder    int
	Description string
}

func (s Survey) String() string {
	return fmt.Sprintf("%s (%s, %s, order<=%d)", s.Name, s.BaseURL, s.Format, s.MaxOrder)
}

// Supports reports whether tiles exist at this order.
func (s Survey) Supports(order int) bool {
	return order >= 0 && (s.MaxOrder == 0 || order <= s.MaxOrder)
}

// DefaultSurveys are the surveys known out of the box.
var DefaultSurveys = []Survey{
	{"DSS2_Color", "http://alasky.u-strasbg.fr/DSS/DSSColor", "jpg", 11, "DSS2 optical color composite"},
	{"DSS2_Red", "http://alasky.u-strasbg.fr/DSS/DSS2-red", "jpg", 11, "DSS2 red plates"},
	{"2MASS_Color", "http://alasky.u-strasbg.fr/2MASS/Color", "jpg", 9, "2MASS near-infrared color composite"},
	{"2MASS_J", "http://alasky.u-strasbg.fr/2MASS/J", "jpg", 9, "2MASS J band"},
	{"Gaia_DR3", "http://alasky.u-strasbg.fr/Gaia/Gaia-DR3", "png", 13, "Gaia DR3 density map"},
	{"SDSS_DR12", "http://alasky.u-strasbg.fr/SDSS/DR12/color", "jpg", 12, "SDSS DR12 color"},
	{"Mellinger_Color", "http://alasky.u-strasbg.fr/Mellinger/Mellinger_color", "jpg", 8, "Mellinger all-sky optical mosaic"},
	{"Rubin_Virgo_Color", "https://images.rubinobservatory.org/hips/SVImages_v2/color_ugri", "webp", 12, "Rubin science validation, Virgo field, ugri"},
}

// Registry is an immutable set of surveys, keyed by name.
type Registry struct {
	surveys map[string]Survey
}

// NewRegistry holds DefaultSurveys plus extra; an extra survey with a default's name
// replaces it.
func NewRegistry(extra ...Survey) *Registry {
	r := &Registry{surveys: map[string]Survey{}}
	for _, s := range DefaultSurveys {
		r.surveys[s.Name] = s
	}
	for _, s := range extra {
		s.BaseURL = strings.TrimRight(s.BaseURL, "/")
		s.Format = strings.TrimPrefix(s.Format, ".")
		r.surveys[s.Name] = s
	}
	return r
}

func (r *Registry) Get(name string) (Survey, bool) {
	s, ok := r.surveys[name]
	return s, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.surveys))
	for n := range r.surveys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
