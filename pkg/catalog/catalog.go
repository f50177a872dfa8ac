// Package catalog is the Messier catalog: 110 deep sky objects, with the positions and
// sizes needed to aim and frame a mosaic.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/hips-mosaic/pkg/sky"
)

//go:embed messier.yaml
var messierYaml []byte

// UnknownMagnitude is what the catalog records when it has no magnitude.
const UnknownMagnitude = 20.0

type ObjectType int

const (
	UnknownType ObjectType = iota
	Galaxy
	GlobularCluster
	OpenCluster
	Nebula
	PlanetaryNebula
	SupernovaRemnant
	DoubleStar
	Asterism
	StarCloud
)

var typeNames = map[ObjectType]string{
	Galaxy:           "galaxy",
	GlobularCluster:  "globular_cluster",
	OpenCluster:      "open_cluster",
	Nebula:           "nebula",
	PlanetaryNebula:  "planetary_nebula",
	SupernovaRemnant: "supernova_remnant",
	DoubleStar:       "double_star",
	Asterism:         "asterism",
	StarCloud:        "star_cloud",
}

func (t ObjectType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

func ParseObjectType(s string) (ObjectType, error) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return UnknownType, fmt.Errorf("unknown object type %q", s)
}

func (t *ObjectType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseObjectType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t ObjectType) MarshalYAML() (interface{}, error) { return t.String(), nil }

type Object struct {
	ID            int
	Name          string
	CommonName    string `yaml:"commonname,omitempty"`
	Type          ObjectType
	Constellation string
	RAHours       float64 `yaml:"rahours"`
	DecDeg        float64 `yaml:"decdeg"`
	Magnitude     float64
	DistanceKly   float64    `yaml:"distancekly"`
	SizeArcmin    [2]float64 `yaml:"sizearcmin"`
	Description   string
	BestViewed    string `yaml:"bestviewed"`
	Imaged        bool   `yaml:"imaged,omitempty"`
}

// Coord converts the catalog's RA hours into degrees.
func (o Object) Coord() sky.Coord {
	return sky.Coord{RA: o.RAHours * 15, Dec: o.DecDeg}
}

func (o Object) HasMagnitude() bool { return o.Magnitude != UnknownMagnitude }

// LargestArcmin is the bigger of the two angular dimensions.
func (o Object) LargestArcmin() float64 {
	if o.SizeArcmin[0] > o.SizeArcmin[1] {
		return o.SizeArcmin[0]
	}
	return o.SizeArcmin[1]
}

// Label is "M51 Whirlpool Galaxy", or just "M2".
func (o Object) Label() string {
	if o.CommonName == "" {
		return o.Name
	}
	return o.Name + " " + o.CommonName
}

func (o Object) String() string {
	mag := "?"
	if o.HasMagnitude() {
		mag = fmt.Sprintf("%.1f", o.Magnitude)
	}
	return fmt.Sprintf("%-5s %-28s %-18s %-16s %s mag %s", o.Name, o.CommonName, o.Type, o.Constellation, o.Coord().Sexagesimal(), mag)
}

// Catalog is read-only once loaded and safe to share.
type Catalog struct {
	objects []Object // sorted by ID
	byName  map[string]int
}

// Load builds the catalog from the embedded data.
func Load() (*Catalog, error) {
	return parse(messierYaml)
}

func parse(b []byte) (*Catalog, error) {
	var objs []Object
	if err := yaml.UnmarshalStrict(b, &objs); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].ID < objs[j].ID })

	c := &Catalog{objects: objs, byName: map[string]int{}}
	for i, o := range objs {
		if err := o.Coord().Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name, err)
		}
		for _, k := range []string{o.Name, o.CommonName} {
			k = nameKey(k)
			if k == "" {
				continue
			}
			if _, dup := c.byName[k]; dup {
				return nil, fmt.Errorf("duplicate catalog name %q", k)
			}
			c.byName[k] = i
		}
	}
	return c, nil
}

func nameKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (c *Catalog) Len() int { return len(c.objects) }

// All returns a copy of every object, in ID order.
func (c *Catalog) All() []Object {
	return append([]Object(nil), c.objects...)
}

func (c *Catalog) ByID(id int) (Object, bool) {
	i := sort.Search(len(c.objects), func(i int) bool { return c.objects[i].ID >= id })
	if i < len(c.objects) && c.objects[i].ID == id {
		return c.objects[i], true
	}
	return Object{}, false
}

// ByName accepts "M51", "m 51", "51" or a common name like "whirlpool galaxy".
func (c *Catalog) ByName(name string) (Object, bool) {
	k := nameKey(name)
	if i, ok := c.byName[k]; ok {
		return c.objects[i], true
	}
	k = strings.TrimSpace(strings.TrimPrefix(k, "m"))
	if id, err := strconv.Atoi(k); err == nil {
		return c.ByID(id)
	}
	return Object{}, false
}

func (c *Catalog) filter(keep func(Object) bool) []Object {
	var out []Object
	for _, o := range c.objects {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// Imaged lists the objects we have already produced mosaics for.
func (c *Catalog) Imaged() []Object {
	return c.filter(func(o Object) bool { return o.Imaged })
}

func (c *Catalog) ByType(t ObjectType) []Object {
	return c.filter(func(o Object) bool { return o.Type == t })
}

func (c *Catalog) ByConstellation(name string) []Object {
	return c.filter(func(o Object) bool { return strings.EqualFold(o.Constellation, strings.TrimSpace(name)) })
}

// Names lists "M1".."M110" in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.objects))
	for i, o := range c.objects {
		out[i] = o.Name
	}
	return out
}
